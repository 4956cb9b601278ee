package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"captchaSolver/models"
	"captchaSolver/queue"
	"captchaSolver/storage"
	"captchaSolver/store"
)

// stubSolver labels results by image width so concurrent tests can verify
// nothing cross-delivers.
type stubSolver struct {
	ok bool
}

func (s *stubSolver) Solve(ctx context.Context, img image.Image) (string, bool) {
	if !s.ok {
		return "", false
	}
	return fmt.Sprintf("W%dOK", img.Bounds().Dx()), true
}

type fixture struct {
	svc       *TaskService
	processor *Processor
	queue     *queue.ChannelQueue
}

func newFixture(t *testing.T, solver Solver) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	taskStore := store.NewMemoryStore(time.Minute)
	t.Cleanup(func() { taskStore.Close() })

	images, err := storage.NewImageStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Image store failed: %v", err)
	}

	q := queue.NewChannelQueue(32)
	processor := NewProcessor(taskStore, solver, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Consume(ctx, processor.Process)

	svc := NewTaskService(taskStore, images, q, []string{"neural", "enhanced", "basic"}, logger)
	return &fixture{svc: svc, processor: processor, queue: q}
}

func encodedImage(t *testing.T, width int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y * 10), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// waitTerminal polls until the task leaves processing. The successful poll
// is the one-shot delivery.
func waitTerminal(t *testing.T, svc *TaskService, id string) *models.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := svc.Poll(context.Background(), id)
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if task.Terminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Task %s never reached a terminal state", id)
	return nil
}

func TestSubmitIssuesDistinctIDs(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})
	body := encodedImage(t, 40)

	first, err := f.svc.Submit(context.Background(), "trace", body)
	if err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	second, err := f.svc.Submit(context.Background(), "trace", body)
	if err != nil {
		t.Fatalf("Second submit failed: %v", err)
	}
	if first == second {
		t.Fatalf("Duplicate image submissions got the same id %s", first)
	}
}

func TestSubmitRejectsUndecodablePayload(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})

	for _, body := range []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("not an image")),
	} {
		if _, err := f.svc.Submit(context.Background(), "trace", body); !errors.Is(err, ErrImageType) {
			t.Errorf("Expected ErrImageType for %q, got %v", body, err)
		}
	}
}

func TestPollOneShotDelivery(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})

	id, err := f.svc.Submit(context.Background(), "trace", encodedImage(t, 40))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	task := waitTerminal(t, f.svc, id)
	if task.Status != models.StatusReady || task.Result != "W40OK" {
		t.Fatalf("Unexpected terminal task: %+v", task)
	}

	// The delivery above consumed the record; a second poll must look like
	// an id that never existed.
	if _, err := f.svc.Poll(context.Background(), id); !errors.Is(err, store.ErrTaskNotFound) {
		t.Fatalf("Second poll: expected ErrTaskNotFound, got %v", err)
	}
}

func TestPollUnknownID(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})

	if _, err := f.svc.Poll(context.Background(), "never-issued"); !errors.Is(err, store.ErrTaskNotFound) {
		t.Fatalf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestUnsolvableTask(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: false})

	id, err := f.svc.Submit(context.Background(), "trace", encodedImage(t, 40))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	task := waitTerminal(t, f.svc, id)
	if task.Status != models.StatusError || task.ErrorCode != models.CodeUnsolvable {
		t.Fatalf("Expected CAPTCHA_UNSOLVABLE error state, got %+v", task)
	}
}

func TestConcurrentSubmitsDoNotCollideOrCrossDeliver(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})

	const n = 16
	type result struct {
		id    string
		width int
	}

	var wg sync.WaitGroup
	results := make(chan result, n)
	for i := 0; i < n; i++ {
		width := 30 + i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := f.svc.Submit(context.Background(), "trace", encodedImage(t, width))
			if err != nil {
				t.Errorf("Submit width=%d failed: %v", width, err)
				return
			}
			results <- result{id: id, width: width}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for r := range results {
		if seen[r.id] {
			t.Fatalf("Task id %s issued twice", r.id)
		}
		seen[r.id] = true

		task := waitTerminal(t, f.svc, r.id)
		want := fmt.Sprintf("W%dOK", r.width)
		if task.Result != want {
			t.Errorf("Task %s cross-delivered: expected %q, got %q", r.id, want, task.Result)
		}
	}
}

func TestStatsReportsEnginesAndActiveTasks(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats.Engines) != 3 {
		t.Errorf("Expected 3 engines, got %v", stats.Engines)
	}
	if stats.ActiveTasks != 0 {
		t.Errorf("Expected 0 active tasks, got %d", stats.ActiveTasks)
	}
}

func TestHealthReportsEngines(t *testing.T) {
	f := newFixture(t, &stubSolver{ok: true})

	health := f.svc.Health(context.Background())
	if health.Status != "healthy" || !health.Store {
		t.Errorf("Unexpected health: %+v", health)
	}
	if !health.Engines["neural"] || !health.Engines["enhanced"] || !health.Engines["basic"] {
		t.Errorf("Engines missing from health: %+v", health.Engines)
	}
}
