package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"captchaSolver/models"
)

func newTask(id string, status models.TaskStatus) *models.Task {
	return &models.Task{
		ID:        id,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryStoreTakeKeepsProcessing(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	if err := s.Create(ctx, newTask("t1", models.StatusProcessing)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		task, err := s.Take(ctx, "t1")
		if err != nil {
			t.Fatalf("Take %d failed: %v", i, err)
		}
		if task.Status != models.StatusProcessing {
			t.Fatalf("Take %d: unexpected status %s", i, task.Status)
		}
	}
}

func TestMemoryStoreTakeTerminalIsOneShot(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	task := newTask("t1", models.StatusReady)
	task.Result = "AB3K9"
	if err := s.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Take(ctx, "t1")
	if err != nil {
		t.Fatalf("First take failed: %v", err)
	}
	if got.Result != "AB3K9" {
		t.Errorf("Expected result AB3K9, got %q", got.Result)
	}

	if _, err := s.Take(ctx, "t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("Second take: expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryStoreTakeUnknownID(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()

	if _, err := s.Take(context.Background(), "never-issued"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentTerminalTakes(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	task := newTask("t1", models.StatusError)
	task.ErrorCode = models.CodeUnsolvable
	if err := s.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const pollers = 16
	var wg sync.WaitGroup
	wins := make(chan *models.Task, pollers)

	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, err := s.Take(ctx, "t1"); err == nil {
				wins <- got
			}
		}()
	}
	wg.Wait()
	close(wins)

	var delivered int
	for got := range wins {
		delivered++
		if got.ErrorCode != models.CodeUnsolvable {
			t.Errorf("Winner observed half-written record: %+v", got)
		}
	}
	if delivered != 1 {
		t.Fatalf("Terminal state delivered to %d pollers, want exactly 1", delivered)
	}
}

func TestMemoryStoreUpdateTransitionsState(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	if err := s.Create(ctx, newTask("t1", models.StatusProcessing)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	done := newTask("t1", models.StatusReady)
	done.Result = "XYZ12"
	if err := s.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.Take(ctx, "t1")
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if got.Status != models.StatusReady || got.Result != "XYZ12" {
		t.Errorf("Unexpected task after update: %+v", got)
	}
}

func TestMemoryStoreExpiresOrphanedTasks(t *testing.T) {
	s := NewMemoryStore(20 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	if err := s.Create(ctx, newTask("orphan", models.StatusProcessing)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := s.Take(ctx, "orphan"); errors.Is(err, ErrTaskNotFound) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Orphaned processing task never expired")
}

func TestMemoryStoreCountActive(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Create(ctx, newTask(id, models.StatusProcessing)); err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}

	count, err := s.CountActive(ctx)
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 active tasks, got %d", count)
	}
}
