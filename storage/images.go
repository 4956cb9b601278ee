package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"captchaSolver/metrics"
)

// ImageStore owns the scratch directory holding one temp image per in-flight
// task, named by task id. Files live exactly as long as their task.
type ImageStore struct {
	dir    string
	logger *zap.Logger
}

func NewImageStore(dir string, logger *zap.Logger) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &ImageStore{dir: dir, logger: logger}, nil
}

func (s *ImageStore) Path(taskID string) string {
	return filepath.Join(s.dir, filepath.Base(taskID))
}

func (s *ImageStore) Save(taskID string, data []byte) (string, error) {
	path := s.Path(taskID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write temp image: %w", err)
	}
	return path, nil
}

// Dispose removes a task's temp image. Failures are logged and counted, never
// propagated: a leaked file must not turn a delivered result into an error.
func (s *ImageStore) Dispose(taskID string) {
	err := os.Remove(s.Path(taskID))
	if err == nil || os.IsNotExist(err) {
		return
	}
	metrics.CleanupFailures.Inc()
	s.logger.Warn("Temp image disposal failed",
		zap.String("task_id", taskID),
		zap.Error(err),
	)
}

// TotalBytes reports the aggregate size of all temp images currently held.
func (s *ImageStore) TotalBytes() (int64, error) {
	var total int64
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total, nil
}

// Sweep removes temp images older than maxAge. It backs the janitor that
// clears files whose task record already expired unpolled.
func (s *ImageStore) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("Scratch dir sweep failed", zap.Error(err))
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			metrics.CleanupFailures.Inc()
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Swept expired temp images", zap.Int("removed", removed))
	}
	return removed
}
