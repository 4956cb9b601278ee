package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"captchaSolver/dto"
	"captchaSolver/metrics"
	"captchaSolver/models"
	"captchaSolver/queue"
	"captchaSolver/storage"
	"captchaSolver/store"
)

// ErrImageType marks a submission whose payload could not be decoded as an
// image. No task is created for it.
var ErrImageType = errors.New("payload is not a decodable image")

type TaskService struct {
	store   store.Store
	images  *storage.ImageStore
	queue   queue.Queue
	engines []string
	logger  *zap.Logger
}

func NewTaskService(taskStore store.Store, images *storage.ImageStore, q queue.Queue, engines []string, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:   taskStore,
		images:  images,
		queue:   q,
		engines: engines,
		logger:  logger,
	}
}

// Submit validates and stores one captcha image, creates its task in the
// processing state and enqueues exactly one unit of solve work. The returned
// id is a fresh UUID, never reused, so duplicate images still get distinct
// tasks.
func (s *TaskService) Submit(ctx context.Context, traceID, body string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return "", ErrImageType
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", ErrImageType
	}

	taskID := uuid.New().String()

	imagePath, err := s.images.Save(taskID, data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	task := &models.Task{
		ID:        taskID,
		TraceID:   traceID,
		Status:    models.StatusProcessing,
		ImagePath: imagePath,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, task); err != nil {
		s.images.Dispose(taskID)
		return "", fmt.Errorf("create task: %w", err)
	}

	msg := &queue.Message{
		TaskID:    taskID,
		TraceID:   traceID,
		ImagePath: imagePath,
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		// The record is left to expire via TTL; the image goes now.
		s.images.Dispose(taskID)
		return "", fmt.Errorf("enqueue task: %w", err)
	}

	metrics.TasksSubmitted.Inc()
	s.logger.Info("Task submitted",
		zap.String("trace_id", traceID),
		zap.String("task_id", taskID),
		zap.Int("image_bytes", len(data)),
	)
	return taskID, nil
}

// Poll reads a task's state. A terminal state is delivered to exactly one
// caller: the store deletes the record atomically with the read, and the
// temp image is disposed of best-effort right after. Any later poll for the
// same id behaves as if the id never existed.
func (s *TaskService) Poll(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.store.Take(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Terminal() {
		s.images.Dispose(taskID)
		metrics.TasksDelivered.WithLabelValues(string(task.Status)).Inc()
		s.logger.Info("Task delivered",
			zap.String("task_id", taskID),
			zap.String("status", string(task.Status)),
		)
	}
	return task, nil
}

func (s *TaskService) Health(ctx context.Context) *dto.HealthResponse {
	engines := make(map[string]bool, len(s.engines))
	for _, name := range s.engines {
		engines[name] = true
	}

	resp := &dto.HealthResponse{Status: "healthy", Store: true, Engines: engines}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("Store unreachable", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Store = false
	} else if len(engines) == 0 {
		resp.Status = "degraded"
	}
	return resp
}

func (s *TaskService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	active, err := s.store.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	bytesTotal, err := s.images.TotalBytes()
	if err != nil {
		return nil, fmt.Errorf("measure temp storage: %w", err)
	}

	engines := s.engines
	if engines == nil {
		engines = []string{}
	}
	return &dto.StatsResponse{
		ActiveTasks:      active,
		Engines:          engines,
		TempStorageBytes: bytesTotal,
	}, nil
}
