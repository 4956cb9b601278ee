package store

import (
	"context"
	"errors"

	"captchaSolver/models"
)

var ErrTaskNotFound = errors.New("task not found")

// Store holds every in-flight task for the duration of its lifecycle. There
// is no durable database behind it; a record lives from submission until its
// terminal state is delivered or its TTL expires.
type Store interface {
	Create(ctx context.Context, task *models.Task) error
	// Update overwrites the task record. Called exactly once per task, by
	// the single worker that moves it to a terminal state.
	Update(ctx context.Context, task *models.Task) error
	// Take returns the task for id. If the task is terminal the record is
	// deleted atomically with the read, so exactly one caller ever observes
	// a given terminal state. Non-terminal tasks are returned unchanged.
	Take(ctx context.Context, id string) (*models.Task, error)
	CountActive(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
