// Package queue carries one unit of solve work per submitted task from the
// protocol layer to the worker pool.
package queue

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("queue closed")

type Message struct {
	TaskID    string `json:"task_id"`
	TraceID   string `json:"trace_id"`
	ImagePath string `json:"image_path"`
}

type Handler func(ctx context.Context, msg *Message) error

type Queue interface {
	Enqueue(ctx context.Context, msg *Message) error
	// Consume blocks, delivering messages to handler until ctx is done or
	// the queue is closed.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// ChannelQueue is the default in-process queue: a bounded channel providing
// backpressure on submit when all workers are busy.
type ChannelQueue struct {
	ch chan *Message
}

func NewChannelQueue(size int) *ChannelQueue {
	return &ChannelQueue{ch: make(chan *Message, size)}
}

func (q *ChannelQueue) Enqueue(ctx context.Context, msg *Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChannelQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case msg, ok := <-q.ch:
			if !ok {
				return ErrClosed
			}
			handler(ctx, msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *ChannelQueue) Close() error {
	close(q.ch)
	return nil
}
