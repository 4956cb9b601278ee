package models

import (
	"time"
)

type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusReady      TaskStatus = "ready"
	StatusError      TaskStatus = "error"
)

// Task error codes recorded on the task itself when a solve attempt ends
// in a terminal error state.
const (
	CodeUnsolvable = "CAPTCHA_UNSOLVABLE"
	CodeImageType  = "ERROR_IMAGE_TYPE"
)

type Task struct {
	ID        string     `json:"id"`
	TraceID   string     `json:"trace_id,omitempty"`
	Status    TaskStatus `json:"status"`
	Result    string     `json:"result,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	ImagePath string     `json:"image_path,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Terminal reports whether the task has reached ready or error. A terminal
// task transitions exactly once and is deleted on its first successful poll.
func (t *Task) Terminal() bool {
	return t.Status == StatusReady || t.Status == StatusError
}
