package service

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"captchaSolver/models"
	"captchaSolver/queue"
	"captchaSolver/store"
)

// Solver is the cascade contract the processor depends on.
type Solver interface {
	Solve(ctx context.Context, img image.Image) (string, bool)
}

// Processor executes one queued unit of solve work and is the task's single
// writer: it moves the record from processing to exactly one terminal state.
type Processor struct {
	store  store.Store
	solver Solver
	logger *zap.Logger
}

func NewProcessor(taskStore store.Store, solver Solver, logger *zap.Logger) *Processor {
	return &Processor{store: taskStore, solver: solver, logger: logger}
}

func (p *Processor) Process(ctx context.Context, msg *queue.Message) error {
	task, err := p.store.Take(ctx, msg.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			// Record already expired; nothing left to solve for.
			p.logger.Warn("Task vanished before solve", zap.String("task_id", msg.TaskID))
			return nil
		}
		return err
	}

	img, err := imaging.Open(msg.ImagePath)
	if err != nil {
		p.logger.Warn("Stored image unreadable",
			zap.String("task_id", msg.TaskID),
			zap.Error(err),
		)
		task.Status = models.StatusError
		task.ErrorCode = models.CodeImageType
		return p.store.Update(ctx, task)
	}

	if text, ok := p.solver.Solve(ctx, img); ok {
		task.Status = models.StatusReady
		task.Result = text
	} else {
		task.Status = models.StatusError
		task.ErrorCode = models.CodeUnsolvable
	}

	if err := p.store.Update(ctx, task); err != nil {
		p.logger.Error("Terminal state write failed",
			zap.String("task_id", msg.TaskID),
			zap.Error(err),
		)
		return err
	}

	p.logger.Info("Task solved",
		zap.String("trace_id", msg.TraceID),
		zap.String("task_id", msg.TaskID),
		zap.String("status", string(task.Status)),
	)
	return nil
}
