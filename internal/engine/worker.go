package engine

import (
	"context"
	"errors"
	"log/slog"

	"slowjams/internal/logging"
	"slowjams/internal/queue"
)

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.wg.Done()
	logger := e.logger.With(logging.Int("worker", id))

	for {
		if ctx.Err() != nil {
			return
		}
		if !e.waitWhilePaused(ctx) {
			return
		}

		entry, ok := e.pending.Pop(ctx, e.popTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if ctx.Err() != nil {
			e.pending.Requeue(entry)
			return
		}
		// A pause that landed between the gate check and the pop must not
		// start new work; put the entry back and wait at the gate.
		if e.isPaused() {
			e.pending.Requeue(entry)
			continue
		}

		snap, ok := e.store.MarkRunning(entry.ID)
		if !ok {
			// Stale entry: the task was cancelled, removed, or already
			// claimed through a duplicate queue entry.
			continue
		}
		e.persist(ctx)
		e.emit(snap)

		e.runTask(ctx, logger, snap)
	}
}

func (e *Engine) runTask(ctx context.Context, logger *slog.Logger, task queue.Snapshot) {
	logger.Info("task started",
		logging.String("task", task.ID),
		logging.String("kind", string(task.Kind)),
		logging.Int("priority", task.Priority),
	)

	err := e.runPipeline(ctx, task)

	var final queue.Snapshot
	switch {
	case errors.Is(err, errTaskCancelled):
		// Status is already cancelled; nothing further to record.
		final, _ = e.store.Get(task.ID)
		logger.Info("task cancelled", logging.String("task", task.ID))
	case err != nil:
		snap, ok := e.store.Fail(task.ID, err.Error())
		if !ok {
			// The task left the running state underneath us, which only
			// happens on cancellation.
			snap, _ = e.store.Get(task.ID)
		}
		final = snap
		logger.Error("task failed",
			logging.String("task", task.ID),
			logging.Error(err),
		)
	default:
		snap, ok := e.store.Complete(task.ID)
		if !ok {
			snap, _ = e.store.Get(task.ID)
		}
		final = snap
		logger.Info("task completed",
			logging.String("task", task.ID),
			logging.String("output", final.OutputPath),
			logging.Duration("elapsed", final.Elapsed()),
		)
	}

	e.persist(ctx)
	e.emit(final)
}
