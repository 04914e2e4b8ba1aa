package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slowjams/internal/logging"
	"slowjams/internal/queue"
)

// Start restores persisted tasks and launches the worker pool. Starting an
// engine that is already running or paused is a no-op; a paused engine stays
// paused until Resume.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		return nil
	}

	if !e.restored {
		if err := e.restore(ctx); err != nil {
			e.mu.Unlock()
			return err
		}
		e.restored = true
	}

	// Re-admit everything still pending. Workers discard entries whose
	// task has since left the pending state, so pushing an ID twice is
	// harmless.
	for _, snap := range e.store.ListByStatus(queue.StatusPending) {
		e.pending.Push(snap.Priority, snap.ID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = StateRunning

	workers := e.cfg.Queue.Workers
	e.wg.Add(workers)
	e.mu.Unlock()

	for i := 0; i < workers; i++ {
		go e.worker(runCtx, i+1)
	}

	e.persist(ctx)
	e.logger.Info("engine started", logging.Int("workers", workers))
	return nil
}

// Stop halts dispatch and waits for in-flight tasks to finish, up to the
// configured stop timeout. The queue contents are persisted either way.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.cancel = nil
	if e.state == StatePaused {
		close(e.resumeCh)
	}
	e.state = StateStopped
	e.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(e.stopTimeout):
		err = fmt.Errorf("stop timed out after %s waiting for workers", e.stopTimeout)
	}

	e.persist(context.Background())
	if err != nil {
		e.logger.Warn("engine stopped with workers still busy", logging.Error(err))
	} else {
		e.logger.Info("engine stopped")
	}
	return err
}

// Pause keeps current tasks running but stops workers from picking up new
// ones. Pausing a stopped engine is an error; pausing twice is a no-op.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateStopped:
		return errors.New("engine is not running")
	case StatePaused:
		return nil
	}
	e.state = StatePaused
	e.resumeCh = make(chan struct{})
	e.logger.Info("engine paused")
	return nil
}

// Resume lifts a pause. Resuming an engine that is not paused is an error,
// except that resuming a running engine is a no-op.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateStopped:
		return errors.New("engine is not running")
	case StateRunning:
		return nil
	}
	e.state = StateRunning
	close(e.resumeCh)
	e.logger.Info("engine resumed")
	return nil
}

// restore loads the journal into the store. Tasks that were running when
// the previous process died are marked failed; completed history is kept.
// Caller holds e.mu.
func (e *Engine) restore(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	tasks, err := e.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore queue journal: %w", err)
	}
	var pending, interrupted, kept int
	for _, task := range tasks {
		status := task.Status
		e.store.Put(task)
		switch {
		case status == queue.StatusPending:
			pending++
		case status == queue.StatusRunning:
			e.store.Fail(task.ID, queue.InterruptedMessage)
			interrupted++
		default:
			kept++
		}
	}
	if len(tasks) > 0 {
		e.logger.Info("queue restored",
			logging.Int("pending", pending),
			logging.Int("interrupted", interrupted),
			logging.Int("finished", kept),
		)
	}
	return nil
}

// waitWhilePaused blocks until the engine is unpaused or ctx is done.
// Returns false when the worker should exit.
func (e *Engine) waitWhilePaused(ctx context.Context) bool {
	for {
		e.mu.Lock()
		state := e.state
		resume := e.resumeCh
		e.mu.Unlock()
		if state != StatePaused {
			return ctx.Err() == nil
		}
		select {
		case <-ctx.Done():
			return false
		case <-resume:
		}
	}
}

func (e *Engine) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StatePaused
}
