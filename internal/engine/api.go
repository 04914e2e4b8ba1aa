package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slowjams/internal/logging"
	"slowjams/internal/media"
	"slowjams/internal/queue"
)

// TaskRequest describes a task to submit.
type TaskRequest struct {
	Kind           queue.Kind
	Priority       int
	URL            string
	InputPath      string
	DownloadFormat string
	ConvertOptions *media.ConvertOptions
	ProcessOptions *media.ProcessOptions
}

// Submit validates the request, assigns an ID, and enqueues the task. The
// engine may be in any lifecycle state; tasks submitted while stopped or
// paused wait in the queue.
func (e *Engine) Submit(req TaskRequest) (queue.Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return queue.Snapshot{}, err
	}

	task := &queue.Task{
		ID:             uuid.NewString(),
		Kind:           req.Kind,
		CreatedAt:      time.Now(),
		Priority:       req.Priority,
		URL:            strings.TrimSpace(req.URL),
		InputPath:      strings.TrimSpace(req.InputPath),
		DownloadFormat: strings.TrimSpace(req.DownloadFormat),
		ConvertOptions: req.ConvertOptions,
		ProcessOptions: req.ProcessOptions,
		Status:         queue.StatusPending,
	}

	e.store.Put(task)
	e.pending.Push(task.Priority, task.ID)
	e.persist(context.Background())

	snap, _ := e.store.Get(task.ID)
	e.emit(snap)
	e.logger.Info("task submitted",
		logging.String("task", task.ID),
		logging.String("kind", string(task.Kind)),
		logging.Int("priority", task.Priority),
	)
	return snap, nil
}

func validateRequest(req TaskRequest) error {
	if _, ok := queue.ParseKind(string(req.Kind)); !ok {
		return media.Wrapf(media.ErrValidation, "submit", nil, "unknown task kind %q", req.Kind)
	}
	switch req.Kind {
	case queue.KindDownload, queue.KindComposite:
		if strings.TrimSpace(req.URL) == "" {
			return media.Wrap(media.ErrValidation, "submit", "url is required", nil)
		}
	case queue.KindConvert, queue.KindProcess:
		if strings.TrimSpace(req.InputPath) == "" {
			return media.Wrap(media.ErrValidation, "submit", "input path is required", nil)
		}
	}
	return nil
}

// Get returns a snapshot of the task with the given ID.
func (e *Engine) Get(id string) (queue.Snapshot, bool) {
	return e.store.Get(id)
}

// List returns snapshots of every task, ordered by creation time.
func (e *Engine) List() []queue.Snapshot {
	return e.store.List()
}

// ListByStatus returns snapshots of tasks in any of the given statuses.
func (e *Engine) ListByStatus(statuses ...queue.Status) []queue.Snapshot {
	return e.store.ListByStatus(statuses...)
}

// Cancel marks the task cancelled. Pending tasks never run; running tasks
// stop at their next stage boundary. Cancelling a terminal task fails.
func (e *Engine) Cancel(id string) (queue.Snapshot, error) {
	snap, ok := e.store.Cancel(id)
	if !ok {
		if _, exists := e.store.Get(id); !exists {
			return queue.Snapshot{}, fmt.Errorf("no task with id %s", id)
		}
		return queue.Snapshot{}, fmt.Errorf("task %s is already finished", id)
	}
	e.persist(context.Background())
	e.emit(snap)
	e.logger.Info("task cancelled", logging.String("task", id))
	return snap, nil
}

// SetPriority changes the priority of a pending task and repositions it in
// the dispatch order.
func (e *Engine) SetPriority(id string, priority int) error {
	if !e.store.SetPriority(id, priority) {
		return fmt.Errorf("task %s is not pending", id)
	}
	// The queue keeps the old entry too; it is discarded as stale when a
	// worker pops it after this one.
	e.pending.Push(priority, id)
	e.persist(context.Background())
	if snap, ok := e.store.Get(id); ok {
		e.emit(snap)
	}
	return nil
}

// Remove deletes a task that is not running.
func (e *Engine) Remove(id string) error {
	if !e.store.Remove(id) {
		if _, exists := e.store.Get(id); !exists {
			return fmt.Errorf("no task with id %s", id)
		}
		return fmt.Errorf("task %s is running; cancel it first", id)
	}
	e.persist(context.Background())
	return nil
}

// ClearTerminal removes completed, failed, and cancelled tasks and returns
// how many were dropped.
func (e *Engine) ClearTerminal() int {
	removed := e.store.ClearTerminal()
	if removed > 0 {
		e.persist(context.Background())
	}
	return removed
}
