package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the thread-safe mapping of task ID to task. All reads and
// read-modify-write transitions happen under one mutex; that mutex is the
// serialization point the rest of the engine relies on.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*Task)}
}

// Put inserts or replaces a task.
func (s *Store) Put(task *Task) {
	if task == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
}

// Get returns a snapshot of the task with the given ID.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return Snapshot{}, false
	}
	return task.snapshot(), true
}

// Remove deletes a task. Running tasks are refused so a worker never loses
// the task it is executing.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status == StatusRunning {
		return false
	}
	delete(s.tasks, id)
	return true
}

// List returns snapshots of all tasks ordered by creation time.
func (s *Store) List() []Snapshot {
	return s.ListByStatus()
}

// ListByStatus returns snapshots of tasks matching any of the given
// statuses (all tasks when none are given), ordered by creation time.
func (s *Store) ListByStatus(statuses ...Status) []Snapshot {
	var filter map[Status]struct{}
	if len(statuses) > 0 {
		filter = make(map[Status]struct{}, len(statuses))
		for _, status := range statuses {
			filter[status] = struct{}{}
		}
	}

	s.mu.Lock()
	snapshots := make([]Snapshot, 0, len(s.tasks))
	for _, task := range s.tasks {
		if filter != nil {
			if _, ok := filter[task.Status]; !ok {
				continue
			}
		}
		snapshots = append(snapshots, task.snapshot())
	}
	s.mu.Unlock()

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].ID < snapshots[j].ID
		}
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// ClearTerminal removes all completed, failed, and cancelled tasks and
// returns how many were removed.
func (s *Store) ClearTerminal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, task := range s.tasks {
		if task.Status.IsTerminal() {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// Counts returns the number of tasks per status.
func (s *Store) Counts() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Status]int, len(allStatuses))
	for _, task := range s.tasks {
		counts[task.Status]++
	}
	return counts
}

// MarkRunning claims execution rights over a pending task. It returns false
// when the task is missing, already terminal, or already claimed, which is
// how stale duplicate entries popped from the priority queue are discarded.
func (s *Store) MarkRunning(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != StatusPending {
		return Snapshot{}, false
	}
	now := time.Now().UTC()
	task.Status = StatusRunning
	task.StartedAt = &now
	task.FinishedAt = nil
	task.ProgressPercent = 0
	task.CurrentStep = "Starting"
	task.ErrorMessage = ""
	return task.snapshot(), true
}

// SetProgress records stage progress for a running task. Progress is
// monotonically non-decreasing within a run; regressions are clamped to the
// current value.
func (s *Store) SetProgress(id string, percent float64, step string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != StatusRunning {
		return Snapshot{}, false
	}
	if percent > 100 {
		percent = 100
	}
	if percent > task.ProgressPercent {
		task.ProgressPercent = percent
	}
	if step != "" {
		task.CurrentStep = step
	}
	return task.snapshot(), true
}

// StoreResult records a stage output reference. The task output path
// tracks the most recent stage artifact, so a composite task ends up
// pointing at its final processed file.
func (s *Store) StoreResult(id, stage, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	if task.Results == nil {
		task.Results = make(map[string]string, 3)
	}
	task.Results[stage] = path
	if path != "" {
		task.OutputPath = path
	}
	return true
}

// Complete transitions a running task to completed. A task that was
// cancelled while its final stage ran keeps its cancelled status.
func (s *Store) Complete(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != StatusRunning {
		return Snapshot{}, false
	}
	now := time.Now().UTC()
	task.Status = StatusCompleted
	task.ProgressPercent = 100
	task.CurrentStep = "Completed"
	task.FinishedAt = &now
	return task.snapshot(), true
}

// Fail transitions a running task to failed with the given message.
func (s *Store) Fail(id, message string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != StatusRunning {
		return Snapshot{}, false
	}
	now := time.Now().UTC()
	task.Status = StatusFailed
	task.ErrorMessage = message
	task.CurrentStep = "Failed"
	task.FinishedAt = &now
	return task.snapshot(), true
}

// Cancel transitions a pending or running task to cancelled. A running
// task keeps executing its current stage; the owning worker observes the
// cancelled status at the next stage boundary and stops there.
func (s *Store) Cancel(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status.IsTerminal() {
		return Snapshot{}, false
	}
	now := time.Now().UTC()
	task.Status = StatusCancelled
	task.CurrentStep = CancelledMessage
	task.FinishedAt = &now
	return task.snapshot(), true
}

// IsCancelled reports whether the task has been cancelled. Workers consult
// this between pipeline stages.
func (s *Store) IsCancelled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	return ok && task.Status == StatusCancelled
}

// Retry resubmits a failed or cancelled task as a fresh pending task under
// a new ID. The original record stays terminal; terminal statuses never
// transition again and task IDs are never reused for another run.
func (s *Store) Retry(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || (task.Status != StatusFailed && task.Status != StatusCancelled) {
		return Snapshot{}, false
	}
	clone := &Task{
		ID:             uuid.NewString(),
		Kind:           task.Kind,
		CreatedAt:      time.Now().UTC(),
		Priority:       task.Priority,
		URL:            task.URL,
		InputPath:      task.InputPath,
		DownloadFormat: task.DownloadFormat,
		ConvertOptions: task.ConvertOptions,
		ProcessOptions: task.ProcessOptions,
		Status:         StatusPending,
	}
	s.tasks[clone.ID] = clone
	return clone.snapshot(), true
}

// SetPriority updates the priority of a pending task. Non-pending tasks are
// refused; their dispatch order is already settled.
func (s *Store) SetPriority(id string, priority int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != StatusPending {
		return false
	}
	task.Priority = priority
	return true
}

// SnapshotAll copies every task under the store lock so the journal never
// writes a torn state.
func (s *Store) SnapshotAll() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots := make([]Snapshot, 0, len(s.tasks))
	for _, task := range s.tasks {
		snapshots = append(snapshots, task.snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].ID < snapshots[j].ID
		}
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}
