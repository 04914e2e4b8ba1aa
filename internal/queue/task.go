package queue

import (
	"strings"
	"time"

	"slowjams/internal/media"
)

// Status represents the lifecycle of a queued task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// InterruptedMessage is the error message recorded for tasks found in the
// running state when the journal is restored after an unclean shutdown.
const InterruptedMessage = "interrupted by shutdown before completion"

// CancelledMessage is the step label recorded when a task is cancelled.
const CancelledMessage = "Cancelled by user"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Kind identifies the pipeline a task runs through.
type Kind string

const (
	KindDownload  Kind = "download"
	KindConvert   Kind = "convert"
	KindProcess   Kind = "process"
	KindComposite Kind = "composite"
)

var kindSet = map[Kind]struct{}{
	KindDownload:  {},
	KindConvert:   {},
	KindProcess:   {},
	KindComposite: {},
}

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	_, ok := kindSet[normalized]
	return normalized, ok
}

// Stage result keys under which pipeline stages record their outputs.
const (
	ResultDownload = "download"
	ResultConvert  = "convert"
	ResultProcess  = "process"
)

// Task is one unit of queued work. Identity fields (ID, Kind, CreatedAt and
// the input parameters) are immutable after creation; progress and result
// fields are mutated only through Store methods so every change is
// serialized against concurrent workers.
type Task struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
	Priority  int

	URL            string
	InputPath      string
	DownloadFormat string
	ConvertOptions *media.ConvertOptions
	ProcessOptions *media.ProcessOptions

	OutputPath      string
	Status          Status
	ProgressPercent float64
	CurrentStep     string
	ErrorMessage    string
	StartedAt       *time.Time
	FinishedAt      *time.Time

	// Results maps stage names to their output references so later stages
	// of a composite task can pick up where earlier ones left off.
	Results map[string]string
}

// Snapshot is a caller-facing copy of a task. Option pointers are shared
// because options are immutable after submission.
type Snapshot struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
	Priority  int

	URL            string
	InputPath      string
	DownloadFormat string
	ConvertOptions *media.ConvertOptions
	ProcessOptions *media.ProcessOptions

	OutputPath      string
	Status          Status
	ProgressPercent float64
	CurrentStep     string
	ErrorMessage    string
	StartedAt       *time.Time
	FinishedAt      *time.Time
	Results         map[string]string
}

// Terminal reports whether the snapshot is in a terminal state.
func (s Snapshot) Terminal() bool {
	return s.Status.IsTerminal()
}

// Elapsed returns the task run duration so far, or zero when it never started.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if s.FinishedAt != nil {
		end = *s.FinishedAt
	}
	return end.Sub(*s.StartedAt)
}

func (t *Task) snapshot() Snapshot {
	snap := Snapshot{
		ID:              t.ID,
		Kind:            t.Kind,
		CreatedAt:       t.CreatedAt,
		Priority:        t.Priority,
		URL:             t.URL,
		InputPath:       t.InputPath,
		DownloadFormat:  t.DownloadFormat,
		ConvertOptions:  t.ConvertOptions,
		ProcessOptions:  t.ProcessOptions,
		OutputPath:      t.OutputPath,
		Status:          t.Status,
		ProgressPercent: t.ProgressPercent,
		CurrentStep:     t.CurrentStep,
		ErrorMessage:    t.ErrorMessage,
	}
	if t.StartedAt != nil {
		started := *t.StartedAt
		snap.StartedAt = &started
	}
	if t.FinishedAt != nil {
		finished := *t.FinishedAt
		snap.FinishedAt = &finished
	}
	if len(t.Results) > 0 {
		snap.Results = make(map[string]string, len(t.Results))
		for key, value := range t.Results {
			snap.Results[key] = value
		}
	}
	return snap
}
