package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"slowjams/internal/config"
	"slowjams/internal/logging"
	"slowjams/internal/media"
	"slowjams/internal/queue"
)

// State describes the engine lifecycle.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Journal persists queue contents across restarts. *queue.Journal is the
// production implementation; tests substitute lighter ones.
type Journal interface {
	Save(ctx context.Context, tasks []queue.Snapshot) error
	Load(ctx context.Context) ([]*queue.Task, error)
}

// Collaborators bundles the media stage implementations the engine drives.
type Collaborators struct {
	Downloader media.Downloader
	Converter  media.Converter
	Processor  media.Processor
}

// Engine runs queued tasks on a pool of workers. Tasks live in an
// in-memory store; every state change is written through to the journal so
// a restart can pick up where the previous run left off.
type Engine struct {
	cfg     *config.Config
	store   *queue.Store
	pending *queue.PendingQueue
	journal Journal
	logger  *slog.Logger
	collab  Collaborators

	popTimeout  time.Duration
	stopTimeout time.Duration

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	resumeCh chan struct{}
	restored bool
}

// New constructs an engine. The journal may be nil, in which case nothing
// is persisted; collaborators must cover every task kind that will be
// submitted. A nil logger disables logging.
func New(cfg *config.Config, journal Journal, collab Collaborators, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:         cfg,
		store:       queue.NewStore(),
		pending:     queue.NewPendingQueue(),
		journal:     journal,
		logger:      logger.With(logging.String("component", "engine")),
		collab:      collab,
		popTimeout:  time.Duration(cfg.Queue.PopTimeout) * time.Millisecond,
		stopTimeout: time.Duration(cfg.Queue.StopTimeout) * time.Second,
		observers:   make(map[int]Observer),
		state:       StateStopped,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Idle reports whether no task is pending or running.
func (e *Engine) Idle() bool {
	counts := e.store.Counts()
	return counts[queue.StatusPending] == 0 && counts[queue.StatusRunning] == 0
}

// Counts returns the number of tasks per status.
func (e *Engine) Counts() map[queue.Status]int {
	return e.store.Counts()
}

func (e *Engine) persist(ctx context.Context) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Save(ctx, e.store.SnapshotAll()); err != nil {
		e.logger.Warn("queue journal save failed; state may be lost on restart", logging.Error(err))
	}
}
