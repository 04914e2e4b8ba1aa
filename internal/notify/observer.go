package notify

import (
	"context"
	"log/slog"
	"time"

	"slowjams/internal/config"
	"slowjams/internal/logging"
	"slowjams/internal/queue"
)

// QueueStats exposes the counters the observer needs to decide whether the
// queue just drained. The engine satisfies it.
type QueueStats interface {
	Idle() bool
	Counts() map[queue.Status]int
}

// Observer forwards terminal task transitions to the notification service.
// It runs on the engine's fan-out path, so sends block a worker for at most
// the configured request timeout.
type Observer struct {
	settings config.Notifications
	service  Service
	stats    QueueStats
	logger   *slog.Logger
}

// NewObserver wires a notification service into the engine's observer
// interface. A nil logger disables logging.
func NewObserver(cfg *config.Config, service Service, stats QueueStats, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Observer{
		settings: cfg.Notifications,
		service:  service,
		stats:    stats,
		logger:   logger.With(logging.String("component", "notify")),
	}
}

// OnTaskUpdate fires notifications for terminal transitions. Progress
// updates are ignored.
func (o *Observer) OnTaskUpdate(snap queue.Snapshot) {
	if !snap.Terminal() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch snap.Status {
	case queue.StatusCompleted:
		if o.settings.TaskCompleted {
			o.report(o.service.NotifyTaskCompleted(ctx, snap), snap.ID)
		}
	case queue.StatusFailed:
		if o.settings.TaskFailed {
			o.report(o.service.NotifyTaskFailed(ctx, snap), snap.ID)
		}
	}

	if o.settings.QueueDrained && o.stats != nil && o.stats.Idle() {
		counts := o.stats.Counts()
		o.report(o.service.NotifyQueueDrained(ctx, counts[queue.StatusCompleted], counts[queue.StatusFailed]), snap.ID)
	}
}

func (o *Observer) report(err error, taskID string) {
	if err != nil {
		o.logger.Warn("notification delivery failed",
			logging.String("task", taskID),
			logging.Error(err),
		)
	}
}
