// Package notify pushes task lifecycle notifications through ntfy.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slowjams/internal/config"
	"slowjams/internal/queue"
)

const userAgent = "slowjams/0.1.0"

// Service defines the notification surface exposed to the engine observer
// and the CLI.
type Service interface {
	NotifyTaskCompleted(ctx context.Context, task queue.Snapshot) error
	NotifyTaskFailed(ctx context.Context, task queue.Snapshot) error
	NotifyQueueDrained(ctx context.Context, completed, failed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, and a noop implementation otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	endpoint := topic
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://ntfy.sh/" + endpoint
	}

	return &ntfyService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyTaskCompleted(ctx context.Context, task queue.Snapshot) error {
	message := fmt.Sprintf("Finished %s task", task.Kind)
	if task.OutputPath != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, task.OutputPath)
	}
	data := payload{
		title:   "slowjams - Task Complete",
		message: message,
		tags:    []string{"slowjams", "task", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskFailed(ctx context.Context, task queue.Snapshot) error {
	reason := strings.TrimSpace(task.ErrorMessage)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "slowjams - Task Failed",
		message:  fmt.Sprintf("%s task failed: %s", task.Kind, reason),
		tags:     []string{"slowjams", "task", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, completed, failed int) error {
	var message string
	if failed == 0 {
		message = fmt.Sprintf("Queue drained: %d tasks completed", completed)
	} else {
		message = fmt.Sprintf("Queue drained: %d completed, %d failed", completed, failed)
	}
	data := payload{
		title:   "slowjams - Queue Drained",
		message: message,
		tags:    []string{"slowjams", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "slowjams - Test",
		message:  "Notification system test",
		tags:     []string{"slowjams", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTaskCompleted(context.Context, queue.Snapshot) error { return nil }
func (noopService) NotifyTaskFailed(context.Context, queue.Snapshot) error    { return nil }
func (noopService) NotifyQueueDrained(context.Context, int, int) error        { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
