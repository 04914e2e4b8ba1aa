package notify_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"slowjams/internal/config"
	"slowjams/internal/notify"
	"slowjams/internal/queue"
)

type recordedRequest struct {
	title    string
	priority string
	tags     string
	body     string
}

func newRecordingServer(t *testing.T) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			tags:     r.Header.Get("Tags"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func serviceFor(t *testing.T, endpoint string) notify.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	return notify.NewService(&cfg)
}

func snapshotWith(status queue.Status) queue.Snapshot {
	now := time.Now()
	return queue.Snapshot{
		ID:         "task-1",
		Kind:       queue.KindComposite,
		Status:     status,
		OutputPath: "/music/song.mp3",
		StartedAt:  &now,
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notify.NewService(&cfg)
	if err := svc.NotifyTaskCompleted(context.Background(), snapshotWith(queue.StatusCompleted)); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyTaskCompletedSendsOutputPath(t *testing.T) {
	server, requests := newRecordingServer(t)
	svc := serviceFor(t, server.URL)

	if err := svc.NotifyTaskCompleted(context.Background(), snapshotWith(queue.StatusCompleted)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected one request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != "slowjams - Task Complete" {
		t.Fatalf("unexpected title: %q", got.title)
	}
	if got.tags != "slowjams,task,completed" {
		t.Fatalf("unexpected tags: %q", got.tags)
	}
	if want := "Output: /music/song.mp3"; !contains(got.body, want) {
		t.Fatalf("body %q missing %q", got.body, want)
	}
}

func TestNotifyTaskFailedUsesHighPriority(t *testing.T) {
	server, requests := newRecordingServer(t)
	svc := serviceFor(t, server.URL)

	snap := snapshotWith(queue.StatusFailed)
	snap.ErrorMessage = "disk full"
	if err := svc.NotifyTaskFailed(context.Background(), snap); err != nil {
		t.Fatalf("notify: %v", err)
	}
	got := (*requests)[0]
	if got.priority != "high" {
		t.Fatalf("unexpected priority: %q", got.priority)
	}
	if !contains(got.body, "disk full") {
		t.Fatalf("body %q missing failure reason", got.body)
	}
}

func TestNotifyQueueDrainedCountsFailures(t *testing.T) {
	server, requests := newRecordingServer(t)
	svc := serviceFor(t, server.URL)

	if err := svc.NotifyQueueDrained(context.Background(), 3, 1); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !contains((*requests)[0].body, "3 completed, 1 failed") {
		t.Fatalf("unexpected body: %q", (*requests)[0].body)
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	svc := serviceFor(t, server.URL)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !contains(err.Error(), "403") {
		t.Fatalf("error should mention status code: %v", err)
	}
}

type stubService struct {
	completed int
	failed    int
	drained   int
}

func (s *stubService) NotifyTaskCompleted(context.Context, queue.Snapshot) error {
	s.completed++
	return nil
}

func (s *stubService) NotifyTaskFailed(context.Context, queue.Snapshot) error {
	s.failed++
	return nil
}

func (s *stubService) NotifyQueueDrained(context.Context, int, int) error {
	s.drained++
	return nil
}

func (s *stubService) TestNotification(context.Context) error { return nil }

type stubStats struct {
	idle   bool
	counts map[queue.Status]int
}

func (s stubStats) Idle() bool                   { return s.idle }
func (s stubStats) Counts() map[queue.Status]int { return s.counts }

func TestObserverIgnoresNonTerminalUpdates(t *testing.T) {
	cfg := config.Default()
	svc := &stubService{}
	obs := notify.NewObserver(&cfg, svc, stubStats{}, nil)

	obs.OnTaskUpdate(snapshotWith(queue.StatusRunning))
	obs.OnTaskUpdate(snapshotWith(queue.StatusPending))

	if svc.completed != 0 || svc.failed != 0 || svc.drained != 0 {
		t.Fatalf("expected no notifications, got %+v", svc)
	}
}

func TestObserverHonorsEventToggles(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.TaskCompleted = false
	cfg.Notifications.QueueDrained = false
	svc := &stubService{}
	obs := notify.NewObserver(&cfg, svc, stubStats{idle: true}, nil)

	obs.OnTaskUpdate(snapshotWith(queue.StatusCompleted))
	if svc.completed != 0 {
		t.Fatal("completed notification should be suppressed")
	}

	obs.OnTaskUpdate(snapshotWith(queue.StatusFailed))
	if svc.failed != 1 {
		t.Fatal("failed notification should still fire")
	}
	if svc.drained != 0 {
		t.Fatal("drained notification should be suppressed")
	}
}

func TestObserverFiresDrainedWhenQueueIdle(t *testing.T) {
	cfg := config.Default()
	svc := &stubService{}
	stats := stubStats{
		idle:   true,
		counts: map[queue.Status]int{queue.StatusCompleted: 2, queue.StatusFailed: 1},
	}
	obs := notify.NewObserver(&cfg, svc, stats, nil)

	obs.OnTaskUpdate(snapshotWith(queue.StatusCompleted))
	if svc.completed != 1 {
		t.Fatalf("expected completed notification, got %d", svc.completed)
	}
	if svc.drained != 1 {
		t.Fatalf("expected drained notification, got %d", svc.drained)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
