package queue_test

import (
	"testing"
	"time"

	"slowjams/internal/queue"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want queue.Status
		ok   bool
	}{
		{"pending", queue.StatusPending, true},
		{"Running", queue.StatusRunning, true},
		{"  COMPLETED  ", queue.StatusCompleted, true},
		{"cancelled", queue.StatusCancelled, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q) ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStatusTerminality(t *testing.T) {
	terminal := map[queue.Status]bool{
		queue.StatusPending:   false,
		queue.StatusRunning:   false,
		queue.StatusCompleted: true,
		queue.StatusFailed:    true,
		queue.StatusCancelled: true,
	}
	for _, status := range queue.AllStatuses() {
		if status.IsTerminal() != terminal[status] {
			t.Fatalf("IsTerminal(%s) = %v", status, status.IsTerminal())
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"download", "convert", "process", "composite"} {
		if _, ok := queue.ParseKind(valid); !ok {
			t.Fatalf("ParseKind(%q) should succeed", valid)
		}
	}
	if _, ok := queue.ParseKind("transmogrify"); ok {
		t.Fatal("ParseKind accepted an unknown kind")
	}
}

func TestSnapshotElapsed(t *testing.T) {
	var snap queue.Snapshot
	if snap.Elapsed() != 0 {
		t.Fatal("unstarted task should report zero elapsed")
	}

	started := time.Now().Add(-10 * time.Second)
	finished := started.Add(4 * time.Second)
	snap.StartedAt = &started
	snap.FinishedAt = &finished
	if got := snap.Elapsed(); got != 4*time.Second {
		t.Fatalf("unexpected elapsed: %s", got)
	}

	snap.FinishedAt = nil
	if got := snap.Elapsed(); got < 9*time.Second {
		t.Fatalf("running elapsed too small: %s", got)
	}
}
