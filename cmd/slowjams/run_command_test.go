package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slowjams/internal/queue"
)

func TestInferKind(t *testing.T) {
	cases := []struct {
		input    string
		override string
		want     queue.Kind
	}{
		{input: "https://example.com/watch?v=abc", want: queue.KindComposite},
		{input: "song.mp3", want: queue.KindProcess},
		{input: "mix.flac", want: queue.KindProcess},
		{input: "clip.mp4", want: queue.KindConvert},
		{input: "clip.mkv", want: queue.KindConvert},
		{input: "https://example.com/a", override: "download", want: queue.KindDownload},
		{input: "song.mp3", override: "convert", want: queue.KindConvert},
	}
	for _, tc := range cases {
		kind, err := inferKind(tc.input, tc.override)
		if err != nil {
			t.Fatalf("inferKind(%q, %q): %v", tc.input, tc.override, err)
		}
		if kind != tc.want {
			t.Fatalf("inferKind(%q, %q) = %s, want %s", tc.input, tc.override, kind, tc.want)
		}
	}

	if _, err := inferKind("x", "transcode"); err == nil {
		t.Fatal("expected unknown kind override to fail")
	}
}

func TestBuildTaskRequestForLocalFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(input, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	req, err := buildTaskRequest(input, runOptions{priority: 3})
	if err != nil {
		t.Fatalf("buildTaskRequest: %v", err)
	}
	if req.Kind != queue.KindProcess {
		t.Fatalf("unexpected kind %s", req.Kind)
	}
	if req.InputPath != input {
		t.Fatalf("unexpected input path %q", req.InputPath)
	}
	if req.Priority != 3 {
		t.Fatalf("unexpected priority %d", req.Priority)
	}

	if _, err := buildTaskRequest(filepath.Join(dir, "missing.mp3"), runOptions{}); err == nil {
		t.Fatal("expected missing file to fail")
	}
}

func TestBuildTaskRequestForURL(t *testing.T) {
	req, err := buildTaskRequest("https://example.com/a", runOptions{formatHint: "bestaudio"})
	if err != nil {
		t.Fatalf("buildTaskRequest: %v", err)
	}
	if req.Kind != queue.KindComposite || req.URL != "https://example.com/a" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.DownloadFormat != "bestaudio" {
		t.Fatalf("format hint lost: %q", req.DownloadFormat)
	}
}

func TestProgressDisplayPrintsTransitions(t *testing.T) {
	var out bytes.Buffer
	display := newProgressDisplay(&out)

	now := time.Now()
	snap := queue.Snapshot{ID: "0123456789", Kind: queue.KindDownload, CreatedAt: now}

	snap.Status = queue.StatusRunning
	snap.ProgressPercent = 10
	display.OnTaskUpdate(snap)
	// Progress ticks within the same status stay quiet off-terminal.
	snap.ProgressPercent = 60
	display.OnTaskUpdate(snap)

	snap.Status = queue.StatusCompleted
	snap.OutputPath = "/out/song.mp3"
	display.OnTaskUpdate(snap)

	text := out.String()
	requireContains(t, text, "[01234567] download started")
	requireContains(t, text, "completed: /out/song.mp3")
	if count := bytes.Count(out.Bytes(), []byte("started")); count != 1 {
		t.Fatalf("expected one start line, got %d:\n%s", count, text)
	}
}
