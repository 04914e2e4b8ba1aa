package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slowjams/internal/config"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present")

	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}

	if results[2].Available {
		t.Fatal("expected unset command to be unavailable")
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %s", results[2].Detail)
	}
}

func TestRequiredUsesConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.YtDlp = "/opt/tools/yt-dlp"

	reqs := Required(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/tools/yt-dlp" {
		t.Fatalf("unexpected yt-dlp command: %s", reqs[0].Command)
	}
}

func TestCheckNamesMissingTools(t *testing.T) {
	binDir := t.TempDir()
	cfg := config.Default()
	cfg.Tools.FFmpeg = writeStub(t, binDir, "ffmpeg")
	cfg.Tools.FFprobe = writeStub(t, binDir, "ffprobe")
	cfg.Tools.YtDlp = "definitely-not-installed-anywhere"

	err := Check(&cfg)
	if err == nil {
		t.Fatal("expected error for missing yt-dlp")
	}
	if !strings.Contains(err.Error(), "yt-dlp") {
		t.Fatalf("error should name the missing tool: %v", err)
	}

	cfg.Tools.YtDlp = writeStub(t, binDir, "yt-dlp")
	if err := Check(&cfg); err != nil {
		t.Fatalf("expected all tools present, got %v", err)
	}
}
