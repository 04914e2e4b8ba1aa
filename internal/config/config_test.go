package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"slowjams/internal/config"
	"slowjams/internal/media"
)

func TestLoadDefaultsWhenNoFileExists(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDownloads := filepath.Join(tempHome, ".local", "share", "slowjams", "downloads")
	if cfg.Paths.DownloadDir != wantDownloads {
		t.Fatalf("unexpected download dir: got %q want %q", cfg.Paths.DownloadDir, wantDownloads)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "slowjams") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Queue.Workers != 2 {
		t.Fatalf("unexpected worker count: %d", cfg.Queue.Workers)
	}
	if cfg.Processing.SlowFactor != 0.8 {
		t.Fatalf("unexpected slow factor: %g", cfg.Processing.SlowFactor)
	}
	if !cfg.Processing.PreservePitch {
		t.Fatal("expected pitch preservation enabled by default")
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected notifications disabled by default, got topic %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[paths]
output_dir = "~/music/slowed"

[queue]
workers = 4

[processing]
output_format = "flac"
slow_factor = 0.7
reverb_enabled = false

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, path)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "music", "slowed") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Queue.Workers != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.Queue.Workers)
	}
	if cfg.Processing.OutputFormat != "flac" {
		t.Fatalf("unexpected output format: %q", cfg.Processing.OutputFormat)
	}
	if cfg.Processing.ReverbEnabled {
		t.Fatal("expected reverb disabled by override")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected format to be normalized to lowercase, got %q", cfg.Logging.Format)
	}
	// Keys the file omits keep their defaults.
	if cfg.Tools.YtDlp != "yt-dlp" {
		t.Fatalf("unexpected yt-dlp binary: %q", cfg.Tools.YtDlp)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "workers out of range",
			body: "[queue]\nworkers = 99\n",
			want: "queue.workers",
		},
		{
			name: "unknown format",
			body: "[processing]\noutput_format = \"wma\"\n",
			want: "processing.output_format",
		},
		{
			name: "slow factor too small",
			body: "[processing]\nslow_factor = 0.05\n",
			want: "processing.slow_factor",
		},
		{
			name: "bad log format",
			body: "[logging]\nformat = \"xml\"\n",
			want: "logging.format",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParsesToDefaults(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	defaults := config.Default()
	if cfg.Queue.Workers != defaults.Queue.Workers {
		t.Fatalf("sample workers %d differ from default %d", cfg.Queue.Workers, defaults.Queue.Workers)
	}
	if cfg.Processing.SlowFactor != defaults.Processing.SlowFactor {
		t.Fatalf("sample slow factor %g differs from default %g", cfg.Processing.SlowFactor, defaults.Processing.SlowFactor)
	}
	if cfg.Tools.DownloadTimeout != defaults.Tools.DownloadTimeout {
		t.Fatalf("sample download timeout %d differs from default %d", cfg.Tools.DownloadTimeout, defaults.Tools.DownloadTimeout)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected second WriteSample to fail")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[processing]") {
		t.Fatal("sample missing processing section")
	}
}

func TestProcessOptionsMirrorsProcessingSection(t *testing.T) {
	cfg := config.Default()
	cfg.Processing.OutputFormat = "ogg"
	cfg.Processing.SlowFactor = 0.65
	cfg.Processing.PitchEnabled = true
	cfg.Processing.PitchSemitones = -2

	opts := cfg.ProcessOptions()
	if opts.OutputFormat != media.FormatOGG {
		t.Fatalf("unexpected format: %q", opts.OutputFormat)
	}
	if opts.SlowFactor != 0.65 {
		t.Fatalf("unexpected slow factor: %g", opts.SlowFactor)
	}
	if !opts.PitchEnabled || opts.PitchSemitones != -2 {
		t.Fatalf("pitch settings not carried over: %+v", opts)
	}
}
