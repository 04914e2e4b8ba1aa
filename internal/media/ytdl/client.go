// Package ytdl wraps the yt-dlp command line tool as a media.Downloader.
package ytdl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"slowjams/internal/media"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec media.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client shells out to yt-dlp.
type Client struct {
	binary string
	exec   media.Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary: binary,
		exec:   media.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var (
	progressPattern    = regexp.MustCompile(`^\[download\]\s+([0-9.]+)%`)
	destinationPattern = regexp.MustCompile(`^\[download\]\s+Destination:\s+(.+)$`)
	mergerPattern      = regexp.MustCompile(`^\[Merger\]\s+Merging formats into\s+"(.+)"$`)
	alreadyPattern     = regexp.MustCompile(`^\[download\]\s+(.+)\s+has already been downloaded$`)
)

// Fetch downloads url into targetDir and returns the resulting file path.
// Progress lines from yt-dlp are parsed into callbacks; non-progress
// output is retained for error reporting.
func (c *Client) Fetch(ctx context.Context, url, targetDir, formatHint string, onProgress media.ProgressFunc) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", media.Wrap(media.ErrValidation, "download", "url required", nil)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", media.Wrap(media.ErrDownload, "download", "create target directory", err)
	}

	args := []string{
		"--newline",
		"--no-playlist",
		"--output", filepath.Join(targetDir, "%(title)s.%(ext)s"),
	}
	if formatHint = strings.TrimSpace(formatHint); formatHint != "" {
		args = append(args, "--format", formatHint)
	}
	args = append(args, url)

	var dest string
	var tail outputTail
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		line = strings.TrimSpace(line)
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			if onProgress != nil {
				if percent, err := strconv.ParseFloat(m[1], 64); err == nil {
					onProgress(percent)
				}
			}
			return
		}
		if m := destinationPattern.FindStringSubmatch(line); m != nil {
			dest = m[1]
			return
		}
		if m := mergerPattern.FindStringSubmatch(line); m != nil {
			dest = m[1]
			return
		}
		if m := alreadyPattern.FindStringSubmatch(line); m != nil {
			dest = m[1]
			return
		}
		tail.add(line)
	})
	if err != nil {
		return "", media.Wrap(media.ErrDownload, "download", tail.String(), err)
	}
	if dest == "" {
		return "", media.Wrap(media.ErrDownload, "download", "yt-dlp reported no output file", nil)
	}
	if _, err := os.Stat(dest); err != nil {
		return "", media.Wrap(media.ErrDownload, "download", fmt.Sprintf("downloaded file missing at %s", dest), err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return dest, nil
}

// Metadata probes the source with --dump-json without downloading.
func (c *Client) Metadata(ctx context.Context, url string) (media.SourceMetadata, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return media.SourceMetadata{}, media.Wrap(media.ErrValidation, "download", "url required", nil)
	}

	args := []string{"--dump-json", "--no-playlist", "--skip-download", url}
	var payload strings.Builder
	var tail outputTail
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		if strings.HasPrefix(strings.TrimSpace(line), "{") || payload.Len() > 0 {
			payload.WriteString(line)
			return
		}
		tail.add(strings.TrimSpace(line))
	})
	if err != nil {
		return media.SourceMetadata{}, media.Wrap(media.ErrDownload, "download", tail.String(), err)
	}

	var info struct {
		Title        string  `json:"title"`
		Uploader     string  `json:"uploader"`
		Duration     float64 `json:"duration"`
		ExtractorKey string  `json:"extractor_key"`
	}
	if err := json.Unmarshal([]byte(payload.String()), &info); err != nil {
		return media.SourceMetadata{}, media.Wrap(media.ErrDownload, "download", "parse yt-dlp metadata", err)
	}
	return media.SourceMetadata{
		Title:    info.Title,
		Author:   info.Uploader,
		Duration: info.Duration,
		Platform: info.ExtractorKey,
	}, nil
}

// outputTail keeps the last few non-progress output lines so failures can
// surface what the tool actually said.
type outputTail struct {
	lines []string
}

const tailSize = 5

func (t *outputTail) add(line string) {
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > tailSize {
		t.lines = t.lines[len(t.lines)-tailSize:]
	}
}

func (t *outputTail) String() string {
	if len(t.lines) == 0 {
		return "yt-dlp failed"
	}
	return strings.Join(t.lines, "; ")
}
