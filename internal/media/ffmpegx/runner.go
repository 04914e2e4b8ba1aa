// Package ffmpegx wraps the ffmpeg and ffprobe command line tools as the
// audio conversion and effect processing stages.
package ffmpegx

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"slowjams/internal/fileutil"
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

// WithExtraArgs appends user-supplied arguments, split shell-style, to
// every ffmpeg invocation.
func WithExtraArgs(raw string) (Option, error) {
	args, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg extra args: %w", err)
	}
	return func(c *Client) {
		c.extraArgs = args
	}, nil
}

// Client shells out to ffmpeg and ffprobe. It implements both the
// conversion and the effect-processing stages.
type Client struct {
	ffmpeg    string
	ffprobe   string
	extraArgs []string
	exec      media.Executor
}

// New constructs an ffmpeg client.
func New(ffmpeg, ffprobe string, opts ...Option) (*Client, error) {
	ffmpeg = strings.TrimSpace(ffmpeg)
	ffprobe = strings.TrimSpace(ffprobe)
	if ffmpeg == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if ffprobe == "" {
		return nil, errors.New("ffprobe binary required")
	}
	client := &Client{
		ffmpeg:  ffmpeg,
		ffprobe: ffprobe,
		exec:    media.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// runFFmpeg executes ffmpeg with -progress reporting on stdout and maps
// out_time values onto a 0-100 percentage of expectedSeconds.
func (c *Client) runFFmpeg(ctx context.Context, args []string, expectedSeconds float64, onProgress media.ProgressFunc) error {
	full := make([]string, 0, len(args)+4)
	full = append(full, "-hide_banner", "-nostats")
	full = append(full, args...)
	full = append(full, "-progress", "pipe:1")

	var tail outputTail
	err := c.exec.Run(ctx, c.ffmpeg, full, func(line string) {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "out_time_ms="):
			if onProgress == nil || expectedSeconds <= 0 {
				return
			}
			raw := strings.TrimPrefix(line, "out_time_ms=")
			micros, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return
			}
			percent := micros / 1e6 / expectedSeconds * 100
			if percent > 100 {
				percent = 100
			}
			onProgress(percent)
		case line == "progress=end":
			if onProgress != nil {
				onProgress(100)
			}
		case strings.Contains(line, "="):
			// Other key=value progress fields are noise.
		default:
			tail.add(line)
		}
	})
	if err != nil {
		return media.Wrap(media.ErrMedia, "ffmpeg", tail.String(), err)
	}
	return nil
}

// deriveOutput places the output next to the input when no explicit path
// was given.
func deriveOutput(inputPath, outputPath, ext string) string {
	if outputPath != "" {
		return outputPath
	}
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return fileutil.UniquePath(base + ext)
}

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
		return "ffmpeg failed"
	}
	return strings.Join(t.lines, "; ")
}
