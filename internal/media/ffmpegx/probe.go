package ffmpegx

import (
	"context"
	"strconv"
	"strings"

	"slowjams/internal/media"
)

// ProbeInfo holds the stream properties the stages care about.
type ProbeInfo struct {
	DurationSeconds float64
	SampleRate      int
}

// Probe reads duration and sample rate from the first audio stream.
func (c *Client) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate:format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	}

	var info ProbeInfo
	var tail outputTail
	err := c.exec.Run(ctx, c.ffprobe, args, func(line string) {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "duration="):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, "duration="), 64); err == nil {
				info.DurationSeconds = v
			}
		case strings.HasPrefix(line, "sample_rate="):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "sample_rate=")); err == nil {
				info.SampleRate = v
			}
		default:
			tail.add(line)
		}
	})
	if err != nil {
		return ProbeInfo{}, media.Wrap(media.ErrMedia, "probe", tail.String(), err)
	}
	return info, nil
}
