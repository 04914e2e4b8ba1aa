package ffmpegx

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"slowjams/internal/media"
)

// ExtractAudio converts inputPath into an audio file per opts. When
// outputPath is empty the output lands next to the input with the target
// format's extension.
func (c *Client) ExtractAudio(ctx context.Context, inputPath, outputPath string, opts media.ConvertOptions, onProgress media.ProgressFunc) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", media.Wrap(media.ErrValidation, "convert", fmt.Sprintf("input file %s", inputPath), err)
	}
	if _, ok := media.ParseFormat(string(opts.Format)); !ok {
		return "", media.Wrapf(media.ErrValidation, "convert", nil, "unknown audio format %q", opts.Format)
	}
	outputPath = deriveOutput(inputPath, outputPath, opts.Format.Ext())

	expected := c.expectedConvertSeconds(ctx, inputPath, opts)

	args := []string{"-y"}
	if opts.StartTime > 0 {
		args = append(args, "-ss", trimFloat(opts.StartTime))
	}
	args = append(args, "-i", inputPath)
	if opts.EndTime > 0 {
		args = append(args, "-to", trimFloat(opts.EndTime))
	}
	args = append(args, "-vn", "-acodec", codecFor(opts.Format))
	if opts.Bitrate != "" && !isLossless(opts.Format) {
		args = append(args, "-b:a", opts.Bitrate)
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	if filters := conversionFilters(opts); filters != "" {
		args = append(args, "-af", filters)
	}
	args = append(args, c.extraArgs...)
	args = append(args, outputPath)

	if err := c.runFFmpeg(ctx, args, expected, onProgress); err != nil {
		return "", err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", media.Wrap(media.ErrMedia, "convert", "ffmpeg produced no output file", err)
	}
	return outputPath, nil
}

// expectedConvertSeconds estimates the output duration for progress
// mapping. Probe failures degrade progress reporting, not the conversion.
func (c *Client) expectedConvertSeconds(ctx context.Context, inputPath string, opts media.ConvertOptions) float64 {
	if opts.EndTime > 0 {
		start := opts.StartTime
		if start < 0 {
			start = 0
		}
		return opts.EndTime - start
	}
	info, err := c.Probe(ctx, inputPath)
	if err != nil {
		return 0
	}
	expected := info.DurationSeconds
	if opts.StartTime > 0 {
		expected -= opts.StartTime
	}
	return expected
}
