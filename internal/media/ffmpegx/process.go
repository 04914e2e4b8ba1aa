package ffmpegx

import (
	"context"
	"fmt"
	"os"

	"slowjams/internal/media"
)

// ApplyEffects renders inputPath with the configured effect chain. When
// outputPath is empty the output lands next to the input with the target
// format's extension.
func (c *Client) ApplyEffects(ctx context.Context, inputPath, outputPath string, opts media.ProcessOptions, onProgress media.ProgressFunc) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", media.Wrap(media.ErrValidation, "process", fmt.Sprintf("input file %s", inputPath), err)
	}
	if _, ok := media.ParseFormat(string(opts.OutputFormat)); !ok {
		return "", media.Wrapf(media.ErrValidation, "process", nil, "unknown audio format %q", opts.OutputFormat)
	}
	if opts.SlowFactor < 0 {
		return "", media.Wrapf(media.ErrValidation, "process", nil, "slow factor %g is negative", opts.SlowFactor)
	}
	outputPath = deriveOutput(inputPath, outputPath, opts.OutputFormat.Ext())

	info, probeErr := c.Probe(ctx, inputPath)
	sampleRate := info.SampleRate

	// Slowing stretches the output; scale the expected duration so the
	// progress bar tracks the rendered timeline.
	var expected float64
	if probeErr == nil && info.DurationSeconds > 0 {
		expected = info.DurationSeconds
		if opts.SlowFactor > 0 {
			expected = info.DurationSeconds / opts.SlowFactor
		}
	}

	args := []string{"-y", "-i", inputPath, "-vn"}
	if filters := effectFilters(opts, sampleRate); filters != "" {
		args = append(args, "-af", filters)
	}
	args = append(args, "-acodec", codecFor(opts.OutputFormat))
	if opts.OutputBitrate != "" && !isLossless(opts.OutputFormat) {
		args = append(args, "-b:a", opts.OutputBitrate)
	}
	args = append(args, c.extraArgs...)
	args = append(args, outputPath)

	if err := c.runFFmpeg(ctx, args, expected, onProgress); err != nil {
		return "", err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", media.Wrap(media.ErrMedia, "process", "ffmpeg produced no output file", err)
	}
	return outputPath, nil
}
