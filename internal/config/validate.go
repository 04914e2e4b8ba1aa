package config

import (
	"errors"
	"fmt"
	"strings"

	"slowjams/internal/media"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Queue.Workers < 1 || c.Queue.Workers > 16 {
		problems = append(problems, fmt.Sprintf("queue.workers must be between 1 and 16, got %d", c.Queue.Workers))
	}

	if _, ok := media.ParseFormat(c.Processing.OutputFormat); !ok {
		problems = append(problems, fmt.Sprintf("processing.output_format: unknown format %q", c.Processing.OutputFormat))
	}
	if c.Processing.SlowFactor < 0.25 || c.Processing.SlowFactor > 2.0 {
		problems = append(problems, fmt.Sprintf("processing.slow_factor must be between 0.25 and 2.0, got %g", c.Processing.SlowFactor))
	}
	if c.Processing.ReverbRoomSize < 0 || c.Processing.ReverbRoomSize > 1 {
		problems = append(problems, fmt.Sprintf("processing.reverb_room_size must be between 0 and 1, got %g", c.Processing.ReverbRoomSize))
	}
	if c.Processing.ReverbWetLevel < 0 || c.Processing.ReverbWetLevel > 1 {
		problems = append(problems, fmt.Sprintf("processing.reverb_wet_level must be between 0 and 1, got %g", c.Processing.ReverbWetLevel))
	}
	if c.Processing.PitchSemitones < -12 || c.Processing.PitchSemitones > 12 {
		problems = append(problems, fmt.Sprintf("processing.pitch_semitones must be between -12 and 12, got %g", c.Processing.PitchSemitones))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}

// ProcessOptions converts the processing defaults into stage options.
func (c *Config) ProcessOptions() media.ProcessOptions {
	format, ok := media.ParseFormat(c.Processing.OutputFormat)
	if !ok {
		format = media.FormatMP3
	}
	return media.ProcessOptions{
		OutputFormat:    format,
		OutputBitrate:   c.Processing.OutputBitrate,
		NormalizeOutput: c.Processing.NormalizeOutput,
		SlowFactor:      c.Processing.SlowFactor,
		PreservePitch:   c.Processing.PreservePitch,
		ReverbEnabled:   c.Processing.ReverbEnabled,
		ReverbRoomSize:  c.Processing.ReverbRoomSize,
		ReverbWetLevel:  c.Processing.ReverbWetLevel,
		PitchEnabled:    c.Processing.PitchEnabled,
		PitchSemitones:  c.Processing.PitchSemitones,
	}
}
