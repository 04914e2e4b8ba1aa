package media

import (
	"context"
	"strings"
)

// ProgressFunc receives fractional stage progress in the range 0-100.
type ProgressFunc func(percent float64)

// Downloader fetches remote media into a local file.
type Downloader interface {
	// Fetch downloads url into targetDir and returns the path of the
	// resulting file. formatHint selects a specific source format when
	// non-empty. onProgress may be nil.
	Fetch(ctx context.Context, url, targetDir, formatHint string, onProgress ProgressFunc) (string, error)

	// Metadata probes the source without downloading it.
	Metadata(ctx context.Context, url string) (SourceMetadata, error)
}

// Converter extracts or converts audio from a media file.
type Converter interface {
	// ExtractAudio converts inputPath into an audio file. When outputPath is
	// empty the implementation derives one next to the input. Returns the
	// path of the written file.
	ExtractAudio(ctx context.Context, inputPath, outputPath string, opts ConvertOptions, onProgress ProgressFunc) (string, error)
}

// Processor applies audio effects to an audio file.
type Processor interface {
	// ApplyEffects renders inputPath with the configured effects. When
	// outputPath is empty the implementation derives one next to the input.
	// Returns the path of the written file.
	ApplyEffects(ctx context.Context, inputPath, outputPath string, opts ProcessOptions, onProgress ProgressFunc) (string, error)
}

// SourceMetadata describes a remote media source.
type SourceMetadata struct {
	Title    string
	Author   string
	Duration float64
	Platform string
}

// AudioFormat identifies a target audio container/codec.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatAAC  AudioFormat = "aac"
	FormatOGG  AudioFormat = "ogg"
	FormatFLAC AudioFormat = "flac"
	FormatWAV  AudioFormat = "wav"
)

var knownFormats = map[AudioFormat]struct{}{
	FormatMP3:  {},
	FormatAAC:  {},
	FormatOGG:  {},
	FormatFLAC: {},
	FormatWAV:  {},
}

// ParseFormat converts a string into a known AudioFormat.
func ParseFormat(value string) (AudioFormat, bool) {
	normalized := AudioFormat(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownFormats[normalized]
	return normalized, ok
}

// Ext returns the file extension for the format, including the dot.
func (f AudioFormat) Ext() string {
	return "." + string(f)
}

// ConvertOptions control audio extraction and conversion.
type ConvertOptions struct {
	Format     AudioFormat `json:"format"`
	Bitrate    string      `json:"bitrate"`
	SampleRate int         `json:"sample_rate"`
	Channels   int         `json:"channels"`
	Normalize  bool        `json:"normalize"`
	// StartTime and EndTime trim the input when positive, in seconds.
	StartTime float64 `json:"start_time,omitempty"`
	EndTime   float64 `json:"end_time,omitempty"`
}

// DefaultConvertOptions returns the standard extraction settings.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		Format:     FormatMP3,
		Bitrate:    "192k",
		SampleRate: 44100,
		Channels:   2,
	}
}

// HighQualityConvertOptions returns settings suitable for archival extraction.
func HighQualityConvertOptions() ConvertOptions {
	return ConvertOptions{
		Format:     FormatMP3,
		Bitrate:    "320k",
		SampleRate: 44100,
		Channels:   2,
		Normalize:  true,
	}
}

// ProcessOptions control the effect-processing stage.
type ProcessOptions struct {
	OutputFormat    AudioFormat `json:"output_format"`
	OutputBitrate   string      `json:"output_bitrate"`
	NormalizeOutput bool        `json:"normalize_output"`

	// SlowFactor scales playback speed; 1.0 leaves tempo untouched.
	SlowFactor    float64 `json:"slow_factor"`
	PreservePitch bool    `json:"preserve_pitch"`

	ReverbEnabled  bool    `json:"reverb_enabled"`
	ReverbRoomSize float64 `json:"reverb_room_size"`
	ReverbWetLevel float64 `json:"reverb_wet_level"`

	PitchEnabled   bool    `json:"pitch_enabled"`
	PitchSemitones float64 `json:"pitch_semitones"`
}

// SlowJamPreset returns the signature slowed-audio settings.
func SlowJamPreset() ProcessOptions {
	return ProcessOptions{
		OutputFormat:    FormatMP3,
		OutputBitrate:   "320k",
		NormalizeOutput: true,
		SlowFactor:      0.8,
		PreservePitch:   true,
		ReverbEnabled:   true,
		ReverbRoomSize:  0.5,
		ReverbWetLevel:  0.3,
	}
}
