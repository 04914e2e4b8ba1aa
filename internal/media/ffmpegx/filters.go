package ffmpegx

import (
	"fmt"
	"math"
	"strings"

	"slowjams/internal/media"
)

// codecFor maps audio formats to ffmpeg encoder names.
func codecFor(format media.AudioFormat) string {
	switch format {
	case media.FormatMP3:
		return "libmp3lame"
	case media.FormatAAC:
		return "aac"
	case media.FormatOGG:
		return "libvorbis"
	case media.FormatFLAC:
		return "flac"
	case media.FormatWAV:
		return "pcm_s16le"
	default:
		return "libmp3lame"
	}
}

// lossless formats ignore bitrate settings.
func isLossless(format media.AudioFormat) bool {
	return format == media.FormatFLAC || format == media.FormatWAV
}

// atempoChain splits a tempo factor into atempo stages. A single atempo
// filter only accepts factors between 0.5 and 2.0, so extreme factors are
// expressed as a chain whose product is the requested factor.
func atempoChain(factor float64) []string {
	if factor <= 0 {
		return nil
	}
	var stages []string
	for factor < 0.5 {
		stages = append(stages, "atempo=0.5")
		factor /= 0.5
	}
	for factor > 2.0 {
		stages = append(stages, "atempo=2")
		factor /= 2.0
	}
	if math.Abs(factor-1.0) > 1e-9 || len(stages) == 0 {
		stages = append(stages, fmt.Sprintf("atempo=%s", trimFloat(factor)))
	}
	return stages
}

// effectFilters builds the -af chain for the processing stage. sampleRate
// is the input's rate; it anchors the resample-based effects.
func effectFilters(opts media.ProcessOptions, sampleRate int) string {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	var filters []string

	if opts.SlowFactor > 0 && math.Abs(opts.SlowFactor-1.0) > 1e-9 {
		if opts.PreservePitch {
			filters = append(filters, atempoChain(opts.SlowFactor)...)
		} else {
			// Resampling slows tempo and drops pitch together, the classic
			// slowed sound.
			filters = append(filters,
				fmt.Sprintf("asetrate=%d", int(float64(sampleRate)*opts.SlowFactor)),
				fmt.Sprintf("aresample=%d", sampleRate),
			)
		}
	}

	if opts.PitchEnabled && math.Abs(opts.PitchSemitones) > 1e-9 {
		ratio := math.Pow(2, opts.PitchSemitones/12)
		filters = append(filters,
			fmt.Sprintf("asetrate=%d", int(float64(sampleRate)*ratio)),
			fmt.Sprintf("aresample=%d", sampleRate),
		)
		// The rate shift above also changed tempo; compensate it away.
		filters = append(filters, atempoChain(1/ratio)...)
	}

	if opts.ReverbEnabled {
		filters = append(filters, reverbFilter(opts.ReverbRoomSize, opts.ReverbWetLevel))
	}

	if opts.NormalizeOutput {
		filters = append(filters, "loudnorm")
	}

	return strings.Join(filters, ",")
}

// reverbFilter approximates a room reverb with aecho. Room size stretches
// the echo delay and decay; wet level sets the echo volume.
func reverbFilter(roomSize, wetLevel float64) string {
	if roomSize < 0 {
		roomSize = 0
	}
	if roomSize > 1 {
		roomSize = 1
	}
	if wetLevel < 0 {
		wetLevel = 0
	}
	if wetLevel > 1 {
		wetLevel = 1
	}
	delayMS := 20 + roomSize*80
	decay := 0.2 + roomSize*0.5
	return fmt.Sprintf("aecho=0.8:%s:%s:%s", trimFloat(wetLevel), trimFloat(delayMS), trimFloat(decay))
}

// conversionFilters builds the -af chain for the extraction stage.
func conversionFilters(opts media.ConvertOptions) string {
	if opts.Normalize {
		return "loudnorm"
	}
	return ""
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}
