package media

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors tag stage failures for classification. Stage
// implementations wrap their failures with one of these markers so the
// engine can record a meaningful error message without inspecting
// implementation details.
var (
	ErrValidation = errors.New("validation error")
	ErrDownload   = errors.New("download error")
	ErrMedia      = errors.New("media error")
)

// Wrap builds an error that carries stage context while remaining
// matchable against the provided sentinel via errors.Is.
func Wrap(marker error, stage, operation string, err error) error {
	detail := buildDetail(stage, operation)
	if marker == nil {
		marker = ErrMedia
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Wrapf is Wrap with a formatted operation string.
func Wrapf(marker error, stage string, err error, format string, args ...any) error {
	return Wrap(marker, stage, fmt.Sprintf(format, args...), err)
}

func buildDetail(stage, operation string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
