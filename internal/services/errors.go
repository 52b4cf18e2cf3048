package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("media file not found")
	ErrSelectionAborted  = errors.New("ambiguous selection aborted")
	ErrExtraction        = errors.New("audio extraction failed")
	ErrTranscription     = errors.New("transcription failed")
	ErrModelUnavailable  = errors.New("transcription model unavailable")
	ErrSerialization     = errors.New("subtitle serialization failed")
	ErrMissingDependency = errors.New("missing dependency")
	ErrConfiguration     = errors.New("configuration error")
	ErrExternalTool      = errors.New("external tool error")
)

var markers = []error{
	ErrNotFound,
	ErrSelectionAborted,
	ErrExtraction,
	ErrTranscription,
	ErrModelUnavailable,
	ErrSerialization,
	ErrMissingDependency,
	ErrConfiguration,
	ErrExternalTool,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails summarizes a wrapped error for user-facing output.
type ErrorDetails struct {
	Marker  error
	Kind    string
	Message string
}

// Details extracts the first known marker from err and the remaining message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: strings.TrimSpace(err.Error())}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			details.Marker = marker
			details.Kind = marker.Error()
			details.Message = strings.TrimSpace(strings.TrimPrefix(details.Message, marker.Error()+":"))
			break
		}
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
