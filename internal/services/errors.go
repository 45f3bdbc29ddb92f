package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorage marks datastore read/write failures, including unknown ids
	// and unreadable source paths.
	ErrStorage = errors.New("storage error")
	// ErrRender marks external renderer failures (non-zero exit or timeout).
	ErrRender = errors.New("render failure")
	// ErrComposition marks frame-to-video assembly failures.
	ErrComposition = errors.New("composition failure")
	// ErrAudioMux marks audio attach failures.
	ErrAudioMux = errors.New("audio mux failure")
	// ErrNotFound marks a missing input on direct single-file renders.
	ErrNotFound = errors.New("input not found")
	// ErrTimeout marks an operation cut off by its wall-clock bound.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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
