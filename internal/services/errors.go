package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classifying failures across component boundaries.
//
// ErrRecognizer and ErrTimeout are transient and input-specific: the capture
// pipeline absorbs them per tracked face and never propagates them as fatal.
// ErrConflict marks a ledger write conflict, which the per-person write
// serialization makes structurally impossible; seeing one indicates a
// concurrency-control bug and is logged loudly, never silently retried.
var (
	ErrRecognizer    = errors.New("recognizer error")
	ErrTimeout       = errors.New("timeout")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrConflict      = errors.New("write conflict")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Transient reports whether an error should be absorbed by the recognition
// pipeline rather than surfaced to the caller.
func Transient(err error) bool {
	return errors.Is(err, ErrRecognizer) || errors.Is(err, ErrTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
