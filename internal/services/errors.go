package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks schema or patch invariant violations. The config is
	// never mutated when one of these surfaces.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a request that collides with an in-flight export.
	ErrConflict = errors.New("export already in progress")
	// ErrInputUnavailable marks an unreachable or unreadable source video.
	ErrInputUnavailable = errors.New("input unavailable")
	// ErrRenderFailed marks a renderer subprocess exiting non-zero.
	ErrRenderFailed = errors.New("render failed")
	// ErrUploadFailed marks the upload exhausting its retry budget.
	ErrUploadFailed = errors.New("upload failed")
	// ErrCancelled marks a deliberate cancellation outcome, not a fault.
	ErrCancelled = errors.New("cancelled")
	// ErrNotFound marks a missing project record.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks bad service configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRenderFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorKind names the failure category for an export error. The returned
// kind is persisted alongside the failed project record.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrInputUnavailable):
		return "InputUnavailable"
	case errors.Is(err, ErrUploadFailed):
		return "UploadFailed"
	case errors.Is(err, ErrValidation):
		return "SchemaInvariantViolation"
	case errors.Is(err, ErrConflict):
		return "ExportAlreadyInProgress"
	default:
		return "RenderFailed"
	}
}

// ErrorDetails carries the user-facing portion of a wrapped service error.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details extracts a presentable message from a wrapped error, trimming the
// sentinel prefix so persisted errors read naturally.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	message := err.Error()
	for _, marker := range []error{ErrValidation, ErrConflict, ErrInputUnavailable, ErrRenderFailed, ErrUploadFailed, ErrCancelled, ErrNotFound, ErrConfiguration} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(message, prefix) {
			message = strings.TrimPrefix(message, prefix)
			break
		}
	}
	return ErrorDetails{Kind: ErrorKind(err), Message: message}
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
