package intent

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"calendar-assistant/internal/pkg/errs"
)

var ErrUnknownAction = errors.New("unknown action")

// ValidationError collects field-level problems found in an intent.
type ValidationError struct {
	FieldErrors map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{FieldErrors: make(map[string]string)}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return "intent validation failed"
	}
	keys := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.FieldErrors[k]))
	}
	return "intent validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == errs.ErrValidation
}

func (e *ValidationError) Add(field, message string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	if _, exists := e.FieldErrors[field]; !exists {
		e.FieldErrors[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

// Err returns nil when nothing was collected so callers can return it directly.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
