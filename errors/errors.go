package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrValidationFailed    = fmt.Errorf("validation failed")
	ErrDuplicateEmail      = fmt.Errorf("a contact with this email already exists")
	ErrConstraintViolation = fmt.Errorf("store constraint violation")
	ErrStoreUnavailable    = fmt.Errorf("store unavailable")
	ErrNetworkUnavailable  = fmt.Errorf("network error, please check your connection")

	ErrSlowSubscriber = fmt.Errorf("subscriber buffer full")
	ErrSessionClosed  = fmt.Errorf("session closed")
)

// FieldErrors maps a payload field name to a human-readable reason.
type FieldErrors map[string]string

// ValidationError reports every rejected field of a payload at once.
// It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.FieldNames() {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// FieldNames returns the rejected fields in a stable order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Is and As let callers importing this package skip the standard one.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
