// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound signals a reference to an id that does not exist within
	// the session's scope.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInterval signals an unrecognized aggregation interval name.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrNoSession signals a request without a known session identifier.
	ErrNoSession = errors.New("session not found")
)

// ValidationError represents malformed or out-of-range input. Validation runs
// before any derived-state mutation begins, so a request that fails
// validation leaves no state behind.
type ValidationError struct {
	Err   error
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
