package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline. Callers classify with
// errors.Is; messages wrap with %w so the entity and id stay attached.
var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyContent = errors.New("no extractable text")

	// ErrIllegalTransition is returned by the status state machine when a
	// write would jump between states the lifecycle does not connect.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// ValidationError rejects bad input before anything is persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
