package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every input rejection raised before the run starts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRejected is returned with a populated Result when a strict policy
	// refuses a plan that failed validation.
	ErrRejected = errors.New("plan rejected by validation")
)

// InputError describes one rejected input field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match any InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
