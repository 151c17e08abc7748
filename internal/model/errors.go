package model

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports language model output that does not conform to
// the expected schema.
type ValidationError struct {
	// Schema is the dotted path of the object being validated.
	Schema string

	// Field is the offending field, relative to Schema. Empty when the
	// whole document is unusable (for example, not JSON at all).
	Field string

	// Reason describes what is wrong.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("validation error: %s.%s: %s", e.Schema, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
