package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/seoaudit/internal/agent"
	"github.com/nao1215/seoaudit/internal/model"
)

var (
	// ErrSkipped is returned by a step that the skip policy bypassed.
	ErrSkipped = errors.New("stage skipped")

	// ErrStagePanic wraps a value recovered from a panicking step.
	ErrStagePanic = errors.New("stage panicked")

	// ErrRunCancelled is recorded when the context ends before all steps ran.
	ErrRunCancelled = errors.New("run cancelled")
)

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	// KindToolFailure is a network or service failure of the scraping or
	// search capability.
	KindToolFailure ErrorKind = "tool failure"

	// KindValidation is language model output that does not match its schema.
	KindValidation ErrorKind = "validation failure"

	// KindGeneric is any other failure inside a stage.
	KindGeneric ErrorKind = "stage failure"
)

// Classify returns the kind of a stage error.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, agent.ErrToolFailure):
		return KindToolFailure
	case errors.Is(err, model.ErrValidation):
		return KindValidation
	default:
		return KindGeneric
	}
}

// StageError is a failure caught at a stage boundary.
// Its message is what ends up in RunRecord.Errors.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

// NewStageError wraps err for stage and classifies it.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: Classify(err), Err: err}
}

// Error implements the error interface. Tool and validation errors already
// name their kind, so only generic failures are labeled.
func (e *StageError) Error() string {
	if e.Kind == KindGeneric {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
