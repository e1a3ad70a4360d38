package domain

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrNoModel is returned when an engine is driven before an automaton is loaded.
var ErrNoModel = errors.New("no automaton loaded")

// ErrUnknownConfig is returned when a configuration ID is not in the run's history.
var ErrUnknownConfig = errors.New("unknown configuration")

// StepPreconditionError reports an operation invoked in a state that does not allow it.
type StepPreconditionError struct {
	Op  string
	Err error
}

func (e *StepPreconditionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StepPreconditionError) Unwrap() error {
	return e.Err
}

// ErrInvalidCheckpoint is returned when a persisted run cannot be restored.
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

// ErrDefinitionNotFound is returned by definition loaders for unknown IDs.
var ErrDefinitionNotFound = errors.New("definition not found")
