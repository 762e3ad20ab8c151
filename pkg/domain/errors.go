package domain

import (
	"errors"
	"fmt"
)

// ErrFlowNotFound is returned when a flow id cannot be found in the store.
var ErrFlowNotFound = errors.New("flow not found")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrValidation marks malformed input. Use errors.Is to detect any ValidationError.
var ErrValidation = errors.New("validation failed")

// ErrNotAwaitingInput is returned when input is submitted to a session that
// is not suspended on a question. The session is left untouched.
var ErrNotAwaitingInput = errors.New("session is not awaiting input")

// ErrEmptyInput is returned when the submitted answer is blank.
var ErrEmptyInput = errors.New("input is empty")

// ErrTraversalLimitExceeded is returned when a run visits more nodes than the
// engine allows without suspending (usually a cycle of message nodes).
var ErrTraversalLimitExceeded = errors.New("traversal limit exceeded")

// ValidationError describes why a payload was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid flow data: %s", e.Reason)
	}
	return fmt.Sprintf("invalid flow data: %s %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TraversalLimitError reports where a run was cut short.
type TraversalLimitError struct {
	NodeID string
	Limit  int
}

func (e *TraversalLimitError) Error() string {
	return fmt.Sprintf("traversal stopped at node %s after %d steps", e.NodeID, e.Limit)
}

// Unwrap exposes ErrTraversalLimitExceeded to errors.Is.
func (e *TraversalLimitError) Unwrap() error {
	return ErrTraversalLimitExceeded
}
