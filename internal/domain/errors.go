package domain

import (
	"errors"
	"fmt"
)

// InvariantViolation is returned when a mutation would break the board's
// ordering invariants. The mutation is rejected before any state changes.
type InvariantViolation struct {
	Op     string
	Reason string
}

func (e *InvariantViolation) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("invariant violation: %s", e.Reason)
	}
	return fmt.Sprintf("invariant violation: %s: %s", e.Op, e.Reason)
}

// Violation builds an InvariantViolation for op.
func Violation(op, format string, args ...interface{}) *InvariantViolation {
	return &InvariantViolation{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// PersistenceFailure wraps a failed remote write. It is reported, never
// propagated back into the board state.
type PersistenceFailure struct {
	Op       string
	RecordID string
	Version  int64
	Err      error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence failure: %s %s (version %d): %v", e.Op, e.RecordID, e.Version, e.Err)
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

// ValidationFailure is returned at the collaborator boundary when an
// incoming record is missing required fields.
type ValidationFailure struct {
	Field  string
	Reason string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// IsInvariantViolation reports whether err carries an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
