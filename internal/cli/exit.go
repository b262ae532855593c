package cli

import (
	"errors"

	"github.com/lherron/boardq/internal/domain"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1 // command failed, including failed board writes
	ExitUsage   = 2 // bad arguments, unknown records or rejected mutations
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
// Invariant violations and validation failures are usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var vf *domain.ValidationFailure
	if domain.IsInvariantViolation(err) || errors.As(err, &vf) {
		return ExitUsage
	}
	return ExitFailure
}
