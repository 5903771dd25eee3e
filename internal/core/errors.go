package core

import (
	"errors"
	"fmt"
)

// Exit codes of the homewatch command.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitNotFound = 4
	// ExitRestart asks the service manager to start homewatch again.
	ExitRestart = 42
)

// ErrRestart is returned by serve when a remote asked for a restart.
var ErrRestart = errors.New("restart requested")

// CLIError carries a user-visible message and exit code.
type CLIError struct {
	Code int
	Msg  string
	Err  error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// WrapError creates a CLIError with an underlying error.
func WrapError(code int, msg string, err error) *CLIError {
	return &CLIError{Code: code, Msg: msg, Err: err}
}

// UsageError reports a bad invocation.
func UsageError(msg string) *CLIError {
	return &CLIError{Code: ExitUsage, Msg: msg}
}

// ExitCode returns the CLI exit code from error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrRestart) {
		return ExitRestart
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitRuntime
}
