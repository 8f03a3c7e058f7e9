package command

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotPending is returned when queueing a command that already ran.
var ErrNotPending = errors.New("command is not pending")

// ProcessLaunchError means the executable could not be started.
type ProcessLaunchError struct {
	Executable string
	Err        error
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Executable, e.Err)
}

func (e *ProcessLaunchError) Unwrap() error { return e.Err }

// ProcessExitError means the process ran and exited nonzero.
type ProcessExitError struct {
	Code int
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// TeardownTimeoutError means a cancelled process did not confirm its exit in
// time.
type TeardownTimeoutError struct {
	After time.Duration
}

func (e *TeardownTimeoutError) Error() string {
	return fmt.Sprintf("process did not exit within %s of cancellation", e.After)
}

// ExitCode returns the exit code carried by err, if any.
func ExitCode(err error) (int, bool) {
	var exitErr *ProcessExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
