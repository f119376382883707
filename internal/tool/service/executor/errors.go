package executor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is returned when a command exceeds its timeout.
	ErrTimeout = errors.New("command timeout")
	// ErrSpawn is returned when the OS could not create the process.
	ErrSpawn = errors.New("command could not be started")
	// ErrNonZeroExit marks a command that exited with a failure status.
	ErrNonZeroExit = errors.New("command exited with non-zero status")
	// ErrEmptyCommand is returned when the spec carries no command at all.
	ErrEmptyCommand = errors.New("command cannot be empty")
)

// SpawnError represents a failure to create the process (binary missing,
// permission denied, invalid working directory).
type SpawnError struct {
	Command string
	Cause   error
	Stage   string // "resolve", "start"
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("command %s failed at %s: %v", e.Command, e.Stage, e.Cause)
}

func (e *SpawnError) Unwrap() error { return e.Cause }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

func (e *SpawnError) IOError() bool { return true }

// TimeoutError is returned when a command exceeds its timeout. Result holds
// the output captured before the process was terminated.
type TimeoutError struct {
	Command    string
	Limit      time.Duration
	KillFailed bool
	Result     *Result
}

func (e *TimeoutError) Error() string {
	if e.KillFailed {
		return fmt.Sprintf("command %s timed out after %v and could not be killed", e.Command, e.Limit)
	}
	return fmt.Sprintf("command %s timed out after %v", e.Command, e.Limit)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

func (e *TimeoutError) Timeout() bool { return true }

// ExitError reports a command that ran to completion with a failure status.
type ExitError struct {
	Command  string
	ExitCode int
	Signal   string
	Result   *Result
}

func (e *ExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("command %s terminated by signal %s", e.Command, e.Signal)
	}
	return fmt.Sprintf("command %s exited with code %d", e.Command, e.ExitCode)
}

func (e *ExitError) Unwrap() error { return ErrNonZeroExit }
