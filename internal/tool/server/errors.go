package server

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is matched by *DuplicateNameError.
	ErrDuplicateName = errors.New("process name already registered")
	// ErrNotFound is matched by *NotFoundError.
	ErrNotFound = errors.New("no such process")
)

// DuplicateNameError is returned when Start is called with a name that is
// already registered. The existing process is left untouched.
type DuplicateNameError struct {
	Name string
	PID  int
}

func (e *DuplicateNameError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("process %q is already running (pid %d)", e.Name, e.PID)
	}
	return fmt.Sprintf("process %q is already starting", e.Name)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

func (e *DuplicateNameError) InvalidInput() bool { return true }

// NotFoundError is returned for operations on an unknown name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no process named %q", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *NotFoundError) InvalidInput() bool { return true }

// InvalidPortError is returned for ports outside 1-65535.
type InvalidPortError struct {
	Port int
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d: must be between 1 and 65535", e.Port)
}

func (e *InvalidPortError) InvalidInput() bool { return true }

// PortLookupError is returned when the lookup utility exists but fails.
type PortLookupError struct {
	Port    int
	Command string
	Cause   error
}

func (e *PortLookupError) Error() string {
	return fmt.Sprintf("port lookup %q for port %d failed: %v", e.Command, e.Port, e.Cause)
}

func (e *PortLookupError) Unwrap() error { return e.Cause }
