package executor

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Mode selects how a command string is turned into a process.
type Mode int

const (
	// ModeAuto runs the command directly unless it uses shell syntax.
	ModeAuto Mode = iota
	// ModeArgv always splits the command into argv; shell syntax is rejected.
	ModeArgv
	// ModeShell always runs the command through the configured shell.
	ModeShell
)

func (m Mode) String() string {
	switch m {
	case ModeArgv:
		return "argv"
	case ModeShell:
		return "shell"
	default:
		return "auto"
	}
}

// ParseMode accepts "auto", "argv" or "shell"; empty means auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "argv":
		return ModeArgv, nil
	case "shell":
		return ModeShell, nil
	}
	return ModeAuto, fmt.Errorf("unknown execution mode %q: want auto, argv or shell", s)
}

// CommandSpec describes one command to execute. The runner copies everything
// it needs before spawning, so callers may reuse the spec afterwards.
type CommandSpec struct {
	Command    string
	Argv       []string // used verbatim when non-empty
	Mode       Mode
	WorkingDir string
	Env        map[string]string // overlaid on the inherited environment
	Timeout    time.Duration     // zero picks DefaultTimeout
	Stream     io.Writer         // receives output chunks as they arrive
}

// Result is the normalized outcome of one execution.
type Result struct {
	Command         string        `json:"command"`
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	StdoutTruncated bool          `json:"stdout_truncated,omitempty"`
	StderrTruncated bool          `json:"stderr_truncated,omitempty"`
	ExitCode        int           `json:"exit_code"`
	Signal          string        `json:"signal,omitempty"`
	TimedOut        bool          `json:"timed_out,omitempty"`
	Interrupted     bool          `json:"interrupted,omitempty"`
	KillFailed      bool          `json:"kill_failed,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	PID             int           `json:"pid"`
}

// Signaled reports whether the process was terminated by a signal.
func (r *Result) Signaled() bool {
	return r.Signal != ""
}

// Success reports a normal exit with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Signal == "" && !r.TimedOut && !r.KillFailed
}

// Truncated reports whether either stream lost bytes.
func (r *Result) Truncated() bool {
	return r.StdoutTruncated || r.StderrTruncated
}

// Combined returns stdout followed by stderr.
func (r *Result) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Err reinterprets a failed run as an error. Interrupted runs count as
// successful partial runs.
func (r *Result) Err() error {
	if r.TimedOut {
		return &TimeoutError{Command: r.Command, KillFailed: r.KillFailed, Result: r}
	}
	if r.Interrupted || r.Success() {
		return nil
	}
	return &ExitError{Command: r.Command, ExitCode: r.ExitCode, Signal: r.Signal, Result: r}
}
