package gateway

import (
	"io"
	"time"

	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// RunOptions controls a gateway run.
type RunOptions struct {
	WorkingDir string
	Env        map[string]string
	EnvFiles   []string // applied in order, under Env
	Timeout    time.Duration
	Mode       executor.Mode
	Stream     io.Writer

	// Bypass skips the allowlist and metacharacter checks.
	Bypass bool

	// Commit requests an auto-commit after success, when the project allows it.
	Commit        bool
	CommitMessage string
	CommitFiles   []string
}

// CommitOutcome reports what the auto-commit step did. A failed commit never
// fails the run it follows.
type CommitOutcome struct {
	Committed bool   `json:"committed"`
	Hash      string `json:"hash,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunResult is the outcome of a single gated command.
type RunResult struct {
	*executor.Result
	WorkingDir string         `json:"working_dir"`
	Notes      []string       `json:"notes,omitempty"`
	Commit     *CommitOutcome `json:"commit,omitempty"`
}

// StepResult is one command of a sequence.
type StepResult struct {
	Command string           `json:"command"`
	Result  *executor.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// SequenceResult reports every command that ran, in order. FailedIndex is
// -1 when all succeeded.
type SequenceResult struct {
	Steps        []StepResult   `json:"steps"`
	AllSucceeded bool           `json:"all_succeeded"`
	FailedIndex  int            `json:"failed_index"`
	Commit       *CommitOutcome `json:"commit,omitempty"`
}
