package adapter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/devrun/internal/tool/gateway"
	"github.com/Cyclone1070/devrun/internal/tool/server"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
	"github.com/Cyclone1070/devrun/internal/tool/session"
)

// RunCommandRequest is the input of run_command.
type RunCommandRequest struct {
	Command       string            `mapstructure:"command"`
	WorkingDir    string            `mapstructure:"working_dir"`
	Env           map[string]string `mapstructure:"env"`
	EnvFiles      []string          `mapstructure:"env_files"`
	TimeoutMs     int               `mapstructure:"timeout_ms"`
	Mode          string            `mapstructure:"mode"`
	AutoCommit    bool              `mapstructure:"auto_commit"`
	CommitMessage string            `mapstructure:"commit_message"`
	CommitFiles   []string          `mapstructure:"commit_files"`
}

func (r *RunCommandRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return errors.New("command is required")
	}
	if r.TimeoutMs < 0 {
		return errors.New("timeout_ms must be >= 0")
	}
	_, err := executor.ParseMode(r.Mode)
	return err
}

func (r *RunCommandRequest) options() gateway.RunOptions {
	mode, _ := executor.ParseMode(r.Mode)
	return gateway.RunOptions{
		WorkingDir:    r.WorkingDir,
		Env:           r.Env,
		EnvFiles:      r.EnvFiles,
		Timeout:       time.Duration(r.TimeoutMs) * time.Millisecond,
		Mode:          mode,
		Commit:        r.AutoCommit,
		CommitMessage: r.CommitMessage,
		CommitFiles:   r.CommitFiles,
	}
}

// RunSequenceRequest is the input of run_sequence.
type RunSequenceRequest struct {
	Commands      []string          `mapstructure:"commands"`
	WorkingDir    string            `mapstructure:"working_dir"`
	Env           map[string]string `mapstructure:"env"`
	EnvFiles      []string          `mapstructure:"env_files"`
	TimeoutMs     int               `mapstructure:"timeout_ms"`
	Mode          string            `mapstructure:"mode"`
	AutoCommit    bool              `mapstructure:"auto_commit"`
	CommitMessage string            `mapstructure:"commit_message"`
}

func (r *RunSequenceRequest) Validate() error {
	if len(r.Commands) == 0 {
		return errors.New("commands must not be empty")
	}
	for i, c := range r.Commands {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("commands[%d] is empty", i)
		}
	}
	if r.TimeoutMs < 0 {
		return errors.New("timeout_ms must be >= 0")
	}
	_, err := executor.ParseMode(r.Mode)
	return err
}

// RunCustomToolRequest is the input of run_custom_tool.
type RunCustomToolRequest struct {
	Name       string   `mapstructure:"name"`
	Args       []string `mapstructure:"args"`
	WorkingDir string   `mapstructure:"working_dir"`
	TimeoutMs  int      `mapstructure:"timeout_ms"`
	AutoCommit bool     `mapstructure:"auto_commit"`
}

func (r *RunCustomToolRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.TimeoutMs < 0 {
		return errors.New("timeout_ms must be >= 0")
	}
	return nil
}

// CheckCommandRequest is the input of check_command.
type CheckCommandRequest struct {
	Command    string `mapstructure:"command"`
	WorkingDir string `mapstructure:"working_dir"`
}

// ListAllowedRequest is the input of list_allowed_commands.
type ListAllowedRequest struct {
	WorkingDir string `mapstructure:"working_dir"`
}

// StartServerRequest is the input of start_server.
type StartServerRequest struct {
	Name       string            `mapstructure:"name"`
	Command    string            `mapstructure:"command"`
	Port       int               `mapstructure:"port"`
	WorkingDir string            `mapstructure:"working_dir"`
	Env        map[string]string `mapstructure:"env"`
	Mode       string            `mapstructure:"mode"`
}

func (r *StartServerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Command) == "" {
		return errors.New("command is required")
	}
	if r.Port < 0 || r.Port > 65535 {
		return fmt.Errorf("port %d out of range", r.Port)
	}
	_, err := executor.ParseMode(r.Mode)
	return err
}

// NameRequest is the input of tools that act on one managed process.
type NameRequest struct {
	Name string `mapstructure:"name"`
}

func (r *NameRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// PortRequest is the input of kill_process_by_port.
type PortRequest struct {
	Port int `mapstructure:"port"`
}

func (r *PortRequest) Validate() error {
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("port %d out of range", r.Port)
	}
	return nil
}

// StartSessionRequest is the input of start_session.
type StartSessionRequest struct {
	Description string `mapstructure:"description"`
	Branch      string `mapstructure:"branch"`
	WorkingDir  string `mapstructure:"working_dir"`
}

// EmptyRequest is used by tools without arguments.
type EmptyRequest struct{}

// CommandResponse is the JSON form of a single command run. Runner-level
// failures are reported in Error with whatever output was captured.
type CommandResponse struct {
	Command     string                 `json:"command"`
	Stdout      string                 `json:"stdout"`
	Stderr      string                 `json:"stderr"`
	ExitCode    int                    `json:"exit_code"`
	Signal      string                 `json:"signal,omitempty"`
	TimedOut    bool                   `json:"timed_out,omitempty"`
	Interrupted bool                   `json:"interrupted,omitempty"`
	Truncated   bool                   `json:"truncated,omitempty"`
	DurationMs  int64                  `json:"duration_ms"`
	WorkingDir  string                 `json:"working_dir,omitempty"`
	Notes       []string               `json:"notes,omitempty"`
	Commit      *gateway.CommitOutcome `json:"commit,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// SequenceResponse is the JSON form of run_sequence.
type SequenceResponse struct {
	Steps        []CommandResponse      `json:"steps"`
	AllSucceeded bool                   `json:"all_succeeded"`
	FailedIndex  int                    `json:"failed_index"`
	Commit       *gateway.CommitOutcome `json:"commit,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// CheckResponse reports a policy decision without running anything.
type CheckResponse struct {
	Command string `json:"command"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// AllowedResponse lists the allowlist and custom tools of a project.
type AllowedResponse struct {
	AllowedCommands []string `json:"allowed_commands"`
	CustomTools     []string `json:"custom_tools"`
	PolicySource    string   `json:"policy_source,omitempty"`
}

// ProcessListResponse is the output of list_processes.
type ProcessListResponse struct {
	Processes []server.Info `json:"processes"`
}

// SessionResponse wraps the current session, if any.
type SessionResponse struct {
	Active  bool            `json:"active"`
	Session *session.Record `json:"session,omitempty"`
}

// ClearResponse is the output of clear_policy_cache.
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}
