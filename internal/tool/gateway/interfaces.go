package gateway

import (
	"context"

	"github.com/Cyclone1070/devrun/internal/tool/policy"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// commandRunner executes one command.
type commandRunner interface {
	Run(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error)
}

// policySource resolves the policy of a project directory.
type policySource interface {
	Load(projectDir string) *policy.ProjectPolicy
}

// committer stages and commits changes after a successful run.
type committer interface {
	Commit(ctx context.Context, dir, message string, files []string) (string, error)
}

// sessionRecorder collects auto-commit hashes.
type sessionRecorder interface {
	ActiveID() string
	RecordCommit(hash string) bool
}

// metricsRecorder counts gateway decisions.
type metricsRecorder interface {
	PolicyDenied(program, reason string)
	AutoCommit(result string)
}

// envFileReader reads env files named in RunOptions.
type envFileReader interface {
	ReadFile(path string) ([]byte, error)
}
