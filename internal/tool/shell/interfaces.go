package shell

import (
	"context"

	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// envFileReader reads whole env files.
type envFileReader interface {
	ReadFile(path string) ([]byte, error)
}

// commandRunner runs helper commands such as docker probes.
type commandRunner interface {
	Run(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error)
}
