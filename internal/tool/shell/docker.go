package shell

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/Cyclone1070/devrun/internal/config"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// DockerConfig contains configuration for Docker readiness checks.
type DockerConfig struct {
	CheckCommand  []string // e.g., ["docker", "info"]
	StartCommand  []string // e.g., ["open", "-a", "Docker"]
	RetryAttempts int
	RetryInterval time.Duration
}

// DockerConfigFromConfig reads the docker settings of the exec section.
func DockerConfigFromConfig(cfg *config.Config) DockerConfig {
	return DockerConfig{
		CheckCommand:  cfg.Exec.DockerCheckCommand,
		StartCommand:  cfg.Exec.DockerStartCommand,
		RetryAttempts: cfg.Exec.DockerRetryAttempts,
		RetryInterval: time.Duration(cfg.Exec.DockerRetryIntervalMs) * time.Millisecond,
	}
}

// commandFields splits command like a shell would, falling back to plain
// whitespace splitting for input shellwords rejects (unbalanced quotes).
func commandFields(command string) []string {
	if fields, err := shellwords.Parse(command); err == nil {
		return fields
	}
	return strings.Fields(command)
}

// IsDockerCommand checks if the command is a docker command by examining the
// base name of its program. It handles both simple commands ("docker ps")
// and full paths ("/usr/bin/docker ps").
func IsDockerCommand(command string) bool {
	fields := commandFields(command)
	if len(fields) == 0 {
		return false
	}
	base := filepath.Base(fields[0])
	return base == "docker" || base == "docker-compose"
}

// IsDockerComposeUpDetached checks if the command is 'docker compose up' (or
// 'docker-compose up') with detached mode (-d or --detach).
func IsDockerComposeUpDetached(command string) bool {
	if !IsDockerCommand(command) {
		return false
	}
	args := commandFields(command)

	foundCompose := filepath.Base(args[0]) == "docker-compose"
	foundUp := false

	for _, arg := range args[1:] {
		if !foundCompose {
			if arg == "compose" {
				foundCompose = true
			}
			continue
		}

		if !foundUp {
			if arg == "up" {
				foundUp = true
			}
			continue
		}

		if arg == "-d" || arg == "--detach" {
			return true
		}
	}

	return false
}

func dockerReady(ctx context.Context, runner commandRunner, check []string) bool {
	res, err := runner.Run(ctx, executor.CommandSpec{Argv: check})
	return err == nil && res != nil && res.Success()
}

// EnsureDockerReady checks if Docker is running and attempts to start it if not.
// After starting Docker it polls the check command up to RetryAttempts times,
// RetryInterval apart.
func EnsureDockerReady(ctx context.Context, runner commandRunner, cfg DockerConfig) error {
	if dockerReady(ctx, runner, cfg.CheckCommand) {
		return nil
	}

	if len(cfg.StartCommand) == 0 {
		return &DockerUnavailableError{Attempts: 1}
	}
	res, err := runner.Run(ctx, executor.CommandSpec{Argv: cfg.StartCommand})
	if err != nil {
		return &DockerUnavailableError{Attempts: 1, Cause: err}
	}
	if err := res.Err(); err != nil {
		return &DockerUnavailableError{Attempts: 1, Cause: err}
	}

	ticker := time.NewTicker(cfg.RetryInterval)
	defer ticker.Stop()

	for range cfg.RetryAttempts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if dockerReady(ctx, runner, cfg.CheckCommand) {
				return nil
			}
		}
	}

	return &DockerUnavailableError{Attempts: cfg.RetryAttempts + 1}
}

// CollectComposeContainers collects container IDs from a docker compose project in the specified directory.
// It uses 'docker compose ps -q' to get the list of container IDs.
func CollectComposeContainers(ctx context.Context, runner commandRunner, dir string) ([]string, error) {
	res, err := runner.Run(ctx, executor.CommandSpec{
		Argv:       []string{"docker", "compose", "--project-directory", dir, "ps", "-q"},
		WorkingDir: dir,
	})
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

// FormatContainerStartedNote returns a human-readable note about started containers.
// It formats the message based on the number of containers started.
func FormatContainerStartedNote(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	count := len(ids)
	if count == 1 {
		return fmt.Sprintf("Started 1 Docker container: %s", ids[0])
	}
	return fmt.Sprintf("Started %d Docker containers", count)
}
