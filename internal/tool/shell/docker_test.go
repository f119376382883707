package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// mockRunner is a local mock for testing docker functions
type mockRunner struct {
	runFunc func(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error)
	calls   [][]string
}

func (m *mockRunner) Run(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error) {
	m.calls = append(m.calls, spec.Argv)
	if m.runFunc != nil {
		return m.runFunc(ctx, spec)
	}
	return nil, errors.New("not implemented")
}

func TestEnsureDockerReady(t *testing.T) {
	cfg := DockerConfig{
		CheckCommand:  []string{"docker", "info"},
		StartCommand:  []string{"open", "-a", "Docker"},
		RetryAttempts: 5,
		RetryInterval: 10 * time.Millisecond,
	}

	t.Run("Success immediately", func(t *testing.T) {
		runner := &mockRunner{runFunc: func(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error) {
			if spec.Argv[0] == "docker" && spec.Argv[1] == "info" {
				return &executor.Result{ExitCode: 0}, nil
			}
			return nil, errors.New("unexpected command")
		}}

		require.NoError(t, EnsureDockerReady(context.Background(), runner, cfg))
		assert.Len(t, runner.calls, 1)
	})

	t.Run("Start required and succeeds", func(t *testing.T) {
		checkCalls := 0
		runner := &mockRunner{runFunc: func(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error) {
			switch spec.Argv[0] {
			case "docker":
				checkCalls++
				if checkCalls == 1 {
					return &executor.Result{ExitCode: 1}, nil
				}
				return &executor.Result{ExitCode: 0}, nil
			case "open":
				return &executor.Result{ExitCode: 0}, nil
			}
			return nil, errors.New("unexpected command")
		}}

		require.NoError(t, EnsureDockerReady(context.Background(), runner, cfg))
		assert.Equal(t, 2, checkCalls)
	})

	t.Run("Start fails", func(t *testing.T) {
		runner := &mockRunner{runFunc: func(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error) {
			return nil, &executor.SpawnError{Command: spec.Argv[0], Cause: errors.New("missing"), Stage: "start"}
		}}

		err := EnsureDockerReady(context.Background(), runner, cfg)

		var unavailable *DockerUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.ErrorIs(t, err, executor.ErrSpawn)
	})

	t.Run("Never becomes ready", func(t *testing.T) {
		runner := &mockRunner{runFunc: func(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error) {
			if spec.Argv[0] == "open" {
				return &executor.Result{ExitCode: 0}, nil
			}
			return &executor.Result{ExitCode: 1}, nil
		}}

		err := EnsureDockerReady(context.Background(), runner, cfg)

		var unavailable *DockerUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, 6, unavailable.Attempts)
		assert.Len(t, runner.calls, 7) // check, start, 5 retries
	})

	t.Run("Context cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		runner := &mockRunner{runFunc: func(_ context.Context, spec executor.CommandSpec) (*executor.Result, error) {
			if spec.Argv[0] == "open" {
				cancel()
				return &executor.Result{ExitCode: 0}, nil
			}
			return &executor.Result{ExitCode: 1}, nil
		}}
		slow := cfg
		slow.RetryInterval = time.Hour

		err := EnsureDockerReady(ctx, runner, slow)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsDockerCommand(t *testing.T) {
	assert.True(t, IsDockerCommand("docker ps"))
	assert.True(t, IsDockerCommand("/usr/local/bin/docker build ."))
	assert.True(t, IsDockerCommand("docker-compose up"))
	assert.False(t, IsDockerCommand("npm install docker"))
	assert.False(t, IsDockerCommand(""))
}

func TestIsDockerComposeUpDetached(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"docker compose up -d", true},
		{"docker compose -f dev.yml up --detach", true},
		{"docker-compose up -d", true},
		{"docker compose up", false},
		{"docker compose -d up", false},
		{"docker run -d nginx", false},
		{"npm run up -d", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDockerComposeUpDetached(tt.command))
		})
	}
}

func TestCollectComposeContainers(t *testing.T) {
	runner := &mockRunner{runFunc: func(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error) {
		assert.Equal(t, "/proj", spec.WorkingDir)
		return &executor.Result{Stdout: "abc123\n\ndef456\n"}, nil
	}}

	ids, err := CollectComposeContainers(context.Background(), runner, "/proj")

	require.NoError(t, err)
	assert.Equal(t, []string{"abc123", "def456"}, ids)
	assert.Equal(t, "Started 2 Docker containers", FormatContainerStartedNote(ids))
	assert.Equal(t, "Started 1 Docker container: abc123", FormatContainerStartedNote(ids[:1]))
	assert.Empty(t, FormatContainerStartedNote(nil))
}
