package executor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/devrun/internal/config"
)

type spyObserver struct {
	mu       sync.Mutex
	outcomes []string
	programs []string
}

func (s *spyObserver) ObserveExec(program, outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs = append(s.programs, program)
	s.outcomes = append(s.outcomes, outcome)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell and process groups")
	}
}

func newTestRunner(mutate func(*config.Config), opts ...Option) *Runner {
	cfg := config.DefaultConfig()
	cfg.Exec.GracefulShutdownMs = 500
	cfg.Exec.WaitDelayMs = 500
	if mutate != nil {
		mutate(cfg)
	}
	return NewRunner(cfg, opts...)
}

func TestNewRunner_NilConfig_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "cfg is required", func() { NewRunner(nil) })
}

// --- HAPPY PATH TESTS ---

func TestRun_Echo(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "echo hello"})

	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "hello")
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.Signal)
	assert.True(t, res.Success())
	assert.NoError(t, res.Err())
	assert.Equal(t, "echo hello", res.Command)
	assert.Greater(t, res.PID, 0)
}

func TestRun_NonZeroExit_IsData(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "sh -c 'echo boom >&2; exit 3'"})

	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
	assert.False(t, res.Success())

	var exitErr *ExitError
	require.ErrorAs(t, res.Err(), &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.True(t, errors.Is(res.Err(), ErrNonZeroExit))
	assert.Contains(t, exitErr.Error(), "exited with code 3")
}

func TestRun_SignalDeath_ReportsSignal(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "kill -TERM $$", Mode: ModeShell})

	require.NoError(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, "SIGTERM", res.Signal)
	assert.True(t, res.Signaled())
	assert.ErrorIs(t, res.Err(), ErrNonZeroExit)
}

func TestRun_EnvOverlay(t *testing.T) {
	skipOnWindows(t)
	t.Setenv("DEVRUN_INHERITED", "parent")
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{
		Command: `echo "$DEVRUN_INHERITED-$DEVRUN_EXPLICIT"`,
		Env:     map[string]string{"DEVRUN_EXPLICIT": "child"},
	})

	require.NoError(t, err)
	assert.Equal(t, "parent-child\n", res.Stdout)
}

func TestRun_WorkingDir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "pwd", WorkingDir: dir})

	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	assert.Equal(t, want, got)
}

func TestRun_StreamReceivesOutput(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)
	var mu sync.Mutex
	var buf bytes.Buffer

	res, err := r.Run(context.Background(), CommandSpec{
		Command: "echo out; echo err >&2",
		Stream:  writerFunc(func(p []byte) (int, error) { mu.Lock(); defer mu.Unlock(); return buf.Write(p) }),
	})

	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "out")
	assert.Contains(t, buf.String(), "err")
}

func TestRun_FailingStream_DoesNotStallProcess(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{
		Command: "echo still-captured",
		Stream:  writerFunc(func(p []byte) (int, error) { return 0, errors.New("closed") }),
	})

	require.NoError(t, err)
	assert.Equal(t, "still-captured\n", res.Stdout)
}

func TestRun_Argv_UsedVerbatim(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Argv: []string{"echo", "a;b", "$HOME"}})

	require.NoError(t, err)
	assert.Equal(t, "a;b $HOME\n", res.Stdout)
	assert.Equal(t, "echo 'a;b' '$HOME'", res.Command)
}

func TestRun_Observer(t *testing.T) {
	skipOnWindows(t)
	spy := &spyObserver{}
	r := newTestRunner(nil, WithObserver(spy))

	_, _ = r.Run(context.Background(), CommandSpec{Command: "true"})
	_, _ = r.Run(context.Background(), CommandSpec{Command: "false"})
	_, _ = r.Run(context.Background(), CommandSpec{Argv: []string{"/definitely/not/here"}})

	assert.Equal(t, []string{OutcomeSuccess, OutcomeExitError, OutcomeSpawnError}, spy.outcomes)
	assert.Equal(t, "true", spy.programs[0])
}

// --- TRUNCATION TESTS ---

func TestRun_OutputTruncatedToTail(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(func(c *config.Config) { c.Exec.MaxStdoutBytes = 16 })

	res, err := r.Run(context.Background(), CommandSpec{Command: "printf 0123456789abcdefghij"})

	require.NoError(t, err)
	assert.True(t, res.StdoutTruncated)
	assert.False(t, res.StderrTruncated)
	marker := truncationMarker(16)
	assert.LessOrEqual(t, len(res.Stdout), 16+len(marker))
	assert.Equal(t, marker+"456789abcdefghij", res.Stdout)
}

func TestRun_LargeOutput_KeepsLastBytes(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(func(c *config.Config) { c.Exec.MaxStdoutBytes = 1024 })

	res, err := r.Run(context.Background(), CommandSpec{
		Command: "i=0; while [ $i -lt 2000 ]; do echo line$i; i=$((i+1)); done",
	})

	require.NoError(t, err)
	assert.True(t, res.StdoutTruncated)
	assert.LessOrEqual(t, len(res.Stdout), 1024+len(truncationMarker(1024)))
	assert.True(t, strings.HasSuffix(res.Stdout, "line1999\n"))
	assert.NotContains(t, res.Stdout, "line0\n")
}

// --- TIMEOUT & CANCELLATION TESTS ---

func TestRun_Timeout_KillsProcess(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	start := time.Now()
	res, err := r.Run(context.Background(), CommandSpec{Command: "sleep 5", Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, timeoutErr.Timeout())
	assert.False(t, timeoutErr.KillFailed)
	assert.Equal(t, 100*time.Millisecond, timeoutErr.Limit)
	assert.Contains(t, timeoutErr.Error(), "100ms")
	assert.Contains(t, timeoutErr.Error(), "sleep 5")

	require.NotNil(t, res)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.NotEmpty(t, res.Signal)
	assert.Less(t, elapsed, 100*time.Millisecond+r.GracePeriod()+time.Second)
	assert.False(t, ProcessExists(res.PID), "process should be gone after timeout")
}

func TestRun_Timeout_PreservesPartialOutput(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "echo starting; sleep 5", Timeout: 300 * time.Millisecond})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "starting\n", res.Stdout)
	assert.ErrorIs(t, res.Err(), ErrTimeout)
}

func TestRun_Timeout_EscalatesToKill(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(func(c *config.Config) { c.Exec.GracefulShutdownMs = 200 })

	res, err := r.Run(context.Background(), CommandSpec{
		Command: "trap '' TERM; echo ready; sleep 5",
		Timeout: 200 * time.Millisecond,
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, res.TimedOut)
	assert.Equal(t, "SIGKILL", res.Signal)
	assert.False(t, res.KillFailed)
}

func TestRun_ContextCancel_Interrupted(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res, err := r.Run(ctx, CommandSpec{Command: "sleep 5", Timeout: 10 * time.Second})

	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.False(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.NoError(t, res.Err())
	assert.False(t, ProcessExists(res.PID))
}

// --- UNHAPPY PATH TESTS ---

func TestRun_EmptyCommand(t *testing.T) {
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "   "})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestRun_MissingBinary_SpawnError(t *testing.T) {
	r := newTestRunner(nil)

	res, err := r.Run(context.Background(), CommandSpec{Command: "devrun-no-such-binary --flag"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSpawn)
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "start", spawnErr.Stage)
	assert.Contains(t, spawnErr.Error(), "devrun-no-such-binary --flag")
}

func TestRun_BadWorkingDir_SpawnError(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(nil)

	_, err := r.Run(context.Background(), CommandSpec{Command: "pwd", WorkingDir: "/definitely/not/a/dir"})

	assert.ErrorIs(t, err, ErrSpawn)
}

func TestRun_ArgvModeRejectsOperators(t *testing.T) {
	r := newTestRunner(nil)

	_, err := r.Run(context.Background(), CommandSpec{Command: "echo a | wc", Mode: ModeArgv})

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "resolve", spawnErr.Stage)
}

func TestTermination_TransitionsOnce(t *testing.T) {
	var term termination

	assert.True(t, term.advance(stateRunning, stateGracePeriod))
	assert.False(t, term.advance(stateRunning, stateGracePeriod))
	assert.True(t, term.advance(stateGracePeriod, stateForceKilling))
	assert.True(t, term.resolve())
	assert.False(t, term.resolve())
	assert.False(t, term.advance(stateForceKilling, stateResolved))
	assert.Equal(t, stateResolved, term.current())
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
