package executor

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/Cyclone1070/devrun/internal/config"
)

// Limits bounds a single process.
type Limits struct {
	MaxStdoutBytes int64
	MaxStderrBytes int64
	WaitDelay      time.Duration
	Shell          string
}

// LimitsFromConfig reads the exec section of cfg.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxStdoutBytes: cfg.Exec.MaxStdoutBytes,
		MaxStderrBytes: cfg.Exec.MaxStderrBytes,
		WaitDelay:      time.Duration(cfg.Exec.WaitDelayMs) * time.Millisecond,
		Shell:          cfg.Exec.Shell,
	}
}

// Process is a spawned command whose output is captured into tail buffers.
// It is owned by whoever called Start.
type Process struct {
	cmd     *exec.Cmd
	command string
	program string
	stdout  *tailBuffer
	stderr  *tailBuffer
	started time.Time

	done    chan struct{}
	ended   time.Time
	waitErr error
}

// Start spawns spec without any timeout. The caller decides when to stop it.
func Start(spec CommandSpec, limits Limits) (*Process, error) {
	command := displayCommand(spec)

	argv, err := resolveArgv(spec, limits.Shell)
	if err != nil {
		if errors.Is(err, ErrEmptyCommand) {
			return nil, err
		}
		return nil, &SpawnError{Command: command, Cause: err, Stage: "resolve"}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Stdin = nil
	cmd.WaitDelay = limits.WaitDelay
	setProcessGroup(cmd)

	p := &Process{
		cmd:     cmd,
		command: command,
		program: filepath.Base(argv[0]),
		stdout:  newTailBuffer(limits.MaxStdoutBytes),
		stderr:  newTailBuffer(limits.MaxStderrBytes),
		done:    make(chan struct{}),
	}

	var stream *streamWriter
	if spec.Stream != nil {
		stream = &streamWriter{w: spec.Stream}
	}
	cmd.Stdout = teeOutput(p.stdout, stream)
	cmd.Stderr = teeOutput(p.stderr, stream)

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: command, Cause: err, Stage: "start"}
	}
	p.started = time.Now()

	go func() {
		err := cmd.Wait()
		p.waitErr = err
		p.ended = time.Now()
		close(p.done)
	}()

	return p, nil
}

// PID returns the OS process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Command returns the display form of the command.
func (p *Process) Command() string {
	return p.command
}

// Program returns the base name of the executable.
func (p *Process) Program() string {
	return p.program
}

// StartTime returns when the process was spawned.
func (p *Process) StartTime() time.Time {
	return p.started
}

// Done is closed once the process has been reaped and its pipes drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Alive reports whether the process has not been observed to exit.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Terminate asks the process group to exit.
func (p *Process) Terminate() error {
	return p.Signal(syscall.SIGTERM)
}

// Kill forcibly stops the process group.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Signal delivers sig to the process group. A group that is already gone
// reports os.ErrProcessDone.
func (p *Process) Signal(sig syscall.Signal) error {
	if !p.Alive() {
		return os.ErrProcessDone
	}
	return signalGroup(p.PID(), sig)
}

// Output returns the retained stdout and stderr tails.
func (p *Process) Output() (string, string) {
	return p.stdout.String(), p.stderr.String()
}

// Result builds the normalized result. Before the process exits it returns
// a snapshot with ExitCode -1.
func (p *Process) Result() *Result {
	res := &Result{
		Command:         p.command,
		Stdout:          p.stdout.String(),
		Stderr:          p.stderr.String(),
		StdoutTruncated: p.stdout.Truncated(),
		StderrTruncated: p.stderr.Truncated(),
		ExitCode:        -1,
		PID:             p.PID(),
	}
	if p.Alive() {
		res.Duration = time.Since(p.started)
		return res
	}
	res.Duration = p.ended.Sub(p.started)
	if ps := p.cmd.ProcessState; ps != nil {
		res.ExitCode, res.Signal = exitStatus(ps)
	}
	return res
}

// mergeEnv overlays env on base. Overridden keys are dropped from base.
func mergeEnv(base []string, env map[string]string) []string {
	if len(env) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := env[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// WaitErr returns the error from reaping the process, once Done is closed.
func (p *Process) WaitErr() error {
	if p.Alive() {
		return nil
	}
	return p.waitErr
}
