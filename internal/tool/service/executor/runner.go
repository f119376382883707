package executor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Cyclone1070/devrun/internal/config"
)

// Outcome labels reported to the Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeExitError   = "exit_error"
	OutcomeTimeout     = "timeout"
	OutcomeInterrupted = "interrupted"
	OutcomeSpawnError  = "spawn_error"
)

// Observer receives one call per finished run.
type Observer interface {
	ObserveExec(program, outcome string, duration time.Duration)
}

// Runner executes commands with bounded output and a two-stage kill on
// timeout or cancellation.
type Runner struct {
	config   *config.Config
	log      logrus.FieldLogger
	observer Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for process lifecycle events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithObserver reports every run to o.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// NewRunner creates a Runner with injected config.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		panic("cfg is required")
	}
	r := &Runner{
		config: cfg,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limits returns the per-process bounds derived from config.
func (r *Runner) Limits() Limits {
	return LimitsFromConfig(r.config)
}

// GracePeriod is how long a terminated process gets before SIGKILL.
func (r *Runner) GracePeriod() time.Duration {
	return time.Duration(r.config.Exec.GracefulShutdownMs) * time.Millisecond
}

// Start spawns spec without a timeout.
func (r *Runner) Start(spec CommandSpec) (*Process, error) {
	p, err := Start(spec, r.Limits())
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"command": p.Command(),
		"pid":     p.PID(),
	}).Debug("process started")
	return p, nil
}

// Run executes spec and waits for it to finish.
//
// A non-zero exit is not an error: it is reported in the Result, and
// Result.Err converts it when the caller wants one. A timeout returns the
// partial Result together with a *TimeoutError. Cancelling ctx terminates the
// process the same way a timeout does, but the run resolves as Interrupted
// with a nil error.
func (r *Runner) Run(ctx context.Context, spec CommandSpec) (*Result, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout(displayCommand(spec), r.config)
	}

	p, err := r.Start(spec)
	if err != nil {
		r.observe(programOf(spec), OutcomeSpawnError, 0)
		return nil, err
	}

	res, err := r.await(ctx, p, timeout)

	outcome := OutcomeSuccess
	switch {
	case res.TimedOut:
		outcome = OutcomeTimeout
	case res.Interrupted:
		outcome = OutcomeInterrupted
	case !res.Success():
		outcome = OutcomeExitError
	}
	r.observe(p.Program(), outcome, res.Duration)

	return res, err
}

// await drives the termination state machine for p until exactly one
// resolution happens.
func (r *Runner) await(ctx context.Context, p *Process, timeout time.Duration) (*Result, error) {
	log := r.log.WithFields(logrus.Fields{"command": p.Command(), "pid": p.PID()})
	grace := r.GracePeriod()

	var term termination
	var timedOut, interrupted bool

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var graceTimer, reapTimer *time.Timer
	var graceC, reapC <-chan time.Time
	defer func() {
		if graceTimer != nil {
			graceTimer.Stop()
		}
		if reapTimer != nil {
			reapTimer.Stop()
		}
	}()

	beginTermination := func() bool {
		if !term.advance(stateRunning, stateGracePeriod) {
			return false
		}
		if err := p.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.WithError(err).Debug("failed to send SIGTERM")
		}
		graceTimer = time.NewTimer(grace)
		graceC = graceTimer.C
		return true
	}

	ctxDone := ctx.Done()
	for {
		select {
		case <-p.Done():
			term.resolve()
			if err := p.WaitErr(); errors.Is(err, exec.ErrWaitDelay) {
				log.Debug("output pipes still held open after exit")
			}
			res := p.Result()
			res.TimedOut = timedOut
			res.Interrupted = interrupted
			if timedOut {
				return res, &TimeoutError{Command: p.Command(), Limit: timeout, Result: res}
			}
			return res, nil

		case <-deadline.C:
			if beginTermination() {
				timedOut = true
				log.WithField("timeout", timeout).Info("command timed out, terminating")
			}

		case <-ctxDone:
			ctxDone = nil
			if beginTermination() {
				interrupted = true
				log.Info("command interrupted, terminating")
			}

		case <-graceC:
			graceC = nil
			if term.advance(stateGracePeriod, stateForceKilling) {
				if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
					log.WithError(err).Warn("failed to send SIGKILL")
				}
				reapTimer = time.NewTimer(grace)
				reapC = reapTimer.C
			}

		case <-reapC:
			reapC = nil
			if term.advance(stateForceKilling, stateResolved) {
				log.Warn("process did not exit after SIGKILL, leaving it orphaned")
				res := p.Result()
				res.TimedOut = timedOut
				res.Interrupted = interrupted
				res.KillFailed = true
				if timedOut {
					return res, &TimeoutError{Command: p.Command(), Limit: timeout, KillFailed: true, Result: res}
				}
				return res, nil
			}
		}
	}
}

func (r *Runner) observe(program, outcome string, d time.Duration) {
	if r.observer != nil {
		r.observer.ObserveExec(program, outcome, d)
	}
}

func programOf(spec CommandSpec) string {
	if len(spec.Argv) > 0 {
		return spec.Argv[0]
	}
	if fields := strings.Fields(spec.Command); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
