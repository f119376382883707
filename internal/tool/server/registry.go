package server

import (
	"context"
	"errors"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Cyclone1070/devrun/internal/config"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// processRunner spawns managed processes and runs the port lookup utility.
type processRunner interface {
	Start(spec executor.CommandSpec) (*executor.Process, error)
	Run(ctx context.Context, spec executor.CommandSpec) (*executor.Result, error)
}

// gauge tracks the number of registered processes.
type gauge interface {
	SetManagedProcesses(n int)
}

// entry is one registered name. proc is nil while the name is reserved but
// the process has not been spawned yet.
type entry struct {
	name    string
	command string
	port    int
	dir     string
	proc    *executor.Process

	removeOnce sync.Once
}

// Registry owns named long-running processes. An entry exists until its
// process is observed to exit or it is stopped.
type Registry struct {
	config *config.Config
	runner processRunner
	gauge  gauge
	log    logrus.FieldLogger

	lookPath func(file string) (string, error)
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithGauge reports the registry size after every change.
func WithGauge(g gauge) Option { return func(r *Registry) { r.gauge = g } }

// NewRegistry creates an empty Registry.
func NewRegistry(cfg *config.Config, runner processRunner, opts ...Option) *Registry {
	if cfg == nil {
		panic("cfg is required")
	}
	if runner == nil {
		panic("runner is required")
	}
	r := &Registry{
		config:   cfg,
		runner:   runner,
		log:      logrus.StandardLogger(),
		lookPath: executorLookPath,
		entries:  make(map[string]*entry),
	}
	dialer := &net.Dialer{}
	r.dial = dialer.DialContext
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) startupGrace() time.Duration {
	return time.Duration(r.config.Servers.StartupGraceMs) * time.Millisecond
}

func (r *Registry) stopGrace() time.Duration {
	return time.Duration(r.config.Servers.StopGraceMs) * time.Millisecond
}

// Start launches req under req.Name. The name is reserved before spawning,
// so of two concurrent starts with the same name exactly one wins.
func (r *Registry) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("process name is required")
	}
	if req.Port != 0 {
		if err := validatePort(req.Port); err != nil {
			return nil, err
		}
	}

	e := &entry{name: req.Name, command: req.Command, port: req.Port, dir: req.WorkingDir}
	if err := r.reserve(e); err != nil {
		return nil, err
	}

	proc, err := r.runner.Start(executor.CommandSpec{
		Command:    req.Command,
		Mode:       req.Mode,
		WorkingDir: req.WorkingDir,
		Env:        req.Env,
	})
	if err != nil {
		r.remove(e)
		return nil, err
	}

	r.mu.Lock()
	e.proc = proc
	r.mu.Unlock()

	log := r.log.WithFields(logrus.Fields{"name": e.name, "pid": proc.PID(), "port": e.port})
	log.Info("managed process started")

	go func() {
		<-proc.Done()
		if r.remove(e) {
			log.WithField("exit_code", proc.Result().ExitCode).Info("managed process exited")
		}
	}()

	grace := time.NewTimer(r.startupGrace())
	defer grace.Stop()

	select {
	case <-proc.Done():
		r.remove(e)
		res := proc.Result()
		code := res.ExitCode
		return &StartResult{
			Name:       e.name,
			State:      StateStopped,
			PID:        res.PID,
			Command:    proc.Command(),
			Port:       e.port,
			WorkingDir: e.dir,
			StartTime:  proc.StartTime(),
			ExitCode:   &code,
			Signal:     res.Signal,
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
		}, nil
	case <-ctx.Done():
		if _, err := r.stopEntry(context.WithoutCancel(ctx), e); err != nil {
			log.WithError(err).Warn("failed to stop process after cancelled start")
		}
		return nil, ctx.Err()
	case <-grace.C:
	}

	return &StartResult{
		Name:       e.name,
		State:      StateRunning,
		PID:        proc.PID(),
		Command:    proc.Command(),
		Port:       e.port,
		WorkingDir: e.dir,
		StartTime:  proc.StartTime(),
	}, nil
}

// Stop terminates the named process group with SIGTERM, escalates to
// SIGKILL after the stop grace period and removes the entry.
func (r *Registry) Stop(ctx context.Context, name string) (*StopResult, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok && e.proc == nil {
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return r.stopEntry(ctx, e)
}

// StopAll stops every registered process concurrently. Results are sorted by
// name; the first error encountered is returned.
func (r *Registry) StopAll(ctx context.Context) ([]*StopResult, error) {
	r.mu.Lock()
	targets := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.proc != nil {
			targets = append(targets, e)
		}
	}
	r.mu.Unlock()

	results := make([]*StopResult, len(targets))
	var g errgroup.Group
	for i, e := range targets {
		g.Go(func() error {
			res, err := r.stopEntry(ctx, e)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	results = slices.DeleteFunc(results, func(res *StopResult) bool { return res == nil })
	slices.SortFunc(results, func(a, b *StopResult) int { return strings.Compare(a.Name, b.Name) })
	return results, err
}

func (r *Registry) stopEntry(ctx context.Context, e *entry) (*StopResult, error) {
	proc := e.proc
	log := r.log.WithFields(logrus.Fields{"name": e.name, "pid": proc.PID()})

	forced := false
	killFailed := false

	if err := proc.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.WithError(err).Warn("SIGTERM failed")
	}

	grace := time.NewTimer(r.stopGrace())
	defer grace.Stop()

	select {
	case <-proc.Done():
	case <-grace.C:
		forced = true
	case <-ctx.Done():
		forced = true
	}

	if forced {
		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.WithError(err).Warn("SIGKILL failed")
		}
		reap := time.NewTimer(r.stopGrace())
		defer reap.Stop()
		select {
		case <-proc.Done():
		case <-reap.C:
			killFailed = true
			log.Warn("process did not exit after SIGKILL; it may be orphaned")
		}
	}

	r.remove(e)
	res := proc.Result()
	log.WithField("forced", forced).Info("managed process stopped")

	return &StopResult{
		Name:       e.name,
		PID:        res.PID,
		Forced:     forced,
		KillFailed: killFailed,
		ExitCode:   res.ExitCode,
		Signal:     res.Signal,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		Uptime:     res.Duration,
	}, nil
}

// List returns a snapshot of every entry, sorted by name.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info())
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Get returns the snapshot of one entry.
func (r *Registry) Get(name string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return Info{}, &NotFoundError{Name: name}
	}
	return e.info(), nil
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Health reports liveness and, when a port is registered, whether
// 127.0.0.1:port accepts connections.
func (r *Registry) Health(ctx context.Context, name string) (*Health, error) {
	info, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	h := &Health{Name: name, Alive: info.Alive, Port: info.Port}
	if info.Port == 0 {
		return h, nil
	}

	timeout := time.Duration(r.config.Servers.HealthDialTimeoutMs) * time.Millisecond
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := r.dial(dialCtx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(info.Port)))
	if err != nil {
		h.Error = err.Error()
		return h, nil
	}
	_ = conn.Close()
	h.PortOpen = true
	return h, nil
}

func (r *Registry) reserve(e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[e.name]; ok {
		pid := 0
		if existing.proc != nil {
			pid = existing.proc.PID()
		}
		return &DuplicateNameError{Name: e.name, PID: pid}
	}
	r.entries[e.name] = e
	r.report(len(r.entries))
	return nil
}

// remove deletes e at most once, and only while the map still holds this
// exact entry. It reports whether this call removed it.
func (r *Registry) remove(e *entry) bool {
	removed := false
	e.removeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.entries[e.name] == e {
			delete(r.entries, e.name)
			removed = true
		}
		r.report(len(r.entries))
	})
	return removed
}

func (r *Registry) report(n int) {
	if r.gauge != nil {
		r.gauge.SetManagedProcesses(n)
	}
}

func (e *entry) info() Info {
	info := Info{
		Name:       e.name,
		State:      StateStarting,
		Command:    e.command,
		Port:       e.port,
		WorkingDir: e.dir,
	}
	if e.proc == nil {
		return info
	}
	info.Command = e.proc.Command()
	info.PID = e.proc.PID()
	info.StartTime = e.proc.StartTime()
	info.Alive = e.proc.Alive()
	info.Uptime = time.Since(info.StartTime).Round(time.Millisecond)
	info.State = StateRunning
	if !info.Alive {
		info.State = StateStopped
	}
	return info
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return &InvalidPortError{Port: port}
	}
	return nil
}

func formatPort(argv []string, port int) []string {
	out := make([]string, len(argv))
	p := strconv.Itoa(port)
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, "{port}", p)
	}
	return out
}
