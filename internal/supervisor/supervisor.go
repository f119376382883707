// Package supervisor owns every piece of mutable state of a devrun instance:
// the process registry, the session, the policy cache and the metrics.
// Adapters, the HTTP API and the CLI all reach them through a Supervisor.
package supervisor

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Cyclone1070/devrun/internal/config"
	"github.com/Cyclone1070/devrun/internal/metrics"
	"github.com/Cyclone1070/devrun/internal/tool/gateway"
	"github.com/Cyclone1070/devrun/internal/tool/policy"
	"github.com/Cyclone1070/devrun/internal/tool/server"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
	gitsvc "github.com/Cyclone1070/devrun/internal/tool/service/git"
	"github.com/Cyclone1070/devrun/internal/tool/session"
)

// Supervisor wires the execution components together.
type Supervisor struct {
	config   *config.Config
	log      logrus.FieldLogger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	runner   *executor.Runner
	policies *policy.Store
	git      *gitsvc.Committer
	sessions *session.Tracker
	gateway  *gateway.Gateway
	servers  *server.Registry
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger shared by every component.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Supervisor) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPrometheusRegistry registers the collectors on reg instead of a
// private registry.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Supervisor) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// New creates a Supervisor from cfg.
func New(cfg *config.Config, opts ...Option) *Supervisor {
	if cfg == nil {
		panic("cfg is required")
	}
	s := &Supervisor{
		config:   cfg,
		log:      logrus.StandardLogger(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.metrics = metrics.New(s.registry)
	s.runner = executor.NewRunner(cfg,
		executor.WithLogger(s.log.WithField("component", "executor")),
		executor.WithObserver(s.metrics),
	)
	s.policies = policy.NewStore(policy.OSFileSystem{}, cfg.Policy.ConfigFileNames, s.log.WithField("component", "policy"))
	s.git = gitsvc.NewCommitter(cfg, s.log.WithField("component", "git"))
	s.sessions = session.NewTracker()
	s.gateway = gateway.New(cfg, s.runner, s.policies,
		gateway.WithCommitter(s.git),
		gateway.WithSessions(s.sessions),
		gateway.WithMetrics(s.metrics),
		gateway.WithLogger(s.log.WithField("component", "gateway")),
	)
	s.servers = server.NewRegistry(cfg, s.runner,
		server.WithGauge(s.metrics),
		server.WithLogger(s.log.WithField("component", "servers")),
	)
	return s
}

func (s *Supervisor) Config() *config.Config { return s.config }

func (s *Supervisor) Logger() logrus.FieldLogger { return s.log }

func (s *Supervisor) Gateway() *gateway.Gateway { return s.gateway }

func (s *Supervisor) Servers() *server.Registry { return s.servers }

func (s *Supervisor) Sessions() *session.Tracker { return s.sessions }

func (s *Supervisor) Policies() *policy.Store { return s.policies }

func (s *Supervisor) Metrics() *metrics.Metrics { return s.metrics }

// Gatherer exposes the collectors for a /metrics handler.
func (s *Supervisor) Gatherer() prometheus.Gatherer { return s.registry }

// StartSession replaces the current session. An empty branch is filled
// from the git repository at dir when there is one.
func (s *Supervisor) StartSession(description, branch, dir string) *session.Record {
	if branch == "" && dir != "" {
		if b, err := s.git.CurrentBranch(dir); err == nil {
			branch = b
		} else {
			s.log.WithError(err).WithField("dir", dir).Debug("no branch for session")
		}
	}
	rec := s.sessions.Start(description, branch)
	s.log.WithFields(logrus.Fields{"session": rec.ID, "branch": rec.Branch}).Info("session started")
	return rec
}

// EndSession closes the active session and returns it, or nil.
func (s *Supervisor) EndSession() *session.Record {
	rec := s.sessions.End()
	if rec != nil {
		s.log.WithFields(logrus.Fields{"session": rec.ID, "commits": len(rec.CommitHashes)}).Info("session ended")
	}
	return rec
}

// Shutdown stops every managed process.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	results, err := s.servers.StopAll(ctx)
	for _, res := range results {
		s.log.WithFields(logrus.Fields{"name": res.Name, "forced": res.Forced}).Info("stopped on shutdown")
	}
	return err
}
