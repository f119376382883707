package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"

	"github.com/Cyclone1070/devrun/internal/config"
	"github.com/Cyclone1070/devrun/internal/tool/policy"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
	gitsvc "github.com/Cyclone1070/devrun/internal/tool/service/git"
	"github.com/Cyclone1070/devrun/internal/tool/shell"
)

// Gateway runs commands only after they pass the project policy.
type Gateway struct {
	config    *config.Config
	runner    commandRunner
	policies  policySource
	committer committer
	sessions  sessionRecorder
	metrics   metricsRecorder
	envFiles  envFileReader
	log       logrus.FieldLogger
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCommitter enables auto-commit.
func WithCommitter(c committer) Option { return func(g *Gateway) { g.committer = c } }

// WithSessions records auto-commit hashes into the active session.
func WithSessions(s sessionRecorder) Option { return func(g *Gateway) { g.sessions = s } }

// WithMetrics counts denials and commits.
func WithMetrics(m metricsRecorder) Option { return func(g *Gateway) { g.metrics = m } }

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithEnvFileReader replaces the reader used for RunOptions.EnvFiles.
func WithEnvFileReader(r envFileReader) Option { return func(g *Gateway) { g.envFiles = r } }

// New creates a Gateway with injected dependencies.
func New(cfg *config.Config, runner commandRunner, policies policySource, opts ...Option) *Gateway {
	if cfg == nil {
		panic("cfg is required")
	}
	if runner == nil {
		panic("runner is required")
	}
	if policies == nil {
		panic("policies is required")
	}
	g := &Gateway{
		config:   cfg,
		runner:   runner,
		policies: policies,
		envFiles: shell.OSEnvFileReader{},
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check validates command for the project at workingDir without running it.
func (g *Gateway) Check(command, workingDir string) error {
	dir, err := g.resolveDir(command, workingDir)
	if err != nil {
		return err
	}
	return g.check(command, g.policies.Load(dir))
}

// ResolveDir returns the absolute working directory for workingDir, enforcing
// the workspace root.
func (g *Gateway) ResolveDir(workingDir string) (string, error) {
	return g.resolveDir("", workingDir)
}

// Policy returns the project policy in effect for workingDir.
func (g *Gateway) Policy(workingDir string) (*policy.ProjectPolicy, error) {
	dir, err := g.resolveDir("", workingDir)
	if err != nil {
		return nil, err
	}
	return g.policies.Load(dir), nil
}

// AllowedCommands lists the allowlist in effect for workingDir.
func (g *Gateway) AllowedCommands(workingDir string) ([]string, error) {
	p, err := g.Policy(workingDir)
	if err != nil {
		return nil, err
	}
	return p.AllowedPrefixes(), nil
}

// Run checks command against the project policy and executes it.
//
// A rejected command returns a *policy.ViolationError and nothing is
// spawned. A timeout returns the partial result with a
// *executor.TimeoutError, and a non-zero exit returns the result with a
// *executor.ExitError. An auto-commit happens only after a successful run.
func (g *Gateway) Run(ctx context.Context, command string, opts RunOptions) (*RunResult, error) {
	dir, err := g.resolveDir(command, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	p := g.policies.Load(dir)

	if !opts.Bypass {
		if err := g.check(command, p); err != nil {
			return nil, err
		}
	}

	out, err := g.execute(ctx, command, dir, opts)
	if err != nil || !out.Success() {
		return out, err
	}

	if opts.Commit {
		out.Commit = g.autoCommit(ctx, dir, p, command, opts)
	}
	return out, nil
}

// RunSequence runs commands strictly in order and stops at the first one
// that fails. Earlier commands are not rolled back. The returned error is
// the failing command's error.
func (g *Gateway) RunSequence(ctx context.Context, commands []string, opts RunOptions) (*SequenceResult, error) {
	seq := &SequenceResult{Steps: make([]StepResult, 0, len(commands)), FailedIndex: -1}
	if len(commands) == 0 {
		return nil, &policy.ViolationError{Reason: policy.ReasonEmpty}
	}

	stepOpts := opts
	stepOpts.Commit = false

	for i, command := range commands {
		if err := ctx.Err(); err != nil {
			seq.FailedIndex = i
			return seq, err
		}

		res, err := g.Run(ctx, command, stepOpts)
		step := StepResult{Command: command}
		if res != nil {
			step.Result = res.Result
		}
		if err != nil {
			step.Error = err.Error()
		}
		seq.Steps = append(seq.Steps, step)

		if err != nil {
			seq.FailedIndex = i
			g.log.WithFields(logrus.Fields{"command": command, "step": i + 1}).Info("sequence stopped at failing command")
			return seq, err
		}
		if res.Interrupted {
			seq.FailedIndex = i
			return seq, context.Cause(ctx)
		}
	}

	seq.AllSucceeded = true
	if opts.Commit {
		dir, _ := g.resolveDir("", opts.WorkingDir)
		seq.Commit = g.autoCommit(ctx, dir, g.policies.Load(dir), strings.Join(commands, " && "), opts)
	}
	return seq, nil
}

// RunCustomTool expands a project custom tool with args and runs it through
// Run, so the expanded command is still gated.
func (g *Gateway) RunCustomTool(ctx context.Context, name string, args []string, opts RunOptions) (*RunResult, error) {
	dir, err := g.resolveDir(name, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	tool, ok := g.policies.Load(dir).LookupTool(name)
	if !ok {
		return nil, &policy.ViolationError{Command: name, Reason: policy.ReasonUnknownTool}
	}
	return g.Run(ctx, ExpandTemplate(tool.CommandTemplate, args), opts)
}

// ExpandTemplate substitutes {args} with the shell-quoted arguments. A
// template without the placeholder gets the arguments appended.
func ExpandTemplate(tmpl string, args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellescape.Quote(a)
	}
	joined := strings.Join(quoted, " ")
	if strings.Contains(tmpl, "{args}") {
		return strings.TrimSpace(strings.ReplaceAll(tmpl, "{args}", joined))
	}
	if joined == "" {
		return tmpl
	}
	return tmpl + " " + joined
}

// RenderCommitMessage fills the {command}, {session} and {timestamp}
// placeholders.
func RenderCommitMessage(tmpl, command, sessionID string, at time.Time) string {
	if tmpl == "" {
		tmpl = policy.DefaultCommitMessageTemplate
	}
	return strings.NewReplacer(
		"{command}", command,
		"{session}", sessionID,
		"{timestamp}", at.Format(time.RFC3339),
	).Replace(tmpl)
}

func (g *Gateway) check(command string, p *policy.ProjectPolicy) error {
	err := policy.Check(command, p, policy.CheckOptions{
		RejectMetacharacters: g.config.Policy.RejectShellMetacharacters,
	})
	if err != nil {
		g.denied(err)
	}
	return err
}

func (g *Gateway) denied(err error) {
	var v *policy.ViolationError
	if !errors.As(err, &v) {
		return
	}
	if g.metrics != nil {
		g.metrics.PolicyDenied(v.Program, v.Reason)
	}
	g.log.WithFields(logrus.Fields{"command": v.Command, "reason": v.Reason}).Info("command rejected by policy")
}

// resolveDir makes workingDir absolute and enforces the workspace root.
func (g *Gateway) resolveDir(command, workingDir string) (string, error) {
	root := g.config.Policy.WorkspaceRoot
	if workingDir == "" {
		workingDir = "."
	}

	var dir string
	if root != "" && !filepath.IsAbs(workingDir) {
		dir = filepath.Join(root, workingDir)
	} else {
		abs, err := filepath.Abs(workingDir)
		if err != nil {
			return "", fmt.Errorf("resolve working directory %s: %w", workingDir, err)
		}
		dir = abs
	}

	if root != "" && policy.EscapesRoot(root, dir) {
		err := &policy.ViolationError{Command: command, Reason: policy.ReasonOutsideRoot}
		g.denied(err)
		return "", err
	}
	return dir, nil
}

func (g *Gateway) execute(ctx context.Context, command, dir string, opts RunOptions) (*RunResult, error) {
	env, err := g.buildEnv(dir, opts)
	if err != nil {
		return nil, err
	}

	if g.config.Exec.EnsureDocker && shell.IsDockerCommand(command) {
		if err := shell.EnsureDockerReady(ctx, g.runner, shell.DockerConfigFromConfig(g.config)); err != nil {
			return nil, err
		}
	}

	res, err := g.runner.Run(ctx, executor.CommandSpec{
		Command:    command,
		Mode:       opts.Mode,
		WorkingDir: dir,
		Env:        env,
		Timeout:    opts.Timeout,
		Stream:     opts.Stream,
	})
	if res == nil {
		return nil, err
	}

	out := &RunResult{Result: res, WorkingDir: dir}
	if err != nil {
		return out, err
	}
	if err := res.Err(); err != nil {
		return out, err
	}

	if shell.IsDockerComposeUpDetached(command) {
		ids, err := shell.CollectComposeContainers(ctx, g.runner, dir)
		if err == nil {
			if note := shell.FormatContainerStartedNote(ids); note != "" {
				out.Notes = append(out.Notes, note)
			}
		} else {
			out.Notes = append(out.Notes, fmt.Sprintf("Warning: Could not list started containers: %v", err))
		}
	}
	return out, nil
}

// buildEnv layers env files in order, then explicit variables.
func (g *Gateway) buildEnv(dir string, opts RunOptions) (map[string]string, error) {
	if len(opts.EnvFiles) == 0 {
		return opts.Env, nil
	}
	env := make(map[string]string)
	for _, f := range opts.EnvFiles {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		vars, err := shell.ParseEnvFile(g.envFiles, path)
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	for k, v := range opts.Env {
		env[k] = v
	}
	return env, nil
}

func (g *Gateway) autoCommit(ctx context.Context, dir string, p *policy.ProjectPolicy, command string, opts RunOptions) *CommitOutcome {
	if !p.GitAutoCommit {
		return &CommitOutcome{Skipped: "auto-commit is disabled for this project"}
	}
	if g.committer == nil {
		return &CommitOutcome{Skipped: "no git committer configured"}
	}

	sessionID := ""
	if g.sessions != nil && p.SessionTracking {
		sessionID = g.sessions.ActiveID()
	}

	msg := opts.CommitMessage
	if msg == "" {
		msg = RenderCommitMessage(p.CommitMessageTemplate, command, sessionID, g.now())
	}
	out := &CommitOutcome{Message: msg}

	hash, err := g.committer.Commit(ctx, dir, msg, opts.CommitFiles)
	switch {
	case errors.Is(err, gitsvc.ErrNothingToCommit):
		out.Skipped = "nothing to commit"
		g.recordCommit("nothing")
		return out
	case err != nil:
		out.Error = err.Error()
		g.recordCommit("failed")
		g.log.WithError(err).WithField("dir", dir).Warn("auto-commit failed")
		return out
	}

	out.Committed = true
	out.Hash = hash
	g.recordCommit("committed")
	if sessionID != "" && g.sessions.RecordCommit(hash) {
		out.SessionID = sessionID
	}
	return out
}

func (g *Gateway) recordCommit(result string) {
	if g.metrics != nil {
		g.metrics.AutoCommit(result)
	}
}
