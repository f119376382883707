package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/Cyclone1070/devrun/internal/supervisor"
	"github.com/Cyclone1070/devrun/internal/tool/gateway"
	"github.com/Cyclone1070/devrun/internal/tool/policy"
	"github.com/Cyclone1070/devrun/internal/tool/server"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// inputError is implemented by errors caused by the caller's request.
type inputError interface {
	InvalidInput() bool
}

func isInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie) && ie.InvalidInput()
}

// toResponse converts a gateway run into JSON form. Rejections caused by the
// request itself stay errors; everything that happened while running is
// reported in the response.
func toResponse(command string, res *gateway.RunResult, err error) (*CommandResponse, error) {
	if res == nil {
		if err == nil || isInputError(err) {
			return nil, err
		}
		return &CommandResponse{Command: command, ExitCode: -1, Error: err.Error()}, nil
	}
	out := fromResult(command, res.Result)
	out.WorkingDir = res.WorkingDir
	out.Notes = res.Notes
	out.Commit = res.Commit
	if err != nil {
		out.Error = err.Error()
	}
	return out, nil
}

func fromResult(command string, r *executor.Result) *CommandResponse {
	if r == nil {
		return &CommandResponse{Command: command, ExitCode: -1}
	}
	return &CommandResponse{
		Command:     r.Command,
		Stdout:      r.Stdout,
		Stderr:      r.Stderr,
		ExitCode:    r.ExitCode,
		Signal:      r.Signal,
		TimedOut:    r.TimedOut,
		Interrupted: r.Interrupted,
		Truncated:   r.Truncated(),
		DurationMs:  r.Duration.Milliseconds(),
	}
}

func runCommand(ctx context.Context, sup *supervisor.Supervisor, req RunCommandRequest) (*CommandResponse, error) {
	res, err := sup.Gateway().Run(ctx, req.Command, req.options())
	return toResponse(req.Command, res, err)
}

func runSequence(ctx context.Context, sup *supervisor.Supervisor, req RunSequenceRequest) (*SequenceResponse, error) {
	mode, _ := executor.ParseMode(req.Mode)
	seq, err := sup.Gateway().RunSequence(ctx, req.Commands, gateway.RunOptions{
		WorkingDir:    req.WorkingDir,
		Env:           req.Env,
		EnvFiles:      req.EnvFiles,
		Timeout:       time.Duration(req.TimeoutMs) * time.Millisecond,
		Mode:          mode,
		Commit:        req.AutoCommit,
		CommitMessage: req.CommitMessage,
	})
	if seq == nil {
		return nil, err
	}
	// A rejected first step means nothing ran at all.
	if err != nil && isInputError(err) && len(seq.Steps) == 1 && seq.Steps[0].Result == nil {
		return nil, err
	}

	out := &SequenceResponse{
		Steps:        make([]CommandResponse, 0, len(seq.Steps)),
		AllSucceeded: seq.AllSucceeded,
		FailedIndex:  seq.FailedIndex,
		Commit:       seq.Commit,
	}
	for _, step := range seq.Steps {
		resp := fromResult(step.Command, step.Result)
		resp.Command = step.Command
		resp.Error = step.Error
		out.Steps = append(out.Steps, *resp)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out, nil
}

func runCustomTool(ctx context.Context, sup *supervisor.Supervisor, req RunCustomToolRequest) (*CommandResponse, error) {
	res, err := sup.Gateway().RunCustomTool(ctx, req.Name, req.Args, gateway.RunOptions{
		WorkingDir: req.WorkingDir,
		Timeout:    time.Duration(req.TimeoutMs) * time.Millisecond,
		Commit:     req.AutoCommit,
	})
	return toResponse(req.Name, res, err)
}

func checkCommand(_ context.Context, sup *supervisor.Supervisor, req CheckCommandRequest) (*CheckResponse, error) {
	err := sup.Gateway().Check(req.Command, req.WorkingDir)
	if err == nil {
		return &CheckResponse{Command: req.Command, Allowed: true}, nil
	}
	var v *policy.ViolationError
	if errors.As(err, &v) {
		return &CheckResponse{Command: req.Command, Reason: v.Error()}, nil
	}
	return nil, err
}

func listAllowed(_ context.Context, sup *supervisor.Supervisor, req ListAllowedRequest) (*AllowedResponse, error) {
	p, err := sup.Gateway().Policy(req.WorkingDir)
	if err != nil {
		return nil, err
	}
	out := &AllowedResponse{
		AllowedCommands: p.AllowedPrefixes(),
		CustomTools:     make([]string, 0, len(p.CustomTools)),
		PolicySource:    p.Source,
	}
	for _, t := range p.CustomTools {
		out.CustomTools = append(out.CustomTools, t.Name)
	}
	return out, nil
}

func startServer(ctx context.Context, sup *supervisor.Supervisor, req StartServerRequest) (*server.StartResult, error) {
	mode, _ := executor.ParseMode(req.Mode)
	dir, err := sup.Gateway().ResolveDir(req.WorkingDir)
	if err != nil {
		return nil, err
	}
	if err := sup.Gateway().Check(req.Command, dir); err != nil {
		return nil, err
	}
	return sup.Servers().Start(ctx, server.StartRequest{
		Name:       req.Name,
		Command:    req.Command,
		Mode:       mode,
		Port:       req.Port,
		WorkingDir: dir,
		Env:        req.Env,
	})
}

func stopServer(ctx context.Context, sup *supervisor.Supervisor, req NameRequest) (*server.StopResult, error) {
	return sup.Servers().Stop(ctx, req.Name)
}

func listProcesses(_ context.Context, sup *supervisor.Supervisor, _ EmptyRequest) (*ProcessListResponse, error) {
	return &ProcessListResponse{Processes: sup.Servers().List()}, nil
}

func serverHealth(ctx context.Context, sup *supervisor.Supervisor, req NameRequest) (*server.Health, error) {
	return sup.Servers().Health(ctx, req.Name)
}

func killByPort(ctx context.Context, sup *supervisor.Supervisor, req PortRequest) (*server.KillByPortResult, error) {
	return sup.Servers().KillByPort(ctx, req.Port)
}

func startSession(_ context.Context, sup *supervisor.Supervisor, req StartSessionRequest) (*SessionResponse, error) {
	rec := sup.StartSession(req.Description, req.Branch, req.WorkingDir)
	return &SessionResponse{Active: true, Session: rec}, nil
}

func endSession(_ context.Context, sup *supervisor.Supervisor, _ EmptyRequest) (*SessionResponse, error) {
	rec := sup.EndSession()
	return &SessionResponse{Session: rec}, nil
}

func getSession(_ context.Context, sup *supervisor.Supervisor, _ EmptyRequest) (*SessionResponse, error) {
	rec := sup.Sessions().Current()
	return &SessionResponse{Active: rec != nil && rec.Active, Session: rec}, nil
}

func clearPolicyCache(_ context.Context, sup *supervisor.Supervisor, _ EmptyRequest) (*ClearResponse, error) {
	sup.Policies().Clear()
	return &ClearResponse{Cleared: true}, nil
}
