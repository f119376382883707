package server

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"

	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

var executorLookPath = exec.LookPath

// KillByPort finds the processes listening on port with the configured
// lookup utility and sends each one SIGKILL. A missing utility is reported
// with Supported=false rather than an error.
func (r *Registry) KillByPort(ctx context.Context, port int) (*KillByPortResult, error) {
	if err := validatePort(port); err != nil {
		return nil, err
	}

	out := &KillByPortResult{Port: port, PIDs: []int{}, Killed: []int{}}
	argv := formatPort(r.config.Servers.PortLookupCommand, port)
	display := shellescape.QuoteCommand(argv)

	if _, err := r.lookPath(argv[0]); err != nil {
		out.Message = "port lookup utility " + argv[0] + " is not available on this system"
		r.log.WithField("command", display).Info("port lookup unsupported")
		return out, nil
	}
	out.Supported = true

	res, err := r.runner.Run(ctx, executor.CommandSpec{
		Argv:    argv,
		Timeout: time.Duration(r.config.Servers.PortLookupTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, &PortLookupError{Port: port, Command: display, Cause: err}
	}
	if res.Interrupted {
		return nil, ctx.Err()
	}
	// lsof and fuser exit 1 when nothing matches.
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, &PortLookupError{Port: port, Command: display, Cause: res.Err()}
	}

	out.PIDs = parsePIDs(res.Stdout)
	self := os.Getpid()
	for _, pid := range out.PIDs {
		if pid == self {
			continue
		}
		log := r.log.WithFields(logrus.Fields{"port": port, "pid": pid})
		if err := executor.SignalPID(pid, syscall.SIGKILL); err != nil {
			if !errors.Is(err, os.ErrProcessDone) {
				log.WithError(err).Warn("failed to kill process on port")
			}
			continue
		}
		out.Killed = append(out.Killed, pid)
		log.Info("killed process on port")
	}

	if len(out.PIDs) == 0 {
		out.Message = "no process is listening on port " + strconv.Itoa(port)
	}
	return out, nil
}

// parsePIDs extracts every integer token from lookup output, deduplicated
// in order of appearance.
func parsePIDs(s string) []int {
	seen := make(map[int]bool)
	pids := []int{}
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ' ' || r == '\t' || r == ':' || r == ','
	}) {
		pid, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || pid <= 0 || seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}
	return pids
}
