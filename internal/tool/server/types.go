package server

import (
	"time"

	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// State is the lifecycle stage of a managed process.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// StartRequest describes a long-running process to launch.
type StartRequest struct {
	Name       string
	Command    string
	Mode       executor.Mode
	Port       int // 0 when the process does not listen
	WorkingDir string
	Env        map[string]string
}

// StartResult reports the state after the startup grace period. A process
// that exited during the grace period is reported as stopped with its
// output and is not registered.
type StartResult struct {
	Name       string    `json:"name"`
	State      State     `json:"state"`
	PID        int       `json:"pid"`
	Command    string    `json:"command"`
	Port       int       `json:"port,omitempty"`
	WorkingDir string    `json:"working_dir,omitempty"`
	StartTime  time.Time `json:"start_time"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	Signal     string    `json:"signal,omitempty"`
	Stdout     string    `json:"stdout,omitempty"`
	Stderr     string    `json:"stderr,omitempty"`
}

// StopResult reports how a process was stopped.
type StopResult struct {
	Name       string        `json:"name"`
	PID        int           `json:"pid"`
	Forced     bool          `json:"forced"`
	KillFailed bool          `json:"kill_failed,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Signal     string        `json:"signal,omitempty"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	Uptime     time.Duration `json:"uptime_ns"`
}

// Info is a snapshot of one registered process.
type Info struct {
	Name       string        `json:"name"`
	State      State         `json:"state"`
	Command    string        `json:"command"`
	PID        int           `json:"pid,omitempty"`
	Port       int           `json:"port,omitempty"`
	WorkingDir string        `json:"working_dir,omitempty"`
	StartTime  time.Time     `json:"start_time,omitempty"`
	Uptime     time.Duration `json:"uptime_ns"`
	Alive      bool          `json:"alive"`
}

// Health is the result of a liveness probe.
type Health struct {
	Name     string `json:"name"`
	Alive    bool   `json:"alive"`
	Port     int    `json:"port,omitempty"`
	PortOpen bool   `json:"port_open"`
	Error    string `json:"error,omitempty"`
}

// KillByPortResult lists the processes found listening on a port.
type KillByPortResult struct {
	Port      int    `json:"port"`
	Supported bool   `json:"supported"`
	PIDs      []int  `json:"pids"`
	Killed    []int  `json:"killed"`
	Message   string `json:"message,omitempty"`
}
