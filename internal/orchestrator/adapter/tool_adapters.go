package adapter

import (
	"slices"
	"strings"

	"github.com/Cyclone1070/devrun/internal/supervisor"
)

// This file consolidates all tool adapters using the BaseAdapter pattern.
// Each adapter is a constructor function instead of a full type definition.

var commonRunProps = map[string]PropertySchema{
	"working_dir":    stringProp("Working directory, relative to the workspace root when one is configured"),
	"env":            objectProp("Environment variables overlaid on the inherited environment"),
	"env_files":      stringList("Paths to .env files loaded in order, before env"),
	"timeout_ms":     intProp("Timeout in milliseconds (default picked from the command: install, build, test or generic)"),
	"auto_commit":    boolProp("Commit changes after success when the project enables git_auto_commit"),
	"commit_message": stringProp("Commit message overriding the project template"),
}

func withRunProps(extra map[string]PropertySchema) map[string]PropertySchema {
	out := make(map[string]PropertySchema, len(commonRunProps)+len(extra))
	for k, v := range commonRunProps {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// NewRunCommand creates a run_command adapter
func NewRunCommand(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"run_command",
		"Runs an allowlisted command and returns its exit code and output",
		&ParameterSchema{
			Type: "object",
			Properties: withRunProps(map[string]PropertySchema{
				"command":      stringProp("The command line to run"),
				"commit_files": stringList("Files to stage for the auto-commit (default: all changes)"),
				"mode":         modeProp(),
			}),
			Required: []string{"command"},
		},
		sup,
		runCommand,
	)
}

// NewRunSequence creates a run_sequence adapter
func NewRunSequence(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"run_sequence",
		"Runs commands in order and stops at the first failure",
		&ParameterSchema{
			Type: "object",
			Properties: withRunProps(map[string]PropertySchema{
				"commands": stringList("Commands to run in order"),
				"mode":     modeProp(),
			}),
			Required: []string{"commands"},
		},
		sup,
		runSequence,
	)
}

// NewRunCustomTool creates a run_custom_tool adapter
func NewRunCustomTool(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"run_custom_tool",
		"Runs a custom tool defined in the project policy file",
		&ParameterSchema{
			Type: "object",
			Properties: map[string]PropertySchema{
				"name":        stringProp("Custom tool name"),
				"args":        stringList("Arguments substituted for {args} in the tool template"),
				"working_dir": commonRunProps["working_dir"],
				"timeout_ms":  commonRunProps["timeout_ms"],
				"auto_commit": commonRunProps["auto_commit"],
			},
			Required: []string{"name"},
		},
		sup,
		runCustomTool,
	)
}

// NewCheckCommand creates a check_command adapter
func NewCheckCommand(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"check_command",
		"Reports whether a command would be allowed, without running it",
		&ParameterSchema{
			Type: "object",
			Properties: map[string]PropertySchema{
				"command":     stringProp("The command line to check"),
				"working_dir": commonRunProps["working_dir"],
			},
			Required: []string{"command"},
		},
		sup,
		checkCommand,
	)
}

// NewListAllowedCommands creates a list_allowed_commands adapter
func NewListAllowedCommands(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"list_allowed_commands",
		"Lists the allowed programs and custom tools of a project",
		&ParameterSchema{
			Type: "object",
			Properties: map[string]PropertySchema{
				"working_dir": commonRunProps["working_dir"],
			},
		},
		sup,
		listAllowed,
	)
}

// NewStartServer creates a start_server adapter
func NewStartServer(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"start_server",
		"Starts a named long-running process such as a dev server",
		&ParameterSchema{
			Type: "object",
			Properties: map[string]PropertySchema{
				"name":        stringProp("Unique process name"),
				"command":     stringProp("The command line to run"),
				"port":        intProp("Port the process listens on, used by server_health"),
				"working_dir": commonRunProps["working_dir"],
				"env":         commonRunProps["env"],
				"mode":        modeProp(),
			},
			Required: []string{"name", "command"},
		},
		sup,
		startServer,
	)
}

// NewStopServer creates a stop_server adapter
func NewStopServer(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"stop_server",
		"Stops a named process, escalating to SIGKILL after a grace period",
		&ParameterSchema{
			Type:       "object",
			Properties: map[string]PropertySchema{"name": stringProp("Process name")},
			Required:   []string{"name"},
		},
		sup,
		stopServer,
	)
}

// NewListProcesses creates a list_processes adapter
func NewListProcesses(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"list_processes",
		"Lists managed processes",
		nil,
		sup,
		listProcesses,
	)
}

// NewServerHealth creates a server_health adapter
func NewServerHealth(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"server_health",
		"Checks that a named process is alive and its port accepts connections",
		&ParameterSchema{
			Type:       "object",
			Properties: map[string]PropertySchema{"name": stringProp("Process name")},
			Required:   []string{"name"},
		},
		sup,
		serverHealth,
	)
}

// NewKillProcessByPort creates a kill_process_by_port adapter
func NewKillProcessByPort(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"kill_process_by_port",
		"Kills every process listening on a TCP port",
		&ParameterSchema{
			Type:       "object",
			Properties: map[string]PropertySchema{"port": intProp("TCP port")},
			Required:   []string{"port"},
		},
		sup,
		killByPort,
	)
}

// NewStartSession creates a start_session adapter
func NewStartSession(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter(
		"start_session",
		"Starts a work session that collects auto-commit hashes",
		&ParameterSchema{
			Type: "object",
			Properties: map[string]PropertySchema{
				"description": stringProp("What the session is about"),
				"branch":      stringProp("Branch name (default: current branch of working_dir)"),
				"working_dir": commonRunProps["working_dir"],
			},
		},
		sup,
		startSession,
	)
}

// NewEndSession creates an end_session adapter
func NewEndSession(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter("end_session", "Ends the active session", nil, sup, endSession)
}

// NewGetSession creates a get_session adapter
func NewGetSession(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter("get_session", "Returns the current session", nil, sup, getSession)
}

// NewClearPolicyCache creates a clear_policy_cache adapter
func NewClearPolicyCache(sup *supervisor.Supervisor) Tool {
	return NewBaseAdapter("clear_policy_cache", "Forgets cached project policy files", nil, sup, clearPolicyCache)
}

// All returns every tool, sorted by name.
func All(sup *supervisor.Supervisor) []Tool {
	tools := []Tool{
		NewRunCommand(sup),
		NewRunSequence(sup),
		NewRunCustomTool(sup),
		NewCheckCommand(sup),
		NewListAllowedCommands(sup),
		NewStartServer(sup),
		NewStopServer(sup),
		NewListProcesses(sup),
		NewServerHealth(sup),
		NewKillProcessByPort(sup),
		NewStartSession(sup),
		NewEndSession(sup),
		NewGetSession(sup),
		NewClearPolicyCache(sup),
	}
	slices.SortFunc(tools, func(a, b Tool) int { return strings.Compare(a.Name(), b.Name()) })
	return tools
}

// Lookup finds a tool by name.
func Lookup(tools []Tool, name string) (Tool, bool) {
	i := slices.IndexFunc(tools, func(t Tool) bool { return t.Name() == name })
	if i < 0 {
		return nil, false
	}
	return tools[i], true
}
