package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Exec    ExecConfig    `json:"exec"`
	Servers ServersConfig `json:"servers"`
	Policy  PolicyConfig  `json:"policy"`
	Git     GitConfig     `json:"git"`
	Log     LogConfig     `json:"log"`
	API     APIConfig     `json:"api"`
}

type ExecConfig struct {
	// Output capture
	MaxStdoutBytes int64 `json:"max_stdout_bytes"` // Default: 2 * 1024 * 1024 (2MiB)
	MaxStderrBytes int64 `json:"max_stderr_bytes"` // Default: 1024 * 1024 (1MiB)

	// Termination
	GracefulShutdownMs int `json:"graceful_shutdown_ms"` // Default: 5000
	WaitDelayMs        int `json:"wait_delay_ms"`        // Default: 2000

	// Timeout budgets, picked from the command text when the caller gives none
	DefaultTimeoutMs int `json:"default_timeout_ms"` // Default: 60000
	InstallTimeoutMs int `json:"install_timeout_ms"` // Default: 300000
	BuildTimeoutMs   int `json:"build_timeout_ms"`   // Default: 180000
	TestTimeoutMs    int `json:"test_timeout_ms"`    // Default: 180000

	Shell string `json:"shell"` // Default: /bin/sh

	// Docker
	EnsureDocker          bool     `json:"ensure_docker"`            // Default: true
	DockerCheckCommand    []string `json:"docker_check_command"`     // Default: docker info
	DockerStartCommand    []string `json:"docker_start_command"`     // Default: open -a Docker
	DockerRetryAttempts   int      `json:"docker_retry_attempts"`    // Default: 10
	DockerRetryIntervalMs int      `json:"docker_retry_interval_ms"` // Default: 1000
}

type ServersConfig struct {
	StartupGraceMs      int      `json:"startup_grace_ms"`       // Default: 2000
	StopGraceMs         int      `json:"stop_grace_ms"`          // Default: 3000
	PortLookupCommand   []string `json:"port_lookup_command"`    // Default: lsof -t -i tcp:{port} -sTCP:LISTEN
	PortLookupTimeoutMs int      `json:"port_lookup_timeout_ms"` // Default: 5000
	HealthDialTimeoutMs int      `json:"health_dial_timeout_ms"` // Default: 1000
}

type PolicyConfig struct {
	ConfigFileNames           []string `json:"config_file_names"`           // Default: .devrun.yaml, .devrun.yml, .devrun.json
	RejectShellMetacharacters bool     `json:"reject_shell_metacharacters"` // Default: true
	WorkspaceRoot             string   `json:"workspace_root"`              // Default: "" (unrestricted)
}

type GitConfig struct {
	AuthorName  string `json:"author_name"`  // Default: devrun
	AuthorEmail string `json:"author_email"` // Default: devrun@localhost
}

type LogConfig struct {
	Level  string `json:"level"`  // Default: info
	Format string `json:"format"` // Default: text
}

type APIConfig struct {
	Addr              string `json:"addr"`                // Default: 127.0.0.1:7878
	APIKey            string `json:"api_key"`             // Default: "" (no auth)
	ShutdownTimeoutMs int    `json:"shutdown_timeout_ms"` // Default: 10000
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Exec: ExecConfig{
			MaxStdoutBytes:        2 * 1024 * 1024,
			MaxStderrBytes:        1024 * 1024,
			GracefulShutdownMs:    5000,
			WaitDelayMs:           2000,
			DefaultTimeoutMs:      60000,
			InstallTimeoutMs:      300000,
			BuildTimeoutMs:        180000,
			TestTimeoutMs:         180000,
			Shell:                 "/bin/sh",
			EnsureDocker:          true,
			DockerCheckCommand:    []string{"docker", "info"},
			DockerStartCommand:    []string{"open", "-a", "Docker"},
			DockerRetryAttempts:   10,
			DockerRetryIntervalMs: 1000,
		},
		Servers: ServersConfig{
			StartupGraceMs:      2000,
			StopGraceMs:         3000,
			PortLookupCommand:   []string{"lsof", "-t", "-i", "tcp:{port}", "-sTCP:LISTEN"},
			PortLookupTimeoutMs: 5000,
			HealthDialTimeoutMs: 1000,
		},
		Policy: PolicyConfig{
			ConfigFileNames:           []string{".devrun.yaml", ".devrun.yml", ".devrun.json"},
			RejectShellMetacharacters: true,
		},
		Git: GitConfig{
			AuthorName:  "devrun",
			AuthorEmail: "devrun@localhost",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			Addr:              "127.0.0.1:7878",
			ShutdownTimeoutMs: 10000,
		},
	}
}
