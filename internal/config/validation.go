package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validLogLevels  = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks config values for correctness.
// Returns an error listing every invalid value.
func (c *Config) Validate() error {
	var errs []string

	// Exec validation - output capture
	if c.Exec.MaxStdoutBytes < 1 {
		errs = append(errs, "exec.max_stdout_bytes must be >= 1")
	}
	if c.Exec.MaxStderrBytes < 1 {
		errs = append(errs, "exec.max_stderr_bytes must be >= 1")
	}

	// Exec validation - termination and budgets
	if c.Exec.GracefulShutdownMs < 1 {
		errs = append(errs, "exec.graceful_shutdown_ms must be >= 1")
	}
	if c.Exec.WaitDelayMs < 0 {
		errs = append(errs, "exec.wait_delay_ms must be >= 0")
	}
	if c.Exec.DefaultTimeoutMs < 1 {
		errs = append(errs, "exec.default_timeout_ms must be >= 1")
	}
	if c.Exec.InstallTimeoutMs < 1 {
		errs = append(errs, "exec.install_timeout_ms must be >= 1")
	}
	if c.Exec.BuildTimeoutMs < 1 {
		errs = append(errs, "exec.build_timeout_ms must be >= 1")
	}
	if c.Exec.TestTimeoutMs < 1 {
		errs = append(errs, "exec.test_timeout_ms must be >= 1")
	}
	if strings.TrimSpace(c.Exec.Shell) == "" {
		errs = append(errs, "exec.shell must not be empty")
	}

	// Exec validation - docker
	if c.Exec.EnsureDocker && len(c.Exec.DockerCheckCommand) == 0 {
		errs = append(errs, "exec.docker_check_command must not be empty when exec.ensure_docker is set")
	}
	if c.Exec.DockerRetryAttempts < 1 {
		errs = append(errs, "exec.docker_retry_attempts must be >= 1")
	}
	if c.Exec.DockerRetryIntervalMs < 1 {
		errs = append(errs, "exec.docker_retry_interval_ms must be >= 1")
	}

	// Servers validation
	if c.Servers.StartupGraceMs < 0 {
		errs = append(errs, "servers.startup_grace_ms must be >= 0")
	}
	if c.Servers.StopGraceMs < 1 {
		errs = append(errs, "servers.stop_grace_ms must be >= 1")
	}
	if len(c.Servers.PortLookupCommand) == 0 {
		errs = append(errs, "servers.port_lookup_command must not be empty")
	}
	if c.Servers.PortLookupTimeoutMs < 1 {
		errs = append(errs, "servers.port_lookup_timeout_ms must be >= 1")
	}
	if c.Servers.HealthDialTimeoutMs < 1 {
		errs = append(errs, "servers.health_dial_timeout_ms must be >= 1")
	}

	// Policy validation
	if len(c.Policy.ConfigFileNames) == 0 {
		errs = append(errs, "policy.config_file_names must not be empty")
	}

	// API validation
	if strings.TrimSpace(c.API.Addr) == "" {
		errs = append(errs, "api.addr must not be empty")
	}
	if c.API.ShutdownTimeoutMs < 1 {
		errs = append(errs, "api.shutdown_timeout_ms must be >= 1")
	}

	// Log validation
	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Sprintf("log.level must be one of %v", validLogLevels))
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Sprintf("log.format must be one of %v", validLogFormats))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
