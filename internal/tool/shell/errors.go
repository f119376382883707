package shell

import (
	"fmt"
)

// EnvFileReadError is returned when reading an env file fails.
type EnvFileReadError struct {
	Path  string
	Cause error
}

func (e *EnvFileReadError) Error() string {
	return fmt.Sprintf("failed to read env file %s: %v", e.Path, e.Cause)
}

func (e *EnvFileReadError) Unwrap() error {
	return e.Cause
}

func (e *EnvFileReadError) IOError() bool {
	return true
}

// EnvFileParseError is returned when an env file has an invalid format.
type EnvFileParseError struct {
	Path    string
	Line    int
	Content string
}

func (e *EnvFileParseError) Error() string {
	return fmt.Sprintf("invalid line %d in env file %s: %s", e.Line, e.Path, e.Content)
}

func (e *EnvFileParseError) InvalidInput() bool {
	return true
}

// EnvFileScanError is returned when scanning an env file fails.
type EnvFileScanError struct {
	Path  string
	Cause error
}

func (e *EnvFileScanError) Error() string {
	return fmt.Sprintf("error reading env file %s: %v", e.Path, e.Cause)
}

func (e *EnvFileScanError) Unwrap() error {
	return e.Cause
}

func (e *EnvFileScanError) IOError() bool {
	return true
}

// DockerUnavailableError is returned when the docker daemon could not be
// brought up before running a docker command.
type DockerUnavailableError struct {
	Attempts int
	Cause    error
}

func (e *DockerUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("docker is not available after %d attempts: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("docker is not available after %d attempts", e.Attempts)
}

func (e *DockerUnavailableError) Unwrap() error {
	return e.Cause
}
