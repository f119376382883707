package shell

import (
	"bufio"
	"bytes"
	"os"
	"strings"
)

// OSEnvFileReader reads env files from disk.
type OSEnvFileReader struct{}

func (OSEnvFileReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// ParseEnvFile parses a .env file and returns a map of environment variables.
// It supports:
// - KEY=VALUE format, with an optional leading "export"
// - Comments starting with #
// - Empty lines
// - Basic quoted values (single and double quotes)
//
// It does NOT support:
// - Multi-line values
// - Variable expansion
// - Complex shell escaping
func ParseEnvFile(fs envFileReader, path string) (map[string]string, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return nil, &EnvFileReadError{Path: path, Cause: err}
	}

	env := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return nil, &EnvFileParseError{Path: path, Line: lineNum, Content: line}
		}
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		env[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, &EnvFileScanError{Path: path, Cause: err}
	}

	return env, nil
}
