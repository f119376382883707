package executor

import (
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/mattn/go-shellwords"
)

// shellSyntax lists characters that need a shell to mean what they say:
// operators, expansions, globs, subshells and line breaks.
const shellSyntax = ";&|<>`$()*?[]{}~\n\r"

// NeedsShell reports whether command relies on shell syntax outside of
// quotes. Quoted metacharacters are treated as literal arguments.
func NeedsShell(command string) bool {
	return HasUnquoted(command, shellSyntax)
}

// HasUnquoted reports whether command contains any rune of set outside of
// single quotes or escapes. Inside double quotes only `$` and backticks
// count, since the shell still expands them there.
func HasUnquoted(command, set string) bool {
	var single, double, escaped bool
	for _, r := range command {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && !single:
			escaped = true
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		case single:
		case double:
			if (r == '$' || r == '`') && strings.ContainsRune(set, r) {
				return true
			}
		case strings.ContainsRune(set, r):
			return true
		}
	}
	return false
}

// SplitArgs splits command into argv without any expansion.
func SplitArgs(command string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	args, err := p.Parse(command)
	if err != nil {
		return nil, err
	}
	if p.Position != -1 {
		return nil, fmt.Errorf("shell operator at offset %d", p.Position)
	}
	return args, nil
}

// resolveArgv turns a spec into the argv to spawn.
func resolveArgv(spec CommandSpec, shell string) ([]string, error) {
	if len(spec.Argv) > 0 {
		return append([]string(nil), spec.Argv...), nil
	}
	command := strings.TrimSpace(spec.Command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	mode := spec.Mode
	if mode == ModeAuto {
		mode = ModeArgv
		if NeedsShell(command) {
			mode = ModeShell
		}
	}

	if mode == ModeShell {
		return []string{shell, "-c", command}, nil
	}

	args, err := SplitArgs(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 || args[0] == "" {
		return nil, ErrEmptyCommand
	}
	return args, nil
}

// displayCommand is the string used in results, errors and logs.
func displayCommand(spec CommandSpec) string {
	if spec.Command != "" {
		return spec.Command
	}
	return shellescape.QuoteCommand(spec.Argv)
}
