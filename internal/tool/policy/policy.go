package policy

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// Metacharacters are the shell operators rejected when hardening is on.
const Metacharacters = ";&|<>`$()\n\r"

// unsafeFindPrimaries run other programs or write files.
var unsafeFindPrimaries = []string{"-exec", "-execdir", "-ok", "-okdir", "-delete", "-fls", "-fprint", "-fprint0", "-fprintf"}

// CheckOptions tunes Check beyond the plain allowlist.
type CheckOptions struct {
	RejectMetacharacters bool
}

// ProgramName returns the leading whitespace-delimited token of command.
func ProgramName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// IsAllowed reports whether the program of command is allowlisted, either
// exactly or by base name (./node_modules/.bin/jest matches jest).
func IsAllowed(command string, p *ProjectPolicy) bool {
	program := ProgramName(command)
	if program == "" {
		return false
	}
	allowed := p.AllowedPrefixes()
	if _, found := slices.BinarySearch(allowed, program); found {
		return true
	}
	_, found := slices.BinarySearch(allowed, filepath.Base(program))
	return found
}

// HasShellMetacharacters reports unquoted shell operators in command.
func HasShellMetacharacters(command string) bool {
	return executor.HasUnquoted(command, Metacharacters)
}

// HasUnsafeArguments reports arguments that turn an allowlisted read-only
// program into one that runs other programs or deletes files.
func HasUnsafeArguments(command string) bool {
	args, err := executor.SplitArgs(command)
	if err != nil || len(args) == 0 {
		args = strings.Fields(command)
	}
	if len(args) == 0 || filepath.Base(args[0]) != "find" {
		return false
	}
	for _, arg := range args[1:] {
		if slices.Contains(unsafeFindPrimaries, arg) {
			return true
		}
	}
	return false
}

// Check validates command against p. It returns a *ViolationError when the
// command must not run.
func Check(command string, p *ProjectPolicy, opts CheckOptions) error {
	program := ProgramName(command)
	if program == "" {
		return &ViolationError{Command: command, Reason: ReasonEmpty}
	}
	if !IsAllowed(command, p) {
		return &ViolationError{
			Command: command,
			Program: program,
			Reason:  ReasonNotAllowed,
			Allowed: p.AllowedPrefixes(),
		}
	}
	if HasUnsafeArguments(command) {
		return &ViolationError{Command: command, Program: program, Reason: ReasonUnsafeArguments}
	}
	if opts.RejectMetacharacters && HasShellMetacharacters(command) {
		return &ViolationError{Command: command, Program: program, Reason: ReasonMetacharacters}
	}
	return nil
}

// EscapesRoot reports whether path, resolved against root when relative,
// lies outside root. Only lexical normalization is applied.
func EscapesRoot(root, path string) bool {
	root = filepath.Clean(root)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
