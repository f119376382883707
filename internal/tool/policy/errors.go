package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPolicyViolation is matched by every rejection from Check.
var ErrPolicyViolation = errors.New("command rejected by policy")

// Rejection reasons.
const (
	ReasonEmpty           = "empty command"
	ReasonNotAllowed      = "program is not in the allowlist"
	ReasonMetacharacters  = "shell metacharacters are not allowed"
	ReasonUnsafeArguments = "arguments that run programs or delete files are not allowed"
	ReasonOutsideRoot     = "working directory is outside the workspace root"
	ReasonUnknownTool     = "unknown custom tool"
)

// ViolationError is returned when a command is rejected before anything is
// spawned. Allowed lists the prefixes that were accepted at the time.
type ViolationError struct {
	Command string
	Program string
	Reason  string
	Allowed []string
}

func (e *ViolationError) Error() string {
	msg := fmt.Sprintf("command %q rejected: %s", e.Command, e.Reason)
	if e.Reason == ReasonNotAllowed && e.Program != "" {
		msg = fmt.Sprintf("command %q rejected: %q %s", e.Command, e.Program, e.Reason)
	}
	if len(e.Allowed) > 0 {
		msg += "; allowed commands: " + strings.Join(e.Allowed, ", ")
	}
	return msg
}

func (e *ViolationError) Unwrap() error { return ErrPolicyViolation }

func (e *ViolationError) InvalidInput() bool { return true }
