package adapter

import (
	"context"
)

// Tool represents a capability exposed to callers.
// Each tool must be stateless and safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description
	Description() string

	// Definition returns the structured tool definition
	Definition() ToolDefinition

	// Execute runs the tool with the given arguments
	// Args is a map of argument names to values, as decoded from JSON
	Execute(ctx context.Context, args map[string]any) (string, error)
}
