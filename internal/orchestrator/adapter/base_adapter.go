package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Cyclone1070/devrun/internal/supervisor"
)

// Validator is an interface for request types that support validation
type Validator interface {
	Validate() error
}

// ToolExecutor is a function that executes a tool with typed request/response.
type ToolExecutor[Req, Resp any] func(context.Context, *supervisor.Supervisor, Req) (Resp, error)

// BaseAdapter provides common adapter functionality using generics:
// argument decoding, validation, execution and response marshaling.
//
// Type Parameters:
//   - Req: The request type (e.g., RunCommandRequest)
//   - Resp: The response type (e.g., CommandResponse)
type BaseAdapter[Req, Resp any] struct {
	name       string
	definition ToolDefinition
	sup        *supervisor.Supervisor
	executor   ToolExecutor[Req, Resp]
}

// NewBaseAdapter creates a new base adapter with the given configuration.
//
// Example usage:
//
//	adapter := NewBaseAdapter(
//	    "run_command",
//	    "Runs an allowlisted command",
//	    &ParameterSchema{...},
//	    sup,
//	    runCommand,
//	)
func NewBaseAdapter[Req, Resp any](
	name string,
	description string,
	paramSchema *ParameterSchema,
	sup *supervisor.Supervisor,
	executor ToolExecutor[Req, Resp],
) *BaseAdapter[Req, Resp] {
	return &BaseAdapter[Req, Resp]{
		name: name,
		definition: ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  paramSchema,
		},
		sup:      sup,
		executor: executor,
	}
}

// Name implements adapter.Tool
func (b *BaseAdapter[Req, Resp]) Name() string {
	return b.name
}

// Description implements adapter.Tool
func (b *BaseAdapter[Req, Resp]) Description() string {
	return b.definition.Description
}

// Definition implements adapter.Tool
func (b *BaseAdapter[Req, Resp]) Definition() ToolDefinition {
	return b.definition
}

// Execute implements adapter.Tool
//
// This method:
// 1. Decodes the args map into a typed request using mapstructure
// 2. Validates the request if it implements Validator interface
// 3. Calls the tool executor function with the typed request
// 4. Marshals the response back to JSON
func (b *BaseAdapter[Req, Resp]) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req Req

	if err := decode(args, &req); err != nil {
		return "", &ArgumentError{Tool: b.name, Cause: err}
	}

	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return "", &ArgumentError{Tool: b.name, Cause: err}
		}
	}

	resp, err := b.executor(ctx, b.sup, req)
	if err != nil {
		return "", err
	}

	bytes, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}

	return string(bytes), nil
}

// decode rejects unknown keys so misspelled arguments are not silently
// dropped.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// ArgumentError is returned when tool arguments cannot be decoded or fail
// validation.
type ArgumentError struct {
	Tool  string
	Cause error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid arguments: %v", e.Tool, e.Cause)
}

func (e *ArgumentError) Unwrap() error { return e.Cause }

func (e *ArgumentError) InvalidInput() bool { return true }
