package adapter

// ToolDefinition describes a tool and its parameters.
type ToolDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  *ParameterSchema `json:"parameters,omitempty"` // Pointer to allow nil (no params)
}

// ParameterSchema maps directly to standard JSON Schema.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema defines a single parameter property.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}

func stringProp(desc string) PropertySchema { return PropertySchema{Type: "string", Description: desc} }

func intProp(desc string) PropertySchema { return PropertySchema{Type: "integer", Description: desc} }

func boolProp(desc string) PropertySchema { return PropertySchema{Type: "boolean", Description: desc} }

func objectProp(desc string) PropertySchema { return PropertySchema{Type: "object", Description: desc} }

func stringList(desc string) PropertySchema {
	return PropertySchema{Type: "array", Description: desc, Items: &PropertySchema{Type: "string"}}
}

func modeProp() PropertySchema {
	return PropertySchema{
		Type:        "string",
		Description: "How the command is executed",
		Enum:        []string{"auto", "argv", "shell"},
	}
}
