package driving

import (
	"context"
	"encoding/json"
)

// Tool is a named capability with a declared input schema.
type Tool interface {
	// Name is the registry key.
	Name() string

	// Description is shown to users and MCP clients.
	Description() string

	// InputSchema is a JSON Schema document for the arguments.
	InputSchema() json.RawMessage

	// Invoke runs the tool with arguments already validated against InputSchema.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolRegistry holds tools by name.
type ToolRegistry interface {
	// Register adds a tool. Duplicate names are rejected.
	Register(tool Tool) error

	// Lookup returns the named tool.
	Lookup(name string) (Tool, error)

	// Invoke validates args against the tool's schema and runs it.
	Invoke(ctx context.Context, name string, args any) (any, error)

	// List returns all tools sorted by name.
	List() []Tool
}
