package mcp

import (
	"context"
	"encoding/json"
)

type MCPServer interface {
	// Server lifecycle
	Start(ctx context.Context) error
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error

	// Tool management
	AddTool(tool Tool) error

	// Server information
	GetImplementation() Implementation
}

type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON schema
	Handler() ToolHandler
}

type ToolHandler interface {
	Handle(ctx context.Context, params json.RawMessage) (ToolResult, error)
}

type ToolResult interface {
	IsError() bool
	GetContent() []Content
	GetError() error
}

type Content interface {
	Type() string
	GetText() string
}

// Implementation contains server metadata
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
