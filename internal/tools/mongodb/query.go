package mongodb

import (
	"context"
	"encoding/json"

	"github.com/Mayoengin/mpc-mongodb-server/internal/mcp"
	conn "github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
)

type FindParams struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Query      string `json:"query,omitempty"`
	Projection string `json:"projection,omitempty"`
	Sort       string `json:"sort,omitempty"`
	Limit      string `json:"limit,omitempty"`
}

type FindTool struct {
	handler *FindHandler
}

func NewFindTool(connector Connector) *FindTool {
	return &FindTool{handler: &FindHandler{connector: connector}}
}

func (t *FindTool) Name() string {
	return "find"
}

func (t *FindTool) Description() string {
	return "Query documents from a collection with optional filter, projection, sort and limit."
}

func (t *FindTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"database": {
				"type": "string",
				"description": "Database name"
			},
			"collection": {
				"type": "string",
				"description": "Collection name"
			},
			"query": {
				"type": "string",
				"description": "Filter as a JSON document, e.g. {\"status\": \"active\"}. Empty matches everything."
			},
			"projection": {
				"type": "string",
				"description": "Projection as a JSON document, e.g. {\"name\": 1, \"_id\": 0}"
			},
			"sort": {
				"type": "string",
				"description": "Sort as a JSON document, e.g. {\"age\": -1}. Key order is honored."
			},
			"limit": {
				"type": "string",
				"description": "Maximum documents to return (default 10, capped at 100)"
			}
		},
		"required": ["database", "collection"]
	}`)
}

func (t *FindTool) Handler() mcp.ToolHandler {
	return t.handler
}

type FindHandler struct {
	connector Connector
}

func (h *FindHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	var p FindParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.NewToolResultText("Parameter Error: invalid parameters: " + err.Error()), nil
		}
	}

	// Validation and parsing happen before any network activity.
	parsed, err := conn.ParseFindParams(p.Database, p.Collection, p.Query, p.Projection, p.Sort, p.Limit)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	text, err := conn.Find(ctx, session.Client(), parsed)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

type CountParams struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Query      string `json:"query,omitempty"`
}

type CountTool struct {
	handler *CountHandler
}

func NewCountTool(connector Connector) *CountTool {
	return &CountTool{handler: &CountHandler{connector: connector}}
}

func (t *CountTool) Name() string {
	return "count"
}

func (t *CountTool) Description() string {
	return "Count documents in a collection, optionally filtered. Uses a fast estimate when no filter is given."
}

func (t *CountTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"database": {
				"type": "string",
				"description": "Database name"
			},
			"collection": {
				"type": "string",
				"description": "Collection name"
			},
			"query": {
				"type": "string",
				"description": "Filter as a JSON document. Empty counts all documents."
			}
		},
		"required": ["database", "collection"]
	}`)
}

func (t *CountTool) Handler() mcp.ToolHandler {
	return t.handler
}

type CountHandler struct {
	connector Connector
}

func (h *CountHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	var p CountParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.NewToolResultText("Parameter Error: invalid parameters: " + err.Error()), nil
		}
	}

	parsed, err := conn.ParseCountParams(p.Database, p.Collection, p.Query)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	text, err := conn.Count(ctx, session.Client(), parsed)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

type AggregateParams struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Pipeline   string `json:"pipeline,omitempty"`
}

type AggregateTool struct {
	handler *AggregateHandler
}

func NewAggregateTool(connector Connector) *AggregateTool {
	return &AggregateTool{handler: &AggregateHandler{connector: connector}}
}

func (t *AggregateTool) Name() string {
	return "aggregate"
}

func (t *AggregateTool) Description() string {
	return "Execute an aggregation pipeline. The pipeline must be a JSON array of stages; results are capped at 100."
}

func (t *AggregateTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"database": {
				"type": "string",
				"description": "Database name"
			},
			"collection": {
				"type": "string",
				"description": "Collection name"
			},
			"pipeline": {
				"type": "string",
				"description": "Aggregation pipeline as a JSON array, e.g. [{\"$match\": {\"x\": 1}}]"
			}
		},
		"required": ["database", "collection"]
	}`)
}

func (t *AggregateTool) Handler() mcp.ToolHandler {
	return t.handler
}

type AggregateHandler struct {
	connector Connector
}

func (h *AggregateHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	var p AggregateParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.NewToolResultText("Parameter Error: invalid parameters: " + err.Error()), nil
		}
	}

	parsed, err := conn.ParseAggregateParams(p.Database, p.Collection, p.Pipeline)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	text, err := conn.Aggregate(ctx, session.Client(), parsed)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}
