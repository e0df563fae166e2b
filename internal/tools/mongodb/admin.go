package mongodb

import (
	"context"
	"encoding/json"

	"github.com/Mayoengin/mpc-mongodb-server/internal/mcp"
	conn "github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
)

type ListDatabasesTool struct {
	handler *ListDatabasesHandler
}

func NewListDatabasesTool(connector Connector) *ListDatabasesTool {
	return &ListDatabasesTool{handler: &ListDatabasesHandler{connector: connector}}
}

func (t *ListDatabasesTool) Name() string {
	return "list_databases"
}

func (t *ListDatabasesTool) Description() string {
	return "List all available databases with their collection counts."
}

func (t *ListDatabasesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *ListDatabasesTool) Handler() mcp.ToolHandler {
	return t.handler
}

type ListDatabasesHandler struct {
	connector Connector
}

func (h *ListDatabasesHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	text, err := conn.ListDatabases(ctx, session.Client())
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

type ListCollectionsParams struct {
	Database string `json:"database"`
}

type ListCollectionsTool struct {
	handler *ListCollectionsHandler
}

func NewListCollectionsTool(connector Connector) *ListCollectionsTool {
	return &ListCollectionsTool{handler: &ListCollectionsHandler{connector: connector}}
}

func (t *ListCollectionsTool) Name() string {
	return "list_collections"
}

func (t *ListCollectionsTool) Description() string {
	return "List the collections in a database with estimated document counts."
}

func (t *ListCollectionsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"database": {
				"type": "string",
				"description": "Database name"
			}
		},
		"required": ["database"]
	}`)
}

func (t *ListCollectionsTool) Handler() mcp.ToolHandler {
	return t.handler
}

type ListCollectionsHandler struct {
	connector Connector
}

func (h *ListCollectionsHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	var p ListCollectionsParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.NewToolResultText("Parameter Error: invalid parameters: " + err.Error()), nil
		}
	}

	if err := conn.RequireName("database", p.Database); err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	text, err := conn.ListCollections(ctx, session.Client(), p.Database)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

type CollectionStatsParams struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type CollectionStatsTool struct {
	handler *CollectionStatsHandler
}

func NewCollectionStatsTool(connector Connector) *CollectionStatsTool {
	return &CollectionStatsTool{handler: &CollectionStatsHandler{connector: connector}}
}

func (t *CollectionStatsTool) Name() string {
	return "get_collection_stats"
}

func (t *CollectionStatsTool) Description() string {
	return "Get document count, data size, storage size and index count for a collection."
}

func (t *CollectionStatsTool) Parameters() json.RawMessage {
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
			}
		},
		"required": ["database", "collection"]
	}`)
}

func (t *CollectionStatsTool) Handler() mcp.ToolHandler {
	return t.handler
}

type CollectionStatsHandler struct {
	connector Connector
}

func (h *CollectionStatsHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	var p CollectionStatsParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.NewToolResultText("Parameter Error: invalid parameters: " + err.Error()), nil
		}
	}

	if err := conn.RequireName("database", p.Database); err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	if err := conn.RequireName("collection", p.Collection); err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	text, err := conn.CollectionStats(ctx, session.Client(), p.Database, p.Collection)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}
	return mcp.NewToolResultText(text), nil
}
