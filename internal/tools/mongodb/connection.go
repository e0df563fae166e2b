package mongodb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Mayoengin/mpc-mongodb-server/internal/mcp"
)

type ConnectTool struct {
	handler *ConnectHandler
}

// NewConnectTool creates the connect tool. Host and port identify the
// database behind the tunnel, used only for the confirmation message.
func NewConnectTool(connector Connector, mongoHost string, mongoPort int) *ConnectTool {
	return &ConnectTool{
		handler: &ConnectHandler{
			connector: connector,
			mongoHost: mongoHost,
			mongoPort: mongoPort,
		},
	}
}

func (t *ConnectTool) Name() string {
	return "connect"
}

func (t *ConnectTool) Description() string {
	return "Connect to MongoDB via SSH tunnel. Idempotent: reuses a healthy connection."
}

func (t *ConnectTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *ConnectTool) Handler() mcp.ToolHandler {
	return t.handler
}

type ConnectHandler struct {
	connector Connector
	mongoHost string
	mongoPort int
}

func (h *ConnectHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	session, err := h.connector.EnsureConnected(ctx)
	if err != nil {
		return mcp.NewToolResultText(errorText(err)), nil
	}

	version := session.ServerVersion(ctx)
	text := fmt.Sprintf("✓ Connected to MongoDB %s via %s:%d", version, h.mongoHost, h.mongoPort)
	return mcp.NewToolResultText(text), nil
}

type DisconnectTool struct {
	handler *DisconnectHandler
}

func NewDisconnectTool(connector Connector) *DisconnectTool {
	return &DisconnectTool{
		handler: &DisconnectHandler{connector: connector},
	}
}

func (t *DisconnectTool) Name() string {
	return "disconnect"
}

func (t *DisconnectTool) Description() string {
	return "Disconnect from MongoDB and close the SSH tunnel."
}

func (t *DisconnectTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *DisconnectTool) Handler() mcp.ToolHandler {
	return t.handler
}

type DisconnectHandler struct {
	connector Connector
}

func (h *DisconnectHandler) Handle(ctx context.Context, params json.RawMessage) (mcp.ToolResult, error) {
	h.connector.Disconnect(ctx)
	return mcp.NewToolResultText("✓ Disconnected from MongoDB"), nil
}
