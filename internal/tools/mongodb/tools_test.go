package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	conn "github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
)

type fakeSession struct{}

func (fakeSession) Ping(ctx context.Context) error           { return nil }
func (fakeSession) Client() *mongo.Client                    { return nil }
func (fakeSession) ServerVersion(ctx context.Context) string { return "7.0.5" }
func (fakeSession) LocalPort() int                           { return 45000 }
func (fakeSession) Close(ctx context.Context) error          { return nil }

type recordingConnector struct {
	ensures     int
	disconnects int
	err         error
}

func (r *recordingConnector) EnsureConnected(ctx context.Context) (conn.Session, error) {
	r.ensures++
	if r.err != nil {
		return nil, r.err
	}
	return fakeSession{}, nil
}

func (r *recordingConnector) Disconnect(ctx context.Context) {
	r.disconnects++
}

func TestValidationHappensBeforeConnection(t *testing.T) {
	connector := &recordingConnector{}

	tests := []struct {
		name   string
		text   func() string
		reason string
	}{
		{
			"find missing collection",
			func() string {
				result, _ := NewFindTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{"database": "app"}`))
				return result.GetContent()[0].GetText()
			},
			"collection name is required",
		},
		{
			"find malformed query",
			func() string {
				result, _ := NewFindTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{"database": "app", "collection": "users", "query": "{broken"}`))
				return result.GetContent()[0].GetText()
			},
			"invalid query JSON",
		},
		{
			"find negative limit",
			func() string {
				result, _ := NewFindTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{"database": "app", "collection": "users", "limit": "-3"}`))
				return result.GetContent()[0].GetText()
			},
			"limit must not be negative",
		},
		{
			"count missing database",
			func() string {
				result, _ := NewCountTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{"collection": "users"}`))
				return result.GetContent()[0].GetText()
			},
			"database name is required",
		},
		{
			"aggregate bare document pipeline",
			func() string {
				result, _ := NewAggregateTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{"database": "app", "collection": "events", "pipeline": "{\"$match\": {}}"}`))
				return result.GetContent()[0].GetText()
			},
			"pipeline must be a JSON array",
		},
		{
			"list_collections missing database",
			func() string {
				result, _ := NewListCollectionsTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{}`))
				return result.GetContent()[0].GetText()
			},
			"database name is required",
		},
		{
			"get_collection_stats missing collection",
			func() string {
				result, _ := NewCollectionStatsTool(connector).Handler().Handle(context.Background(),
					json.RawMessage(`{"database": "app"}`))
				return result.GetContent()[0].GetText()
			},
			"collection name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := tt.text()
			if !strings.HasPrefix(text, "Parameter Error:") {
				t.Errorf("validation failure should render as Parameter Error, got %q", text)
			}
			if !strings.Contains(text, tt.reason) {
				t.Errorf("error text should mention %q, got %q", tt.reason, text)
			}
		})
	}

	if connector.ensures != 0 {
		t.Errorf("validation errors must not touch the connection, got %d EnsureConnected calls",
			connector.ensures)
	}
}

func TestConnectTool_ReportsVersionAndTarget(t *testing.T) {
	connector := &recordingConnector{}
	tool := NewConnectTool(connector, "db.internal.example.com", 27017)

	result, err := tool.Handler().Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() unexpected error: %v", err)
	}

	text := result.GetContent()[0].GetText()
	want := "✓ Connected to MongoDB 7.0.5 via db.internal.example.com:27017"
	if text != want {
		t.Errorf("connect result = %q, expected %q", text, want)
	}
	if connector.ensures != 1 {
		t.Errorf("connect should call EnsureConnected once, got %d", connector.ensures)
	}
}

func TestConnectTool_ConnectionFailure(t *testing.T) {
	connector := &recordingConnector{
		err: fmt.Errorf("%w: ssh connection to bastion failed", conn.ErrConnection),
	}
	tool := NewConnectTool(connector, "db.internal.example.com", 27017)

	result, err := tool.Handler().Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() must not propagate errors: %v", err)
	}
	if result.IsError() {
		t.Error("connection failures should render as text, not protocol errors")
	}

	text := result.GetContent()[0].GetText()
	if !strings.HasPrefix(text, "Connection Error:") {
		t.Errorf("connection failure should render as Connection Error, got %q", text)
	}
}

func TestDisconnectTool(t *testing.T) {
	connector := &recordingConnector{}
	tool := NewDisconnectTool(connector)

	result, err := tool.Handler().Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() unexpected error: %v", err)
	}
	if connector.disconnects != 1 {
		t.Errorf("disconnect should call Disconnect once, got %d", connector.disconnects)
	}
	if got := result.GetContent()[0].GetText(); !strings.Contains(got, "Disconnected") {
		t.Errorf("disconnect result = %q", got)
	}
}

func TestErrorText_ClassesAreDistinguishable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", fmt.Errorf("%w: limit must not be negative", conn.ErrValidation), "Parameter Error: limit must not be negative"},
		{"connection", fmt.Errorf("%w: tunnel down", conn.ErrConnection), "Connection Error: tunnel down"},
		{"remote", fmt.Errorf("%w: unauthorized", conn.ErrRemote), "MongoDB Error: unauthorized"},
		{"unclassified", errors.New("surprise"), "Error: surprise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorText(tt.err); got != tt.want {
				t.Errorf("errorText() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestToolMetadata(t *testing.T) {
	connector := &recordingConnector{}

	tools := []interface {
		Name() string
		Description() string
		Parameters() json.RawMessage
	}{
		NewConnectTool(connector, "h", 1),
		NewDisconnectTool(connector),
		NewListDatabasesTool(connector),
		NewListCollectionsTool(connector),
		NewCountTool(connector),
		NewFindTool(connector),
		NewAggregateTool(connector),
		NewCollectionStatsTool(connector),
	}

	seen := make(map[string]bool)
	for _, tool := range tools {
		name := tool.Name()
		if seen[name] {
			t.Errorf("duplicate tool name %q", name)
		}
		seen[name] = true

		if tool.Description() == "" {
			t.Errorf("tool %q has no description", name)
		}

		var schema map[string]any
		if err := json.Unmarshal(tool.Parameters(), &schema); err != nil {
			t.Errorf("tool %q parameters are not valid JSON: %v", name, err)
		}
		if schema["type"] != "object" {
			t.Errorf("tool %q schema type = %v, expected object", name, schema["type"])
		}
	}

	for _, name := range []string{
		"connect", "disconnect", "list_databases", "list_collections",
		"count", "find", "aggregate", "get_collection_stats",
	} {
		if !seen[name] {
			t.Errorf("tool %q missing from the surface", name)
		}
	}
}
