package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Mayoengin/mpc-mongodb-server/internal/config"
	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
)

// Server implements MCPServer using mark3labs/mcp-go
type Server struct {
	impl      Implementation
	logger    *logger.Logger
	config    *config.Config
	mcpServer *server.MCPServer
	tools     map[string]Tool
	mu        sync.RWMutex
	running   bool

	httpServer *server.StreamableHTTPServer
}

// NewServer creates a new MCP server instance
func NewServer(impl Implementation, cfg *config.Config, log *logger.Logger) *Server {
	return &Server{
		impl:   impl,
		logger: log,
		config: cfg,
		tools:  make(map[string]Tool),
	}
}

// Start implements MCPServer.Start
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	s.logger.Info("starting MCP server",
		"name", s.impl.Name,
		"version", s.impl.Version,
		"transport", s.config.MCP.Transport,
	)

	s.mcpServer = server.NewMCPServer(
		s.impl.Name,
		s.impl.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, tool := range s.tools {
		if err := s.registerTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name(), err)
		}
	}

	s.running = true

	s.logger.Info("MCP server started successfully")
	return nil
}

// Stop implements MCPServer.Stop
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("stopping MCP server")

	// The stdio transport stops when its context is cancelled or stdin
	// closes; only the HTTP transport has an explicit shutdown.
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("error shutting down HTTP transport", "error", err)
		}
		s.httpServer = nil
	}

	s.mcpServer = nil
	s.running = false
	s.logger.Info("MCP server stopped")
	return nil
}

// AddTool implements MCPServer.AddTool
func (s *Server) AddTool(tool Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("adding MCP tool", "name", tool.Name())

	if _, exists := s.tools[tool.Name()]; exists {
		return fmt.Errorf("tool '%s' already exists", tool.Name())
	}
	s.tools[tool.Name()] = tool

	if s.running && s.mcpServer != nil {
		return s.registerTool(tool)
	}

	return nil
}

// GetImplementation implements MCPServer.GetImplementation
func (s *Server) GetImplementation() Implementation {
	return s.impl
}

// registerTool registers a tool with the underlying mark3labs MCP server
func (s *Server) registerTool(tool Tool) error {
	options := []mcp.ToolOption{
		mcp.WithDescription(tool.Description()),
	}

	if tool.Parameters() != nil {
		var params map[string]interface{}
		if err := json.Unmarshal(tool.Parameters(), &params); err != nil {
			return fmt.Errorf("failed to parse tool parameters: %w", err)
		}

		if properties, ok := params["properties"].(map[string]interface{}); ok {
			for name, prop := range properties {
				propMap, ok := prop.(map[string]interface{})
				if !ok {
					continue
				}
				description := ""
				if desc, ok := propMap["description"].(string); ok {
					description = desc
				}
				required := false
				if req, ok := params["required"].([]interface{}); ok {
					for _, r := range req {
						if r == name {
							required = true
							break
						}
					}
				}

				if required {
					options = append(options, mcp.WithString(name, mcp.Required(), mcp.Description(description)))
				} else {
					options = append(options, mcp.WithString(name, mcp.Description(description)))
				}
			}
		}
	}

	mcpTool := mcp.NewTool(tool.Name(), options...)

	handler := s.createToolHandlerAdapter(tool.Name(), tool.Handler())

	s.mcpServer.AddTool(mcpTool, handler)

	return nil
}

// createToolHandlerAdapter adapts our ToolHandler interface to mark3labs handler
func (s *Server) createToolHandlerAdapter(name string, handler ToolHandler) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()[:8]
		log := s.logger.With("tool", name, "request_id", requestID)
		log.Info("executing tool")

		var args json.RawMessage
		if request.Params.Arguments != nil {
			argsBytes, err := json.Marshal(request.Params.Arguments)
			if err != nil {
				log.Error("failed to marshal tool arguments", "error", err)
				return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
			}
			args = argsBytes
		}

		result, err := handler.Handle(ctx, args)
		if err != nil {
			log.Error("tool execution failed", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		if result.IsError() {
			errorMsg := "Tool execution failed"
			if result.GetError() != nil {
				errorMsg = result.GetError().Error()
			}
			log.Error("tool returned error", "error", errorMsg)
			return mcp.NewToolResultError(errorMsg), nil
		}

		contents := result.GetContent()
		if len(contents) == 0 {
			return mcp.NewToolResultText(""), nil
		}

		log.Info("tool completed")
		return mcp.NewToolResultText(contents[0].GetText()), nil
	}
}

// Serve blocks serving MCP requests on the configured transport.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if !s.running || s.mcpServer == nil {
		s.mu.Unlock()
		return fmt.Errorf("server not started")
	}
	mcpServer := s.mcpServer
	transport := s.config.MCP.Transport
	s.mu.Unlock()

	switch transport {
	case config.TransportHTTP:
		addr := fmt.Sprintf("%s:%d", s.config.MCP.Host, s.config.MCP.Port)
		httpServer := server.NewStreamableHTTPServer(mcpServer)

		s.mu.Lock()
		s.httpServer = httpServer
		s.mu.Unlock()

		s.logger.Info("serving MCP requests over HTTP", "addr", addr)
		return httpServer.Start(addr)
	default:
		s.logger.Info("serving MCP requests over stdio")
		return server.ServeStdio(mcpServer)
	}
}
