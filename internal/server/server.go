package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Mayoengin/mpc-mongodb-server/internal/config"
	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
	"github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
)

// StatusReporter exposes the connection state without touching the network.
type StatusReporter interface {
	Status() mongodb.Status
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}

// StatusResponse represents the connection status response
type StatusResponse struct {
	Status     string         `json:"status"`
	Timestamp  string         `json:"timestamp"`
	Service    string         `json:"service"`
	Version    string         `json:"version"`
	Connection mongodb.Status `json:"connection"`
}

// Server represents the HTTP health server. It runs beside the MCP
// transport so orchestrators can probe liveness and connection state.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	config     *config.Config
	reporter   StatusReporter
	mux        *http.ServeMux
}

// New creates a new HTTP server instance
func New(cfg *config.Config, reporter StatusReporter, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		logger:   log,
		config:   cfg,
		reporter: reporter,
		mux:      mux,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Health.Host, cfg.Health.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/status", s.handleStatus)
}

// Start runs the HTTP server until Shutdown or failure.
func (s *Server) Start() error {
	s.logger.Info("starting health server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down health server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleHealth handles liveness check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   s.config.Logger.Service,
		Version:   s.config.Logger.Version,
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleReady handles readiness check requests. The server is ready as soon
// as it serves requests; a down database connection is reported via /status,
// not by failing readiness, because tools reconnect on demand.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   s.config.Logger.Service,
		Version:   s.config.Logger.Version,
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleStatus reports the current connection state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	connection := s.reporter.Status()

	status := "disconnected"
	if connection.Connected && connection.TunnelHealthy {
		status = "connected"
	}

	response := StatusResponse{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Service:    s.config.Logger.Service,
		Version:    s.config.Logger.Version,
		Connection: connection,
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, response any) {
	w.Header().Set("Content-Type", "application/json")

	jsonData, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(code)
	w.Write(jsonData)
}
