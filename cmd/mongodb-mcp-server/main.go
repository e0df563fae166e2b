package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mayoengin/mpc-mongodb-server/internal/config"
	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
	"github.com/Mayoengin/mpc-mongodb-server/internal/mcp"
	"github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
	"github.com/Mayoengin/mpc-mongodb-server/internal/server"
	"github.com/Mayoengin/mpc-mongodb-server/internal/tunnel"
)

const (
	ExitCodeOK    = 0
	ExitCodeError = 1
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(ExitCodeError)
	}

	log, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(ExitCodeError)
	}
	defer log.Close()

	logStartupConfig(cfg, log)

	coordinator := setupCoordinator(cfg, log)

	mcpServer, err := setupMCPServer(cfg, coordinator, log)
	if err != nil {
		log.Error("Failed to setup MCP server", "error", err)
		os.Exit(ExitCodeError)
	}

	healthServer := server.New(cfg, coordinator, log)

	probeConnection(coordinator, log)

	if err := runServers(mcpServer, healthServer, log); err != nil {
		gracefulShutdown(mcpServer, healthServer, coordinator, log)
		os.Exit(ExitCodeError)
	}

	gracefulShutdown(mcpServer, healthServer, coordinator, log)

	os.Exit(ExitCodeOK)
}

// setupLogging initializes the logger with the given configuration
func setupLogging(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Service:    cfg.Logger.Service,
		Version:    cfg.Logger.Version,
		Dir:        cfg.Logger.Dir,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
	})
}

// logStartupConfig records the effective configuration without credential
// material.
func logStartupConfig(cfg *config.Config, log *logger.Logger) {
	log.Info("configuration loaded",
		"ssh_host", cfg.SSH.Host,
		"ssh_port", cfg.SSH.Port,
		"mongodb_host", cfg.Mongo.Host,
		"mongodb_port", cfg.Mongo.Port,
		"auth_db", cfg.Mongo.AuthDB,
		"replica_set", cfg.Mongo.ReplicaSet,
		"max_pool_size", cfg.Mongo.MaxPoolSize,
		"transport", cfg.MCP.Transport,
	)
}

// setupCoordinator wires the tunnel manager, session dialer and connection
// coordinator. Nothing connects until the first tool call or the startup
// probe.
func setupCoordinator(cfg *config.Config, log *logger.Logger) *mongodb.Coordinator {
	tunnelManager := tunnel.New(tunnel.Config{
		Host:                   cfg.SSH.Host,
		Port:                   cfg.SSH.Port,
		Username:               cfg.SSH.Username,
		Password:               cfg.SSH.Password,
		RemoteHost:             cfg.Mongo.Host,
		RemotePort:             cfg.Mongo.Port,
		ConnectTimeout:         cfg.SSH.ConnectTimeout,
		KeepaliveInterval:      cfg.SSH.KeepaliveInterval,
		EnableLegacyAlgorithms: cfg.SSH.EnableLegacyAlgorithms,
	}, log)

	dialer := mongodb.NewDialer(mongodb.SessionConfig{
		Username:               cfg.Mongo.Username,
		Password:               cfg.Mongo.Password,
		AuthDB:                 cfg.Mongo.AuthDB,
		MaxPoolSize:            cfg.Mongo.MaxPoolSize,
		ConnectTimeout:         cfg.Mongo.ConnectTimeout,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
		SocketTimeout:          cfg.Mongo.SocketTimeout,
	})

	return mongodb.NewCoordinator(tunnelManager, dialer, log)
}

// setupMCPServer creates the MCP server and registers every tool
func setupMCPServer(cfg *config.Config, coordinator *mongodb.Coordinator, log *logger.Logger) (*mcp.Server, error) {
	impl := mcp.Implementation{
		Name:    cfg.Logger.Service,
		Version: cfg.Logger.Version,
	}

	mcpServer := mcp.NewServer(impl, cfg, log)

	if err := registerAllTools(mcpServer, coordinator, cfg, log); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := mcpServer.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	return mcpServer, nil
}

// probeConnection attempts one connection at boot so problems surface in the
// logs immediately. The server serves either way; tools reconnect on demand.
func probeConnection(coordinator *mongodb.Coordinator, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := coordinator.EnsureConnected(ctx); err != nil {
		log.Warn("startup connection probe failed, will reconnect on first tool call", "error", err)
		return
	}
	log.Info("startup connection probe succeeded")
}

// runServers starts all servers and waits for a shutdown signal
func runServers(mcpServer *mcp.Server, healthServer *server.Server, log *logger.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 2)

	go func() {
		if err := healthServer.Start(); err != nil {
			log.Error("health server failed", "error", err)
			serverErrChan <- err
		}
	}()

	mcpDone := make(chan error, 1)
	go func() {
		mcpDone <- mcpServer.Serve(context.Background())
	}()

	log.Info("All servers are running")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig.String())
		return nil
	case err := <-mcpDone:
		// stdio transport returning means the client hung up; that is a
		// normal shutdown, not a failure.
		if err != nil {
			log.Error("MCP server failed", "error", err)
			return err
		}
		log.Info("MCP transport closed")
		return nil
	case err := <-serverErrChan:
		return err
	}
}

func gracefulShutdown(mcpServer *mcp.Server, healthServer *server.Server, coordinator *mongodb.Coordinator, log *logger.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	log.Info("Shutting down MCP server...")
	if err := mcpServer.Stop(shutdownCtx); err != nil {
		log.Error("Error during MCP server shutdown", "error", err)
	}

	log.Info("Shutting down health server...")
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during health server shutdown", "error", err)
	}

	coordinator.Disconnect(shutdownCtx)

	log.Info("All servers stopped gracefully")
}
