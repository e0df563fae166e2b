package main

import (
	"github.com/Mayoengin/mpc-mongodb-server/internal/config"
	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
	"github.com/Mayoengin/mpc-mongodb-server/internal/mcp"
	mongotools "github.com/Mayoengin/mpc-mongodb-server/internal/tools/mongodb"
)

// registerAllTools wires every tool to the shared connection coordinator.
func registerAllTools(srv *mcp.Server, connector mongotools.Connector, cfg *config.Config, log *logger.Logger) error {
	log.Info("Registering all available tools")

	tools := []mcp.Tool{
		mongotools.NewConnectTool(connector, cfg.Mongo.Host, cfg.Mongo.Port),
		mongotools.NewDisconnectTool(connector),
		mongotools.NewListDatabasesTool(connector),
		mongotools.NewListCollectionsTool(connector),
		mongotools.NewCountTool(connector),
		mongotools.NewFindTool(connector),
		mongotools.NewAggregateTool(connector),
		mongotools.NewCollectionStatsTool(connector),
	}

	for _, tool := range tools {
		if err := srv.AddTool(tool); err != nil {
			log.Error("Failed to register tool", "name", tool.Name(), "error", err)
			return err
		}
	}

	log.Info("Successfully registered all tools", "count", len(tools))
	return nil
}
