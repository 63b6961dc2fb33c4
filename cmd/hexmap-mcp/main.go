package main

import (
	"context"
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	mcpadapter "hexmap/internal/adapters/mcp"
	"hexmap/internal/adapters/sqlite"
	"hexmap/internal/config"
	"hexmap/internal/engine"
)

func main() {
	dbFlag := flag.String("db", config.DatabasePath(), "path to the database")
	flag.Parse()

	srv := sqlite.NewServer()
	if err := srv.Open(*dbFlag); err != nil {
		log.Fatalf("hexmap-mcp: %v", err)
	}
	defer srv.Close()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("hexmap-mcp: %v", err)
	}
	defer logger.Sync()

	opts := engine.DefaultOptions()
	opts.Source = "mcp"
	eng := engine.New(logger, srv, opts)
	defer eng.Shutdown()

	if err := eng.Bootstrap(context.Background(), config.RootCoordID()); err != nil {
		log.Fatalf("hexmap-mcp: %v", err)
	}

	mcpServer := server.NewMCPServer(
		"hexmap-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, eng)
	mcpadapter.RegisterWriteTools(mcpServer, eng)

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("hexmap-mcp: %v", err)
	}
}
