package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/irrrl-engine/internal/adapters/mcp"
	"github.com/kirillkom/irrrl-engine/internal/bootstrap"
	"github.com/kirillkom/irrrl-engine/internal/config"
	"github.com/kirillkom/irrrl-engine/internal/observability/logging"
)

const (
	serviceName    = "irrrl-mcp"
	serviceVersion = "1.0.0"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol, so logs go to stderr.
	slog.SetDefault(logging.NewLogger(os.Stderr, serviceName, cfg.LogLevel))

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.WithName(serviceName))
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Reader, app.Decision, app.Workflow)
	if err := server.ServeStdio(mcpadapter.NewServer(serviceName, serviceVersion, tools)); err != nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
