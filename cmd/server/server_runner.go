// Package server provides the runner for the prompt clinic MCP server
// process: configuration loading, logging setup, transport selection
// (stdio or HTTP), signal handling, and graceful shutdown.
// file: cmd/server/server_runner.go
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/config"
	"github.com/dkoosis/promptclinic/internal/httpserver"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/mcp"
)

// RunServer starts the MCP server with the specified transport type and
// blocks until a termination signal arrives or the transport stops.
func RunServer(transportType, configPath string, requestTimeout, shutdownTimeout time.Duration, debug bool) error {
	startTime := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger, cfg, err := setupLoggingAndConfig(configPath, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed during logging/config setup: %+v\n", err)
		return err
	}

	logger.Info("Starting prompt clinic server.",
		"transport", transportType,
		"config_path", configPath,
		"request_timeout", requestTimeout,
		"shutdown_timeout", shutdownTimeout,
		"debug_mode", debug)

	opts := mcp.ServerOptions{
		RequestTimeout:  requestTimeout,
		ShutdownTimeout: shutdownTimeout,
		Debug:           debug,
		// HTTP serves one request per POST with no initialize handshake.
		Stateless: transportType == "http",
	}

	server, err := mcp.NewServer(cfg, opts, logger)
	if err != nil {
		logger.Error("Failed to create MCP server.", "error", err.Error())
		return errors.Wrap(err, "failed to create MCP server")
	}

	if err := server.Initialize(ctx); err != nil {
		logger.Error("Failed to initialize MCP server.",
			"error", err.Error(),
			"advice", "Check schema override URI or embedded schema content.")
		return errors.Wrap(err, "failed to initialize MCP server")
	}

	var httpSrv *httpserver.Server
	switch transportType {
	case "stdio":
		logger.Info("Starting server with stdio transport.",
			"description", "Communication via standard input/output.")
		go runTransportLoop(ctx, cancel, logger, "stdio", server.ServeSTDIO)

	case "http":
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Starting server with HTTP transport.",
			"address", addr,
			"mcp_endpoint", "/mcp",
			"health", "/health")
		httpSrv = httpserver.NewServer(server, addr, logger)
		go runTransportLoop(ctx, cancel, logger, "http", httpSrv.Run)

	default:
		logger.Error("Unsupported transport type.",
			"transport", transportType,
			"supported", "stdio, http",
			"advice", "Use -transport stdio or -transport http.")
		return errors.Newf("unsupported transport type: %s", transportType)
	}

	logger.Info("Server startup complete and ready to process requests.",
		"startup_time_ms", time.Since(startTime).Milliseconds())

	waitForShutdownSignal(ctx, sigChan, logger)

	return performGracefulShutdown(shutdownTimeout, server, httpSrv, startTime, logger)
}

// setupLoggingAndConfig initializes the logger and loads configuration.
func setupLoggingAndConfig(configPath string, debug bool) (logging.Logger, *config.Config, error) {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}
	logging.SetupDefaultLogger(logLevel)
	logger := logging.GetLogger("server_runner")

	var cfg *config.Config
	var err error
	if configPath != "" {
		logger.Info("Loading configuration from file.", "config_path", configPath)
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			logger.Error("Failed to load configuration.", "config_path", configPath, "error", err.Error())
			return logger, nil, errors.Wrap(err, "failed to load configuration from file")
		}
	} else {
		logger.Info("Using default configuration (no config file specified).")
		cfg = config.DefaultConfig()
	}

	if debug {
		logger.Debug("Server configuration ready.",
			"serverName", cfg.Server.Name,
			"port", cfg.Server.Port)
	}
	return logger, cfg, nil
}

// runTransportLoop runs the server's serve function and cancels the root
// context when it exits, so the main goroutine unblocks.
func runTransportLoop(ctx context.Context, cancel context.CancelFunc, logger logging.Logger, transportName string, serveFunc func(context.Context) error) {
	if err := serveFunc(ctx); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logger.Error(fmt.Sprintf("Server error (%s).", transportName), "error", fmt.Sprintf("%+v", err))
		} else {
			logger.Info(fmt.Sprintf("Server stopped gracefully (%s).", transportName), "reason", err)
		}
	} else {
		logger.Info(fmt.Sprintf("Server stopped normally (%s).", transportName))
	}
	cancel()
}

// waitForShutdownSignal blocks until a shutdown signal is received or the
// context is cancelled.
func waitForShutdownSignal(ctx context.Context, sigChan <-chan os.Signal, logger logging.Logger) {
	select {
	case sig := <-sigChan:
		logger.Info("Received termination signal.", "signal", sig)
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown.", "reason", ctx.Err())
	}
}

// performGracefulShutdown stops the HTTP listener (if any) and the MCP
// server within the shutdown timeout.
func performGracefulShutdown(shutdownTimeout time.Duration, server *mcp.Server, httpSrv *httpserver.Server, startTime time.Time, logger logging.Logger) error {
	logger.Info("Shutting down server gracefully.", "timeout", shutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error.", "error", err.Error())
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error.", "error", err.Error())
	}

	logger.Info("Server shutdown complete.",
		"run_duration", time.Since(startTime).Round(time.Millisecond).String())
	return nil
}
