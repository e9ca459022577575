package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-expediente-fusion/internal/app"
	"github.com/a3tai/mcp-expediente-fusion/internal/config"
	"github.com/a3tai/mcp-expediente-fusion/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process logger. In stdio mode stdout carries the
// protocol, so logs go to stderr and only when debugging.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	logger.Debug("starting", "config", cfg.String())

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		if cfg.IsStdioMode() && !cfg.IsDebug() {
			fmt.Fprintf(os.Stderr, "%s: %v\n", cfg.ServerName, err)
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	services, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	server, err := mcp.NewServer(cfg, mcp.Services{
		Processor: services.Processor,
		Registry:  services.Registry,
		Reader:    services.Reader,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// In stdio mode the parent process controls our lifecycle; signals
	// matter mostly for server mode.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped successfully")
	return nil
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Expediente Fusion\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
