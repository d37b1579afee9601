package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/anote/internal/config"
	"github.com/dshills/anote/internal/logger"
	"github.com/dshills/anote/internal/mcp"
	"github.com/dshills/anote/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.Load("anote", os.Args[1:], config.Defaults{
		LockWait:   storage.DefaultLockWait,
		BackupKeep: 10,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "anote: %v\n", err)
		os.Exit(2)
	}

	// Handle version flag
	if cfg.ShowVersion {
		fmt.Printf("anote MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// Log to stderr (stdout reserved for MCP protocol)
	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Format: cfg.Log.Format,
		Level:  logger.ParseLevel(cfg.Log.Level),
	})
	log.Info("anote MCP server starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"db", cfg.DBPath,
	)

	if err := cfg.EnsureDirs(); err != nil {
		log.Error("failed to prepare data directory", "error", err)
		os.Exit(1)
	}

	server, err := mcp.NewServer(cfg, log)
	if err != nil {
		log.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())
		cancel()
		if err := server.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	log.Info("server stopped")
}
