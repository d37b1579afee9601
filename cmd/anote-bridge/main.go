// Command anote-bridge executes one store operation per invocation.
//
// It reads a single JSON request {"op": ..., "payload": {...}} from stdin
// and writes exactly one JSON response line to stdout:
//
//	echo '{"op":"ensure_inbox"}' | anote-bridge
//	{"ok":true,"data":{"folder_id":"..."}}
//
// Requests that fail validation never open the database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/anote/internal/bridge"
	"github.com/dshills/anote/internal/config"
	"github.com/dshills/anote/internal/logger"
	"github.com/dshills/anote/internal/searcher"
	"github.com/dshills/anote/internal/storage"
	"github.com/dshills/anote/pkg/types"
)

var version = "dev"

func main() {
	cfg, err := config.Load("anote-bridge", os.Args[1:], config.Defaults{
		LockWait:   storage.BridgeLockWait,
		BackupKeep: 10,
	})
	if err != nil {
		// the caller still expects one response line
		_ = json.NewEncoder(os.Stdout).Encode(bridge.Failure(types.Validation(err.Error())))
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("anote-bridge %s (%s, %s)\n", version, storage.BuildMode, storage.DriverName)
		os.Exit(0)
	}

	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Format: cfg.Log.Format,
		Level:  logger.ParseLevel(cfg.Log.Level),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opener := func(ctx context.Context) (bridge.Backend, io.Closer, error) {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := storage.NewSQLiteStorage(cfg.DBPath,
			storage.WithLockWait(cfg.LockWait),
			storage.WithLogger(log),
		)
		if err != nil {
			return nil, nil, err
		}
		// one request per process: nothing to cache
		srch := searcher.NewSearcher(store, searcher.WithLogger(log), searcher.WithCacheTTL(0))
		return bridge.NewBackend(store, srch), store, nil
	}

	if err := bridge.New(opener, log).Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Error("bridge failed", "error", err)
		stop()
		os.Exit(1)
	}
}
