package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/anote/internal/backup"
	"github.com/dshills/anote/internal/bridge"
	"github.com/dshills/anote/internal/config"
	"github.com/dshills/anote/internal/searcher"
	"github.com/dshills/anote/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "anote"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	storage    storage.Storage
	searcher   *searcher.Searcher
	backups    *backup.Writer
	dispatcher *bridge.Dispatcher
	backend    bridge.Backend
	logger     *slog.Logger
}

// NewServer opens the store named by cfg and registers every tool.
// The schema is brought up to date before the server is returned.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath,
		storage.WithLockWait(cfg.LockWait),
		storage.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	srch := searcher.NewSearcher(store, searcher.WithLogger(logger))

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:        mcpServer,
		storage:    store,
		searcher:   srch,
		backups:    backup.NewWriter(cfg.BackupDir, cfg.BackupKeep),
		dispatcher: bridge.NewDispatcher(),
		backend:    bridge.NewBackend(store, srch),
		logger:     logger,
	}

	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the store
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Operations shared with the one-shot bridge
	for _, op := range s.dispatcher.Operations() {
		tool, ok := bridgeTools[op]
		if !ok {
			return fmt.Errorf("no tool definition for bridge op %s", op)
		}
		s.mcp.AddTool(tool(), s.bridgeHandler(op))
	}

	// Folders
	s.mcp.AddTool(listFoldersTool(), s.handleListFolders)
	s.mcp.AddTool(createFolderTool(), s.handleCreateFolder)
	s.mcp.AddTool(renameFolderTool(), s.handleRenameFolder)
	s.mcp.AddTool(moveFolderTool(), s.handleMoveFolder)
	s.mcp.AddTool(deleteFolderTool(), s.handleDeleteFolder)

	// Notes
	s.mcp.AddTool(listNotesTool(), s.handleListNotes)
	s.mcp.AddTool(deleteNoteTool(), s.handleDeleteNote)
	s.mcp.AddTool(setPinnedTool(), s.handleSetPinned)
	s.mcp.AddTool(reorderNotesTool(), s.handleReorderNotes)

	// Snapshots and status
	s.mcp.AddTool(exportSnapshotTool(), s.handleExportSnapshot)
	s.mcp.AddTool(importSnapshotTool(), s.handleImportSnapshot)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
