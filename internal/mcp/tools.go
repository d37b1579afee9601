package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/anote/internal/backup"
	"github.com/dshills/anote/internal/storage"
	"github.com/dshills/anote/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeConflict         = -32001 // Stale optimistic update
	ErrorCodeExportInProgress = -32002 // Another export is already running
)

// bridgeHandler runs one of the bridge operations with the MCP arguments
// as its payload, so both surfaces decode and validate identically.
func (s *Server) bridgeHandler(op string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := arguments(request)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(args)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", map[string]interface{}{
				"reason": err.Error(),
			})
		}

		result, err := s.dispatcher.Dispatch(ctx, s.backend, op, payload)
		if err != nil {
			return nil, s.toMCPError(op, err)
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}
}

// handleListFolders handles the list_folders tool invocation
func (s *Server) handleListFolders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := arguments(request); err != nil {
		return nil, err
	}

	folders, err := s.storage.ListFolders(ctx)
	if err != nil {
		return nil, s.toMCPError("list_folders", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"folders": folders})), nil
}

// handleCreateFolder handles the create_folder tool invocation
func (s *Server) handleCreateFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	parentID, err := optionalString(args, "parent_id")
	if err != nil {
		return nil, err
	}

	folder, err := s.storage.CreateFolder(ctx, storage.NewFolder{Name: name, ParentID: parentID})
	if err != nil {
		return nil, s.toMCPError("create_folder", err)
	}
	return mcp.NewToolResultText(formatJSON(folder)), nil
}

// handleRenameFolder handles the rename_folder tool invocation
func (s *Server) handleRenameFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	if err := s.storage.RenameFolder(ctx, id, name); err != nil {
		return nil, s.toMCPError("rename_folder", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"id": id, "name": name})), nil
}

// handleMoveFolder handles the move_folder tool invocation. An absent or
// null parent_id moves the folder to the top level.
func (s *Server) handleMoveFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	parentID, err := optionalString(args, "parent_id")
	if err != nil {
		return nil, err
	}

	if err := s.storage.MoveFolder(ctx, id, parentID); err != nil {
		return nil, s.toMCPError("move_folder", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"id": id, "parent_id": parentID})), nil
}

// handleDeleteFolder handles the delete_folder tool invocation
func (s *Server) handleDeleteFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	if err := s.storage.DeleteFolder(ctx, id); err != nil {
		return nil, s.toMCPError("delete_folder", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"id": id, "deleted": true})), nil
}

// handleListNotes handles the list_notes tool invocation
func (s *Server) handleListNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	folderID, err := optionalString(args, "folder_id")
	if err != nil {
		return nil, err
	}

	notes, err := s.storage.ListNotes(ctx, folderID)
	if err != nil {
		return nil, s.toMCPError("list_notes", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"notes": notes})), nil
}

// handleDeleteNote handles the delete_note tool invocation
func (s *Server) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	if err := s.storage.DeleteNote(ctx, id); err != nil {
		return nil, s.toMCPError("delete_note", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"id": id, "deleted": true})), nil
}

// handleSetPinned handles the set_pinned tool invocation
func (s *Server) handleSetPinned(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	pinned, ok := args["pinned"].(bool)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "pinned parameter is required", map[string]interface{}{
			"param":  "pinned",
			"reason": "missing or not a boolean",
		})
	}

	if err := s.storage.SetPinned(ctx, id, pinned); err != nil {
		return nil, s.toMCPError("set_pinned", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"id": id, "pinned": pinned})), nil
}

// handleReorderNotes handles the reorder_notes tool invocation
func (s *Server) handleReorderNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	raw, ok := args["updates"].([]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "updates parameter is required", map[string]interface{}{
			"param":  "updates",
			"reason": "missing or not an array",
		})
	}

	// round-trip through JSON to get typed updates
	var updates []storage.OrderUpdate
	encoded, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(encoded, &updates)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid updates", map[string]interface{}{
			"param":  "updates",
			"reason": err.Error(),
		})
	}

	if err := s.storage.ReorderNotes(ctx, updates); err != nil {
		return nil, s.toMCPError("reorder_notes", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"updated": len(updates)})), nil
}

// handleExportSnapshot handles the export_snapshot tool invocation
func (s *Server) handleExportSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := arguments(request); err != nil {
		return nil, err
	}

	snap, err := s.storage.ExportSnapshot(ctx)
	if err != nil {
		return nil, s.toMCPError("export_snapshot", err)
	}

	path, err := s.backups.Write(snap)
	if errors.Is(err, backup.ErrExportInProgress) {
		return nil, newMCPError(ErrorCodeExportInProgress, "export already in progress", nil)
	}
	if err != nil {
		return nil, s.toMCPError("export_snapshot", err)
	}

	response := map[string]interface{}{
		"path":          path,
		"exported_at":   snap.ExportedAt,
		"folders_count": len(snap.Folders),
		"notes_count":   len(snap.Notes),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleImportSnapshot handles the import_snapshot tool invocation
func (s *Server) handleImportSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	snap, err := backup.Read(path)
	if err != nil {
		return nil, s.toMCPError("import_snapshot", err)
	}

	result, err := s.storage.Import(ctx, snap.Folders, snap.Notes)
	if err != nil {
		return nil, s.toMCPError("import_snapshot", err)
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"folders_added":  result.FoldersAdded,
		"folders_merged": result.FoldersMerged,
		"notes_added":    result.NotesAdded,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := arguments(request); err != nil {
		return nil, err
	}

	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, s.toMCPError("get_status", err)
	}

	backups, err := s.backups.List()
	if err != nil {
		s.logger.Warn("failed to list backups", "dir", s.backups.Dir, "error", err)
	}

	response := map[string]interface{}{
		"server": map[string]interface{}{
			"version":    ServerVersion,
			"build_mode": storage.BuildMode,
			"driver":     storage.DriverName,
		},
		"store": map[string]interface{}{
			"path":           status.Path,
			"schema_version": status.SchemaVersion,
			"sync_token":     status.SyncToken,
			"size_mb":        fmt.Sprintf("%.2f", status.SizeMB),
		},
		"statistics": map[string]interface{}{
			"folders_count": status.FoldersCount,
			"notes_count":   status.NotesCount,
			"tags_count":    status.TagsCount,
			"backups_count": len(backups),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_index_built":     status.Health.FTSIndexBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// toMCPError maps a coded store error onto an MCP error
func (s *Server) toMCPError(tool string, err error) error {
	code := types.CodeOf(err)
	data := map[string]interface{}{"code": string(code)}

	switch code {
	case types.CodeValidation:
		return newMCPError(ErrorCodeInvalidParams, err.Error(), data)
	case types.CodeConflict:
		return newMCPError(ErrorCodeConflict, err.Error(), data)
	}

	s.logger.Error("tool failed", "tool", tool, "error", err)
	data["error"] = err.Error()
	return newMCPError(ErrorCodeInternalError, fmt.Sprintf("%s failed", tool), data)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the call's arguments; a call without any gets an empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// optionalString extracts a string parameter that may be absent or null
func optionalString(args map[string]interface{}, key string) (*string, error) {
	raw, present := args[key]
	if !present || raw == nil {
		return nil, nil
	}
	val, ok := raw.(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, key+" must be a string", map[string]interface{}{
			"param": key,
		})
	}
	return &val, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
