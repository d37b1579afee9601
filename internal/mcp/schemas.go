package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/anote/internal/bridge"
)

// bridgeTools maps each bridge operation to its tool definition
var bridgeTools = map[string]func() mcp.Tool{
	bridge.OpEnsureInbox: ensureInboxTool,
	bridge.OpCreateNote:  createNoteTool,
	bridge.OpUpdateNote:  updateNoteTool,
	bridge.OpSearchNotes: searchNotesTool,
	bridge.OpGetNote:     getNoteTool,
}

func idProperty(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": what,
		"pattern":     "^[A-Za-z0-9]{1,64}$",
	}
}

func emptySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
}

// ensureInboxTool returns the tool definition for ensure_inbox
func ensureInboxTool() mcp.Tool {
	return mcp.Tool{
		Name:        bridge.OpEnsureInbox,
		Description: "Return the id of the root-level Inbox folder, creating it if needed",
		InputSchema: emptySchema(),
	}
}

// createNoteTool returns the tool definition for create_note
func createNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        bridge.OpCreateNote,
		Description: "Create a note at the top of a folder's order (the Inbox when no folder is given)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Note title",
					"default":     "",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "Note body",
					"default":     "",
				},
				"folder_id": idProperty("Folder to file the note into"),
			},
		},
	}
}

// updateNoteTool returns the tool definition for update_note
func updateNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        bridge.OpUpdateNote,
		Description: "Overwrite a note's title and body unless a newer edit is already stored",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Note id"),
				"title": map[string]interface{}{
					"type":        "string",
					"description": "New title; omitted stores an empty title",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "New body; omitted stores an empty body",
				},
				"updated_at": map[string]interface{}{
					"type":        "integer",
					"description": "Edit time in Unix milliseconds; the write is rejected if the stored note is newer. Defaults to now",
					"minimum":     0,
				},
			},
			Required: []string{"id"},
		},
	}
}

// searchNotesTool returns the tool definition for search_notes
func searchNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        bridge.OpSearchNotes,
		Description: "Full-text search over note titles and bodies; a blank query lists the most recently updated notes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "FTS5 query expression; malformed expressions fall back to a literal substring match",
					"default":     "",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-200)",
					"default":     80,
					"minimum":     1,
					"maximum":     200,
				},
			},
		},
	}
}

// getNoteTool returns the tool definition for get_note
func getNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        bridge.OpGetNote,
		Description: "Fetch a note with its full body and folder name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Note id"),
			},
			Required: []string{"id"},
		},
	}
}

// listFoldersTool returns the tool definition for list_folders
func listFoldersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_folders",
		Description: "List every folder with its parent",
		InputSchema: emptySchema(),
	}
}

// createFolderTool returns the tool definition for create_folder
func createFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_folder",
		Description: "Create a folder; top-level folder names are unique",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Folder name",
				},
				"parent_id": idProperty("Parent folder; omit for a top-level folder"),
			},
			Required: []string{"name"},
		},
	}
}

// renameFolderTool returns the tool definition for rename_folder
func renameFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rename_folder",
		Description: "Rename a folder",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Folder id"),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "New name",
				},
			},
			Required: []string{"id", "name"},
		},
	}
}

// moveFolderTool returns the tool definition for move_folder
func moveFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "move_folder",
		Description: "Move a folder under another folder, or to the top level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id":        idProperty("Folder id"),
				"parent_id": idProperty("New parent; omit or null for the top level"),
			},
			Required: []string{"id"},
		},
	}
}

// deleteFolderTool returns the tool definition for delete_folder
func deleteFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_folder",
		Description: "Delete a folder with all of its subfolders and notes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Folder id"),
			},
			Required: []string{"id"},
		},
	}
}

// listNotesTool returns the tool definition for list_notes
func listNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_notes",
		Description: "List note metadata, pinned first and then in manual order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"folder_id": idProperty("Only list notes in this folder"),
			},
		},
	}
}

// deleteNoteTool returns the tool definition for delete_note
func deleteNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Note id"),
			},
			Required: []string{"id"},
		},
	}
}

// setPinnedTool returns the tool definition for set_pinned
func setPinnedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "set_pinned",
		Description: "Pin or unpin a note",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Note id"),
				"pinned": map[string]interface{}{
					"type":        "boolean",
					"description": "True to pin, false to unpin",
				},
			},
			Required: []string{"id", "pinned"},
		},
	}
}

// reorderNotesTool returns the tool definition for reorder_notes
func reorderNotesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reorder_notes",
		Description: "Assign manual sort positions to notes in one transaction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"updates": map[string]interface{}{
					"type":        "array",
					"description": "Positions to assign",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"id": idProperty("Note id"),
							"sort_order": map[string]interface{}{
								"type": "integer",
							},
						},
						"required": []string{"id", "sort_order"},
					},
				},
			},
			Required: []string{"updates"},
		},
	}
}

// exportSnapshotTool returns the tool definition for export_snapshot
func exportSnapshotTool() mcp.Tool {
	return mcp.Tool{
		Name:        "export_snapshot",
		Description: "Write a JSON snapshot of every folder and note into the backup directory",
		InputSchema: emptySchema(),
	}
}

// importSnapshotTool returns the tool definition for import_snapshot
func importSnapshotTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_snapshot",
		Description: "Merge a snapshot file into the store; existing ids are left untouched",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to a snapshot file written by export_snapshot",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report schema version, sync token, row counts and database health",
		InputSchema: emptySchema(),
	}
}
