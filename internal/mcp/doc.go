// Package mcp implements the Model Context Protocol (MCP) server for anote.
//
// The server is the long-lived host of a note store. It owns one SQLite
// connection and one searcher for its whole lifetime, while one-shot bridge
// processes open the same database file alongside it.
//
// Tools fall into three groups:
//   - ensure_inbox, create_note, update_note, search_notes, get_note: the
//     bridge operations, decoded and validated by the same dispatcher the
//     bridge binary uses
//   - list_folders, create_folder, rename_folder, move_folder,
//     delete_folder, list_notes, delete_note, set_pinned, reorder_notes:
//     the rest of the store surface
//   - export_snapshot, import_snapshot, get_status: snapshot files and
//     store statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Every tool result is a single text content holding indented JSON.
//
// # Tool: update_note
//
//	Request:
//	{
//	  "name": "update_note",
//	  "arguments": {
//	    "id": "m1k2q3r4000001a8Xk2PqR9z",
//	    "title": "Groceries",
//	    "body": "milk, eggs",
//	    "updated_at": 1718000000000
//	  }
//	}
//
//	Response:
//	{
//	  "id": "m1k2q3r4000001a8Xk2PqR9z",
//	  "updated_at": 1718000000000
//	}
//
// A write older than the stored note is rejected with code -32001 and the
// note is left unchanged.
//
// # Tool: export_snapshot
//
//	Response:
//	{
//	  "path": "/home/me/.anote/backups/anote-backup-20240601-101500.json",
//	  "exported_at": 1717236900000,
//	  "folders_count": 4,
//	  "notes_count": 120
//	}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "anote": {
//	      "command": "/usr/local/bin/anote",
//	      "env": {
//	        "ANOTE_DATA_DIR": "/home/me/.anote"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Store errors carry a code (VALIDATION, CONFLICT, INTERNAL) which is
// mapped onto a JSON-RPC error; the original code is kept in data.code:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "note not found",
//	    "data": {"code": "VALIDATION"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (VALIDATION, missing or mistyped arguments)
//   - -32603: Internal error (database, filesystem)
//   - -32001: Stale update (CONFLICT)
//   - -32002: Export already in progress
//
// # Logging
//
// The server logs to stderr through log/slog; stdout is reserved for the
// MCP protocol.
package mcp
