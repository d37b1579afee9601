// Package types provides shared type definitions for the anote store.
//
// This package defines the domain types exchanged between the storage layer,
// the search engine, the bridge protocol and the MCP server.
//
// # Core Types
//
// Folder and Note mirror the rows of the folders and notes tables:
//
//	note := &types.Note{
//	    ID:       "0k3f9x2m1a7qz0001f3k9abcd",
//	    FolderID: inboxID,
//	    Title:    "Groceries",
//	    Body:     "milk, eggs",
//	}
//
// NoteSummary is the compact shape returned by search and NoteMeta the one
// returned by listing; both carry a short body preview instead of the full
// body. NoteDetail adds the folder name to a full note.
//
// # Snapshots
//
// Snapshot is the logical dump written by the backup exporter:
//
//	{"version":"1.0","exportedAt":1760000000000,"folders":[...],"notes":[...]}
//
// # Errors
//
// Every error that crosses a component boundary carries one of three codes:
//
//	types.CodeValidation // malformed input, missing entity, bad parent
//	types.CodeConflict   // optimistic-concurrency rejection
//	types.CodeInternal   // storage, lock-wait or filesystem failure
//
// Use CodeOf to classify any error; untyped errors are INTERNAL.
package types
