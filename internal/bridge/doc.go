// Package bridge implements the one-shot request/response adapter that lets
// external tools reach the note store.
//
// A bridge invocation reads exactly one JSON request
//
//	{"op": "create_note", "payload": {"title": "...", "body": "..."}}
//
// and writes exactly one JSON response line
//
//	{"ok": true, "data": {...}}
//	{"ok": false, "error": {"code": "VALIDATION", "message": "..."}}
//
// The operation name and payload are decoded and validated before the
// store is opened, so a malformed request never touches the database file.
// Supported operations: ensure_inbox, create_note, update_note,
// search_notes and get_note.
//
// The Dispatcher is shared with the long-lived MCP server, which routes the
// same five tools through it so both surfaces accept and reject identical
// payloads.
package bridge
