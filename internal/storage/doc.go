// Package storage provides SQLite-based persistence for folders and notes.
//
// One database file is shared by a long-lived process holding a single
// connection and by any number of short-lived bridge processes, each
// opening its own connection for one operation. Cross-process
// coordination is left to SQLite's WAL file locking.
//
// # Database Schema
//
// Tables:
//   - folders: folder forest (parent_id), unique names among root folders
//   - notes: note rows with pinned flag and per-folder manual sort_order
//   - notes_fts: FTS5 index over notes(title, body), maintained by triggers
//   - tags, note_tags: tag catalogue, not used by any operation yet
//
// The migration counter is PRAGMA user_version. Every open creates the
// base tables if needed and runs each pending migration in its own
// immediate transaction; see migrations.go.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.anote/anote.db",
//	    storage.WithLockWait(storage.BridgeLockWait))
//	if err != nil {
//	    log.Fatal(err) // never continue on a partial schema
//	}
//	defer store.Close()
//
//	inbox, _ := store.EnsureInbox(ctx)
//	note, _ := store.CreateNote(ctx, storage.NewNote{Title: "Call Bob"})
//
// # Transactions
//
// Callers never see a transaction. Each multi-statement operation runs in
// one, with the lock mode taken from a per-operation policy (txpolicy.go):
// operations that check and then write take the write lock at BEGIN.
//
// # Optimistic Concurrency
//
// UpdateNote is a compare-and-swap on updated_at:
//
//	_, err := store.UpdateNote(ctx, storage.NoteUpdate{ID: id, Title: title, Body: body, UpdatedAt: &seen})
//	if types.IsConflict(err) {
//	    // someone saved a newer version; re-read and retry
//	}
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// Pure Go Build (default, purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (cgo_sqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires the sqlite_fts5 tag for the notes_fts table
//
//     CGO_ENABLED=1 go build -tags "cgo_sqlite,sqlite_fts5"
package storage
