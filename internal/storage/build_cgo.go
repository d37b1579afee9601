//go:build cgo_sqlite && !purego
// +build cgo_sqlite,!purego

package storage

// This file is compiled when building with CGO and the cgo_sqlite tag.
// It links the C SQLite amalgamation through mattn/go-sqlite3.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "cgo_sqlite,sqlite_fts5" ./...
//
// The sqlite_fts5 tag is required: the notes_fts virtual table is created
// on every open and the store refuses to start without it.
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
