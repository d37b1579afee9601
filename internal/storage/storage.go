package storage

import (
	"context"

	"github.com/dshills/anote/pkg/types"
)

// Storage defines the interface for persisting and querying folders and notes
type Storage interface {
	// Folder operations
	ListFolders(ctx context.Context) ([]types.Folder, error)
	GetFolder(ctx context.Context, id string) (*types.Folder, error)
	CreateFolder(ctx context.Context, in NewFolder) (*types.Folder, error)
	RenameFolder(ctx context.Context, id, name string) error
	MoveFolder(ctx context.Context, id string, parentID *string) error
	DeleteFolder(ctx context.Context, id string) error
	EnsureInbox(ctx context.Context) (string, error)

	// Note operations
	CreateNote(ctx context.Context, in NewNote) (*types.Note, error)
	UpdateNote(ctx context.Context, in NoteUpdate) (int64, error)
	DeleteNote(ctx context.Context, id string) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	ReorderNotes(ctx context.Context, updates []OrderUpdate) error
	GetNote(ctx context.Context, id string) (*types.NoteDetail, error)
	ListNotes(ctx context.Context, folderID *string) ([]types.NoteMeta, error)

	// Search primitives, composed by the searcher package
	RecentNotes(ctx context.Context, limit int) ([]types.NoteSummary, error)
	MatchNotes(ctx context.Context, expr string, limit int) ([]types.NoteSummary, error)
	LikeNotes(ctx context.Context, text string, limit int) ([]types.NoteSummary, error)

	// Transfer operations
	Import(ctx context.Context, folders []types.Folder, notes []types.Note) (*ImportResult, error)
	ExportSnapshot(ctx context.Context) (*types.Snapshot, error)
	SyncToken(ctx context.Context) (int64, error)
	ChangeStamp(ctx context.Context) (ChangeStamp, error)

	// Status operations
	GetStatus(ctx context.Context) (*StoreStatus, error)
	SchemaVersion(ctx context.Context) (int, error)

	// Database operations
	Close() error
}

// NewFolder describes a folder to create. An empty ID is generated.
type NewFolder struct {
	ID       string
	Name     string
	ParentID *string
}

// NewNote describes a note to create. A nil FolderID files the note into
// the Inbox.
type NewNote struct {
	Title    string
	Body     string
	FolderID *string
}

// NoteUpdate is an optimistic-concurrency edit. Title and Body replace the
// stored values; nil UpdatedAt means now.
type NoteUpdate struct {
	ID        string
	Title     string
	Body      string
	UpdatedAt *int64
}

// OrderUpdate assigns a manual sort position to one note.
type OrderUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sort_order"`
}

// ImportResult counts rows inserted by Import. Rows whose id already
// existed are not counted.
type ImportResult struct {
	FoldersAdded  int
	NotesAdded    int
	FoldersMerged int
}

// ChangeStamp identifies the state of the database as seen by this
// process: Local counts commits made through this store, Data is SQLite's
// data_version, which moves when another connection commits.
type ChangeStamp struct {
	Local int64
	Data  int64
}

// StoreStatus contains statistics about the store
type StoreStatus struct {
	Path          string
	SchemaVersion int
	FoldersCount  int
	NotesCount    int
	TagsCount     int
	SyncToken     int64
	SizeMB        float64
	Health        HealthStatus
}

// HealthStatus represents the health of the database
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
}

var _ Storage = (*SQLiteStorage)(nil)
