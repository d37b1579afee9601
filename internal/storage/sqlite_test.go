package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/anote/pkg/types"
)

// setupTestDB opens a fresh store in a temporary file
func setupTestDB(t *testing.T, opts ...Option) *SQLiteStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anote.db")
	storage, err := NewSQLiteStorage(path, opts...)
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock returns a clock starting at start that advances by step on every call
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)

	assert.NotNil(t, storage.db)
	assert.True(t, strings.HasSuffix(storage.Path(), "anote.db"))
}

func TestNewSQLiteStorage_Pragmas(t *testing.T) {
	storage := setupTestDB(t, WithLockWait(1500*time.Millisecond))
	ctx := context.Background()

	var journal string
	require.NoError(t, storage.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", strings.ToLower(journal))

	var fk int
	require.NoError(t, storage.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var sync int
	require.NoError(t, storage.db.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&sync))
	assert.Equal(t, 1, sync, "synchronous should be NORMAL")

	var timeout int
	require.NoError(t, storage.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 1500, timeout)

	var cache int
	require.NoError(t, storage.db.QueryRowContext(ctx, "PRAGMA cache_size").Scan(&cache))
	assert.Equal(t, -2000, cache)
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anote.db")
	storage, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	assert.NoError(t, storage.Close())
}

func TestNewSQLiteStorage_RejectsBrokenBaseSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anote.db")
	db, err := openDatabase(path, time.Second)
	require.NoError(t, err)
	// a notes table without folder_id cannot carry idx_notes_folder
	_, err = db.Exec("CREATE TABLE notes (id TEXT PRIMARY KEY, title TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewSQLiteStorage(path)
	require.Error(t, err)
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, TxImmediate, PolicyFor(OpEnsureInbox))
	assert.Equal(t, TxImmediate, PolicyFor(OpMigrate))
	assert.Equal(t, TxImmediate, PolicyFor(OpCreateNote))
	assert.Equal(t, TxDeferred, PolicyFor(OpExport))
	assert.Equal(t, TxImmediate, PolicyFor(Operation("unknown")))
	assert.Equal(t, "immediate", TxImmediate.String())
	assert.Equal(t, "deferred", TxDeferred.String())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	err := storage.withTx(ctx, OpCreateFolder, func(q querier) error {
		_, err := q.ExecContext(ctx,
			"INSERT INTO folders (id, name, created_at, updated_at) VALUES ('f1', 'Work', 1, 1)")
		require.NoError(t, err)
		return types.Validation("abort")
	})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))

	folders, err := storage.ListFolders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestChangeStamp_MovesOnLocalWrite(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	before, err := storage.ChangeStamp(ctx)
	require.NoError(t, err)

	_, err = storage.CreateNote(ctx, NewNote{Title: "a"})
	require.NoError(t, err)

	after, err := storage.ChangeStamp(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestChangeStamp_MovesOnForeignWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anote.db")
	ctx := context.Background()

	local, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer local.Close()

	before, err := local.ChangeStamp(ctx)
	require.NoError(t, err)

	foreign, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	_, err = foreign.CreateNote(ctx, NewNote{Title: "from another process"})
	require.NoError(t, err)
	require.NoError(t, foreign.Close())

	after, err := local.ChangeStamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Local, after.Local)
	assert.NotEqual(t, before.Data, after.Data)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, err := storage.CreateNote(ctx, NewNote{Title: "a", Body: "b"})
	require.NoError(t, err)

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, 1, status.FoldersCount)
	assert.Equal(t, 1, status.NotesCount)
	assert.Equal(t, 0, status.TagsCount)
	assert.Greater(t, status.SyncToken, int64(0))
	assert.Greater(t, status.SizeMB, 0.0)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.FTSIndexBuilt)
}
