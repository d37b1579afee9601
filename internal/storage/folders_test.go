package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/anote/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestCreateFolder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	root, err := storage.CreateFolder(ctx, NewFolder{Name: "  Work  "})
	require.NoError(t, err)
	assert.Equal(t, "Work", root.Name)
	assert.True(t, root.IsRoot())
	assert.Equal(t, root.CreatedAt, root.UpdatedAt)

	child, err := storage.CreateFolder(ctx, NewFolder{Name: "Projects", ParentID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	got, err := storage.GetFolder(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child, got)
}

func TestCreateFolder_Validation(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	existing, err := storage.CreateFolder(ctx, NewFolder{ID: "fixed1", Name: "Work"})
	require.NoError(t, err)
	assert.Equal(t, "fixed1", existing.ID)

	tests := []struct {
		name string
		in   NewFolder
	}{
		{"blank name", NewFolder{Name: "   "}},
		{"bad id", NewFolder{ID: "no-dashes", Name: "x"}},
		{"bad parent", NewFolder{Name: "x", ParentID: strPtr("../etc")}},
		{"missing parent", NewFolder{Name: "x", ParentID: strPtr("nosuchfolder")}},
		{"duplicate id", NewFolder{ID: "fixed1", Name: "Other"}},
		{"duplicate root name", NewFolder{Name: "Work"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.CreateFolder(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, types.IsValidation(err), "got %v", err)
		})
	}

	folders, err := storage.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestCreateFolder_SameNameUnderDifferentParents(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a, err := storage.CreateFolder(ctx, NewFolder{Name: "A"})
	require.NoError(t, err)
	b, err := storage.CreateFolder(ctx, NewFolder{Name: "B"})
	require.NoError(t, err)

	_, err = storage.CreateFolder(ctx, NewFolder{Name: "Archive", ParentID: &a.ID})
	require.NoError(t, err)
	_, err = storage.CreateFolder(ctx, NewFolder{Name: "Archive", ParentID: &b.ID})
	require.NoError(t, err)
	_, err = storage.CreateFolder(ctx, NewFolder{Name: "Archive"})
	require.NoError(t, err)
}

func TestGetFolder_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetFolder(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, types.CodeValidation, types.CodeOf(err))
}

func TestRenameFolder(t *testing.T) {
	storage := setupTestDB(t, WithClock(fakeClock(testEpoch, time.Millisecond)))
	ctx := context.Background()

	f, err := storage.CreateFolder(ctx, NewFolder{Name: "Work"})
	require.NoError(t, err)
	_, err = storage.CreateFolder(ctx, NewFolder{Name: "Home"})
	require.NoError(t, err)

	require.NoError(t, storage.RenameFolder(ctx, f.ID, "Office"))
	got, err := storage.GetFolder(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Office", got.Name)
	assert.Greater(t, got.UpdatedAt, f.UpdatedAt)

	// renaming onto itself is fine, onto a sibling root is not
	require.NoError(t, storage.RenameFolder(ctx, f.ID, "Office"))
	err = storage.RenameFolder(ctx, f.ID, "Home")
	assert.True(t, types.IsValidation(err))

	assert.True(t, types.IsValidation(storage.RenameFolder(ctx, f.ID, "")))
	assert.ErrorIs(t, storage.RenameFolder(ctx, "missing", "x"), types.ErrNotFound)
}

func TestMoveFolder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a, err := storage.CreateFolder(ctx, NewFolder{Name: "A"})
	require.NoError(t, err)
	b, err := storage.CreateFolder(ctx, NewFolder{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := storage.CreateFolder(ctx, NewFolder{Name: "C", ParentID: &b.ID})
	require.NoError(t, err)

	t.Run("onto itself", func(t *testing.T) {
		err := storage.MoveFolder(ctx, a.ID, &a.ID)
		assert.True(t, types.IsValidation(err))
	})

	t.Run("under a descendant", func(t *testing.T) {
		err := storage.MoveFolder(ctx, a.ID, &c.ID)
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))

		got, err := storage.GetFolder(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID, "rejected move must not change the hierarchy")
	})

	t.Run("under a missing parent", func(t *testing.T) {
		err := storage.MoveFolder(ctx, c.ID, strPtr("nosuchfolder"))
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("to the root", func(t *testing.T) {
		require.NoError(t, storage.MoveFolder(ctx, c.ID, nil))
		got, err := storage.GetFolder(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("to the root onto a taken name", func(t *testing.T) {
		dup, err := storage.CreateFolder(ctx, NewFolder{Name: "A", ParentID: &b.ID})
		require.NoError(t, err)
		err = storage.MoveFolder(ctx, dup.ID, nil)
		assert.True(t, types.IsValidation(err))
	})

	t.Run("under a sibling", func(t *testing.T) {
		require.NoError(t, storage.MoveFolder(ctx, c.ID, &b.ID))
		got, err := storage.GetFolder(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, b.ID, *got.ParentID)
	})
}

func TestCheckParent_LegacyCycle(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	// a cycle written before placement checks existed
	_, err := storage.db.ExecContext(ctx, `
		INSERT INTO folders (id, name, created_at, parent_id, updated_at) VALUES
			('x', 'X', 1, NULL, 1),
			('y', 'Y', 1, NULL, 1)
	`)
	require.NoError(t, err)
	_, err = storage.db.ExecContext(ctx, "UPDATE folders SET parent_id = 'y' WHERE id = 'x'")
	require.NoError(t, err)
	_, err = storage.db.ExecContext(ctx, "UPDATE folders SET parent_id = 'x' WHERE id = 'y'")
	require.NoError(t, err)

	z, err := storage.CreateFolder(ctx, NewFolder{Name: "Z"})
	require.NoError(t, err)

	err = storage.MoveFolder(ctx, z.ID, strPtr("x"))
	assert.True(t, types.IsValidation(err), "walk must terminate on a cycle")
}

func TestDeleteFolder_Subtree(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a, err := storage.CreateFolder(ctx, NewFolder{Name: "A"})
	require.NoError(t, err)
	b, err := storage.CreateFolder(ctx, NewFolder{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := storage.CreateFolder(ctx, NewFolder{Name: "C", ParentID: &b.ID})
	require.NoError(t, err)
	other, err := storage.CreateFolder(ctx, NewFolder{Name: "Other"})
	require.NoError(t, err)

	for _, fid := range []string{a.ID, b.ID, c.ID} {
		fid := fid
		_, err := storage.CreateNote(ctx, NewNote{Title: "in " + fid, Body: "doomed", FolderID: &fid})
		require.NoError(t, err)
	}
	survivor, err := storage.CreateNote(ctx, NewNote{Title: "keep", Body: "doomed too?", FolderID: &other.ID})
	require.NoError(t, err)

	require.NoError(t, storage.DeleteFolder(ctx, a.ID))

	folders, err := storage.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, other.ID, folders[0].ID)

	notes, err := storage.ListNotes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, survivor.ID, notes[0].ID)

	// the FTS index lost the deleted bodies as well
	hits, err := storage.MatchNotes(ctx, "doomed", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, survivor.ID, hits[0].ID)

	// absent folders are a no-op
	require.NoError(t, storage.DeleteFolder(ctx, a.ID))
}

func TestEnsureInbox(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	first, err := storage.EnsureInbox(ctx)
	require.NoError(t, err)
	second, err := storage.EnsureInbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	folder, err := storage.GetFolder(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, types.InboxName, folder.Name)
	assert.True(t, folder.IsRoot())
}

func TestEnsureInbox_ReusesExistingRoot(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	existing, err := storage.CreateFolder(ctx, NewFolder{Name: types.InboxName})
	require.NoError(t, err)

	// a nested folder named Inbox does not count
	_, err = storage.CreateFolder(ctx, NewFolder{Name: types.InboxName, ParentID: &existing.ID})
	require.NoError(t, err)

	id, err := storage.EnsureInbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, id)
}
