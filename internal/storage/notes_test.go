package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/anote/pkg/types"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCreateNote_DefaultsToInbox(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "Groceries", Body: "eggs"})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, note.CreatedAt, note.UpdatedAt)

	inbox, err := storage.EnsureInbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, inbox, note.FolderID)

	got, err := storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, types.InboxName, got.FolderName)
	assert.Equal(t, "eggs", got.Body)
	assert.False(t, got.Pinned)
}

func TestCreateNote_UnknownFolder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, err := storage.CreateNote(ctx, NewNote{Title: "x", FolderID: strPtr("nosuchfolder")})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = storage.CreateNote(ctx, NewNote{Title: "x", FolderID: strPtr("bad id")})
	assert.True(t, types.IsValidation(err))

	notes, err := storage.ListNotes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCreateNote_TakesTopPosition(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	folder, err := storage.CreateFolder(ctx, NewFolder{Name: "Work"})
	require.NoError(t, err)

	first, err := storage.CreateNote(ctx, NewNote{Title: "first", FolderID: &folder.ID})
	require.NoError(t, err)
	pinned, err := storage.CreateNote(ctx, NewNote{Title: "pinned", FolderID: &folder.ID})
	require.NoError(t, err)
	require.NoError(t, storage.SetPinned(ctx, pinned.ID, true))
	second, err := storage.CreateNote(ctx, NewNote{Title: "second", FolderID: &folder.ID})
	require.NoError(t, err)

	notes, err := storage.ListNotes(ctx, &folder.ID)
	require.NoError(t, err)
	require.Len(t, notes, 3)

	assert.Equal(t, pinned.ID, notes[0].ID, "pinned notes list first")
	assert.True(t, notes[0].Pinned)
	assert.Equal(t, 0, notes[0].SortOrder, "pinned notes are not shifted")
	assert.Equal(t, second.ID, notes[1].ID)
	assert.Equal(t, 0, notes[1].SortOrder)
	assert.Equal(t, first.ID, notes[2].ID)
	assert.Equal(t, 2, notes[2].SortOrder)
}

func TestUpdateNote(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "Draft", Body: "first words"})
	require.NoError(t, err)

	at := note.UpdatedAt + 10
	written, err := storage.UpdateNote(ctx, NoteUpdate{
		ID: note.ID, Title: "Final", Body: "last words", UpdatedAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, at, written)

	got, err := storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, "last words", got.Body)
	assert.Equal(t, at, got.UpdatedAt)
	assert.Equal(t, note.CreatedAt, got.CreatedAt)
}

func TestUpdateNote_OverwritesBothFields(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "T", Body: "secret"})
	require.NoError(t, err)

	// an empty body clears the stored one
	_, err = storage.UpdateNote(ctx, NoteUpdate{ID: note.ID, Title: "new",
		UpdatedAt: int64Ptr(note.UpdatedAt + 1)})
	require.NoError(t, err)

	got, err := storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "", got.Body)

	hits, err := storage.MatchNotes(ctx, "secret", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpdateNote_StaleWriteRejected(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "v1", Body: "v1"})
	require.NoError(t, err)

	newer := note.UpdatedAt + 100
	_, err = storage.UpdateNote(ctx, NoteUpdate{ID: note.ID, Title: "v2", Body: "v2", UpdatedAt: &newer})
	require.NoError(t, err)

	older := note.UpdatedAt + 50
	_, err = storage.UpdateNote(ctx, NoteUpdate{ID: note.ID, Title: "v0", Body: "v0", UpdatedAt: &older})
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))
	assert.ErrorIs(t, err, types.ErrStale)

	got, err := storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, "v2", got.Body)
	assert.Equal(t, newer, got.UpdatedAt)
}

func TestUpdateNote_TieAccepted(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "v1"})
	require.NoError(t, err)

	same := note.UpdatedAt
	_, err = storage.UpdateNote(ctx, NoteUpdate{ID: note.ID, Title: "v2", UpdatedAt: &same})
	require.NoError(t, err)

	got, err := storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
}

func TestUpdateNote_DefaultsToNow(t *testing.T) {
	clock := fakeClock(testEpoch, time.Second)
	storage := setupTestDB(t, WithClock(clock))
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "v1"})
	require.NoError(t, err)

	written, err := storage.UpdateNote(ctx, NoteUpdate{ID: note.ID, Title: "v2"})
	require.NoError(t, err)
	assert.Greater(t, written, note.UpdatedAt)
}

func TestUpdateNote_Missing(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.UpdateNote(context.Background(), NoteUpdate{ID: "missing", Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, types.IsConflict(err))
}

func TestUpdateNote_ReindexesSearch(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "Recipe", Body: "pumpkin soup"})
	require.NoError(t, err)
	_, err = storage.UpdateNote(ctx, NoteUpdate{ID: note.ID, Body: "lentil stew",
		UpdatedAt: int64Ptr(note.UpdatedAt + 1)})
	require.NoError(t, err)

	hits, err := storage.MatchNotes(ctx, "pumpkin", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = storage.MatchNotes(ctx, "lentil", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, note.ID, hits[0].ID)
}

func TestDeleteNote(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "gone", Body: "ephemeral"})
	require.NoError(t, err)

	require.NoError(t, storage.DeleteNote(ctx, note.ID))
	_, err = storage.GetNote(ctx, note.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	hits, err := storage.MatchNotes(ctx, "ephemeral", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.NoError(t, storage.DeleteNote(ctx, note.ID), "deleting twice is a no-op")
	assert.True(t, types.IsValidation(storage.DeleteNote(ctx, "")))
}

func TestSetPinned(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	note, err := storage.CreateNote(ctx, NewNote{Title: "pin me"})
	require.NoError(t, err)

	require.NoError(t, storage.SetPinned(ctx, note.ID, true))
	// setting the same value again still succeeds
	require.NoError(t, storage.SetPinned(ctx, note.ID, true))

	got, err := storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.True(t, got.Pinned)

	require.NoError(t, storage.SetPinned(ctx, note.ID, false))
	got, err = storage.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.False(t, got.Pinned)

	assert.ErrorIs(t, storage.SetPinned(ctx, "missing", true), types.ErrNotFound)
}

func TestReorderNotes(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a, err := storage.CreateNote(ctx, NewNote{Title: "a"})
	require.NoError(t, err)
	b, err := storage.CreateNote(ctx, NewNote{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, storage.ReorderNotes(ctx, []OrderUpdate{
		{ID: a.ID, SortOrder: 0},
		{ID: b.ID, SortOrder: 1},
	}))

	notes, err := storage.ListNotes(ctx, &a.FolderID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, a.ID, notes[0].ID)
	assert.Equal(t, b.ID, notes[1].ID)

	// one bad id rejects the whole batch before anything is written
	err = storage.ReorderNotes(ctx, []OrderUpdate{
		{ID: a.ID, SortOrder: 5},
		{ID: "not valid!", SortOrder: 6},
	})
	assert.True(t, types.IsValidation(err))
	got, err := storage.GetNote(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SortOrder)

	assert.NoError(t, storage.ReorderNotes(ctx, nil))
}

func TestListNotes(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	work, err := storage.CreateFolder(ctx, NewFolder{Name: "Work"})
	require.NoError(t, err)
	_, err = storage.CreateNote(ctx, NewNote{Title: "inbox note"})
	require.NoError(t, err)
	long := make([]byte, types.PreviewLength+50)
	for i := range long {
		long[i] = 'x'
	}
	_, err = storage.CreateNote(ctx, NewNote{Title: "work note", Body: string(long), FolderID: &work.ID})
	require.NoError(t, err)

	all, err := storage.ListNotes(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := storage.ListNotes(ctx, &work.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "work note", scoped[0].Title)
	assert.Len(t, scoped[0].Preview, types.PreviewLength)

	empty, err := storage.ListNotes(ctx, strPtr("nosuchfolder"))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
