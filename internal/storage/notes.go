package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/anote/internal/ids"
	"github.com/dshills/anote/pkg/types"
)

// CreateNote files a new note at the top of its folder's manual order.
// A nil FolderID resolves to the Inbox, creating it if needed.
func (s *SQLiteStorage) CreateNote(ctx context.Context, in NewNote) (*types.Note, error) {
	if in.FolderID != nil && !ids.Valid(*in.FolderID) {
		return nil, types.Validation("invalid folder_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var folderID string
	if in.FolderID != nil {
		folderID = *in.FolderID
	} else {
		inbox, err := s.ensureInbox(ctx)
		if err != nil {
			return nil, err
		}
		folderID = inbox
	}

	id, err := s.ids.Next()
	if err != nil {
		return nil, err
	}
	now := s.nowMillis()
	note := &types.Note{
		ID:        id,
		FolderID:  folderID,
		Title:     in.Title,
		Body:      in.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.withTx(ctx, OpCreateNote, func(q querier) error {
		exists, err := folderExists(ctx, q, folderID)
		if err != nil {
			return err
		}
		if !exists {
			return types.NotFound("folder")
		}

		// new unpinned notes take position 0; everyone else moves down one
		_, err = q.ExecContext(ctx,
			"UPDATE notes SET sort_order = sort_order + 1 WHERE folder_id = ? AND pinned = 0", folderID)
		if err != nil {
			return fmt.Errorf("failed to shift note order: %w", err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO notes (id, folder_id, title, body, created_at, updated_at, pinned, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, 0, 0)
		`, note.ID, note.FolderID, note.Title, note.Body, note.CreatedAt, note.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote overwrites title and body only if the stored updated_at is not
// newer than the supplied one, and returns the updated_at written. A stale
// write fails with CONFLICT and leaves the row unchanged.
func (s *SQLiteStorage) UpdateNote(ctx context.Context, in NoteUpdate) (int64, error) {
	if !ids.Valid(in.ID) {
		return 0, types.Validation("invalid note id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedAt := s.nowMillis()
	if in.UpdatedAt != nil {
		updatedAt = *in.UpdatedAt
	}

	// Equal timestamps are accepted: last writer wins on a tie.
	n, err := s.execWrite(ctx, OpUpdateNote, `
		UPDATE notes
		SET title = ?, body = ?, updated_at = ?
		WHERE id = ? AND updated_at <= ?
	`, in.Title, in.Body, updatedAt, in.ID, updatedAt)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return updatedAt, nil
	}

	exists, err := noteExists(ctx, s.querier(), in.ID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, types.NotFound("note")
	}
	return 0, types.Conflict("stale note update rejected")
}

// DeleteNote removes a note. Deleting an absent note is not an error.
func (s *SQLiteStorage) DeleteNote(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return types.Validation("invalid note id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.execWrite(ctx, OpDeleteNote, "DELETE FROM notes WHERE id = ?", id)
	return err
}

// SetPinned pins or unpins a note. Pinned notes keep their sort_order but
// are skipped when new notes shift the folder's order.
func (s *SQLiteStorage) SetPinned(ctx context.Context, id string, pinned bool) error {
	if !ids.Valid(id) {
		return types.Validation("invalid note id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.execWrite(ctx, OpSetPinned, "UPDATE notes SET pinned = ? WHERE id = ?", boolInt(pinned), id)
	if err != nil {
		return err
	}
	if n == 0 {
		exists, err := noteExists(ctx, s.querier(), id)
		if err != nil {
			return err
		}
		if !exists {
			return types.NotFound("note")
		}
	}
	return nil
}

// ReorderNotes assigns sort positions. Every id is validated before any
// row is touched; the updates then apply in one transaction, one
// statement per note.
func (s *SQLiteStorage) ReorderNotes(ctx context.Context, updates []OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if !ids.Valid(u.ID) {
			return types.Validationf("invalid note id %q", u.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, OpReorderNotes, func(q querier) error {
		for _, u := range updates {
			if _, err := q.ExecContext(ctx, "UPDATE notes SET sort_order = ? WHERE id = ?", u.SortOrder, u.ID); err != nil {
				return fmt.Errorf("failed to reorder note %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// GetNote returns a note with its body and folder name
func (s *SQLiteStorage) GetNote(ctx context.Context, id string) (*types.NoteDetail, error) {
	if !ids.Valid(id) {
		return nil, types.Validation("invalid note id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT n.id, n.folder_id, n.title, n.body, n.created_at, n.updated_at,
		       n.pinned, n.sort_order, COALESCE(f.name, '')
		FROM notes n
		LEFT JOIN folders f ON f.id = n.folder_id
		WHERE n.id = ?
	`
	var d types.NoteDetail
	err := s.querier().QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.FolderID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt,
		&d.Pinned, &d.SortOrder, &d.FolderName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("note")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &d, nil
}

// ListNotes returns note metadata, pinned notes first and then by manual
// order. A nil folderID lists every folder.
func (s *SQLiteStorage) ListNotes(ctx context.Context, folderID *string) ([]types.NoteMeta, error) {
	if folderID != nil && !ids.Valid(*folderID) {
		return nil, types.Validation("invalid folder_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, folder_id, title, substr(body, 1, ?), created_at, updated_at, pinned, sort_order
		FROM notes
		WHERE (? IS NULL OR folder_id = ?)
		ORDER BY folder_id, pinned DESC, sort_order ASC, updated_at DESC
	`
	fid := nullString(folderID)
	rows, err := s.querier().QueryContext(ctx, query, types.PreviewLength, fid, fid)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []types.NoteMeta{}
	for rows.Next() {
		var m types.NoteMeta
		if err := rows.Scan(&m.ID, &m.FolderID, &m.Title, &m.Preview, &m.CreatedAt, &m.UpdatedAt,
			&m.Pinned, &m.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, m)
	}
	return notes, rows.Err()
}

func noteExists(ctx context.Context, q querier, id string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(1) FROM notes WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check note: %w", err)
	}
	return n > 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
