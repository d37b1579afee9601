package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/anote/internal/ids"
	"github.com/dshills/anote/pkg/types"
)

// Import inserts folders and notes whose ids are not yet present, leaving
// existing rows untouched. The batch is one transaction: if any row is
// rejected, nothing is written; that includes parent links that would
// form a cycle. Applying the same batch twice yields the
// same state as applying it once.
//
// A root folder whose name is already used by another root folder is
// merged into that folder: its children and notes are filed there.
func (s *SQLiteStorage) Import(ctx context.Context, folders []types.Folder, notes []types.Note) (*ImportResult, error) {
	for _, f := range folders {
		if !ids.Valid(f.ID) {
			return nil, types.Validationf("invalid folder id %q", f.ID)
		}
		if f.ParentID != nil && !ids.Valid(*f.ParentID) {
			return nil, types.Validationf("invalid parent_id %q on folder %s", *f.ParentID, f.ID)
		}
	}
	for _, n := range notes {
		if !ids.Valid(n.ID) {
			return nil, types.Validationf("invalid note id %q", n.ID)
		}
		if !ids.Valid(n.FolderID) {
			return nil, types.Validationf("invalid folder_id %q on note %s", n.FolderID, n.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &ImportResult{}
	err := s.withTx(ctx, OpImport, func(q querier) error {
		// parents may appear after their children in the batch
		if _, err := q.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
			return fmt.Errorf("defer foreign keys: %w", err)
		}

		remap := make(map[string]string)
		resolve := func(id string) string {
			if to, ok := remap[id]; ok {
				return to
			}
			return id
		}

		// roots first, so merges are known before children are placed
		ordered := make([]types.Folder, 0, len(folders))
		for _, f := range folders {
			if f.ParentID == nil {
				ordered = append(ordered, f)
			}
		}
		for _, f := range folders {
			if f.ParentID != nil {
				ordered = append(ordered, f)
			}
		}

		type placed struct{ id, parent string }
		var nested []placed
		for _, f := range ordered {
			updatedAt := f.UpdatedAt
			if updatedAt == 0 {
				updatedAt = f.CreatedAt
			}
			var parent *string
			if f.ParentID != nil {
				p := resolve(*f.ParentID)
				parent = &p
			}

			res, err := q.ExecContext(ctx,
				"INSERT OR IGNORE INTO folders (id, name, created_at, parent_id, updated_at) VALUES (?, ?, ?, ?, ?)",
				f.ID, f.Name, f.CreatedAt, nullString(parent), updatedAt)
			if err != nil {
				return fmt.Errorf("failed to import folder %s: %w", f.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.FoldersAdded++
				if parent != nil {
					nested = append(nested, placed{f.ID, *parent})
				}
				continue
			}

			exists, err := folderExists(ctx, q, f.ID)
			if err != nil {
				return err
			}
			if exists || parent != nil {
				continue
			}
			// ignored without an id clash: a root name collision
			target, err := findRootFolder(ctx, q, f.Name)
			if err != nil {
				return fmt.Errorf("failed to resolve merged folder %s: %w", f.ID, err)
			}
			remap[f.ID] = target
			result.FoldersMerged++
		}

		for _, p := range nested {
			// a missing parent is reported by the foreign key check
			err := checkParent(ctx, q, p.id, p.parent)
			switch {
			case err == nil, errors.Is(err, types.ErrNotFound):
			case types.IsValidation(err):
				return types.Validationf("import would create a folder cycle at %s: %v", p.id, err)
			default:
				return err
			}
		}

		for _, n := range notes {
			res, err := q.ExecContext(ctx, `
				INSERT OR IGNORE INTO notes (id, folder_id, title, body, created_at, updated_at, pinned, sort_order)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, n.ID, resolve(n.FolderID), n.Title, n.Body, n.CreatedAt, n.UpdatedAt, boolInt(n.Pinned), n.SortOrder)
			if err != nil {
				return fmt.Errorf("failed to import note %s: %w", n.ID, err)
			}
			if c, _ := res.RowsAffected(); c > 0 {
				result.NotesAdded++
			}
		}

		return checkForeignKeys(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkForeignKeys turns dangling references into a VALIDATION error
// before the deferred constraint check would fail the commit.
func checkForeignKeys(ctx context.Context, q querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var table, parent string
		var rowid, fkid interface{}
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("scan foreign key check: %w", err)
		}
		return types.Validationf("import leaves %s rows referencing missing %s", table, parent)
	}
	return rows.Err()
}

// ExportSnapshot reads every folder and note from one consistent snapshot
func (s *SQLiteStorage) ExportSnapshot(ctx context.Context) (*types.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &types.Snapshot{
		Version:    types.SnapshotVersion,
		ExportedAt: s.nowMillis(),
	}
	err := s.withTx(ctx, OpExport, func(q querier) error {
		folders, err := listFoldersWithQuerier(ctx, q)
		if err != nil {
			return err
		}
		notes, err := listAllNotesWithQuerier(ctx, q)
		if err != nil {
			return err
		}
		snap.Folders = folders
		snap.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func listAllNotesWithQuerier(ctx context.Context, q querier) ([]types.Note, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, folder_id, title, body, created_at, updated_at, pinned, sort_order
		FROM notes
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []types.Note{}
	for rows.Next() {
		var n types.Note
		if err := rows.Scan(&n.ID, &n.FolderID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt,
			&n.Pinned, &n.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// SyncToken returns the newest updated_at across notes and folders, or 0
// for an empty store. It never decreases while every write goes through
// this package, which lets observers detect foreign edits cheaply.
func (s *SQLiteStorage) SyncToken(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return syncTokenWithQuerier(ctx, s.querier())
}

func syncTokenWithQuerier(ctx context.Context, q querier) (int64, error) {
	var token int64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(updated_at) FROM notes), 0),
			COALESCE((SELECT MAX(COALESCE(updated_at, created_at)) FROM folders), 0)
		)
	`).Scan(&token)
	if err != nil {
		return 0, fmt.Errorf("failed to read sync token: %w", err)
	}
	return token, nil
}

// ChangeStamp returns a value that changes whenever this process or any
// other connection commits to the file.
func (s *SQLiteStorage) ChangeStamp(ctx context.Context) (ChangeStamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stamp ChangeStamp
	if err := s.querier().QueryRowContext(ctx, "PRAGMA data_version").Scan(&stamp.Data); err != nil {
		return ChangeStamp{}, fmt.Errorf("failed to read data_version: %w", err)
	}
	stamp.Local = s.writes.Load()
	return stamp, nil
}

// GetStatus returns counts and health information for the store
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*StoreStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.querier()
	status := &StoreStatus{Path: s.path}

	version, err := userVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM folders", &status.FoldersCount},
		{"SELECT COUNT(*) FROM notes", &status.NotesCount},
		{"SELECT COUNT(*) FROM tags", &status.TagsCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if status.SyncToken, err = syncTokenWithQuerier(ctx, q); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	status.Health.DatabaseAccessible = true
	var ftsTables int
	err = q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'notes_fts'").Scan(&ftsTables)
	status.Health.FTSIndexBuilt = err == nil && ftsTables > 0

	return status, nil
}
