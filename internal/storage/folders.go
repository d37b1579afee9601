package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/anote/internal/ids"
	"github.com/dshills/anote/pkg/types"
)

// maxFolderDepth bounds ancestor walks over legacy data that may already
// contain a cycle.
const maxFolderDepth = 10000

const folderColumns = `id, name, created_at, parent_id, COALESCE(updated_at, created_at)`

func scanFolder(row rowScanner) (*types.Folder, error) {
	var f types.Folder
	var parent sql.NullString
	if err := row.Scan(&f.ID, &f.Name, &f.CreatedAt, &parent, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.String
		f.ParentID = &p
	}
	return &f, nil
}

// listFoldersWithQuerier is the internal implementation that uses a querier
func listFoldersWithQuerier(ctx context.Context, q querier) ([]types.Folder, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+folderColumns+" FROM folders ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	folders := []types.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

// ListFolders returns every folder, oldest first
func (s *SQLiteStorage) ListFolders(ctx context.Context) ([]types.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listFoldersWithQuerier(ctx, s.querier())
}

// getFolderWithQuerier is the internal implementation that uses a querier
func getFolderWithQuerier(ctx context.Context, q querier, id string) (*types.Folder, error) {
	f, err := scanFolder(q.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("folder")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return f, nil
}

// GetFolder returns one folder
func (s *SQLiteStorage) GetFolder(ctx context.Context, id string) (*types.Folder, error) {
	if !ids.Valid(id) {
		return nil, types.Validation("invalid folder id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return getFolderWithQuerier(ctx, s.querier(), id)
}

// CreateFolder inserts a folder at the root or under ParentID
func (s *SQLiteStorage) CreateFolder(ctx context.Context, in NewFolder) (*types.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, types.Validation("folder name is required")
	}
	if in.ID != "" && !ids.Valid(in.ID) {
		return nil, types.Validation("invalid folder id")
	}
	if in.ParentID != nil && !ids.Valid(*in.ParentID) {
		return nil, types.Validation("invalid parent_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := in.ID
	if id == "" {
		var err error
		if id, err = s.ids.Next(); err != nil {
			return nil, err
		}
	}

	now := s.nowMillis()
	folder := &types.Folder{ID: id, Name: name, CreatedAt: now, UpdatedAt: now, ParentID: in.ParentID}

	err := s.withTx(ctx, OpCreateFolder, func(q querier) error {
		if in.ID != "" {
			if exists, err := folderExists(ctx, q, id); err != nil {
				return err
			} else if exists {
				return types.Validationf("folder %s already exists", id)
			}
		}
		if err := s.checkPlacement(ctx, q, id, name, in.ParentID); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx,
			"INSERT INTO folders (id, name, created_at, parent_id, updated_at) VALUES (?, ?, ?, ?, ?)",
			id, name, now, nullString(in.ParentID), now)
		if err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// RenameFolder changes a folder's name and touches updated_at
func (s *SQLiteStorage) RenameFolder(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Validation("folder name is required")
	}
	if !ids.Valid(id) {
		return types.Validation("invalid folder id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, OpRenameFolder, func(q querier) error {
		folder, err := getFolderWithQuerier(ctx, q, id)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			if err := checkRootName(ctx, q, name, id); err != nil {
				return err
			}
		}
		_, err = q.ExecContext(ctx, "UPDATE folders SET name = ?, updated_at = ? WHERE id = ?",
			name, s.nowMillis(), id)
		if err != nil {
			return fmt.Errorf("failed to rename folder: %w", err)
		}
		return nil
	})
}

// MoveFolder reparents a folder; a nil parentID moves it to the root
func (s *SQLiteStorage) MoveFolder(ctx context.Context, id string, parentID *string) error {
	if !ids.Valid(id) {
		return types.Validation("invalid folder id")
	}
	if parentID != nil && !ids.Valid(*parentID) {
		return types.Validation("invalid parent_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, OpMoveFolder, func(q querier) error {
		folder, err := getFolderWithQuerier(ctx, q, id)
		if err != nil {
			return err
		}
		if err := s.checkPlacement(ctx, q, id, folder.Name, parentID); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, "UPDATE folders SET parent_id = ?, updated_at = ? WHERE id = ?",
			nullString(parentID), s.nowMillis(), id)
		if err != nil {
			return fmt.Errorf("failed to move folder: %w", err)
		}
		return nil
	})
}

// checkPlacement validates putting folder id named name under parentID
func (s *SQLiteStorage) checkPlacement(ctx context.Context, q querier, id, name string, parentID *string) error {
	if parentID == nil {
		return checkRootName(ctx, q, name, id)
	}
	return checkParent(ctx, q, id, *parentID)
}

// checkParent walks the proposed parent's ancestor chain and rejects the
// placement if it reaches folderID.
func checkParent(ctx context.Context, q querier, folderID, parentID string) error {
	if parentID == folderID {
		return types.Validation("folder cannot be its own parent")
	}

	visited := make(map[string]bool)
	current := parentID
	for depth := 0; ; depth++ {
		if depth >= maxFolderDepth || visited[current] {
			return types.Validation("folder hierarchy contains a cycle")
		}
		visited[current] = true

		var parent sql.NullString
		err := q.QueryRowContext(ctx, "SELECT parent_id FROM folders WHERE id = ?", current).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			if current == parentID {
				return types.NotFound("parent folder")
			}
			// dangling ancestor: the chain ends here
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to walk folder ancestors: %w", err)
		}
		if !parent.Valid {
			return nil
		}
		if parent.String == folderID {
			return types.Validation("folder cannot be moved under its own descendant")
		}
		current = parent.String
	}
}

// checkRootName rejects a root-level name already used by another root folder
func checkRootName(ctx context.Context, q querier, name, exceptID string) error {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM folders WHERE parent_id IS NULL AND name = ? AND id != ?", name, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check root folder name: %w", err)
	}
	if n > 0 {
		return types.Validationf("a root folder named %q already exists", name)
	}
	return nil
}

func folderExists(ctx context.Context, q querier, id string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(1) FROM folders WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check folder: %w", err)
	}
	return n > 0, nil
}

// DeleteFolder removes a folder, every descendant folder and every note
// filed anywhere in that subtree. Deleting an absent folder is a no-op.
func (s *SQLiteStorage) DeleteFolder(ctx context.Context, id string) error {
	if !ids.Valid(id) {
		return types.Validation("invalid folder id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, OpDeleteFolder, func(q querier) error {
		exists, err := folderExists(ctx, q, id)
		if err != nil || !exists {
			return err
		}

		subtree, err := collectSubtree(ctx, q, id)
		if err != nil {
			return err
		}

		var notes int64
		for _, fid := range subtree {
			res, err := q.ExecContext(ctx, "DELETE FROM notes WHERE folder_id = ?", fid)
			if err != nil {
				return fmt.Errorf("failed to delete notes of folder %s: %w", fid, err)
			}
			n, _ := res.RowsAffected()
			notes += n
		}

		// deepest first, so no child is ever orphaned to the root
		for i := len(subtree) - 1; i >= 0; i-- {
			if _, err := q.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", subtree[i]); err != nil {
				return fmt.Errorf("failed to delete folder %s: %w", subtree[i], err)
			}
		}

		s.logger.Debug("deleted folder subtree", "folder_id", id, "folders", len(subtree), "notes", notes)
		return nil
	})
}

// collectSubtree returns root and all its descendants in breadth-first
// order. The visited set keeps a cyclic legacy hierarchy from looping.
func collectSubtree(ctx context.Context, q querier, root string) ([]string, error) {
	visited := map[string]bool{root: true}
	order := []string{root}

	for i := 0; i < len(order); i++ {
		children, err := childFolderIDs(ctx, q, order[i])
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			order = append(order, child)
		}
	}
	return order, nil
}

func childFolderIDs(ctx context.Context, q querier, parentID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM folders WHERE parent_id = ?", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	defer rows.Close()

	var children []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child folder: %w", err)
		}
		children = append(children, id)
	}
	return children, rows.Err()
}

// EnsureInbox returns the id of the root "Inbox" folder, creating it when
// absent. Concurrent callers in any number of processes agree on one id.
func (s *SQLiteStorage) EnsureInbox(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureInbox(ctx)
}

func (s *SQLiteStorage) ensureInbox(ctx context.Context) (string, error) {
	var inboxID string
	err := s.withTx(ctx, OpEnsureInbox, func(q querier) error {
		// re-check now that the write lock is held
		id, err := findRootFolder(ctx, q, types.InboxName)
		if err == nil {
			inboxID = id
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		newID, err := s.ids.Next()
		if err != nil {
			return err
		}
		now := s.nowMillis()
		// OR IGNORE: the partial unique index on root names turns a lost
		// race into a no-op instead of an error.
		_, err = q.ExecContext(ctx,
			"INSERT OR IGNORE INTO folders (id, name, created_at, parent_id, updated_at) VALUES (?, ?, ?, NULL, ?)",
			newID, types.InboxName, now, now)
		if err != nil {
			return fmt.Errorf("failed to create inbox: %w", err)
		}

		inboxID, err = findRootFolder(ctx, q, types.InboxName)
		if err != nil {
			return fmt.Errorf("failed to read inbox: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return inboxID, nil
}

// findRootFolder returns the oldest root folder with the given name or
// sql.ErrNoRows.
func findRootFolder(ctx context.Context, q querier, name string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		"SELECT id FROM folders WHERE name = ? AND parent_id IS NULL ORDER BY created_at ASC LIMIT 1",
		name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("failed to find root folder %q: %w", name, err)
	}
	return id, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
