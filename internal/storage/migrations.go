package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// CurrentSchemaVersion is the user_version of a fully migrated file
	CurrentSchemaVersion = 4
)

// baseSchema is the oldest layout still found in the wild. Columns added
// later are the business of the numbered migrations below, so a fresh file
// and an old file converge through the same steps.
const baseSchema = `
CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    folder_id TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder_id);

-- Full-text search over notes, external content keyed by rowid
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
    title, body,
    content='notes',
    content_rowid='rowid'
);

-- Triggers to keep FTS in sync. External-content entries cannot be
-- patched, so an update removes the old entry and adds the new one.
CREATE TRIGGER IF NOT EXISTS notes_ai AFTER INSERT ON notes BEGIN
    INSERT INTO notes_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
END;

CREATE TRIGGER IF NOT EXISTS notes_ad AFTER DELETE ON notes BEGIN
    INSERT INTO notes_fts(notes_fts, rowid, title, body) VALUES ('delete', old.rowid, old.title, old.body);
END;

CREATE TRIGGER IF NOT EXISTS notes_au AFTER UPDATE ON notes BEGIN
    INSERT INTO notes_fts(notes_fts, rowid, title, body) VALUES ('delete', old.rowid, old.title, old.body);
    INSERT INTO notes_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
END;
`

// Migration is one numbered schema step. Apply must be re-entrant: every
// change it makes is guarded by an existence check.
type Migration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, q querier) error
}

// AllMigrations contains all schema migrations in order
var AllMigrations = []Migration{
	{Version: 1, Name: "note pinning and manual order", Apply: migrateNoteOrdering},
	{Version: 2, Name: "nested folders", Apply: migrateFolderParents},
	{Version: 3, Name: "folder timestamps and unique root names", Apply: migrateFolderRootNames},
	{Version: 4, Name: "tags", Apply: migrateTags},
}

// initSchema creates the base tables and runs every pending migration
func (s *SQLiteStorage) initSchema(ctx context.Context) error {
	err := s.withTx(ctx, OpMigrate, func(q querier) error {
		if _, err := q.ExecContext(ctx, baseSchema); err != nil {
			return fmt.Errorf("create base schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.migrateTo(ctx, CurrentSchemaVersion)
}

// migrateTo applies migrations up to and including target. Each step runs
// in its own immediate transaction and re-reads user_version once the
// write lock is held, so concurrent openers apply each step exactly once
// and a crash between steps resumes at the first unapplied one.
func (s *SQLiteStorage) migrateTo(ctx context.Context, target int) error {
	for _, m := range AllMigrations {
		if m.Version > target {
			break
		}

		applied := false
		err := s.withTx(ctx, OpMigrate, func(q querier) error {
			current, err := userVersion(ctx, q)
			if err != nil {
				return err
			}
			if current >= m.Version {
				return nil
			}
			if err := m.Apply(ctx, q); err != nil {
				return err
			}
			applied = true
			return setUserVersion(ctx, q, m.Version)
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if applied {
			s.logger.Info("applied migration", "version", m.Version, "name", m.Name)
		}
	}
	return nil
}

// SchemaVersion returns the migration counter stored in the file
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userVersion(ctx, s.querier())
}

func migrateNoteOrdering(ctx context.Context, q querier) error {
	if err := addColumnIfMissing(ctx, q, "notes", "pinned", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}

	hasSortOrder, err := columnExists(ctx, q, "notes", "sort_order")
	if err != nil {
		return err
	}
	if hasSortOrder {
		return nil
	}
	if _, err := q.ExecContext(ctx, "ALTER TABLE notes ADD COLUMN sort_order INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("add notes.sort_order: %w", err)
	}

	// Preserve the order users saw before manual ordering existed:
	// most recently edited first.
	backfill := `
		WITH ranked AS (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY folder_id ORDER BY updated_at DESC) - 1 AS rn
			FROM notes
		)
		UPDATE notes SET sort_order = (SELECT rn FROM ranked WHERE ranked.id = notes.id)
	`
	if _, err := q.ExecContext(ctx, backfill); err != nil {
		return fmt.Errorf("backfill notes.sort_order: %w", err)
	}
	return nil
}

func migrateFolderParents(ctx context.Context, q querier) error {
	return addColumnIfMissing(ctx, q, "folders", "parent_id", "TEXT REFERENCES folders(id) ON DELETE SET NULL")
}

func migrateFolderRootNames(ctx context.Context, q querier) error {
	if err := addColumnIfMissing(ctx, q, "folders", "updated_at", "INTEGER"); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, "UPDATE folders SET updated_at = created_at WHERE updated_at IS NULL"); err != nil {
		return fmt.Errorf("backfill folders.updated_at: %w", err)
	}
	if err := renameDuplicateRoots(ctx, q); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_name_root ON folders(name) WHERE parent_id IS NULL"); err != nil {
		return fmt.Errorf("create idx_folders_name_root: %w", err)
	}
	return nil
}

func migrateTags(ctx context.Context, q querier) error {
	const tags = `
		CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT DEFAULT '#888888'
		);

		CREATE TABLE IF NOT EXISTS note_tags (
			note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
			tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (note_id, tag_id)
		);
	`
	if _, err := q.ExecContext(ctx, tags); err != nil {
		return fmt.Errorf("create tag tables: %w", err)
	}
	return nil
}

// renameDuplicateRoots gives every root folder but the oldest of each name
// a numbered name, so the unique root-name index can be built over files
// written before it existed.
func renameDuplicateRoots(ctx context.Context, q querier) error {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name FROM folders WHERE parent_id IS NULL ORDER BY name, created_at, id")
	if err != nil {
		return fmt.Errorf("list root folders: %w", err)
	}

	type root struct{ id, name string }
	var roots []root
	taken := make(map[string]bool)
	for rows.Next() {
		var r root
		if err := rows.Scan(&r.id, &r.name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan root folder: %w", err)
		}
		roots = append(roots, r)
		taken[r.name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[string]int)
	for _, r := range roots {
		seen[r.name]++
		if seen[r.name] == 1 {
			continue
		}
		n := seen[r.name]
		candidate := fmt.Sprintf("%s (%d)", r.name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s (%d)", r.name, n)
		}
		taken[candidate] = true
		if _, err := q.ExecContext(ctx, "UPDATE folders SET name = ? WHERE id = ?", candidate, r.id); err != nil {
			return fmt.Errorf("rename duplicate root folder %s: %w", r.id, err)
		}
	}
	return nil
}

func userVersion(ctx context.Context, q querier) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func setUserVersion(ctx context.Context, q querier, v int) error {
	// PRAGMA arguments cannot be bound; v is always one of our constants.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

func addColumnIfMissing(ctx context.Context, q querier, table, column, decl string) error {
	exists, err := columnExists(ctx, q, table, column)
	if err != nil || exists {
		return err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}
