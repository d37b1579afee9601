package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/anote/pkg/types"
)

const summaryColumns = `n.id, n.folder_id, n.title, substr(n.body, 1, ?), n.updated_at, COALESCE(f.name, '')`

// RecentNotes returns the most recently updated notes, newest first
func (s *SQLiteStorage) RecentNotes(ctx context.Context, limit int) ([]types.NoteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT ` + summaryColumns + `
		FROM notes n
		LEFT JOIN folders f ON f.id = n.folder_id
		ORDER BY n.updated_at DESC
		LIMIT ?
	`
	return querySummaries(ctx, s.querier(), query, types.PreviewLength, limit)
}

// MatchNotes runs expr as an FTS5 MATCH expression, best match first.
// Malformed expressions return the engine's error unchanged; deciding what
// to do about it is the caller's business.
func (s *SQLiteStorage) MatchNotes(ctx context.Context, expr string, limit int) ([]types.NoteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT ` + summaryColumns + `
		FROM notes_fts
		JOIN notes n ON n.rowid = notes_fts.rowid
		LEFT JOIN folders f ON f.id = n.folder_id
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`
	return querySummaries(ctx, s.querier(), query, types.PreviewLength, expr, limit)
}

// LikeNotes returns notes whose title or body contains text literally,
// newest first.
func (s *SQLiteStorage) LikeNotes(ctx context.Context, text string, limit int) ([]types.NoteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT ` + summaryColumns + `
		FROM notes n
		LEFT JOIN folders f ON f.id = n.folder_id
		WHERE n.title LIKE ? ESCAPE '\' OR n.body LIKE ? ESCAPE '\'
		ORDER BY n.updated_at DESC
		LIMIT ?
	`
	pattern := "%" + EscapeLike(text) + "%"
	return querySummaries(ctx, s.querier(), query, types.PreviewLength, pattern, pattern, limit)
}

// EscapeLike escapes LIKE wildcards and the escape character itself, for
// use with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func querySummaries(ctx context.Context, q querier, query string, args ...interface{}) ([]types.NoteSummary, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer rows.Close()

	results := []types.NoteSummary{}
	for rows.Next() {
		var r types.NoteSummary
		if err := rows.Scan(&r.ID, &r.FolderID, &r.Title, &r.Preview, &r.UpdatedAt, &r.FolderName); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	// FTS5 reports some syntax errors only once stepping starts
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	return results, nil
}
