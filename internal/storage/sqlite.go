package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/anote/internal/ids"
)

const (
	// DefaultLockWait bounds how long a writer waits for another writer
	// to release the file lock before failing.
	DefaultLockWait = 5 * time.Second

	// BridgeLockWait is the lock wait used by one-shot bridge processes.
	BridgeLockWait = 2 * time.Second
)

// SQLiteStorage implements the Storage interface using SQLite.
//
// A SQLiteStorage owns exactly one connection. Its mutex serializes the
// operations of the owning process; other processes coordinate through
// SQLite's file locks.
type SQLiteStorage struct {
	db       *sql.DB
	path     string
	lockWait time.Duration
	logger   *slog.Logger
	ids      *ids.Generator
	now      func() time.Time

	mu     sync.Mutex
	writes atomic.Int64
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithLockWait sets the busy timeout applied to the connection.
func WithLockWait(d time.Duration) Option {
	return func(s *SQLiteStorage) {
		s.lockWait = d
	}
}

// WithLogger sets the logger used for migrations and degraded paths.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStorage) {
		s.now = now
	}
}

// WithIDGenerator overrides the id generator.
func WithIDGenerator(g *ids.Generator) Option {
	return func(s *SQLiteStorage) {
		s.ids = g
	}
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string, lockWait time.Duration) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// One connection: pragmas below are per connection and must survive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// busy_timeout first so the journal mode switch can wait on a
	// concurrent opener instead of failing.
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", lockWait.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -2000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	return db, nil
}

// NewSQLiteStorage opens the database at dbPath and brings it to the
// current schema. An error means the file must not be used.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	s := &SQLiteStorage{
		path:     dbPath,
		lockWait: DefaultLockWait,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = ids.New()
	}

	db, err := openDatabase(dbPath, s.lockWait)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// querier is an interface that *sql.DB, *sql.Conn and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// nowMillis returns the current time in Unix milliseconds
func (s *SQLiteStorage) nowMillis() int64 {
	return s.now().UnixMilli()
}

// execWrite runs a single-statement write outside a transaction and
// records it in the local change counter.
func (s *SQLiteStorage) execWrite(ctx context.Context, op Operation, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n > 0 {
		s.writes.Add(1)
	}
	return n, nil
}
