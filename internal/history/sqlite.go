package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, derrors.HistoryError("create history directory").
				WithCause(err).WithContext("path", dbPath).Build()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, derrors.HistoryError("open sqlite database").
			WithCause(err).WithContext("path", dbPath).Build()
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, derrors.HistoryError("initialize history schema").
			WithCause(err).WithContext("path", dbPath).Build()
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS revisions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		reason TEXT NOT NULL,
		backend TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		size INTEGER NOT NULL,
		valid INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_revisions_created_at ON revisions(created_at);
	CREATE INDEX IF NOT EXISTS idx_revisions_reason ON revisions(reason);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts a revision.
func (s *SQLiteStore) Record(ctx context.Context, rev Revision) (Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}
	if rev.Payload == nil {
		rev.Payload = []byte{}
	}
	rev.Size = len(rev.Payload)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO revisions (id, reason, backend, created_at, size, valid, payload) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rev.ID, string(rev.Reason), rev.Backend, rev.CreatedAt.UnixNano(), rev.Size, boolInt(rev.Valid), rev.Payload,
	)
	if err != nil {
		return Revision{}, derrors.HistoryError("insert revision").
			WithCause(err).WithContext("reason", string(rev.Reason)).Build()
	}
	return rev, nil
}

// List returns revisions newest first without payloads.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Revision, error) {
	return s.ListByReason(ctx, "", limit)
}

// ListByReason is List restricted to one reason. An empty reason matches all.
func (s *SQLiteStore) ListByReason(ctx context.Context, reason Reason, limit int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, reason, backend, created_at, size, valid FROM revisions"
	args := []any{}
	if reason != "" {
		query += " WHERE reason = ?"
		args = append(args, string(reason))
	}
	query += " ORDER BY seq DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, derrors.HistoryError("query revisions").WithCause(err).Build()
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var rev Revision
		var reason string
		var created int64
		if err := rows.Scan(&rev.ID, &reason, &rev.Backend, &created, &rev.Size, &rev.Valid); err != nil {
			return nil, derrors.HistoryError("scan revision").WithCause(err).Build()
		}
		rev.Reason = Reason(reason)
		rev.CreatedAt = time.Unix(0, created).UTC()
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.HistoryError("iterate revisions").WithCause(err).Build()
	}
	return revs, nil
}

// Get returns a revision with its payload.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, reason, backend, created_at, size, valid, payload FROM revisions WHERE id = ?", id)
	rev, err := scanFull(row)
	if err != nil {
		return Revision{}, withID(err, id)
	}
	return rev, nil
}

// Latest returns the newest revision with its payload.
func (s *SQLiteStore) Latest(ctx context.Context) (Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, reason, backend, created_at, size, valid, payload FROM revisions ORDER BY seq DESC LIMIT 1")
	return scanFull(row)
}

// Prune keeps the newest keep revisions. keep <= 0 keeps everything.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM revisions WHERE seq NOT IN (SELECT seq FROM revisions ORDER BY seq DESC LIMIT ?)", keep)
	if err != nil {
		return 0, derrors.HistoryError("prune revisions").WithCause(err).Build()
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, derrors.HistoryError("prune revisions").WithCause(err).Build()
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func scanFull(row *sql.Row) (Revision, error) {
	var rev Revision
	var reason string
	var created int64
	err := row.Scan(&rev.ID, &reason, &rev.Backend, &created, &rev.Size, &rev.Valid, &rev.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, ErrRevisionNotFound
	}
	if err != nil {
		return Revision{}, derrors.HistoryError("scan revision").WithCause(err).Build()
	}
	rev.Reason = Reason(reason)
	rev.CreatedAt = time.Unix(0, created).UTC()
	return rev, nil
}

func withID(err error, id string) error {
	if ce, ok := derrors.AsClassified(err); ok {
		return ce.WithContext("id", id)
	}
	return fmt.Errorf("revision %s: %w", id, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
