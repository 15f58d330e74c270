package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore keeps documents in a single SQLite table keyed by session key.
type SQLiteStore struct {
	db   *sql.DB
	key  string
	path string
}

// NewSQLiteStore opens (and creates) the database at path. A path without an
// extension is treated as a directory holding relic.db.
func NewSQLiteStore(ctx context.Context, path, key string) (*SQLiteStore, error) {
	if path == "" {
		path = "relic.db"
	}
	if filepath.Ext(path) == "" {
		path = filepath.Join(path, "relic.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		saved_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLiteStore{db: db, key: key, path: path}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*Document, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE key = ?`, s.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return Decode(payload)
}

func (s *SQLiteStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	savedAt := doc.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(key,payload,saved_at) VALUES(?,?,?) ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, saved_at=excluded.saved_at`,
		s.key, data, savedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }
