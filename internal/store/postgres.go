package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps documents in a JSONB table keyed by session key.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore connects, pings and ensures the documents table exists.
func NewPostgresStore(ctx context.Context, dsn, key string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS relic_documents (
		key TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	return &PostgresStore{pool: pool, key: key}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM relic_documents WHERE key = $1`, s.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return Decode(payload)
}

func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	savedAt := doc.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO relic_documents(key, payload, saved_at) VALUES($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`,
		s.key, data, savedAt); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
