package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS portal_sessions (
		session_key TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		expires_at  BIGINT NOT NULL DEFAULT 0
	)`

type sessionRow struct {
	Value     string `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
}

// sqlStore keeps entries in a single table. expires_at is unix seconds; zero
// means no expiry. Expired rows are removed lazily on read.
type sqlStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore connects with driver "sqlite" or "postgres" and creates the
// table if needed.
func NewSQLStore(ctx context.Context, driver, dsn string) (Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == BackendSQLite {
		// A single connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY on concurrent writers.
		db.SetMaxOpenConns(1)
	}

	store, err := NewSQLStoreFromDB(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLStoreFromDB(ctx context.Context, db *sqlx.DB) (Store, error) {
	if _, err := db.ExecContext(ctx, createSessionsTable); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &sqlStore{db: db, now: time.Now}, nil
}

func (s *sqlStore) Get(ctx context.Context, key string) (string, error) {
	query := s.db.Rebind(`SELECT value, expires_at FROM portal_sessions WHERE session_key = ?`)

	var row sessionRow
	if err := s.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read session key: %w", err)
	}

	if row.ExpiresAt > 0 && s.now().Unix() >= row.ExpiresAt {
		if err := s.Delete(ctx, key); err != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	return row.Value, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}

	query := s.db.Rebind(`
		INSERT INTO portal_sessions (session_key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE
		SET value = excluded.value, expires_at = excluded.expires_at
	`)
	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to write session key: %w", err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM portal_sessions WHERE session_key IN (?)`, keys)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete session keys: %w", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
