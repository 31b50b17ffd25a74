// Package sqlstore persists kv entries in a single SQL table through sqlx.
// PostgreSQL (pgx) and SQLite are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-inventory-service/internal/kv"
)

var _ kv.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    entry_key   VARCHAR(255) PRIMARY KEY,
    entry_value TEXT NOT NULL,
    updated_at  TIMESTAMP NOT NULL
)`

const upsertQuery = `
INSERT INTO kv_entries (entry_key, entry_value, updated_at)
VALUES (:entry_key, :entry_value, :updated_at)
ON CONFLICT (entry_key)
DO UPDATE SET
    entry_value = EXCLUDED.entry_value,
    updated_at = EXCLUDED.updated_at`

type entry struct {
	Key       string    `db:"entry_key"`
	Value     string    `db:"entry_value"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type Store struct {
	DB *sqlx.DB
}

// Open connects with the given driver ("pgx" or "sqlite3") and migrates the table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate kv_entries: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var e entry
	query := s.DB.Rebind(`SELECT entry_key, entry_value, updated_at FROM kv_entries WHERE entry_key = ?`)
	if err := s.DB.GetContext(ctx, &e, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	return []byte(e.Value), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMulti(ctx, map[string][]byte{key: value})
}

func (s *Store) SetMulti(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for k, v := range entries {
		if _, err := tx.NamedExecContext(ctx, upsertQuery, entry{Key: k, Value: string(v), UpdatedAt: now}); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM kv_entries WHERE entry_key IN (?)`, keys)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, s.DB.Rebind(query), args...)
	return err
}

func (s *Store) Close() error {
	return s.DB.Close()
}
