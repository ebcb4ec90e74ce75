package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresBackend stores every key as one row of shelf_kv.
type PostgresBackend struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	db, err := sql.Open("pgx", stdlib.RegisterConnConfig(connConfig))
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	b := NewPostgresBackend(db)
	if err := b.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: database is unavailable: %w", err)
	}
	if err := b.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return b, nil
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := b.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS shelf_kv (
				key        TEXT PRIMARY KEY,
				value      BYTEA NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`)
		return err
	})
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return b.db.PingContext(ctx)
	})
}

func (b *PostgresBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return b.db.QueryRowContext(ctx, `
			SELECT value
			FROM shelf_kv
			WHERE key = $1
		`, key).Scan(&v)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *PostgresBackend) Write(ctx context.Context, key string, val []byte) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := b.db.ExecContext(ctx, `
			INSERT INTO shelf_kv (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at
		`, key, val)
		return err
	})
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := b.db.ExecContext(ctx, `DELETE FROM shelf_kv WHERE key = $1`, key)
		return err
	})
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
