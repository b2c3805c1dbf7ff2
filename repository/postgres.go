package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is an interface that both pgxpool.Pool and pgx.Tx satisfy.
// This allows Repository methods to work with either a connection pool
// or a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres-backed position store
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX // The actual executor (pool or transaction)
}

// NewRepository creates a new Repository with a PostgreSQL connection pool
// and brings the schema up to date.
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	r := &Repository{pool: pool, db: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS assets (
			ticker TEXT PRIMARY KEY,
			figi TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			uid TEXT NOT NULL DEFAULT '',
			position_uid TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			short_available BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_assets_figi ON assets(figi);

		CREATE TABLE IF NOT EXISTS positions (
			id UUID PRIMARY KEY,
			ticker TEXT NOT NULL,
			side TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			open_price NUMERIC NOT NULL DEFAULT 0,
			closing_price NUMERIC NOT NULL DEFAULT 0,
			result NUMERIC NOT NULL DEFAULT 0,
			fee NUMERIC NOT NULL DEFAULT 0,
			closed BOOLEAN NOT NULL DEFAULT FALSE,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_positions_ticker_closed ON positions(ticker, closed);

		CREATE TABLE IF NOT EXISTS operations (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			position_id UUID NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
			side TEXT NOT NULL,
			time TIMESTAMPTZ NOT NULL,
			quantity BIGINT NOT NULL,
			price NUMERIC NOT NULL,
			fee NUMERIC NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_operations_time ON operations(time);
		CREATE INDEX IF NOT EXISTS idx_operations_position ON operations(position_id);

		CREATE TABLE IF NOT EXISTS associated_payments (
			id UUID PRIMARY KEY,
			ticker TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			amount NUMERIC NOT NULL DEFAULT 0,
			time TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// WithinTx runs fn against a transactional Repository and commits when fn
// returns nil.
func (r *Repository) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Repository{pool: r.pool, db: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Health checks if the database connection is healthy
func (r *Repository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Pool returns the underlying connection pool for advanced operations.
// This is primarily intended for testing and cleanup operations.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
