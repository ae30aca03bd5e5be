package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx pool shared by the repositories and the unit of work.
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens a pool against the ledger database and verifies it
// is reachable before handing it out.
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the underlying pool.
func (db *DB) Close() {
	db.Pool.Close()
}
