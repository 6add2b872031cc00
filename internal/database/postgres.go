// Package database owns the Postgres connection pool and the transaction
// helper every workflow command runs inside.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories take a Querier so the same method runs standalone or
// inside a workflow transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the pool with the transaction helper.
type DB struct {
	*sql.DB
	logger *log.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(url string, maxOpen, maxIdle int) (*DB, error) {
	pool, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxIdle)
	pool.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{
		DB:     pool,
		logger: log.New(log.Writer(), "[DB] ", log.LstdFlags),
	}, nil
}

// Wrap adapts an existing pool, used by tests running against sqlmock.
func Wrap(pool *sql.DB) *DB {
	return &DB{
		DB:     pool,
		logger: log.New(log.Writer(), "[DB] ", log.LstdFlags),
	}
}

// WithinTx runs fn inside a transaction, committing on nil error and
// rolling back otherwise. A cancelled context aborts the in-flight call
// and rolls back.
func (db *DB) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			db.logger.Printf("rollback failed: %v (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Healthy reports whether the pool answers a ping within the deadline.
func (db *DB) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx) == nil
}
