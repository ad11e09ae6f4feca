package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by both *sql.Tx and *Conn, so repository methods can
// accept either a bare connection or an open transaction (§4.2 repositories
// are plain functions over a connection, not stateful objects).
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction acquired from a fresh pooled
// connection, retrying once on a transient error (§7), and committing only
// if fn returns nil. Every multi-statement write in the repository layer
// goes through this helper rather than managing its own *sql.Tx.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return withRetryOnce(ctx, func() error {
		conn, err := db.Connection(ctx, false)
		if err != nil {
			return fmt.Errorf("acquire connection for transaction: %w", err)
		}
		defer conn.Release()

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// WithReadConn runs fn with a pooled read-only-intent connection. SQLite
// doesn't enforce read-only at the driver level here, but marking intent
// keeps the LRU pool's bookkeeping honest and documents the caller's intent.
func (db *DB) WithReadConn(ctx context.Context, fn func(q Querier) error) error {
	conn, err := db.Connection(ctx, true)
	if err != nil {
		return fmt.Errorf("acquire read connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}
