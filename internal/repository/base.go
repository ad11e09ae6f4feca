// Package repository implements the §4.2 repository layer: one struct per
// table cluster, each holding typed records rather than the source
// system's sqlite3.Row-style dicts (see REDESIGN FLAGS and DESIGN.md).
//
// Every repository method accepts a context.Context and a database.Querier
// so callers can run it standalone (against a pooled connection) or as part
// of a larger database.DB.WithTx transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
	"github.com/tomtom215/mediacatalog/internal/database"
)

// base provides the count/exists/delete_by_id primitives named in §4.2;
// find_by_id is defined on each concrete repository that offers it, and
// there is no generic find_all. It is embedded by every concrete repository.
type base struct {
	db *database.DB
}

// count returns the number of rows in table matching where (a raw WHERE
// clause body with ? placeholders; callers never interpolate user strings
// directly — every caller-facing filter goes through the allowlisted
// database.BuildOrderByClause machinery for ordering, and plain parameter
// binding for values).
func (b *base) count(ctx context.Context, q database.Querier, table, where string, args ...any) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	if where != "" {
		query += " WHERE " + where
	}
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// exists reports whether at least one row matches where.
func (b *base) exists(ctx context.Context, q database.Querier, table, where string, args ...any) (bool, error) {
	n, err := b.count(ctx, q, table, where, args...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// deleteByID deletes the row with the given id from table and reports
// catalogerr.ErrNotFound if no row matched.
func (b *base) deleteByID(ctx context.Context, q database.Querier, table string, id any) error {
	res, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for delete from %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s id=%v", catalogerr.ErrNotFound, table, id)
	}
	return nil
}

// scanRowNotFound converts sql.ErrNoRows into catalogerr.ErrNotFound so
// callers can use errors.Is uniformly regardless of which repository they
// are calling.
func scanRowNotFound(err error, table string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s key=%v", catalogerr.ErrNotFound, table, key)
	}
	return fmt.Errorf("query %s: %w", table, err)
}
