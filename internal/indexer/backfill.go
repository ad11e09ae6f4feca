package indexer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// SinglePassBackfill migrates up to chunk legacy photo rows and up to chunk
// legacy video rows whose created_ts/created_date/created_year are still null despite having
// a date_taken or modified timestamp to derive them from, and reports how
// many rows still need a pass (§4.3 "callers loop until zero rows remain").
func (ix *Indexer) SinglePassBackfill(ctx context.Context, chunk int) (remaining int, err error) {
	if err := ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := backfillTable(ctx, tx, "photos", chunk); err != nil {
			return err
		}
		_, err := backfillTable(ctx, tx, "videos", chunk)
		return err
	}); err != nil {
		return 0, fmt.Errorf("single pass backfill: %w", err)
	}

	return ix.countNeedingBackfill(ctx)
}

// EnsureCreatedDateFields loops SinglePassBackfill until no legacy rows
// remain, for callers that just want the whole migration done in one call.
func (ix *Indexer) EnsureCreatedDateFields(ctx context.Context, chunk int) error {
	for {
		remaining, err := ix.SinglePassBackfill(ctx, chunk)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
	}
}

func backfillTable(ctx context.Context, tx *sql.Tx, table string, chunk int) (int64, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, date_taken, modified FROM %s
		WHERE created_date IS NULL
		ORDER BY id ASC
		LIMIT ?`, table), chunk)
	if err != nil {
		return 0, fmt.Errorf("list legacy %s rows: %w", table, err)
	}

	type legacyRow struct {
		id        int64
		dateTaken sql.NullTime
		modified  sql.NullTime
	}
	var legacy []legacyRow
	for rows.Next() {
		var lr legacyRow
		if err := rows.Scan(&lr.id, &lr.dateTaken, &lr.modified); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan legacy %s row: %w", table, err)
		}
		legacy = append(legacy, lr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	update, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		UPDATE %s SET created_ts = ?, created_date = ?, created_year = ? WHERE id = ?`, table))
	if err != nil {
		return 0, fmt.Errorf("prepare %s backfill update: %w", table, err)
	}
	defer update.Close()

	var updated int64
	for _, lr := range legacy {
		t := lr.modified.Time
		if lr.dateTaken.Valid {
			t = lr.dateTaken.Time
		}
		if t.IsZero() {
			continue
		}

		res, err := update.ExecContext(ctx, t.Unix(), t.Format("2006-01-02"), t.Year(), lr.id)
		if err != nil {
			return updated, fmt.Errorf("backfill %s row %d: %w", table, lr.id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return updated, err
		}
		updated += n
	}
	return updated, nil
}

func (ix *Indexer) countNeedingBackfill(ctx context.Context) (int, error) {
	var total int
	err := ix.db.WithReadConn(ctx, func(q database.Querier) error {
		var photos, videos int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE created_date IS NULL`).Scan(&photos); err != nil {
			return err
		}
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE created_date IS NULL`).Scan(&videos); err != nil {
			return err
		}
		total = photos + videos
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count rows needing backfill: %w", err)
	}
	return total, nil
}
