package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// PurgeMissing removes photo/video rows whose backing file no longer
// exists on disk, returning the total number of rows removed (§4.3
// "purge_missing(project_id) removes rows whose file no longer exists").
func (ix *Indexer) PurgeMissing(ctx context.Context, projectID int64) (int, error) {
	removed := 0

	if err := ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := purgeMissingFromTable(ctx, tx, "photos", projectID)
		if err != nil {
			return err
		}
		removed += n

		n, err = purgeMissingFromTable(ctx, tx, "videos", projectID)
		if err != nil {
			return err
		}
		removed += n
		return nil
	}); err != nil {
		return 0, fmt.Errorf("purge missing for project %d: %w", projectID, err)
	}

	return removed, nil
}

// purgeMissingFromTable streams every path in the given table (photos or
// videos is the only caller-controlled part of the query, never user
// input) and deletes by id once os.Stat reports the file gone. This stats
// the filesystem row by row rather than loading every path into memory at
// once, trading a slower purge for bounded memory on large catalogs.
func purgeMissingFromTable(ctx context.Context, tx *sql.Tx, table string, projectID int64) (int, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id, path FROM %s WHERE project_id = ?`, table), projectID)
	if err != nil {
		return 0, fmt.Errorf("list %s paths: %w", table, err)
	}

	var missingIDs []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan %s row: %w", table, err)
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			missingIDs = append(missingIDs, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(missingIDs) == 0 {
		return 0, nil
	}

	removed := 0
	for _, id := range missingIDs {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
		if err != nil {
			return removed, fmt.Errorf("delete missing %s row %d: %w", table, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, nil
}
