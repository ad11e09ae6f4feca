package indexer

import (
	"context"
	"database/sql"
	"fmt"
)

const byDatePrefix = "by_date:"

// RebuildDateBranches walks every distinct created_date for the project,
// ensures the corresponding by_date:YYYY-MM-DD branch exists in
// project_images, links every photo with that date into it, and (re)builds
// the AllBranch containing every photo of the project (§4.3, invariant 11).
// It runs inside one transaction so a reader never observes a partially
// rebuilt branch set.
func (ix *Indexer) RebuildDateBranches(ctx context.Context, projectID int64) error {
	if err := ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := rebuildBranches(ctx, tx, "project_images", "photo_id", "photos", projectID); err != nil {
			return fmt.Errorf("rebuild photo date branches: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	return ix.RebuildVideoDateBranches(ctx, projectID)
}

// RebuildVideoDateBranches mirrors RebuildDateBranches for project_videos
// (§4.3 "a parallel routine does the same for videos").
func (ix *Indexer) RebuildVideoDateBranches(ctx context.Context, projectID int64) error {
	return ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := rebuildBranches(ctx, tx, "project_videos", "video_id", "videos", projectID); err != nil {
			return fmt.Errorf("rebuild video date branches: %w", err)
		}
		return nil
	})
}

// rebuildBranches clears and repopulates every by_date: branch plus the
// materialized "all" branch for one junction table. junctionCol is always
// "photo_id" or "video_id", never caller-supplied.
func rebuildBranches(ctx context.Context, tx *sql.Tx, junctionTable, junctionCol, sourceTable string, projectID int64) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE project_id = ?`, junctionTable), projectID); err != nil {
		return fmt.Errorf("clear %s: %w", junctionTable, err)
	}

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, created_date FROM %s WHERE project_id = ? AND created_date IS NOT NULL`, sourceTable),
		projectID)
	if err != nil {
		return fmt.Errorf("list %s created_date: %w", sourceTable, err)
	}
	defer rows.Close()

	insert, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (project_id, branch_key, %s) VALUES (?, ?, ?)`, junctionTable, junctionCol))
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", junctionTable, err)
	}
	defer insert.Close()

	for rows.Next() {
		var id int64
		var createdDate string
		if err := rows.Scan(&id, &createdDate); err != nil {
			return fmt.Errorf("scan %s row: %w", sourceTable, err)
		}
		if _, err := insert.ExecContext(ctx, projectID, byDatePrefix+createdDate, id); err != nil {
			return fmt.Errorf("link %s %d to date branch: %w", sourceTable, id, err)
		}
		if _, err := insert.ExecContext(ctx, projectID, AllBranch, id); err != nil {
			return fmt.Errorf("link %s %d to all branch: %w", sourceTable, id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Rows with no created_date still belong to the all branch (invariant
	// 11: "all" holds every photo/video of the project, not just dated ones).
	undated, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE project_id = ? AND created_date IS NULL`, sourceTable), projectID)
	if err != nil {
		return fmt.Errorf("list undated %s: %w", sourceTable, err)
	}
	defer undated.Close()

	for undated.Next() {
		var id int64
		if err := undated.Scan(&id); err != nil {
			return fmt.Errorf("scan undated %s row: %w", sourceTable, err)
		}
		if _, err := insert.ExecContext(ctx, projectID, AllBranch, id); err != nil {
			return fmt.Errorf("link undated %s %d to all branch: %w", sourceTable, id, err)
		}
	}
	return undated.Err()
}
