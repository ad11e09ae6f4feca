package faces

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
)

// Undo consumes the most recent merge history row for projectID, deletes
// the current rows under the affected branch keys, reinserts the
// snapshotted rows, and removes the history row — all in one transaction
// (§4.6 "Undo").
func (s *Service) Undo(ctx context.Context, projectID int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var historyID int64
		var snapshotJSON string
		err := tx.QueryRowContext(ctx, `
			SELECT id, snapshot_json FROM face_merge_history
			WHERE project_id = ? ORDER BY id DESC LIMIT 1`, projectID).Scan(&historyID, &snapshotJSON)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: project %d", catalogerr.ErrNoMergeHistory, projectID)
		}
		if err != nil {
			return fmt.Errorf("find latest face merge history: %w", err)
		}

		var snap snapshot
		if err := json.Unmarshal([]byte(snapshotJSON), &snap); err != nil {
			return fmt.Errorf("unmarshal face merge snapshot: %w", err)
		}

		placeholders, args := inClause(projectID, snap.BranchKeys)

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM face_crops WHERE project_id = ? AND branch_key IN (%s)`, placeholders), args...); err != nil {
			return fmt.Errorf("clear face crops before undo: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM project_images WHERE project_id = ? AND branch_key IN (%s)`, placeholders), args...); err != nil {
			return fmt.Errorf("clear project images before undo: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM face_branch_reps WHERE project_id = ? AND branch_key IN (%s)`, placeholders), args...); err != nil {
			return fmt.Errorf("clear face branch reps before undo: %w", err)
		}

		for _, c := range snap.Crops {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO face_crops (id, project_id, branch_key, image_path, crop_path,
					bbox_x, bbox_y, bbox_w, bbox_h, embedding, quality_score, is_representative)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, projectID, c.BranchKey, c.ImagePath, c.CropPath,
				c.BBox[0], c.BBox[1], c.BBox[2], c.BBox[3], c.Embedding, c.QualityScore, c.IsRepresentative); err != nil {
				return fmt.Errorf("restore face crop %d: %w", c.ID, err)
			}
		}
		for _, r := range snap.Reps {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO face_branch_reps (project_id, branch_key, label, member_count, centroid, rep_path, rep_thumb_png, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
				projectID, r.BranchKey, r.Label, r.MemberCount, r.Centroid, r.RepPath, r.RepThumbPNG); err != nil {
				return fmt.Errorf("restore face branch rep %s: %w", r.BranchKey, err)
			}
		}
		for _, pi := range snap.ProjectImages {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO project_images (project_id, branch_key, photo_id) VALUES (?, ?, ?)`,
				projectID, pi.BranchKey, pi.PhotoID); err != nil {
				return fmt.Errorf("restore project image (%s, %d): %w", pi.BranchKey, pi.PhotoID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM face_merge_history WHERE id = ?`, historyID); err != nil {
			return fmt.Errorf("remove consumed face merge history row: %w", err)
		}
		return nil
	})
}
