package faces

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
)

// Merge folds sourceBranches into targetBranch: snapshots every affected
// row, retags crops and project_images to targetBranch, drops the source
// reps, and recomputes the target rep's member_count — all inside one
// transaction (§4.6 "Merge (reversible)").
func (s *Service) Merge(ctx context.Context, projectID int64, targetBranch string, sourceBranches []string) error {
	if len(sourceBranches) == 0 {
		return fmt.Errorf("merge: no source branches given")
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		affected := append([]string{targetBranch}, sourceBranches...)
		snap, err := buildSnapshot(ctx, tx, projectID, affected)
		if err != nil {
			return err
		}

		snapshotJSON, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal face merge snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO face_merge_history (project_id, snapshot_json) VALUES (?, ?)`, projectID, string(snapshotJSON)); err != nil {
			return fmt.Errorf("record face merge history: %w", err)
		}

		sourcePlaceholders, sourceArgs := inClause(projectID, sourceBranches)

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE face_crops SET branch_key = ? WHERE project_id = ? AND branch_key IN (%s)`, sourcePlaceholders),
			append([]any{targetBranch}, sourceArgs...)...); err != nil {
			return fmt.Errorf("retag face crops on merge: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE project_images SET branch_key = ? WHERE project_id = ? AND branch_key IN (%s)`, sourcePlaceholders),
			append([]any{targetBranch}, sourceArgs...)...); err != nil {
			return fmt.Errorf("retag project images on merge: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM face_branch_reps WHERE project_id = ? AND branch_key IN (%s)`, sourcePlaceholders),
			sourceArgs...); err != nil {
			return fmt.Errorf("delete source face branch reps on merge: %w", err)
		}

		return recomputeRepCount(ctx, tx, projectID, targetBranch)
	})
}

// recomputeRepCount sets a rep's member_count from its current face_crops
// count (§4.6 step 6).
func recomputeRepCount(ctx context.Context, tx *sql.Tx, projectID int64, branchKey string) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM face_crops WHERE project_id = ? AND branch_key = ?`, projectID, branchKey).Scan(&count); err != nil {
		return fmt.Errorf("count crops for rep recompute: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE face_branch_reps SET member_count = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND branch_key = ?`,
		count, projectID, branchKey)
	if err != nil {
		return fmt.Errorf("update rep member_count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO face_branch_reps (project_id, branch_key, member_count, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
			projectID, branchKey, count)
		if err != nil {
			return fmt.Errorf("create rep on recompute: %w", err)
		}
	}
	return nil
}
