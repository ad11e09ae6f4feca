package repository

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// FaceRepository implements the §4.2 FaceRepository contract.
type FaceRepository struct {
	base
}

// NewFaceRepository builds a FaceRepository bound to db.
func NewFaceRepository(db *database.DB) *FaceRepository {
	return &FaceRepository{base: base{db: db}}
}

// FaceCropInput is one row for BulkAddCrops.
type FaceCropInput struct {
	ImagePath        string
	CropPath         string
	BBox             [4]float64
	Embedding        []byte
	QualityScore     *float64
	IsRepresentative bool
}

// BulkAddCrops inserts crops for (projectID, branchKey), idempotent on
// (project_id, branch_key, crop_path) per §3 "Face Crop".
func (r *FaceRepository) BulkAddCrops(ctx context.Context, q database.Querier, projectID int64, branchKey string, crops []FaceCropInput) (int64, error) {
	var inserted int64
	for _, c := range crops {
		res, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO face_crops (
				project_id, branch_key, image_path, crop_path,
				bbox_x, bbox_y, bbox_w, bbox_h, embedding, quality_score, is_representative
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, branchKey, c.ImagePath, c.CropPath,
			c.BBox[0], c.BBox[1], c.BBox[2], c.BBox[3], c.Embedding, c.QualityScore, c.IsRepresentative)
		if err != nil {
			return inserted, fmt.Errorf("bulk add face crop %s: %w", c.CropPath, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected for face crop insert: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

// UpsertRep creates or updates a cluster's summary row.
func (r *FaceRepository) UpsertRep(ctx context.Context, q database.Querier, rep models.FaceBranchRep) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO face_branch_reps (project_id, branch_key, label, member_count, centroid, rep_path, rep_thumb_png, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id, branch_key) DO UPDATE SET
			label = excluded.label,
			member_count = excluded.member_count,
			centroid = excluded.centroid,
			rep_path = excluded.rep_path,
			rep_thumb_png = excluded.rep_thumb_png,
			updated_at = CURRENT_TIMESTAMP`,
		rep.ProjectID, rep.BranchKey, rep.Label, rep.MemberCount, rep.Centroid, rep.RepPath, rep.RepThumbPNG)
	if err != nil {
		return fmt.Errorf("upsert face branch rep: %w", err)
	}
	return nil
}

// ResetForProject deletes all face crops and branch reps for projectID, for
// a clean rebuild.
func (r *FaceRepository) ResetForProject(ctx context.Context, q database.Querier, projectID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM face_crops WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("reset face crops: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM face_branch_reps WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("reset face branch reps: %w", err)
	}
	return nil
}

// CropsByBranch returns every crop in (projectID, branchKey).
func (r *FaceRepository) CropsByBranch(ctx context.Context, q database.Querier, projectID int64, branchKey string) ([]*models.FaceCrop, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, branch_key, image_path, crop_path, bbox_x, bbox_y, bbox_w, bbox_h,
			embedding, quality_score, is_representative, created_at
		FROM face_crops WHERE project_id = ? AND branch_key = ? ORDER BY id ASC`, projectID, branchKey)
	if err != nil {
		return nil, fmt.Errorf("query face crops by branch: %w", err)
	}
	defer rows.Close()

	var out []*models.FaceCrop
	for rows.Next() {
		var c models.FaceCrop
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.BranchKey, &c.ImagePath, &c.CropPath,
			&c.BBox[0], &c.BBox[1], &c.BBox[2], &c.BBox[3], &c.Embedding, &c.QualityScore, &c.IsRepresentative, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face crop row: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CountByBranch returns the number of crops in (projectID, branchKey),
// used by the merge/undo round-trip assertions (S3).
func (r *FaceRepository) CountByBranch(ctx context.Context, q database.Querier, projectID int64, branchKey string) (int64, error) {
	return r.count(ctx, q, "face_crops", "project_id = ? AND branch_key = ?", projectID, branchKey)
}

// RepByBranch returns the cluster summary row for (projectID, branchKey).
func (r *FaceRepository) RepByBranch(ctx context.Context, q database.Querier, projectID int64, branchKey string) (*models.FaceBranchRep, error) {
	var rep models.FaceBranchRep
	err := q.QueryRowContext(ctx, `
		SELECT project_id, branch_key, label, member_count, centroid, rep_path, rep_thumb_png, updated_at
		FROM face_branch_reps WHERE project_id = ? AND branch_key = ?`, projectID, branchKey).
		Scan(&rep.ProjectID, &rep.BranchKey, &rep.Label, &rep.MemberCount, &rep.Centroid, &rep.RepPath, &rep.RepThumbPNG, &rep.UpdatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "face_branch_reps", branchKey)
	}
	return &rep, nil
}

// ListReps returns every cluster summary row for projectID, used by merge
// suggestion scoring which needs every centroid at once.
func (r *FaceRepository) ListReps(ctx context.Context, q database.Querier, projectID int64) ([]*models.FaceBranchRep, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT project_id, branch_key, label, member_count, centroid, rep_path, rep_thumb_png, updated_at
		FROM face_branch_reps WHERE project_id = ? ORDER BY branch_key ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list face branch reps: %w", err)
	}
	defer rows.Close()

	var out []*models.FaceBranchRep
	for rows.Next() {
		var rep models.FaceBranchRep
		if err := rows.Scan(&rep.ProjectID, &rep.BranchKey, &rep.Label, &rep.MemberCount, &rep.Centroid,
			&rep.RepPath, &rep.RepThumbPNG, &rep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan face branch rep row: %w", err)
		}
		out = append(out, &rep)
	}
	return out, rows.Err()
}

// RetagCropsBranch moves every crop row from oldBranch to newBranch within
// projectID, the primitive the merge service uses to fold one cluster into
// another.
func (r *FaceRepository) RetagCropsBranch(ctx context.Context, q database.Querier, projectID int64, oldBranch, newBranch string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE face_crops SET branch_key = ? WHERE project_id = ? AND branch_key = ?`,
		newBranch, projectID, oldBranch); err != nil {
		return fmt.Errorf("retag face crops branch: %w", err)
	}
	return nil
}

// DeleteRep removes a cluster summary row (used once its crops have been
// retagged away during a merge).
func (r *FaceRepository) DeleteRep(ctx context.Context, q database.Querier, projectID int64, branchKey string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM face_branch_reps WHERE project_id = ? AND branch_key = ?`, projectID, branchKey); err != nil {
		return fmt.Errorf("delete face branch rep: %w", err)
	}
	return nil
}
