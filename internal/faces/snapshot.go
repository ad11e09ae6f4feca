package faces

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// snapshot captures every row touched by a merge of sourceBranches into
// targetBranch, before any mutation happens (§4.6 step 1). Binary fields
// (Embedding, Centroid, RepThumbPNG) round-trip through JSON as base64
// automatically — []byte marshals to a base64 string under both
// encoding/json and goccy/go-json, so no manual encoding step is needed.
type snapshot struct {
	ProjectID     int64              `json:"project_id"`
	BranchKeys    []string           `json:"branch_keys"`
	Crops         []cropRow          `json:"crops"`
	Reps          []repRow           `json:"reps"`
	ProjectImages []projectImageRow  `json:"project_images"`
}

type cropRow struct {
	ID               int64      `json:"id"`
	BranchKey        string     `json:"branch_key"`
	ImagePath        string     `json:"image_path"`
	CropPath         string     `json:"crop_path"`
	BBox             [4]float64 `json:"bbox"`
	Embedding        []byte     `json:"embedding"`
	QualityScore     *float64   `json:"quality_score"`
	IsRepresentative bool       `json:"is_representative"`
}

type repRow struct {
	BranchKey   string  `json:"branch_key"`
	Label       string  `json:"label"`
	MemberCount int     `json:"member_count"`
	Centroid    []byte  `json:"centroid"`
	RepPath     *string `json:"rep_path"`
	RepThumbPNG []byte  `json:"rep_thumb_png"`
}

type projectImageRow struct {
	BranchKey string `json:"branch_key"`
	PhotoID   int64  `json:"photo_id"`
}

// buildSnapshot reads every row under branchKeys for projectID.
func buildSnapshot(ctx context.Context, tx *sql.Tx, projectID int64, branchKeys []string) (snapshot, error) {
	snap := snapshot{ProjectID: projectID, BranchKeys: branchKeys}
	placeholders, args := inClause(projectID, branchKeys)

	cropRows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, branch_key, image_path, crop_path, bbox_x, bbox_y, bbox_w, bbox_h,
			embedding, quality_score, is_representative
		FROM face_crops WHERE project_id = ? AND branch_key IN (%s)`, placeholders), args...)
	if err != nil {
		return snap, fmt.Errorf("snapshot face crops: %w", err)
	}
	for cropRows.Next() {
		var c cropRow
		if err := cropRows.Scan(&c.ID, &c.BranchKey, &c.ImagePath, &c.CropPath,
			&c.BBox[0], &c.BBox[1], &c.BBox[2], &c.BBox[3], &c.Embedding, &c.QualityScore, &c.IsRepresentative); err != nil {
			cropRows.Close()
			return snap, fmt.Errorf("scan snapshot crop row: %w", err)
		}
		snap.Crops = append(snap.Crops, c)
	}
	if err := cropRows.Err(); err != nil {
		cropRows.Close()
		return snap, err
	}
	cropRows.Close()

	repRows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT branch_key, label, member_count, centroid, rep_path, rep_thumb_png
		FROM face_branch_reps WHERE project_id = ? AND branch_key IN (%s)`, placeholders), args...)
	if err != nil {
		return snap, fmt.Errorf("snapshot face branch reps: %w", err)
	}
	for repRows.Next() {
		var r repRow
		if err := repRows.Scan(&r.BranchKey, &r.Label, &r.MemberCount, &r.Centroid, &r.RepPath, &r.RepThumbPNG); err != nil {
			repRows.Close()
			return snap, fmt.Errorf("scan snapshot rep row: %w", err)
		}
		snap.Reps = append(snap.Reps, r)
	}
	if err := repRows.Err(); err != nil {
		repRows.Close()
		return snap, err
	}
	repRows.Close()

	imgRows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT branch_key, photo_id FROM project_images WHERE project_id = ? AND branch_key IN (%s)`, placeholders), args...)
	if err != nil {
		return snap, fmt.Errorf("snapshot project images: %w", err)
	}
	for imgRows.Next() {
		var pi projectImageRow
		if err := imgRows.Scan(&pi.BranchKey, &pi.PhotoID); err != nil {
			imgRows.Close()
			return snap, fmt.Errorf("scan snapshot project image row: %w", err)
		}
		snap.ProjectImages = append(snap.ProjectImages, pi)
	}
	if err := imgRows.Err(); err != nil {
		imgRows.Close()
		return snap, err
	}
	imgRows.Close()

	return snap, nil
}

// inClause renders "?,?,..." for branchKeys and returns (projectID, branchKeys...)
// as the matching argument list.
func inClause(projectID int64, branchKeys []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(branchKeys)), ",")
	args := make([]any, 0, len(branchKeys)+1)
	args = append(args, projectID)
	for _, b := range branchKeys {
		args = append(args, b)
	}
	return placeholders, args
}
