package aggregator

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// ImagesByBranchAndTag performs the indexed three-way join
// photo <-> project_images <-> photo_tags <-> tags and returns only the
// matching photos, replacing any "load the branch, filter tags in memory"
// pattern (§4.4).
func (a *Aggregator) ImagesByBranchAndTag(ctx context.Context, q database.Querier, projectID int64, branchKey, tagName string) ([]*models.Photo, error) {
	var out []*models.Photo
	err := a.met.ObserveQuery("ImagesByBranchAndTag", func() error {
		var err error
		out, err = imagesByBranchAndTag(ctx, q, projectID, branchKey, tagName)
		return err
	})
	return out, err
}

func imagesByBranchAndTag(ctx context.Context, q database.Querier, projectID int64, branchKey, tagName string) ([]*models.Photo, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.project_id, p.folder_id, p.path, p.size_kb, p.modified, p.width, p.height, p.date_taken,
			p.gps_latitude, p.gps_longitude, p.created_ts, p.created_date, p.created_year,
			p.file_hash, p.image_content_hash, p.metadata_status, p.metadata_fail_count, p.thumbnail_status, p.updated_at
		FROM photos p
		JOIN project_images pi ON pi.photo_id = p.id AND pi.project_id = p.project_id
		JOIN photo_tags pt ON pt.photo_id = p.id
		JOIN tags t ON t.id = pt.tag_id AND t.project_id = p.project_id
		WHERE p.project_id = ? AND pi.branch_key = ? AND t.name = ? COLLATE NOCASE
		ORDER BY p.id ASC`, projectID, branchKey, tagName)
	if err != nil {
		return nil, fmt.Errorf("images by branch %s and tag %s: %w", branchKey, tagName, err)
	}
	defer rows.Close()

	var out []*models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.FolderID, &p.Path, &p.SizeKB, &p.Modified, &p.Width, &p.Height,
			&p.DateTaken, &p.GPSLatitude, &p.GPSLongitude, &p.CreatedTS, &p.CreatedDate, &p.CreatedYear,
			&p.FileHash, &p.ImageContentHash, &p.MetadataStatus, &p.MetadataFailCount, &p.ThumbnailStatus, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan images-by-tag row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
