package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// AssetRepository implements the §4.2 AssetRepository contract: content
// identity, the asset/instance edge, and duplicate discovery.
type AssetRepository struct {
	base
}

// NewAssetRepository builds an AssetRepository bound to db.
func NewAssetRepository(db *database.DB) *AssetRepository {
	return &AssetRepository{base: base{db: db}}
}

// CreateIfMissing returns the id of the (project_id, content_hash) asset,
// creating it with representativePhotoID if absent.
func (r *AssetRepository) CreateIfMissing(ctx context.Context, q database.Querier, projectID int64, contentHash string, representativePhotoID *int64) (int64, error) {
	if representativePhotoID != nil {
		if err := r.requirePhotoInProject(ctx, q, *representativePhotoID, projectID); err != nil {
			return 0, err
		}
	}

	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM media_asset WHERE project_id = ? AND content_hash = ?`, projectID, contentHash).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("find asset: %w", err)
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO media_asset (project_id, content_hash, representative_photo_id) VALUES (?, ?, ?)`,
		projectID, contentHash, representativePhotoID)
	if err != nil {
		return 0, fmt.Errorf("create asset: %w", err)
	}
	return res.LastInsertId()
}

func (r *AssetRepository) requirePhotoInProject(ctx context.Context, q database.Querier, photoID, projectID int64) error {
	var photoProject int64
	if err := q.QueryRowContext(ctx, `SELECT project_id FROM photos WHERE id = ?`, photoID).Scan(&photoProject); err != nil {
		return scanRowNotFound(err, "photos", photoID)
	}
	if photoProject != projectID {
		return fmt.Errorf("%w: representative photo %d belongs to project %d, not %d",
			catalogerr.ErrCrossProject, photoID, photoProject, projectID)
	}
	return nil
}

// LinkInstance records one (asset, photo) edge with its file size (no import
// provenance columns are written), enforcing invariant 4: the instance's project_id and asset_id match.
func (r *AssetRepository) LinkInstance(ctx context.Context, q database.Querier, projectID, assetID, photoID int64, fileSizeBytes int64) (int64, error) {
	var assetProject int64
	if err := q.QueryRowContext(ctx, `SELECT project_id FROM media_asset WHERE id = ?`, assetID).Scan(&assetProject); err != nil {
		return 0, scanRowNotFound(err, "media_asset", assetID)
	}
	if assetProject != projectID {
		return 0, fmt.Errorf("%w: asset %d belongs to project %d, not %d", catalogerr.ErrCrossProject, assetID, assetProject, projectID)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO media_instance (project_id, asset_id, photo_id, file_size_bytes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, photo_id) DO UPDATE SET asset_id = excluded.asset_id, file_size_bytes = excluded.file_size_bytes`,
		projectID, assetID, photoID, fileSizeBytes)
	if err != nil {
		return 0, fmt.Errorf("link media instance: %w", err)
	}
	return res.LastInsertId()
}

// DuplicateAsset is one row of ListDuplicates's result (testable property 8).
type DuplicateAsset struct {
	Asset         *models.MediaAsset
	InstanceCount int64
}

// ListDuplicates returns every asset in project whose instance count is at
// least minInstances. The instance count is computed once over the smaller
// media_instance table and joined against media_asset, never a
// JOIN...GROUP BY directly over the larger table (§4.2).
func (r *AssetRepository) ListDuplicates(ctx context.Context, q database.Querier, projectID int64, minInstances, limit int) ([]DuplicateAsset, error) {
	rows, err := q.QueryContext(ctx, `
		WITH counts AS (
			SELECT asset_id, COUNT(*) AS instance_count
			FROM media_instance
			WHERE project_id = ?
			GROUP BY asset_id
			HAVING COUNT(*) >= ?
		)
		SELECT a.id, a.project_id, a.content_hash, a.representative_photo_id, a.perceptual_hash, a.created_at, c.instance_count
		FROM counts c
		JOIN media_asset a ON a.id = c.asset_id
		ORDER BY c.instance_count DESC, a.id ASC
		LIMIT ?`, projectID, minInstances, limit)
	if err != nil {
		return nil, fmt.Errorf("list duplicate assets: %w", err)
	}
	defer rows.Close()

	var out []DuplicateAsset
	for rows.Next() {
		var a models.MediaAsset
		var count int64
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.ContentHash, &a.RepresentativePhotoID, &a.PerceptualHash, &a.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan duplicate asset row: %w", err)
		}
		out = append(out, DuplicateAsset{Asset: &a, InstanceCount: count})
	}
	return out, rows.Err()
}

// FindByID returns the asset with the given id.
func (r *AssetRepository) FindByID(ctx context.Context, q database.Querier, id int64) (*models.MediaAsset, error) {
	var a models.MediaAsset
	err := q.QueryRowContext(ctx,
		`SELECT id, project_id, content_hash, representative_photo_id, perceptual_hash, created_at FROM media_asset WHERE id = ?`, id).
		Scan(&a.ID, &a.ProjectID, &a.ContentHash, &a.RepresentativePhotoID, &a.PerceptualHash, &a.CreatedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "media_asset", id)
	}
	return &a, nil
}
