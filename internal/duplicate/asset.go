package duplicate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// IdentifyAsset upserts the asset row keyed by (project_id, file_hash) and
// links a media_instance to photoID, idempotently (§4.5 "Asset identity").
// It is the per-photo step the indexer's lazy hashing worker calls once
// file_hash becomes available.
func (s *Service) IdentifyAsset(ctx context.Context, projectID, photoID int64, fileHash string, fileSizeBytes int64) (assetID int64, err error) {
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.assets.CreateIfMissing(ctx, tx, projectID, fileHash, &photoID)
		if err != nil {
			return fmt.Errorf("identify asset for photo %d: %w", photoID, err)
		}
		if _, err := s.assets.LinkInstance(ctx, tx, projectID, id, photoID, fileSizeBytes); err != nil {
			return fmt.Errorf("link instance for photo %d: %w", photoID, err)
		}
		assetID = id
		return nil
	})
	return assetID, err
}

// ListDuplicates returns every asset in project with at least minInstances
// instances (§4.5 "Duplicate listing").
func (s *Service) ListDuplicates(ctx context.Context, projectID int64, minInstances, limit int) (result []DuplicateAsset, err error) {
	err = s.db.WithReadConn(ctx, func(q database.Querier) error {
		rows, err := s.assets.ListDuplicates(ctx, q, projectID, minInstances, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			result = append(result, DuplicateAsset{
				AssetID:               r.Asset.ID,
				ContentHash:           r.Asset.ContentHash,
				RepresentativePhotoID: r.Asset.RepresentativePhotoID,
				PerceptualHash:        r.Asset.PerceptualHash,
				InstanceCount:         r.InstanceCount,
			})
		}
		return nil
	})
	return result, err
}

// DuplicateAsset flattens repository.DuplicateAsset for package consumers
// that shouldn't need to import internal/models directly.
type DuplicateAsset struct {
	AssetID               int64
	ContentHash           string
	RepresentativePhotoID *int64
	PerceptualHash        *string
	InstanceCount         int64
}
