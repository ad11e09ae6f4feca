package semantic

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
)

// StalePhotoIDs returns the photo ids under (projectID, model) whose
// embedding is stale: the photo's content changed since the embedding was
// computed, or its artifact_version differs from currentVersion (invariant 10).
func (s *Service) StalePhotoIDs(ctx context.Context, projectID int64, model string, currentVersion int) ([]int64, error) {
	var ids []int64
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		var err error
		ids, err = s.vecs.StaleEmbeddings(ctx, q, projectID, model, currentVersion)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list stale embeddings: %w", err)
	}
	return ids, nil
}
