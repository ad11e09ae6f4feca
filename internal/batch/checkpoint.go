package batch

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, catalogerr.ErrNotFound)
}

// loadCheckpoint returns nil (not an error) when no checkpoint exists yet.
func loadCheckpoint(ctx context.Context, s *checkpointStore, key string) (*models.BatchCheckpoint, error) {
	var cp *models.BatchCheckpoint
	err := s.db.WithReadConn(ctx, func(q database.Querier) error {
		c, err := s.repo.Get(ctx, q, key)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		cp = c
		return nil
	})
	return cp, err
}

func clearCheckpoint(ctx context.Context, s *checkpointStore, key string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Clear(ctx, tx, key)
	})
}
