// Package duplicate implements asset-identity tracking and stack
// construction: duplicate/near_duplicate/similar/burst grouping over a
// project's photos (§4.5).
package duplicate

import (
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

// Service binds the asset/stack repositories together for the duplicate
// detection and stack-building operations.
type Service struct {
	db     *database.DB
	assets *repository.AssetRepository
	stacks *repository.StackRepository
	photos *repository.PhotoRepository
}

// New builds a Service bound to db.
func New(db *database.DB) *Service {
	return &Service{
		db:     db,
		assets: repository.NewAssetRepository(db),
		stacks: repository.NewStackRepository(db),
		photos: repository.NewPhotoRepository(db),
	}
}
