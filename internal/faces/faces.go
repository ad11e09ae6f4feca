// Package faces implements cluster merge/undo and merge-suggestion scoring
// over face crops and branch reps (§4.6). Merges are reversible: a JSON
// snapshot of every affected row is recorded before the merge mutates
// anything, and Undo replays that snapshot verbatim.
package faces

import (
	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

// Service binds the face and project-image repositories for cluster
// management.
type Service struct {
	db    *database.DB
	faces *repository.FaceRepository
	cfg   *config.FaceConfig
}

// New builds a Service bound to db, using cfg's merge-suggestion defaults.
// A nil cfg falls back to the spec's stated defaults.
func New(db *database.DB, cfg *config.FaceConfig) *Service {
	if cfg == nil {
		cfg = &config.FaceConfig{
			SuggestThreshold: defaultSuggestThreshold,
			SuggestMinCount:  defaultSuggestMinCount,
		}
	}
	return &Service{db: db, faces: repository.NewFaceRepository(db), cfg: cfg}
}
