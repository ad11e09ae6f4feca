// Package semantic implements embedding-based photo search: brute-force
// k-nearest-neighbor retrieval over stored vectors, Rocchio relevance
// feedback, staleness detection, and search history/saved searches (§4.7).
package semantic

import (
	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

// Service binds the semantic and saved-search repositories for one catalog.
type Service struct {
	db     *database.DB
	vecs   *repository.SemanticRepository
	saved  *repository.SavedSearchRepository
	cfg    *config.SemanticConfig
}

// New builds a Service bound to db, using cfg's Rocchio weights and
// brute-force ceiling. A nil cfg falls back to the spec's stated defaults.
func New(db *database.DB, cfg *config.SemanticConfig) *Service {
	if cfg == nil {
		cfg = &config.SemanticConfig{
			RocchioAlpha:         1.0,
			RocchioBeta:          0.75,
			RocchioGamma:         0.25,
			MaxBruteForceVectors: 100000,
		}
	}
	return &Service{
		db:    db,
		vecs:  repository.NewSemanticRepository(db),
		saved: repository.NewSavedSearchRepository(db),
		cfg:   cfg,
	}
}
