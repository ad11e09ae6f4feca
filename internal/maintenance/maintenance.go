// Package maintenance implements the catalog-wide upkeep operations the
// CLI exposes directly (§6): counts for `stats`, orphan detection for
// `integrity-check`, and compaction for `vacuum`. None of these belong to
// one repository's domain, so they query across tables the way the
// teacher's backup manager reports cross-cutting counts rather than
// delegating to a single CRUD repository.
package maintenance

import (
	"github.com/tomtom215/mediacatalog/internal/database"
)

// Manager binds the upkeep operations to a database handle.
type Manager struct {
	db *database.DB
}

// New builds a Manager bound to db.
func New(db *database.DB) *Manager {
	return &Manager{db: db}
}
