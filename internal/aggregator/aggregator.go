// Package aggregator produces the counts and groupings that drive sidebar
// trees (folder tree, date hierarchy, tag intersections) at interactive
// latency (§4.4). Every query here is written to run once per call rather
// than once per tree node — the N+1 pattern the spec explicitly calls out
// as disallowed.
package aggregator

import (
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/metrics"
)

// Aggregator binds the read-side queries to a database handle. It holds no
// mutable state beyond an optional metrics registry; every method takes
// its own database.Querier so callers choose whether to run inside a
// transaction or a pooled read connection.
type Aggregator struct {
	db  *database.DB
	met *metrics.Registry
}

// New builds an Aggregator bound to db. met may be nil; every query method
// still runs, just without latency recorded (§4.4 performance contract).
func New(db *database.DB, met *metrics.Registry) *Aggregator {
	return &Aggregator{db: db, met: met}
}
