// Package batch implements the resumable chunked-processing iterator
// (§4.8 "Batch iterator" / "ChunkedProcessor"): items are walked in fixed-
// size batches, progress is checkpointed after each batch, and a
// cancellation mid-run saves a checkpoint instead of losing progress.
package batch

import (
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

// Progress is the iterator's running state, reported to callers via
// on_progress and persisted via the checkpoint.
type Progress struct {
	Processed int
	Total     int
	Remaining int
	// Failed counts items whose ProcessFn returned an error and whose
	// outcome was ContinueOnError, mirroring the original iterator's
	// failed_count.
	Failed int
}

// ItemOutcome tells the processor how to react to a single item's
// process_fn error.
type ItemOutcome int

const (
	// ContinueOnError logs the item's failure (via on_item_error) and
	// moves on to the next item.
	ContinueOnError ItemOutcome = iota
	// AbortOnError stops the run immediately; the batch in progress is not
	// checkpointed as complete.
	AbortOnError
)

// checkpointStore is the subset of CheckpointRepository the processor
// depends on, bound to one database.
type checkpointStore struct {
	db   *database.DB
	repo *repository.CheckpointRepository
}

func newCheckpointStore(db *database.DB) *checkpointStore {
	return &checkpointStore{db: db, repo: repository.NewCheckpointRepository(db)}
}
