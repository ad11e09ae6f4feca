package batch

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// ProcessFunc handles one item. An error routes through OnItemError rather
// than aborting the run, unless OnItemError returns AbortOnError.
type ProcessFunc[T any] func(ctx context.Context, item T) error

// ItemErrorFunc decides what an item-level error means for the run.
type ItemErrorFunc[T any] func(item T, err error) ItemOutcome

// ChunkedProcessor walks Items in fixed-size batches, checkpointing
// progress after every batch so a canceled or crashed run can resume
// without reprocessing what already succeeded.
type ChunkedProcessor[T any] struct {
	Items         []T
	ProcessFn     ProcessFunc[T]
	BatchSize     int
	CheckpointKey string
	OnItemError   ItemErrorFunc[T]

	// ItemID extracts a stable identifier for checkpointing. Optional; if
	// nil, LastItemID is left unset in saved checkpoints.
	ItemID func(T) string

	// ExtraData, if set, is called before each checkpoint save and its
	// result marshaled into the checkpoint's extra_data_json column —
	// the same slot the original iterator uses for success_count/
	// failed_count/skipped_count.
	ExtraData func() map[string]any

	store *checkpointStore
}

// NewChunkedProcessor builds a ChunkedProcessor bound to db's checkpoint
// table. batchSize must be positive.
func NewChunkedProcessor[T any](db *database.DB, items []T, processFn ProcessFunc[T], batchSize int, checkpointKey string, onItemError ItemErrorFunc[T]) *ChunkedProcessor[T] {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &ChunkedProcessor[T]{
		Items:         items,
		ProcessFn:     processFn,
		BatchSize:     batchSize,
		CheckpointKey: checkpointKey,
		OnItemError:   onItemError,
		store:         newCheckpointStore(db),
	}
}

// LoadCheckpoint returns the saved progress for this processor's key, or
// nil if no checkpoint exists (a fresh run).
func (p *ChunkedProcessor[T]) LoadCheckpoint(ctx context.Context) (*models.BatchCheckpoint, error) {
	return loadCheckpoint(ctx, p.store, p.CheckpointKey)
}

// ClearCheckpoint removes any saved progress for this processor's key.
func (p *ChunkedProcessor[T]) ClearCheckpoint(ctx context.Context) error {
	return clearCheckpoint(ctx, p.store, p.CheckpointKey)
}

// Run walks Items from the last checkpoint (if any) to the end, in
// BatchSize chunks. It returns (true, nil) once every item has been
// offered to ProcessFn, (false, nil) if shouldCancel reported true partway
// through (after saving a checkpoint for a future resume), and (false, err)
// only when a fatal error occurred (a checkpoint write failed, or
// OnItemError returned AbortOnError).
//
// onProgress, shouldCancel, and onBatchComplete may all be nil.
func (p *ChunkedProcessor[T]) Run(
	ctx context.Context,
	onProgress func(Progress),
	shouldCancel func() bool,
	onBatchComplete func(batchIndex int),
) (bool, error) {
	total := len(p.Items)
	start := 0

	cp, err := p.LoadCheckpoint(ctx)
	if err != nil {
		return false, fmt.Errorf("load checkpoint %q: %w", p.CheckpointKey, err)
	}
	if cp != nil {
		start = cp.LastItemIndex + 1
	}

	processed := start
	failed := 0
	report := func() {
		if onProgress != nil {
			onProgress(Progress{Processed: processed, Total: total, Remaining: total - processed, Failed: failed})
		}
	}
	report()

	batchIndex := 0
	for batchStart := start; batchStart < total; batchStart += p.BatchSize {
		if shouldCancel != nil && shouldCancel() {
			if err := p.saveProgress(ctx, processed, total, batchStart-1); err != nil {
				return false, fmt.Errorf("save checkpoint on cancel: %w", err)
			}
			return false, nil
		}

		end := batchStart + p.BatchSize
		if end > total {
			end = total
		}

		for i := batchStart; i < end; i++ {
			item := p.Items[i]
			if err := p.ProcessFn(ctx, item); err != nil {
				outcome := ContinueOnError
				if p.OnItemError != nil {
					outcome = p.OnItemError(item, err)
				} else {
					logging.Ctx(ctx).Error().Err(err).Int("item_index", i).
						Str("checkpoint_key", p.CheckpointKey).Msg("chunked processor item failed, no handler registered")
				}
				if outcome == AbortOnError {
					return false, fmt.Errorf("item %d aborted run: %w", i, err)
				}
				failed++
			}
			processed = i + 1
		}

		if err := p.saveProgress(ctx, processed, total, end-1); err != nil {
			return false, fmt.Errorf("save checkpoint: %w", err)
		}
		report()

		batchIndex++
		if onBatchComplete != nil {
			onBatchComplete(batchIndex)
		}
	}

	if err := p.ClearCheckpoint(ctx); err != nil {
		return false, fmt.Errorf("clear checkpoint: %w", err)
	}
	return true, nil
}

func (p *ChunkedProcessor[T]) saveProgress(ctx context.Context, processed, total, lastIndex int) error {
	if lastIndex < 0 {
		return nil
	}
	c := models.BatchCheckpoint{
		CheckpointKey:  p.CheckpointKey,
		ItemsProcessed: processed,
		TotalItems:     total,
		LastItemIndex:  lastIndex,
	}
	if p.ItemID != nil {
		id := p.ItemID(p.Items[lastIndex])
		c.LastItemID = &id
	}
	if p.ExtraData != nil {
		raw, err := json.Marshal(p.ExtraData())
		if err != nil {
			return fmt.Errorf("marshal checkpoint extra data: %w", err)
		}
		s := string(raw)
		c.ExtraDataJSON = &s
	}
	return p.store.db.WithTx(ctx, func(tx *sql.Tx) error {
		return p.store.repo.Save(ctx, tx, c)
	})
}
