package repository

import (
	"context"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// CheckpointRepository persists BatchCheckpoint rows for resumable
// processors (§3, §4.8, S5).
type CheckpointRepository struct {
	base
}

// NewCheckpointRepository builds a CheckpointRepository bound to db.
func NewCheckpointRepository(db *database.DB) *CheckpointRepository {
	return &CheckpointRepository{base: base{db: db}}
}

// Save upserts a checkpoint row.
func (r *CheckpointRepository) Save(ctx context.Context, q database.Querier, c models.BatchCheckpoint) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO batch_checkpoints (checkpoint_key, items_processed, total_items, last_item_index, last_item_id, extra_data_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(checkpoint_key) DO UPDATE SET
			items_processed = excluded.items_processed,
			total_items = excluded.total_items,
			last_item_index = excluded.last_item_index,
			last_item_id = excluded.last_item_id,
			extra_data_json = excluded.extra_data_json,
			saved_at = CURRENT_TIMESTAMP`,
		c.CheckpointKey, c.ItemsProcessed, c.TotalItems, c.LastItemIndex, c.LastItemID, c.ExtraDataJSON)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Get returns the checkpoint for key, or catalogerr.ErrNotFound if absent
// (a fresh run with no prior progress).
func (r *CheckpointRepository) Get(ctx context.Context, q database.Querier, key string) (*models.BatchCheckpoint, error) {
	var c models.BatchCheckpoint
	err := q.QueryRowContext(ctx, `
		SELECT checkpoint_key, items_processed, total_items, last_item_index, last_item_id, extra_data_json, saved_at
		FROM batch_checkpoints WHERE checkpoint_key = ?`, key).
		Scan(&c.CheckpointKey, &c.ItemsProcessed, &c.TotalItems, &c.LastItemIndex, &c.LastItemID, &c.ExtraDataJSON, &c.SavedAt)
	if err != nil {
		return nil, scanRowNotFound(err, "batch_checkpoints", key)
	}
	return &c, nil
}

// Clear deletes the checkpoint for key, called once a run completes fully
// (S5: "checkpoint is cleared" after all 1000 items are processed).
func (r *CheckpointRepository) Clear(ctx context.Context, q database.Querier, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM batch_checkpoints WHERE checkpoint_key = ?`, key); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
