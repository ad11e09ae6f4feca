package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mediacatalog/internal/batch"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/extractor"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

const defaultBackfillBatchSize = 50

type int32Counter struct{ n int32 }

func (c *int32Counter) add(delta int32) { atomic.AddInt32(&c.n, delta) }
func (c *int32Counter) value() int      { return int(atomic.LoadInt32(&c.n)) }

// BackfillResult summarizes one BackfillMetadata call.
type BackfillResult struct {
	Candidates int
	Succeeded  int
	Failed     int
}

// backfillCandidate pairs one photo with its extraction outcome, computed
// ahead of the checkpointed commit stage.
type backfillCandidate struct {
	photo      *models.Photo
	exif       extractor.EXIFResult
	extractErr error
}

// BackfillMetadata drives PhotoRepository.MissingMetadata through the
// FeatureExtractor, the way Scan's extraction stage does, but as a
// standalone maintenance pass (§6 `backfill-metadata` CLI) rather than part
// of a filesystem walk. Like Scan (scan.go) it separates extraction from
// committing; here extraction runs across a bounded worker pool of size
// workers, independent per candidate, and committing results back to the
// catalog is sequential and checkpointed through internal/batch, so a
// backfill over a large candidate set can be interrupted and resumed
// instead of restarting from row zero (§4.8's "resumable batch processors
// with database-backed checkpoints", grounded on
// _examples/original_source/services/batch_iterator.py).
//
// dryRun runs extraction and reports what would happen without writing any
// row or saving a checkpoint; timeout overrides cfg.ExtractorTimeout when
// positive; batchSize overrides defaultBackfillBatchSize when positive.
func (ix *Indexer) BackfillMetadata(ctx context.Context, projectID int64, workers, limit int, timeout time.Duration, batchSize int, dryRun bool) (BackfillResult, error) {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = ix.cfg.ExtractorTimeout
	}
	if batchSize <= 0 {
		batchSize = defaultBackfillBatchSize
	}

	var candidates []*models.Photo
	err := ix.db.WithReadConn(ctx, func(q database.Querier) error {
		var err error
		candidates, err = ix.photos.MissingMetadata(ctx, q, projectID, limit, ix.cfg.MaxMetadataFailures)
		return err
	})
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list missing-metadata photos: %w", err)
	}

	result := BackfillResult{Candidates: len(candidates)}
	if len(candidates) == 0 || ix.extractor == nil {
		return result, nil
	}

	items := make([]backfillCandidate, len(candidates))
	sem := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i, photo := range candidates {
		i, photo := i, photo
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			extractCtx, cancel := context.WithTimeout(gctx, timeout)
			exif, extractErr := ix.extractor.ExtractEXIF(extractCtx, photo.Path)
			cancel()
			items[i] = backfillCandidate{photo: photo, exif: exif, extractErr: extractErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("extract backfill candidates: %w", err)
	}

	var succeeded, failed int32Counter
	checkpointKey := fmt.Sprintf("backfill-metadata:project-%d", projectID)
	proc := batch.NewChunkedProcessor(ix.db, items, func(ctx context.Context, c backfillCandidate) error {
		ok, err := ix.commitBackfillCandidate(ctx, projectID, c, dryRun)
		if err != nil {
			// A checkpoint-table write error is not this, only a failure of
			// the photos/videos write itself; OnItemError below counts it.
			return err
		}
		if ok {
			succeeded.add(1)
		} else {
			failed.add(1)
		}
		return nil
	}, batchSize, checkpointKey, func(c backfillCandidate, err error) batch.ItemOutcome {
		logging.Ctx(ctx).Warn().Err(err).Str("path", c.photo.Path).Msg("backfill commit write failed")
		failed.add(1)
		return batch.ContinueOnError
	})
	proc.ItemID = func(c backfillCandidate) string { return c.photo.Path }
	proc.ExtraData = func() map[string]any {
		return map[string]any{"succeeded": succeeded.value(), "failed": failed.value()}
	}

	if dryRun {
		// A dry run never writes a row and never touches the checkpoint
		// table at all: a real backfill may have progress saved under this
		// same key, and a dry run must not disturb it.
		for _, c := range items {
			if ok, _ := ix.commitBackfillCandidate(ctx, projectID, c, true); ok {
				succeeded.add(1)
			} else {
				failed.add(1)
			}
		}
		result.Succeeded = succeeded.value()
		result.Failed = failed.value()
		return result, nil
	}

	if _, err := proc.Run(ctx, nil, nil, nil); err != nil {
		return result, fmt.Errorf("backfill metadata: %w", err)
	}

	result.Succeeded = succeeded.value()
	result.Failed = failed.value()
	return result, nil
}

// commitBackfillCandidate writes one candidate's precomputed extraction
// outcome to the catalog, mirroring Scan's "extractor failure is handled
// per-row, not fatal to the batch" policy (§7): a failed extraction or a
// missing width/height is reported as (false, nil), the per-row outcome
// BackfillResult.Failed counts. A failure to write the resulting row,
// in contrast, is a genuine error returned to the caller (ChunkedProcessor's
// OnItemError), since it means this row's status is indeterminate rather
// than cleanly "no metadata yet".
func (ix *Indexer) commitBackfillCandidate(ctx context.Context, projectID int64, c backfillCandidate, dryRun bool) (bool, error) {
	photo, exif, extractErr := c.photo, c.exif, c.extractErr

	if extractErr != nil || exif.Width == nil || exif.Height == nil {
		logging.Ctx(ctx).Warn().Err(extractErr).Str("path", photo.Path).Msg("backfill extraction failed")
		if dryRun {
			return false, nil
		}
		if err := ix.db.WithTx(ctx, func(tx *sql.Tx) error {
			return ix.photos.MarkFailure(ctx, tx, projectID, photo.Path, ix.cfg.MaxMetadataFailures)
		}); err != nil {
			return false, fmt.Errorf("record backfill failure for %s: %w", photo.Path, err)
		}
		return false, nil
	}

	if dryRun {
		return true, nil
	}

	if err := ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		return ix.photos.MarkSuccess(ctx, tx, projectID, photo.Path, *exif.Width, *exif.Height, exif.DateTaken, photo.Modified)
	}); err != nil {
		return false, fmt.Errorf("record backfill success for %s: %w", photo.Path, err)
	}
	return true, nil
}
