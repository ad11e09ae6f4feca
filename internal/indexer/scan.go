package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

// ScanResult summarizes one Scan call.
type ScanResult struct {
	PhotosUpserted int
	VideosUpserted int
	FoldersCreated int
}

// extractedEntry is one matched file, with its EXIF outcome attached by the
// extraction stage, waiting to be committed by the batching stage.
type extractedEntry struct {
	path      string
	sizeKB    int64
	modified  time.Time
	folderKey string
	exif      *extractEXIFOutcome
	isVideo   bool
}

type extractEXIFOutcome struct {
	width     *int
	height    *int
	dateTaken *string
}

// Scan recursively enumerates supported extensions under rootPath,
// ensuring each folder chain exists and upserting a photo/video row per
// matched file (§4.3). date_taken extraction goes through the
// FeatureExtractor under ExtractorTimeout; file_hash/image_content_hash are
// intentionally left for the lazy background hashing workers (§4.3
// "computed lazily"), not this pass.
//
// Walking the filesystem, calling the extractor and committing run as
// concurrent pipeline stages joined by a bounded channel; the extractor is
// called one file at a time by a single producer goroutine, not by a worker
// pool. Committing to the database stays single-writer, batched per
// CommitBatchSize rows (§5).
func (ix *Indexer) Scan(ctx context.Context, projectID int64, rootPath string, progress ProgressFunc) (ScanResult, error) {
	extensions := append(append([]string{}, ix.cfg.PhotoExtensions...), ix.cfg.VideoExtensions...)
	entries, walkErrs := ix.scan.Walk(ctx, rootPath, extensions)

	work := make(chan extractedEntry, ix.cfg.HashWorkers*2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for e := range entries {
			ext := filepath.Ext(e.Path)
			isVideo := isVideoExt(ix.cfg, ext)
			if !isVideo && !isPhotoExt(ix.cfg, ext) {
				continue
			}

			item := extractedEntry{
				path:      e.Path,
				sizeKB:    e.SizeKB,
				modified:  e.Modified,
				folderKey: filepath.ToSlash(filepath.Dir(repository.NormalizePath(e.Path))),
				isVideo:   isVideo,
				exif:      ix.extractEXIFWithTimeout(gctx, e.Path),
			}

			select {
			case work <- item:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var result ScanResult
	folderIDs := make(map[string]int64)

	g.Go(func() error {
		batch := make([]extractedEntry, 0, ix.cfg.CommitBatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := ix.commitBatch(gctx, projectID, batch, folderIDs, &result); err != nil {
				return err
			}
			if progress != nil {
				progress(result.PhotosUpserted + result.VideosUpserted)
			}
			batch = batch[:0]
			return nil
		}

		for item := range work {
			batch = append(batch, item)
			if len(batch) >= ix.cfg.CommitBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("scan %s: %w", rootPath, err)
	}
	if err := <-walkErrs; err != nil {
		return result, fmt.Errorf("walk %s: %w", rootPath, err)
	}

	logging.Ctx(ctx).Info().
		Int64("project_id", projectID).
		Str("root", rootPath).
		Int("photos", result.PhotosUpserted).
		Int("videos", result.VideosUpserted).
		Msg("scan complete")
	return result, nil
}

// commitBatch writes one batch of extracted entries inside a single
// transaction: ensure the folder chain, then upsert the photo/video row.
// folderIDs caches folder path -> id across batches within one Scan call so
// repeated folders in the same run don't re-query FolderRepository.Ensure.
func (ix *Indexer) commitBatch(ctx context.Context, projectID int64, batch []extractedEntry, folderIDs map[string]int64, result *ScanResult) error {
	return ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, item := range batch {
			folderID, ok := folderIDs[item.folderKey]
			if !ok {
				var err error
				folderID, err = ix.folders.Ensure(ctx, tx, projectID, item.folderKey, filepath.Base(item.folderKey), nil)
				if err != nil {
					return fmt.Errorf("ensure folder %s: %w", item.folderKey, err)
				}
				folderIDs[item.folderKey] = folderID
				result.FoldersCreated++
			}

			var width, height *int
			var dateTaken *string
			if item.exif != nil {
				width, height, dateTaken = item.exif.width, item.exif.height, item.exif.dateTaken
			}

			if item.isVideo {
				in := repository.VideoUpsertInput{
					ProjectID: projectID,
					FolderID:  folderID,
					Path:      item.path,
					SizeKB:    item.sizeKB,
					Modified:  item.modified,
					Width:     width,
					Height:    height,
					DateTaken: dateTaken,
				}
				if _, err := ix.videos.Upsert(ctx, tx, in); err != nil {
					return fmt.Errorf("upsert video %s: %w", item.path, err)
				}
				result.VideosUpserted++
				continue
			}

			in := repository.PhotoUpsertInput{
				ProjectID: projectID,
				FolderID:  folderID,
				Path:      item.path,
				SizeKB:    item.sizeKB,
				Modified:  item.modified,
				Width:     width,
				Height:    height,
				DateTaken: dateTaken,
			}
			if _, err := ix.photos.Upsert(ctx, tx, in); err != nil {
				return fmt.Errorf("upsert photo %s: %w", item.path, err)
			}
			result.PhotosUpserted++
		}
		return nil
	})
}

// extractEXIFWithTimeout calls the FeatureExtractor under
// ScanConfig.ExtractorTimeout, treating a failure as "no EXIF data" rather
// than aborting the scan (§7 extractor failures are handled per-row, not
// fatal to the batch).
func (ix *Indexer) extractEXIFWithTimeout(ctx context.Context, path string) *extractEXIFOutcome {
	if ix.extractor == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, ix.cfg.ExtractorTimeout)
	defer cancel()

	res, err := ix.extractor.ExtractEXIF(ctx, path)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("EXIF extraction failed during scan")
		return nil
	}

	return &extractEXIFOutcome{width: res.Width, height: res.Height, dateTaken: res.DateTaken}
}
