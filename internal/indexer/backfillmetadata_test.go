package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/batch"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/extractor"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

type fakeExtractor struct {
	width, height int
	failPaths     map[string]bool
}

func (f *fakeExtractor) ExtractEXIF(ctx context.Context, path string) (extractor.EXIFResult, error) {
	if f.failPaths[path] {
		return extractor.EXIFResult{}, errors.New("simulated extraction failure")
	}
	w, h := f.width, f.height
	return extractor.EXIFResult{Width: &w, Height: &h}, nil
}
func (f *fakeExtractor) PerceptualHash(ctx context.Context, path string) ([]byte, error) { return nil, nil }
func (f *fakeExtractor) ContentHash(ctx context.Context, path string) ([]byte, error)    { return nil, nil }
func (f *fakeExtractor) FaceDetect(ctx context.Context, path string) ([]extractor.FaceDetection, error) {
	return nil, nil
}
func (f *fakeExtractor) EmbedImage(ctx context.Context, path, model string) (extractor.Embedding, error) {
	return extractor.Embedding{}, nil
}

func seedPendingPhoto(t *testing.T, ctx context.Context, db *database.DB, projectID int64, path string) {
	t.Helper()
	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		folderID, err := repository.NewFolderRepository(db).Ensure(ctx, tx, projectID, "/root", "root", nil)
		if err != nil {
			return err
		}
		_, err = repository.NewPhotoRepository(db).Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: projectID, FolderID: folderID, Path: path, SizeKB: 1, Modified: time.Now(),
		})
		return err
	}))
}

func TestBackfillMetadataMarksSuccessForExtractablePhotos(t *testing.T) {
	ix, db := newTestIndexer(t)
	ctx := context.Background()
	projectID := seedProject(t, ctx, db)
	seedPendingPhoto(t, ctx, db, projectID, "/root/a.jpg")
	seedPendingPhoto(t, ctx, db, projectID, "/root/b.jpg")

	ix.extractor = &fakeExtractor{width: 100, height: 200}

	result, err := ix.BackfillMetadata(ctx, projectID, 2, 0, time.Second, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	var remaining []string
	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		rows, err := ix.photos.MissingMetadata(ctx, q, projectID, 0, 3)
		for _, p := range rows {
			remaining = append(remaining, p.Path)
		}
		return err
	}))
	assert.Empty(t, remaining, "both photos should have left missing-metadata status")
}

func TestBackfillMetadataMarksFailureAndIsRetriedUntilCapped(t *testing.T) {
	ix, db := newTestIndexer(t)
	ctx := context.Background()
	projectID := seedProject(t, ctx, db)
	seedPendingPhoto(t, ctx, db, projectID, "/root/bad.jpg")

	ix.extractor = &fakeExtractor{failPaths: map[string]bool{"/root/bad.jpg": true}}

	result, err := ix.BackfillMetadata(ctx, projectID, 1, 0, time.Second, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	var candidates []string
	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		rows, err := ix.photos.MissingMetadata(ctx, q, projectID, 0, 3)
		for _, p := range rows {
			candidates = append(candidates, p.Path)
		}
		return err
	}))
	assert.Contains(t, candidates, "/root/bad.jpg")
}

func TestBackfillMetadataCheckpointsAcrossSmallBatchesAndClearsOnCompletion(t *testing.T) {
	ix, db := newTestIndexer(t)
	ctx := context.Background()
	projectID := seedProject(t, ctx, db)
	for _, p := range []string{"/root/a.jpg", "/root/b.jpg", "/root/c.jpg", "/root/d.jpg", "/root/e.jpg"} {
		seedPendingPhoto(t, ctx, db, projectID, p)
	}

	ix.extractor = &fakeExtractor{width: 100, height: 200}

	result, err := ix.BackfillMetadata(ctx, projectID, 1, 0, time.Second, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Candidates)
	assert.Equal(t, 5, result.Succeeded)

	checkpoints := batch.NewChunkedProcessor(db, []int{}, func(context.Context, int) error { return nil }, 2, fmt.Sprintf("backfill-metadata:project-%d", projectID), nil)
	cp, err := checkpoints.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp, "a completed run must clear its checkpoint rather than leaving stale resume state")
}

func TestBackfillMetadataDryRunWritesNothing(t *testing.T) {
	ix, db := newTestIndexer(t)
	ctx := context.Background()
	projectID := seedProject(t, ctx, db)
	seedPendingPhoto(t, ctx, db, projectID, "/root/a.jpg")

	ix.extractor = &fakeExtractor{width: 10, height: 10}

	result, err := ix.BackfillMetadata(ctx, projectID, 1, 0, time.Second, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	var candidates []string
	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		rows, err := ix.photos.MissingMetadata(ctx, q, projectID, 0, 3)
		for _, p := range rows {
			candidates = append(candidates, p.Path)
		}
		return err
	}))
	assert.Contains(t, candidates, "/root/a.jpg", "dry-run must not write MarkSuccess back")
}
