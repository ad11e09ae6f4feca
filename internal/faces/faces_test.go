package faces

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path: ":memory:", AutoInit: true, BusyTimeout: 5 * time.Second, PoolSize: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	projectID        int64
	photoA, photoB   int64
	branchA, branchB string
}

// seedFixture builds two branches ("face_a" with one crop and rep, "face_b"
// with one crop and rep), each with a photo tied in via project_images,
// matching the scenario merge/undo round trips over (§4.6).
func seedFixture(t *testing.T, ctx context.Context, db *database.DB) fixture {
	t.Helper()
	photos := repository.NewPhotoRepository(db)
	folders := repository.NewFolderRepository(db)
	projects := repository.NewProjectRepository(db)
	faceRepo := repository.NewFaceRepository(db)

	f := fixture{branchA: "face_a", branchB: "face_b"}
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		f.projectID, err = projects.Create(ctx, tx, "Test Project", "")
		if err != nil {
			return err
		}
		folderID, err := folders.Ensure(ctx, tx, f.projectID, "/root", "root", nil)
		if err != nil {
			return err
		}
		f.photoA, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: f.projectID, FolderID: folderID, Path: "/root/a.jpg", SizeKB: 1, Modified: modified,
		})
		if err != nil {
			return err
		}
		f.photoB, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: f.projectID, FolderID: folderID, Path: "/root/b.jpg", SizeKB: 1, Modified: modified,
		})
		if err != nil {
			return err
		}

		if _, err := faceRepo.BulkAddCrops(ctx, tx, f.projectID, f.branchA, []repository.FaceCropInput{
			{ImagePath: "/root/a.jpg", CropPath: "/crops/a1.png", BBox: [4]float64{0, 0, 1, 1}},
		}); err != nil {
			return err
		}
		if _, err := faceRepo.BulkAddCrops(ctx, tx, f.projectID, f.branchB, []repository.FaceCropInput{
			{ImagePath: "/root/b.jpg", CropPath: "/crops/b1.png", BBox: [4]float64{0, 0, 1, 1}},
		}); err != nil {
			return err
		}

		if err := faceRepo.UpsertRep(ctx, tx, models.FaceBranchRep{
			ProjectID: f.projectID, BranchKey: f.branchA, Label: "Alice", MemberCount: 1,
			Centroid: encodeCentroid([]float32{0, 0}),
		}); err != nil {
			return err
		}
		if err := faceRepo.UpsertRep(ctx, tx, models.FaceBranchRep{
			ProjectID: f.projectID, BranchKey: f.branchB, Label: "Bob", MemberCount: 1,
			Centroid: encodeCentroid([]float32{0.1, 0.1}),
		}); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_images (project_id, branch_key, photo_id) VALUES (?, ?, ?)`,
			f.projectID, f.branchA, f.photoA); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_images (project_id, branch_key, photo_id) VALUES (?, ?, ?)`,
			f.projectID, f.branchB, f.photoB); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

// TestMergeThenUndoRestoresOriginalState covers the S3 reversible-merge
// scenario: merging branchB into branchA moves its crop and photo link over
// and drops its rep; Undo restores both branches exactly.
func TestMergeThenUndoRestoresOriginalState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	svc := New(db, nil)
	faceRepo := repository.NewFaceRepository(db)

	require.NoError(t, svc.Merge(ctx, f.projectID, f.branchA, []string{f.branchB}))

	var countA, countB int64
	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		var err error
		countA, err = faceRepo.CountByBranch(ctx, q, f.projectID, f.branchA)
		if err != nil {
			return err
		}
		countB, err = faceRepo.CountByBranch(ctx, q, f.projectID, f.branchB)
		return err
	}))
	assert.Equal(t, int64(2), countA)
	assert.Equal(t, int64(0), countB)

	repA, err := getRep(ctx, db, faceRepo, f.projectID, f.branchA)
	require.NoError(t, err)
	assert.Equal(t, 2, repA.MemberCount)

	_, err = getRep(ctx, db, faceRepo, f.projectID, f.branchB)
	assert.Error(t, err)

	var linkedPhotos int
	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM project_images WHERE project_id = ? AND branch_key = ?`,
			f.projectID, f.branchA).Scan(&linkedPhotos)
	}))
	assert.Equal(t, 2, linkedPhotos)

	require.NoError(t, svc.Undo(ctx, f.projectID))

	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		var err error
		countA, err = faceRepo.CountByBranch(ctx, q, f.projectID, f.branchA)
		if err != nil {
			return err
		}
		countB, err = faceRepo.CountByBranch(ctx, q, f.projectID, f.branchB)
		return err
	}))
	assert.Equal(t, int64(1), countA)
	assert.Equal(t, int64(1), countB)

	repA, err = getRep(ctx, db, faceRepo, f.projectID, f.branchA)
	require.NoError(t, err)
	assert.Equal(t, 1, repA.MemberCount)
	repB, err := getRep(ctx, db, faceRepo, f.projectID, f.branchB)
	require.NoError(t, err)
	assert.Equal(t, "Bob", repB.Label)
}

func getRep(ctx context.Context, db *database.DB, faceRepo *repository.FaceRepository, projectID int64, branchKey string) (*models.FaceBranchRep, error) {
	var rep *models.FaceBranchRep
	err := db.WithReadConn(ctx, func(q database.Querier) error {
		var err error
		rep, err = faceRepo.RepByBranch(ctx, q, projectID, branchKey)
		return err
	})
	return rep, err
}

func TestUndoWithoutHistoryReturnsNoMergeHistoryError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	svc := New(db, nil)

	err := svc.Undo(ctx, f.projectID)
	assert.ErrorContains(t, err, "no merge history")
}

func TestSuggestMergesPairsCloseCentroids(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	svc := New(db, nil)

	suggestions, err := svc.SuggestMerges(ctx, f.projectID, 1, 0.45, 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.ElementsMatch(t, []string{f.branchA, f.branchB},
		[]string{suggestions[0].BranchA, suggestions[0].BranchB})

	none, err := svc.SuggestMerges(ctx, f.projectID, 1, 0.01, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
