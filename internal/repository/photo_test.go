package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
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

func seedProjectAndFolder(t *testing.T, ctx context.Context, tx *sql.Tx, db *database.DB) (projectID, folderID int64) {
	t.Helper()
	projects := NewProjectRepository(db)
	folders := NewFolderRepository(db)

	pid, err := projects.Create(ctx, tx, "Test Project", "")
	require.NoError(t, err)
	fid, err := folders.Ensure(ctx, tx, pid, "/root", "root", nil)
	require.NoError(t, err)
	return pid, fid
}

func TestPhotoUpsertIdempotentDoesNotBumpUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)

	var photoID int64
	modified := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		pid, fid := seedProjectAndFolder(t, ctx, tx, db)
		id, err := photos.Upsert(ctx, tx, PhotoUpsertInput{
			ProjectID: pid, FolderID: fid, Path: "/root/img1.jpg", SizeKB: 500, Modified: modified,
		})
		photoID = id
		return err
	})
	require.NoError(t, err)

	var firstUpdatedAt time.Time
	err = db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx, `SELECT updated_at FROM photos WHERE id = ?`, photoID).Scan(&firstUpdatedAt)
	})
	require.NoError(t, err)

	// Re-upsert the identical row; per testable property 9 this must not
	// change updated_at.
	var projectID, folderID int64
	err = db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx, `SELECT project_id, folder_id FROM photos WHERE id = ?`, photoID).Scan(&projectID, &folderID)
	})
	require.NoError(t, err)

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := photos.Upsert(ctx, tx, PhotoUpsertInput{
			ProjectID: projectID, FolderID: folderID, Path: "/root/img1.jpg", SizeKB: 500, Modified: modified,
		})
		return err
	})
	require.NoError(t, err)

	var secondUpdatedAt time.Time
	err = db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx, `SELECT updated_at FROM photos WHERE id = ?`, photoID).Scan(&secondUpdatedAt)
	})
	require.NoError(t, err)

	assert.Equal(t, firstUpdatedAt, secondUpdatedAt)

	var count int
	err = db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE path = ?`, "/root/img1.jpg").Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPhotoUpsertSetsCreatedFieldsFromDateTaken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)

	dateTaken := "2024:03:10 11:00:00" // EXIF DateTimeOriginal layout
	modified := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	width, height := 1920, 1080

	var photoID int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		pid, fid := seedProjectAndFolder(t, ctx, tx, db)
		id, err := photos.Upsert(ctx, tx, PhotoUpsertInput{
			ProjectID: pid, FolderID: fid, Path: "/root/img1.jpg", SizeKB: 500, Modified: modified,
			Width: &width, Height: &height, DateTaken: &dateTaken,
		})
		photoID = id
		return err
	})
	require.NoError(t, err)

	p, err := photos.FindByID(ctx, dbQuerier(t, db), photoID)
	require.NoError(t, err)
	require.NotNil(t, p.CreatedYear)
	require.NotNil(t, p.CreatedDate)
	assert.Equal(t, 2024, *p.CreatedYear)
	assert.Equal(t, "2024-03-10", *p.CreatedDate)
	assert.Equal(t, "ok", string(p.MetadataStatus))
	require.NotNil(t, p.DateTaken)
	assert.True(t, p.DateTaken.Equal(time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)))
}

// TestPhotoUpsertUnparseableDateTakenFallsBackToModified exercises invariant
// 4's edge case: a date_taken string that matches none of dateTakenFormats
// is treated the same as a missing one, falling back to modified rather
// than erroring or propagating garbage into created_*.
func TestPhotoUpsertUnparseableDateTakenFallsBackToModified(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)

	garbage := "not-a-real-date"
	modified := time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC)
	width, height := 640, 480

	var photoID int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		pid, fid := seedProjectAndFolder(t, ctx, tx, db)
		id, err := photos.Upsert(ctx, tx, PhotoUpsertInput{
			ProjectID: pid, FolderID: fid, Path: "/root/img2.jpg", SizeKB: 200, Modified: modified,
			Width: &width, Height: &height, DateTaken: &garbage,
		})
		photoID = id
		return err
	})
	require.NoError(t, err)

	p, err := photos.FindByID(ctx, dbQuerier(t, db), photoID)
	require.NoError(t, err)
	assert.Nil(t, p.DateTaken)
	require.NotNil(t, p.CreatedYear)
	require.NotNil(t, p.CreatedDate)
	assert.Equal(t, 2023, *p.CreatedYear)
	assert.Equal(t, "2023-06-15", *p.CreatedDate)
}

func TestPhotoMissingMetadataThresholds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)

	modified := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	var pid, fid int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		pid, fid = seedProjectAndFolder(t, ctx, tx, db)
		_, err := photos.Upsert(ctx, tx, PhotoUpsertInput{ProjectID: pid, FolderID: fid, Path: "/root/a.jpg", SizeKB: 1, Modified: modified})
		return err
	})
	require.NoError(t, err)

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		return photos.MarkFailure(ctx, tx, pid, "/root/a.jpg", 3)
	})
	require.NoError(t, err)

	missing, err := photos.MissingMetadata(ctx, dbQuerier(t, db), pid, 10, 3)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "failed_retry", string(missing[0].MetadataStatus))

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := photos.MarkFailure(ctx, tx, pid, "/root/a.jpg", 3); err != nil {
			return err
		}
		return photos.MarkFailure(ctx, tx, pid, "/root/a.jpg", 3)
	})
	require.NoError(t, err)

	p, err := photos.findByPath(ctx, dbQuerier(t, db), pid, "/root/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "failed", string(p.MetadataStatus))
}

// dbQuerier hands back a pooled read connection for single-call assertions
// in tests; callers must not hold it across goroutines.
func dbQuerier(t *testing.T, db *database.DB) database.Querier {
	t.Helper()
	conn, err := db.Connection(context.Background(), true)
	require.NoError(t, err)
	t.Cleanup(conn.Release)
	return conn
}
