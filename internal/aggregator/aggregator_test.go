package aggregator

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
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
	projectID            int64
	rootID, childID      int64
	photoInRoot          int64
	photoInChild         int64
	tagID                int64
}

func seedFixture(t *testing.T, ctx context.Context, db *database.DB) fixture {
	t.Helper()
	var f fixture
	projects := repository.NewProjectRepository(db)
	folders := repository.NewFolderRepository(db)
	photos := repository.NewPhotoRepository(db)
	tags := repository.NewTagRepository(db)

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		f.projectID, err = projects.Create(ctx, tx, "Test Project", "")
		if err != nil {
			return err
		}
		f.rootID, err = folders.Ensure(ctx, tx, f.projectID, "/root", "root", nil)
		if err != nil {
			return err
		}
		f.childID, err = folders.Ensure(ctx, tx, f.projectID, "/root/child", "child", &f.rootID)
		if err != nil {
			return err
		}

		modified := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)
		dateTaken := "2024-05-17 10:00:00"
		f.photoInRoot, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: f.projectID, FolderID: f.rootID, Path: "/root/a.jpg", SizeKB: 10,
			Modified: modified, DateTaken: &dateTaken,
		})
		if err != nil {
			return err
		}
		f.photoInChild, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: f.projectID, FolderID: f.childID, Path: "/root/child/b.jpg", SizeKB: 20,
			Modified: modified, DateTaken: &dateTaken,
		})
		if err != nil {
			return err
		}

		f.tagID, err = tags.EnsureExists(ctx, tx, f.projectID, "sunset")
		if err != nil {
			return err
		}
		if err := tags.AddToPhoto(ctx, tx, f.photoInChild, f.tagID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO project_images (project_id, branch_key, photo_id) VALUES (?, 'all', ?), (?, 'all', ?)`,
			f.projectID, f.photoInRoot, f.projectID, f.photoInChild)
		return err
	})
	require.NoError(t, err)
	return f
}

func readConn(t *testing.T, db *database.DB) database.Querier {
	t.Helper()
	conn, err := db.Connection(context.Background(), true)
	require.NoError(t, err)
	t.Cleanup(conn.Release)
	return conn
}

func TestFolderCountsSumsDescendants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	agg := New(db, nil)

	counts, err := agg.FolderCounts(ctx, readConn(t, db), f.projectID)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[f.rootID])
	assert.Equal(t, 1, counts[f.childID])
}

func TestDateHierarchyGroupsByYearMonthDay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	agg := New(db, nil)

	tree, err := agg.DateHierarchy(ctx, readConn(t, db), f.projectID)
	require.NoError(t, err)

	require.Contains(t, tree, 2024)
	require.Contains(t, tree[2024], 5)
	assert.Equal(t, []int{17}, tree[2024][5])
}

func TestImagesByBranchAndTagReturnsOnlyTaggedPhoto(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	agg := New(db, nil)

	photos, err := agg.ImagesByBranchAndTag(ctx, readConn(t, db), f.projectID, "all", "sunset")
	require.NoError(t, err)

	require.Len(t, photos, 1)
	assert.Equal(t, f.photoInChild, photos[0].ID)
}

func TestCountInWindowCoversSeededPhotos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, ctx, db)
	agg := New(db, nil)

	count, err := agg.CountInWindow(ctx, readConn(t, db), f.projectID, WindowThisYear, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
