package maintenance

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

func seedProject(t *testing.T, ctx context.Context, db *database.DB) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = repository.NewProjectRepository(db).Create(ctx, tx, "Test Project", "")
		return err
	}))
	return id
}

func seedFolder(t *testing.T, ctx context.Context, db *database.DB, projectID int64, path, name string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = repository.NewFolderRepository(db).Ensure(ctx, tx, projectID, path, name, nil)
		return err
	}))
	return id
}

func TestCollectReportsPhotoVideoAndFolderCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	projectID := seedProject(t, ctx, db)
	folderID := seedFolder(t, ctx, db, projectID, "/root", "root")

	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO photos (project_id, folder_id, path, size_kb, modified, metadata_status)
			VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, 'ok')`, projectID, folderID, "/root/a.jpg")
		return err
	}))

	m := New(db)
	stats, err := m.Collect(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPhotos)
	assert.Equal(t, 1, stats.TotalFolders)
	assert.Equal(t, 1, stats.PhotosByStatus["ok"])
}

func TestCheckFindsOrphanedPhotoRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	projectID := seedProject(t, ctx, db)
	folderID := seedFolder(t, ctx, db, projectID, "/root", "root")

	// foreign_keys is a no-op mid-transaction, so disable it on a plain
	// autocommit connection to simulate a folder deleted without cascading
	// (e.g. an interrupted migration) and produce a genuine orphan.
	conn, err := db.Connection(ctx, false)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO photos (project_id, folder_id, path, size_kb, modified, metadata_status)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, 'ok')`, projectID, folderID, "/root/a.jpg")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID)
	require.NoError(t, err)
	conn.Release()

	m := New(db)
	report, err := m.Check(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, report.Orphaned, 1)
	assert.Equal(t, "photos", report.Orphaned[0].Table)
	assert.Equal(t, folderID, report.Orphaned[0].FolderID)
}

func TestVacuumRunsWithoutError(t *testing.T) {
	db := newTestDB(t)
	m := New(db)
	require.NoError(t, m.Vacuum(context.Background()))
}
