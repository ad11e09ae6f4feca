package duplicate

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

// TestIdentifyAssetSharedByTwoPhotosIsListedAsDuplicate covers §4.5/testable
// property 8: two photos with the same file_hash become one asset with
// instance_count 2, returned by ListDuplicates(minInstances=2).
func TestIdentifyAssetSharedByTwoPhotosIsListedAsDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db)
	photos := repository.NewPhotoRepository(db)
	folders := repository.NewFolderRepository(db)
	projects := repository.NewProjectRepository(db)

	var projectID, photoA, photoB int64
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		projectID, err = projects.Create(ctx, tx, "Test Project", "")
		if err != nil {
			return err
		}
		folderID, err := folders.Ensure(ctx, tx, projectID, "/root", "root", nil)
		if err != nil {
			return err
		}
		photoA, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: projectID, FolderID: folderID, Path: "/root/a.jpg", SizeKB: 100, Modified: modified,
		})
		if err != nil {
			return err
		}
		photoB, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: projectID, FolderID: folderID, Path: "/root/b.jpg", SizeKB: 100, Modified: modified,
		})
		return err
	})
	require.NoError(t, err)

	_, err = svc.IdentifyAsset(ctx, projectID, photoA, "hash123", 100*1024)
	require.NoError(t, err)
	_, err = svc.IdentifyAsset(ctx, projectID, photoB, "hash123", 100*1024)
	require.NoError(t, err)

	dups, err := svc.ListDuplicates(ctx, projectID, 2, 10)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, int64(2), dups[0].InstanceCount)
	assert.Equal(t, "hash123", dups[0].ContentHash)
}

func TestNearDuplicateGroupsClustersWithinDistance(t *testing.T) {
	candidates := []PerceptualCandidate{
		{PhotoID: 1, Hash: []byte{0x00, 0x00}},
		{PhotoID: 2, Hash: []byte{0x00, 0x01}}, // 1 bit from photo 1
		{PhotoID: 3, Hash: []byte{0xFF, 0xFF}}, // far from both
	}

	groups := NearDuplicateGroups(candidates, 2)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []int64{1, 2}, groups[0])
}

func TestHammingDistanceRejectsMismatchedLengths(t *testing.T) {
	_, err := HammingDistance([]byte{0x01}, []byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestGroupBurstsSplitsOnGapAndDevice(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	shots := []deviceShot{
		{photoID: 1, deviceID: 1, taken: base},
		{photoID: 2, deviceID: 1, taken: base.Add(1 * time.Second)},
		{photoID: 3, deviceID: 1, taken: base.Add(30 * time.Second)}, // outside the gap, starts a new run
		{photoID: 4, deviceID: 2, taken: base},                       // different device, own run
	}

	groups := groupBursts(shots, 5*time.Second)
	require.Len(t, groups, 1)
	assert.Equal(t, []int64{1, 2}, groups[0])
}

func TestRebuildStacksReplacesStaleRuleVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := New(db)
	photos := repository.NewPhotoRepository(db)
	folders := repository.NewFolderRepository(db)
	projects := repository.NewProjectRepository(db)

	var projectID, photoA, photoB int64
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		projectID, err = projects.Create(ctx, tx, "Test Project", "")
		if err != nil {
			return err
		}
		folderID, err := folders.Ensure(ctx, tx, projectID, "/root", "root", nil)
		if err != nil {
			return err
		}
		photoA, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: projectID, FolderID: folderID, Path: "/root/a.jpg", SizeKB: 1, Modified: modified,
		})
		if err != nil {
			return err
		}
		photoB, err = photos.Upsert(ctx, tx, repository.PhotoUpsertInput{
			ProjectID: projectID, FolderID: folderID, Path: "/root/b.jpg", SizeKB: 1, Modified: modified,
		})
		return err
	})
	require.NoError(t, err)

	n, err := svc.RebuildStacks(ctx, projectID, models.StackTypeBurst, "v1", `{"window_seconds":5}`, [][]int64{{photoA, photoB}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.RebuildStacks(ctx, projectID, models.StackTypeBurst, "v2", `{"window_seconds":10}`, [][]int64{{photoA, photoB}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int
	err = db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM media_stack WHERE project_id = ? AND stack_type = ?`, projectID, models.StackTypeBurst).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
