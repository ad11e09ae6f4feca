package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/database"
)

func TestListDuplicatesReturnsAssetsAtOrAboveMinInstances(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)
	assets := NewAssetRepository(db)

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		pid, fid := seedProjectAndFolder(t, ctx, tx, db)

		photoA, err := photos.Upsert(ctx, tx, PhotoUpsertInput{ProjectID: pid, FolderID: fid, Path: "/a/img.jpg", SizeKB: 100, Modified: time.Now()})
		if err != nil {
			return err
		}
		photoB, err := photos.Upsert(ctx, tx, PhotoUpsertInput{ProjectID: pid, FolderID: fid, Path: "/b/img.jpg", SizeKB: 100, Modified: time.Now()})
		if err != nil {
			return err
		}
		photoC, err := photos.Upsert(ctx, tx, PhotoUpsertInput{ProjectID: pid, FolderID: fid, Path: "/c/unique.jpg", SizeKB: 50, Modified: time.Now()})
		if err != nil {
			return err
		}

		assetID, err := assets.CreateIfMissing(ctx, tx, pid, "hash-dup", &photoA)
		if err != nil {
			return err
		}
		if _, err := assets.LinkInstance(ctx, tx, pid, assetID, photoA, 100); err != nil {
			return err
		}
		if _, err := assets.LinkInstance(ctx, tx, pid, assetID, photoB, 100); err != nil {
			return err
		}

		uniqueAssetID, err := assets.CreateIfMissing(ctx, tx, pid, "hash-unique", &photoC)
		if err != nil {
			return err
		}
		_, err = assets.LinkInstance(ctx, tx, pid, uniqueAssetID, photoC, 50)
		return err
	})
	require.NoError(t, err)

	var projectID int64
	require.NoError(t, db.WithReadConn(ctx, func(q database.Querier) error {
		return q.QueryRowContext(ctx, `SELECT project_id FROM media_asset WHERE content_hash = ?`, "hash-dup").Scan(&projectID)
	}))

	dups, err := assets.ListDuplicates(ctx, dbQuerier(t, db), projectID, 2, 10)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "hash-dup", dups[0].Asset.ContentHash)
	assert.Equal(t, int64(2), dups[0].InstanceCount)
}
