package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Path:        ":memory:",
		AutoInit:    true,
		BusyTimeout: 5 * time.Second,
		PoolSize:    4,
	}
}

func TestNewCreatesCanonicalSchema(t *testing.T) {
	db, err := New(testConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	ok, err := db.ValidateSchema(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestNewFailsWithoutAutoInitOnEmptyDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.AutoInit = false
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestOpenDedupesHandleByPath(t *testing.T) {
	cfg := testConfig()
	cfg.Path = "testdata-dedupe.db"
	defer Shutdown(cfg.Path)

	a, err := Open(cfg)
	require.NoError(t, err)
	b, err := Open(cfg)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestWithTxInsertsProjectRow(t *testing.T) {
	db, err := New(testConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `INSERT INTO projects (name) VALUES (?)`, "Test Project")
		return execErr
	})
	require.NoError(t, err)

	var count int
	err = db.WithReadConn(ctx, func(q Querier) error {
		return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, err := New(testConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	sentinelErr := assert.AnError
	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(ctx, `INSERT INTO projects (name) VALUES (?)`, "Rolled Back"); execErr != nil {
			return execErr
		}
		return sentinelErr
	})
	assert.ErrorIs(t, err, sentinelErr)

	var count int
	err = db.WithReadConn(ctx, func(q Querier) error {
		return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrationHistoryRecordsBaseline(t *testing.T) {
	db, err := New(testConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	hist, err := db.GetMigrationHistory(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 1, hist[0].Version)
}
