package main

import (
	"context"
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

func TestMigrateOutcomeOnFreshDatabase(t *testing.T) {
	db := newTestDB(t)
	code, message := migrateOutcome(db)
	assert.Equal(t, exitMigrateApplied, code)
	assert.Contains(t, message, "created from scratch")
}

func TestResolveProjectCreatesThenReusesSameID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := resolveProject(ctx, db, "default")
	require.NoError(t, err)
	assert.NotZero(t, first)

	second, err := resolveProject(ctx, db, "default")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveProjectIsolatesDistinctNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := resolveProject(ctx, db, "alpha")
	require.NoError(t, err)
	b, err := resolveProject(ctx, db, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSortedKeysOrdersAlphabetically(t *testing.T) {
	keys := sortedKeys(map[string]int{"zebra": 1, "apple": 2, "mango": 3})
	assert.Equal(t, []string{"apple", "mango", "zebra"}, keys)
}
