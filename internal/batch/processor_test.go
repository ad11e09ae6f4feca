package batch

import (
	"context"
	"errors"
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

func intItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestRunCompletesAndClearsCheckpoint(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var processed []int
	p := NewChunkedProcessor(db, intItems(10), func(_ context.Context, item int) error {
		processed = append(processed, item)
		return nil
	}, 3, "test-complete", nil)

	completed, err := p.Run(ctx, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, intItems(10), processed)

	cp, err := p.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestRunCancelsMidRunAndSavesCheckpoint(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var processed []int
	cancelAfter := 4
	p := NewChunkedProcessor(db, intItems(10), func(_ context.Context, item int) error {
		processed = append(processed, item)
		return nil
	}, 2, "test-cancel", nil)

	completed, err := p.Run(ctx, nil, func() bool {
		return len(processed) >= cancelAfter
	}, nil)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Len(t, processed, cancelAfter)

	cp, err := p.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, cancelAfter, cp.ItemsProcessed)
	assert.Equal(t, 10, cp.TotalItems)
	assert.Equal(t, cancelAfter-1, cp.LastItemIndex)
}

func TestRunResumesFromSavedCheckpoint(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	items := intItems(10)

	var firstPass []int
	p1 := NewChunkedProcessor(db, items, func(_ context.Context, item int) error {
		firstPass = append(firstPass, item)
		return nil
	}, 2, "test-resume", nil)

	completed, err := p1.Run(ctx, nil, func() bool { return len(firstPass) >= 4 }, nil)
	require.NoError(t, err)
	require.False(t, completed)
	require.Equal(t, []int{0, 1, 2, 3}, firstPass)

	var secondPass []int
	p2 := NewChunkedProcessor(db, items, func(_ context.Context, item int) error {
		secondPass = append(secondPass, item)
		return nil
	}, 2, "test-resume", nil)

	completed, err = p2.Run(ctx, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9}, secondPass)

	cp, err := p2.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestRunReportsProgressPerBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := NewChunkedProcessor(db, intItems(6), func(_ context.Context, _ int) error {
		return nil
	}, 2, "test-progress", nil)

	var seen []Progress
	completed, err := p.Run(ctx, func(pr Progress) { seen = append(seen, pr) }, nil, nil)
	require.NoError(t, err)
	assert.True(t, completed)

	require.Len(t, seen, 4) // initial + 3 batches
	assert.Equal(t, Progress{Processed: 0, Total: 6, Remaining: 6}, seen[0])
	assert.Equal(t, Progress{Processed: 6, Total: 6, Remaining: 0}, seen[3])
}

func TestRunContinuesPastItemErrorByDefault(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var failed []int
	p := NewChunkedProcessor(db, intItems(5), func(_ context.Context, item int) error {
		if item == 2 {
			return errors.New("boom")
		}
		return nil
	}, 5, "test-item-error", func(item int, _ error) ItemOutcome {
		failed = append(failed, item)
		return ContinueOnError
	})

	completed, err := p.Run(ctx, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{2}, failed)
}

// TestRunWithNoItemErrorHandlerStillCountsAndContinues confirms the §7
// "never a silent skip without a trace" rule: with OnItemError left nil
// (the default/no-handler case, scenario S5), a failing item is counted in
// Progress.Failed and logged rather than vanishing.
func TestRunWithNoItemErrorHandlerStillCountsAndContinues(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var processedCount int
	p := NewChunkedProcessor(db, intItems(5), func(_ context.Context, item int) error {
		processedCount++
		if item == 2 {
			return errors.New("boom")
		}
		return nil
	}, 5, "test-no-handler", nil)

	var lastProgress Progress
	completed, err := p.Run(ctx, func(pr Progress) { lastProgress = pr }, nil, nil)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, 5, processedCount)
	assert.Equal(t, 1, lastProgress.Failed)
}

func TestRunAbortsWhenItemErrorRequestsAbort(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := NewChunkedProcessor(db, intItems(5), func(_ context.Context, item int) error {
		if item == 1 {
			return errors.New("fatal")
		}
		return nil
	}, 5, "test-item-abort", func(int, error) ItemOutcome {
		return AbortOnError
	})

	completed, err := p.Run(ctx, nil, nil, nil)
	require.Error(t, err)
	assert.False(t, completed)
}

func TestOnBatchCompleteFiresOncePerBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := NewChunkedProcessor(db, intItems(9), func(_ context.Context, _ int) error {
		return nil
	}, 3, "test-batch-complete", nil)

	var batches []int
	completed, err := p.Run(ctx, nil, nil, func(batchIndex int) { batches = append(batches, batchIndex) })
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{1, 2, 3}, batches)
}
