package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
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

func TestRunOneProcessesJobThroughRegisteredHandler(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	q := New(db, nil, nil)

	var handled *models.Job
	q.RegisterHandler("thumbnail", func(_ context.Context, job *models.Job) error {
		handled = job
		return nil
	})

	id, err := q.Enqueue(ctx, "thumbnail", `{"photo_id":1}`, "local")
	require.NoError(t, err)

	pool := NewWorkerPool(q)
	pool.runOne(ctx)

	require.NotNil(t, handled)
	assert.Equal(t, id, handled.ID)

	var job *models.Job
	require.NoError(t, db.WithReadConn(ctx, func(dq database.Querier) error {
		var err error
		job, err = q.jobs.FindByID(ctx, dq, id)
		return err
	}))
	assert.Equal(t, models.JobStateSucceeded, job.State)
}

func TestRunOneMarksFailedWhenNoHandlerRegistered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	q := New(db, nil, nil)

	id, err := q.Enqueue(ctx, "unregistered-kind", `{}`, "local")
	require.NoError(t, err)

	pool := NewWorkerPool(q)
	pool.runOne(ctx)

	var job *models.Job
	require.NoError(t, db.WithReadConn(ctx, func(dq database.Querier) error {
		var err error
		job, err = q.jobs.FindByID(ctx, dq, id)
		return err
	}))
	assert.Equal(t, models.JobStateFailed, job.State)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "no handler registered")
}

func TestRunOneMarksJobFailedWhenHandlerErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	q := New(db, nil, nil)
	q.RegisterHandler("broken", func(_ context.Context, _ *models.Job) error {
		return errors.New("handler exploded")
	})

	id, err := q.Enqueue(ctx, "broken", `{}`, "local")
	require.NoError(t, err)

	pool := NewWorkerPool(q)
	pool.runOne(ctx)

	var job *models.Job
	require.NoError(t, db.WithReadConn(ctx, func(dq database.Querier) error {
		var err error
		job, err = q.jobs.FindByID(ctx, dq, id)
		return err
	}))
	assert.Equal(t, models.JobStateFailed, job.State)
}

func TestSweepZombiesRecoversRunningJobs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	q := New(db, nil, nil)

	id, err := q.Enqueue(ctx, "thumbnail", `{}`, "local")
	require.NoError(t, err)

	// Claim it directly to move it into "running", simulating a worker that
	// crashed mid-job before a prior process restart.
	require.NoError(t, db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := q.jobs.ClaimNext(ctx, tx)
		return err
	}))

	n, err := q.SweepZombies(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var job *models.Job
	require.NoError(t, db.WithReadConn(ctx, func(dq database.Querier) error {
		var err error
		job, err = q.jobs.FindByID(ctx, dq, id)
		return err
	}))
	assert.Equal(t, models.JobStateFailed, job.State)
}
