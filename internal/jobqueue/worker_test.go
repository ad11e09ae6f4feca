package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/models"
)

func TestWorkerPoolServeProcessesEnqueuedJobThenStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	q := New(db, &config.JobConfig{PollInterval: 10 * time.Millisecond, WorkerCount: 2}, nil)

	handled := make(chan string, 1)
	q.RegisterHandler("thumbnail", func(_ context.Context, job *models.Job) error {
		handled <- job.ID
		return nil
	})

	id, err := q.Enqueue(ctx, "thumbnail", `{"photo_id":1}`, "local")
	require.NoError(t, err)

	pool := NewWorkerPool(q)
	serveDone := make(chan error, 1)
	go func() { serveDone <- pool.Serve(ctx) }()

	select {
	case gotID := <-handled:
		assert.Equal(t, id, gotID)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never handled by a supervised poll loop")
	}

	cancel()
	select {
	case err := <-serveDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("WorkerPool.Serve did not return after context cancellation")
	}
}
