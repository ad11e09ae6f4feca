// Package jobqueue implements the DB-backed background work queue (§4.8):
// a zombie sweep at startup, and a fixed-size suture-supervised worker pool
// that claims the oldest queued ml_job row and dispatches it to a
// kind-specific handler.
package jobqueue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
	"github.com/tomtom215/mediacatalog/internal/repository"
)

// Handler runs one job's payload to completion. A returned error marks the
// job failed; a nil return marks it succeeded.
type Handler func(ctx context.Context, job *models.Job) error

// Queue binds job persistence and the registered per-kind handlers.
type Queue struct {
	db       *database.DB
	jobs     *repository.JobRepository
	cfg      *config.JobConfig
	met      *metrics.Registry
	handlers map[string]Handler
}

// New builds a Queue bound to db. A nil cfg falls back to the defaults
// documented on config.JobConfig. met may be nil.
func New(db *database.DB, cfg *config.JobConfig, met *metrics.Registry) *Queue {
	if cfg == nil {
		cfg = &config.JobConfig{PollInterval: defaultPollInterval, WorkerCount: defaultWorkerCount, SweepOnStart: true, BatchCheckSize: 50}
	}
	return &Queue{db: db, jobs: repository.NewJobRepository(db), cfg: cfg, met: met, handlers: make(map[string]Handler)}
}

// RegisterHandler binds a handler to a job kind. Enqueue-ing a kind with no
// registered handler is allowed (a worker will mark it failed on claim); the
// registration step surfaces wiring mistakes at worker run time rather than
// at enqueue time, keeping enqueue itself a cheap, side-effect-free insert.
func (q *Queue) RegisterHandler(kind string, h Handler) {
	q.handlers[kind] = h
}

// Enqueue inserts a new queued job with a freshly generated sortable id.
func (q *Queue) Enqueue(ctx context.Context, kind, payloadJSON, backend string) (string, error) {
	id := newJobID()
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		return q.jobs.Enqueue(ctx, tx, id, kind, payloadJSON, backend)
	})
	if err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", kind, err)
	}
	return id, nil
}

// SweepZombies recovers any row left in state=running from a prior crash
// (§4.8 "At startup, every row with state='running' is swept to
// state='failed'"). Called once at startup before workers begin polling.
func (q *Queue) SweepZombies(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = q.jobs.SweepZombies(ctx, tx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sweep zombie jobs: %w", err)
	}
	return n, nil
}
