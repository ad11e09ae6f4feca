package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/mediacatalog/internal/catalogerr"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultWorkerCount  = 4
)

// WorkerPool supervises q.cfg.WorkerCount poll loops under a suture.Supervisor,
// so a panic in one loop is logged and the loop restarted rather than taking
// the whole pool down, matching the teacher's supervisor-tree idiom.
type WorkerPool struct {
	q          *Queue
	supervisor *suture.Supervisor
}

// pollService adapts a single poll loop to suture.Service.
type pollService struct {
	p *WorkerPool
}

func (s pollService) Serve(ctx context.Context) error {
	s.p.pollLoop(ctx)
	return ctx.Err()
}

// NewWorkerPool wraps q in a supervisor tree that restarts a poll loop if it
// ever returns early for a reason other than context cancellation.
func NewWorkerPool(q *Queue) *WorkerPool {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	sup := suture.New("jobqueue-worker-pool", suture.Spec{
		EventHook: handler.MustHook(),
	})
	p := &WorkerPool{q: q, supervisor: sup}

	workers := q.cfg.WorkerCount
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	for i := 0; i < workers; i++ {
		sup.Add(pollService{p: p})
	}
	return p
}

// Serve starts every supervised poll loop and blocks until ctx is canceled.
func (p *WorkerPool) Serve(ctx context.Context) error {
	return p.supervisor.Serve(ctx)
}

func (p *WorkerPool) pollLoop(ctx context.Context) {
	interval := p.q.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOne(ctx)
		}
	}
}

// runOne claims at most one job and runs it to completion, swallowing the
// empty-queue case; any other claim error is logged and the worker waits
// for its next tick rather than busy-looping.
func (p *WorkerPool) runOne(ctx context.Context) {
	var job *models.Job
	err := p.q.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		job, err = p.q.jobs.ClaimNext(ctx, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, catalogerr.ErrNotFound) {
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("job claim failed")
		return
	}

	handler, ok := p.q.handlers[job.Kind]
	if !ok {
		p.finish(ctx, job.ID, fmt.Errorf("no handler registered for job kind %q", job.Kind))
		return
	}

	jobCtx := logging.ContextWithJobID(ctx, job.ID)
	start := time.Now()
	runErr := handler(jobCtx, job)
	p.q.met.ObserveJob(job.Kind, time.Since(start), runErr == nil)
	p.finish(ctx, job.ID, runErr)
}

func (p *WorkerPool) finish(ctx context.Context, id string, runErr error) {
	err := p.q.db.WithTx(ctx, func(tx *sql.Tx) error {
		if runErr != nil {
			return p.q.jobs.MarkFailed(ctx, tx, id, runErr.Error())
		}
		return p.q.jobs.MarkSucceeded(ctx, tx, id)
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("job_id", id).Msg("failed to record job completion")
	}
}

