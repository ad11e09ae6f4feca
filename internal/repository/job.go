package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// JobRepository persists the background work queue (§3 "Job", §4.8).
type JobRepository struct {
	base
}

// NewJobRepository builds a JobRepository bound to db.
func NewJobRepository(db *database.DB) *JobRepository {
	return &JobRepository{base: base{db: db}}
}

// Enqueue inserts a new queued job. The id is caller-supplied (an
// oklog/ulid value, for sortable insertion order) rather than
// database-assigned, so a caller can reference it before the row commits.
func (r *JobRepository) Enqueue(ctx context.Context, q database.Querier, id, kind, payloadJSON, backend string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ml_job (id, kind, payload_json, backend, state) VALUES (?, ?, ?, ?, ?)`,
		id, kind, payloadJSON, backend, models.JobStateQueued)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ClaimNext atomically claims the oldest queued job, marking it running
// and stamping started_at, or returns catalogerr.ErrNotFound if the queue
// is empty.
func (r *JobRepository) ClaimNext(ctx context.Context, q database.Querier) (*models.Job, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM ml_job WHERE state = ? ORDER BY created_at ASC LIMIT 1`, models.JobStateQueued).Scan(&id)
	if err != nil {
		return nil, scanRowNotFound(err, "ml_job", models.JobStateQueued)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE ml_job SET state = ?, started_at = CURRENT_TIMESTAMP WHERE id = ? AND state = ?`,
		models.JobStateRunning, id, models.JobStateQueued)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected for job claim: %w", err)
	}
	if n == 0 {
		// Another worker claimed it first; caller should retry ClaimNext.
		return nil, scanRowNotFound(sql.ErrNoRows, "ml_job", id)
	}
	return r.FindByID(ctx, q, id)
}

// MarkSucceeded transitions a running job to succeeded.
func (r *JobRepository) MarkSucceeded(ctx context.Context, q database.Querier, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE ml_job SET state = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`, models.JobStateSucceeded, id)
	if err != nil {
		return fmt.Errorf("mark job succeeded: %w", err)
	}
	return nil
}

// MarkFailed transitions a running job to failed, recording errMsg.
func (r *JobRepository) MarkFailed(ctx context.Context, q database.Querier, id, errMsg string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE ml_job SET state = ?, finished_at = CURRENT_TIMESTAMP, error = ? WHERE id = ?`,
		models.JobStateFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// SweepZombies reclaims jobs stuck in running at process startup, moving
// them to failed (§7 "Job crash"). Returns the number of rows swept.
func (r *JobRepository) SweepZombies(ctx context.Context, q database.Querier) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE ml_job SET state = ?, finished_at = CURRENT_TIMESTAMP, error = 'recovered at startup: zombie running job'
		WHERE state = ?`, models.JobStateFailed, models.JobStateRunning)
	if err != nil {
		return 0, fmt.Errorf("sweep zombie jobs: %w", err)
	}
	return res.RowsAffected()
}

// FindByID returns the job with the given id.
func (r *JobRepository) FindByID(ctx context.Context, q database.Querier, id string) (*models.Job, error) {
	var j models.Job
	err := q.QueryRowContext(ctx, `
		SELECT id, kind, payload_json, backend, state, created_at, started_at, finished_at, error
		FROM ml_job WHERE id = ?`, id).
		Scan(&j.ID, &j.Kind, &j.PayloadJSON, &j.Backend, &j.State, &j.CreatedAt, &j.StartedAt, &j.FinishedAt, &j.Error)
	if err != nil {
		return nil, scanRowNotFound(err, "ml_job", id)
	}
	return &j, nil
}

// CountByState returns how many jobs are in the given state.
func (r *JobRepository) CountByState(ctx context.Context, q database.Querier, state models.JobState) (int64, error) {
	return r.count(ctx, q, "ml_job", "state = ?", state)
}
