// Package repo implements the domain repositories on PostgreSQL via pgx.
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, user_id, input_type, config, output_dir, status, error_kind, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.InputType,
		job.Config,
		job.OutputDir,
		job.Status,
		string(job.ErrorKind),
		job.ErrorMessage,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, user_id, input_type, config, output_dir, status, error_kind, error_message, created_at, updated_at
FROM jobs
WHERE id = $1;
`
	return r.scanJob(r.pool.QueryRow(ctx, query, jobID))
}

// UpdateStatus transitions a job. The update only matches the legal
// predecessor state, so the status order is enforced by the row itself:
// queued->running commits at most once and acts as the execution claim, and
// terminal records never match (ErrJobTerminal).
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errorKind domain.ErrorKind, errMsg string) error {
	predecessor, ok := legalPredecessor(status)
	if !ok {
		return domain.ErrInvalidStateTransition
	}
	query := `
UPDATE jobs
SET status = $2,
    error_kind = $3,
    error_message = $4,
    updated_at = NOW()
WHERE id = $1
  AND status = $5;
`
	tag, err := r.pool.Exec(ctx, query, jobID, status, string(errorKind), errMsg, predecessor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, jobID)
		if getErr != nil {
			return getErr
		}
		if current.Status.IsTerminal() {
			return domain.ErrJobTerminal
		}
		return domain.ErrInvalidStateTransition
	}
	return nil
}

func legalPredecessor(status domain.JobStatus) (domain.JobStatus, bool) {
	switch status {
	case domain.JobStatusRunning:
		return domain.JobStatusQueued, true
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		return domain.JobStatusRunning, true
	default:
		return "", false
	}
}

// NextQueued returns the oldest queued job whose id is not excluded.
func (r *JobRepositoryPG) NextQueued(ctx context.Context, exclude []string) (*domain.Job, error) {
	if exclude == nil {
		exclude = []string{}
	}
	query := `
SELECT id, user_id, input_type, config, output_dir, status, error_kind, error_message, created_at, updated_at
FROM jobs
WHERE status = 'queued'
  AND id <> ALL($1::uuid[])
ORDER BY created_at
LIMIT 1;
`
	return r.scanJob(r.pool.QueryRow(ctx, query, exclude))
}

func (r *JobRepositoryPG) scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var errorKind string
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.InputType,
		&job.Config,
		&job.OutputDir,
		&job.Status,
		&errorKind,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.ErrorKind = domain.ErrorKind(errorKind)
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
