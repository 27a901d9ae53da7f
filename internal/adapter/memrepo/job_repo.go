package memrepo

import (
	"context"
	"sync"
	"time"

	"reelforge/internal/domain"
)

// JobRepository stores job records in memory. Terminal records are immutable:
// any status update against a completed or failed job is rejected.
type JobRepository struct {
	mu    sync.Mutex
	jobs  map[string]*domain.Job
	order []string
}

// NewJobRepository constructs an empty job repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]*domain.Job)}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	copied := *job
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now
	r.jobs[copied.ID] = &copied
	r.order = append(r.order, copied.ID)
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

// UpdateStatus transitions a job, storing the error classification alongside.
// Only the legal successor of the current status is accepted, so concurrent
// claimants of a queued job serialize here: exactly one queued->running
// transition wins.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errorKind domain.ErrorKind, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return domain.ErrJobTerminal
	}
	if !job.Status.CanTransition(status) {
		return domain.ErrInvalidStateTransition
	}
	job.Status = status
	job.ErrorKind = errorKind
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// NextQueued returns the oldest queued job whose id is not excluded.
func (r *JobRepository) NextQueued(ctx context.Context, exclude []string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if _, ok := skip[id]; ok {
			continue
		}
		job := r.jobs[id]
		if job.Status == domain.JobStatusQueued {
			copied := *job
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

var _ domain.JobRepository = (*JobRepository)(nil)
