// Package executor orchestrates one job execution attempt: debit the ledger,
// run the pipeline, classify the outcome, and reconcile the job record and
// the ledger. It is the only caller of the pipeline and the single authority
// over refunds.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/engine"
)

// Pipeline is the generation engine as seen by the executor.
type Pipeline interface {
	Run(ctx context.Context, in engine.Input) (*domain.PipelineResult, error)
}

// Executor drives the queued -> running -> completed|failed state machine.
type Executor struct {
	jobs     domain.JobRepository
	ledger   domain.Ledger
	pipeline Pipeline
	cost     int
	logger   zerolog.Logger
}

// New constructs an Executor charging the fixed per-job cost.
func New(jobs domain.JobRepository, ledger domain.Ledger, pipeline Pipeline, cost int, logger zerolog.Logger) *Executor {
	return &Executor{
		jobs:     jobs,
		ledger:   ledger,
		pipeline: pipeline,
		cost:     cost,
		logger:   logger,
	}
}

// Execute runs one queued job to a terminal state.
//
// Before any record mutation the fixed job cost is debited; a debit failure
// (notably domain.ErrInsufficientCredits) surfaces directly and the job stays
// queued. The queued->running transition is then the execution claim: the
// repositories commit it at most once per job, so when the API's inline
// starter and the polling worker race for the same job, exactly one proceeds
// and the loser reverses its own debit. After the pipeline returns, exactly
// one terminal persistence happens. A user-attributable failure retains the
// debit; a system-attributable failure (or any unclassified error) refunds
// the debited amount exactly once and re-surfaces the failure after
// bookkeeping completes.
func (e *Executor) Execute(ctx context.Context, job *domain.Job) error {
	if job.Status != domain.JobStatusQueued {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidStateTransition, job.ID, job.Status)
	}

	if err := e.ledger.Debit(ctx, job.UserID, job.ID, e.cost, "video generation job"); err != nil {
		e.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("user_id", job.UserID).
			Msg("executor: debit rejected, job not started")
		return err
	}

	if err := e.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, domain.ErrorKindNone, ""); err != nil {
		// Claim lost (another executor owns the job) or persistence fault.
		// Either way no attempt runs here, so the debit is reversed.
		e.refund(ctx, job, "claim failed refund")
		return fmt.Errorf("claim job: %w", err)
	}
	job.Status = domain.JobStatusRunning

	e.logger.Info().
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Str("input_type", string(job.InputType)).
		Msg("executor: job started")

	result, runErr := e.pipeline.Run(ctx, e.pipelineInput(job))
	if runErr == nil {
		if err := e.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusCompleted, domain.ErrorKindNone, ""); err != nil {
			// The record cannot reflect the outcome; settle the attempt like
			// any other system-attributable fault.
			e.logger.Error().Err(err).Str("job_id", job.ID).Msg("executor: persist completed state failed")
			e.refund(ctx, job, "system failure refund")
			return err
		}
		job.Status = domain.JobStatusCompleted
		e.logger.Info().
			Str("job_id", job.ID).
			Int("videos", len(result.Videos())).
			Msg("executor: job completed")
		return nil
	}

	kind := domain.ClassifyFailure(runErr)
	if err := e.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, kind, runErr.Error()); err != nil {
		e.logger.Error().Err(err).Str("job_id", job.ID).Msg("executor: persist failed state failed")
	}
	job.Status = domain.JobStatusFailed
	job.ErrorKind = kind
	job.ErrorMessage = runErr.Error()

	switch kind {
	case domain.ErrorKindUser:
		// The caller's input is at fault; the debited amount is retained.
		e.logger.Info().
			Str("job_id", job.ID).
			Str("error_kind", string(kind)).
			Msg("executor: job failed on user content, no refund")
	default:
		e.refund(ctx, job, "system failure refund")
	}
	return runErr
}

// refund issues the single refund for an attempt that must not be charged.
func (e *Executor) refund(ctx context.Context, job *domain.Job, reason string) {
	if err := e.ledger.Refund(ctx, job.UserID, job.ID, e.cost, reason); err != nil {
		e.logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("user_id", job.UserID).
			Int("amount", e.cost).
			Msg("executor: refund failed")
		return
	}
	e.logger.Info().
		Str("job_id", job.ID).
		Int("amount", e.cost).
		Msg("executor: refund issued")
}

// Start runs the job asynchronously on a detached context. Submission is
// fire-and-forget: no cancellation or deadline propagates from the
// triggering request into a running job.
func (e *Executor) Start(job *domain.Job) {
	go func() {
		// Outcomes, including failures, are logged and persisted inside
		// Execute; there is no caller left to return them to.
		_ = e.Execute(context.Background(), job)
	}()
}

func (e *Executor) pipelineInput(job *domain.Job) engine.Input {
	var cfg domain.JobConfig
	if len(job.Config) > 0 {
		// A malformed stored payload just yields empty fields; the engine
		// classifies those as user content errors.
		_ = json.Unmarshal(job.Config, &cfg)
	}
	return engine.Input{
		JobID:     job.ID,
		UserID:    job.UserID,
		InputType: job.InputType,
		Config:    cfg,
		OutputDir: job.OutputDir,
	}
}
