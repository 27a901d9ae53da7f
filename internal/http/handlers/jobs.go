package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reelforge/internal/domain"
)

const maxSubmissionBytes = 1 << 20

// SubmitJob accepts a job submission and returns immediately with the queued
// job's identifier. Execution is asynchronous; the triggering request never
// waits on the pipeline.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	var cfg domain.JobConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "body must be JSON")
		return
	}
	if strings.TrimSpace(cfg.InputType) == "" {
		a.error(w, http.StatusUnprocessableEntity, "invalid_config", "input_type is required")
		return
	}

	jobID := uuid.NewString()
	job := &domain.Job{
		ID:        jobID,
		UserID:    userID,
		InputType: domain.JobInputType(cfg.InputType),
		Config:    body,
		OutputDir: "outputs/" + jobID,
		Status:    domain.JobStatusQueued,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: create job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	if a.Starter != nil {
		a.Starter.Start(job)
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// GetJob returns the job's current status and error classification. A
// system-attributable failure presents a generic indication; the detailed
// message is reserved for user-attributable failures.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, ok := a.ownedJob(w, r, userID)
	if !ok {
		return
	}

	payload := map[string]any{
		"job_id":     job.ID,
		"input_type": job.InputType,
		"status":     job.Status,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == domain.JobStatusFailed {
		payload["error_kind"] = job.ErrorKind
		switch job.ErrorKind {
		case domain.ErrorKindUser:
			payload["error_message"] = job.ErrorMessage
		default:
			payload["error_message"] = "generation failed due to a system error; your credits were refunded"
		}
	}
	a.json(w, http.StatusOK, payload)
}

func (a *App) ownedJob(w http.ResponseWriter, r *http.Request, userID string) (*domain.Job, bool) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		} else {
			a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		}
		return nil, false
	}
	if job.UserID != userID {
		a.error(w, http.StatusForbidden, "forbidden", "not your job")
		return nil, false
	}
	return job, true
}
