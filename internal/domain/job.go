package domain

import (
	"encoding/json"
	"time"
)

// JobInputType enumerates the supported submission input kinds.
type JobInputType string

const (
	JobInputPDF    JobInputType = "pdf"
	JobInputText   JobInputType = "text"
	JobInputPrompt JobInputType = "prompt"
)

// JobStatus enumerates job lifecycle states. Transitions are monotonic:
// queued -> running -> completed|failed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether next is a legal direct successor of s.
// Repositories enforce this, so queued->running happens at most once per job
// and acts as the execution claim.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// Job is one attempted execution of the content-to-video pipeline, paid for
// with credits. OutputDir is the job-exclusive artifact namespace; no other
// job may read or write beneath it.
type Job struct {
	ID           string
	UserID       string
	InputType    JobInputType
	Config       json.RawMessage
	OutputDir    string
	Status       JobStatus
	ErrorKind    ErrorKind
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobConfig is the decoded shape of the opaque submission payload. Fields are
// interpreted per input type; the raw payload is kept verbatim on the job.
type JobConfig struct {
	InputType  string `json:"input_type"`
	Text       string `json:"text,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
}
