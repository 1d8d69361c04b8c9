// Package jobs defines the async statement analysis job model and the
// queue abstractions it moves through.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/billscan/internal/analyze"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAnalyzeStatement represents a statement analysis job.
	JobTypeAnalyzeStatement JobType = "analyze_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// AnalyzeStatementJob carries one statement through the async pipeline.
// Either GCSURI or Document is set: the worker fetches the former, the API
// upload path attaches the latter directly.
type AnalyzeStatementJob struct {
	JobID string `json:"job_id"`

	// GCSURI points at the statement in Cloud Storage, e.g.
	// "gs://statements/2025/march.pdf".
	GCSURI string `json:"gcs_uri,omitempty"`

	// Document holds the raw statement bytes for direct submissions.
	Document []byte `json:"-"`

	// Filename is the original upload name, kept for provenance.
	Filename string `json:"filename,omitempty"`

	// MimeHint is the declared content type; empty means sniff.
	MimeHint string `json:"mime_hint,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains failure details once Status is failed.
	Error string `json:"error,omitempty"`

	// Result is populated once the job completes.
	Result *analyze.Result `json:"result,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *AnalyzeStatementJob) GetID() string        { return j.JobID }
func (j *AnalyzeStatementJob) GetType() JobType     { return JobTypeAnalyzeStatement }
func (j *AnalyzeStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues analysis jobs. The abstraction keeps the door open for
// Cloud Tasks or Pub/Sub behind the same call sites.
type Publisher interface {
	PublishAnalyzeStatement(ctx context.Context, job *AnalyzeStatementJob) error
	Close() error
}

// Consumer drains the queue. The handler is called once per job; returning
// an error marks the attempt failed and triggers the retry policy.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobHandler processes one job.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can answer status polls.
type JobStore interface {
	SaveJob(ctx context.Context, job *AnalyzeStatementJob) error
	GetJob(ctx context.Context, jobID string) (*AnalyzeStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeStatementJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
