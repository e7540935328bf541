package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeReconcileRun represents one reconciliation run request.
	JobTypeReconcileRun JobType = "reconcile_run"
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

// ReconcileRunJob asks the worker to execute one reconciliation run. The
// engine processes one run at a time; the queue only decouples the HTTP
// surface from the (long, rate-limited) run itself.
type ReconcileRunJob struct {
	JobID string `json:"job_id"`

	Period    string           `json:"period"`
	Mode      recon.RunMode    `json:"mode"`
	Scope     recon.MatchScope `json:"scope"`
	Threshold float64          `json:"threshold"` // 0 means: default for scope

	// RunID is filled by the handler once the run context is minted, so a
	// job can be correlated with its run record and audit trail.
	RunID string `json:"run_id,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error string `json:"error,omitempty"`

	// Retrying an aborted run is safe: the idempotency guard skips entries
	// that were already matched before the failure.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Policy materializes the job's match policy, applying the scope default when
// no explicit threshold was requested.
func (j *ReconcileRunJob) Policy() recon.MatchPolicy {
	policy := recon.DefaultPolicy(j.Scope)
	if j.Threshold > 0 {
		policy.Threshold = j.Threshold
	}
	return policy
}

// GetID returns the unique job identifier.
func (j *ReconcileRunJob) GetID() string {
	return j.JobID
}

// GetType returns the job type.
func (j *ReconcileRunJob) GetType() JobType {
	return JobTypeReconcileRun
}

// GetStatus returns the current job status.
func (j *ReconcileRunJob) GetStatus() JobStatus {
	return j.Status
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	PublishReconcileRun(ctx context.Context, job *ReconcileRunJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobHandler processes a single job.
type JobHandler func(ctx context.Context, job Job) error

// JobStore persists job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReconcileRunJob) error
	GetJob(ctx context.Context, jobID string) (*ReconcileRunJob, error)
	ListJobs(ctx context.Context, status JobStatus, limit int) ([]*ReconcileRunJob, error)
}
