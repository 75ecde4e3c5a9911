package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/shopspring/decimal"
)

// ErrJobNotFound is returned by a JobStore for an unknown id.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeDeliverInvoice renders and emails the invoice of a submitted batch.
	JobTypeDeliverInvoice JobType = "deliver_invoice"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DeliverInvoiceJob carries a snapshot of a submitted batch to the delivery
// worker.
type DeliverInvoiceJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// BatchID is the submission batch the invoice belongs to.
	BatchID string `json:"batch_id"`

	// Vendor is the vendor name of the batch.
	Vendor string `json:"vendor"`

	// Items are the submitted lines. Line items are immutable values, so
	// copies of the job share them safely.
	Items []invoice.LineItem `json:"-"`

	// LineCount is len(Items), kept for status responses.
	LineCount int `json:"line_count"`

	// Total is the batch grand total.
	Total decimal.Decimal `json:"total"`

	// Recipients are the email addresses the invoice goes to.
	Recipients []string `json:"recipients,omitempty"`

	// DocumentRef is the archived PDF reference, once stored.
	DocumentRef string `json:"document_ref,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *DeliverInvoiceJob) GetID() string {
	return j.JobID
}

func (j *DeliverInvoiceJob) GetType() JobType {
	return JobTypeDeliverInvoice
}

func (j *DeliverInvoiceJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishDeliverInvoice enqueues an invoice delivery job.
	PublishDeliverInvoice(ctx context.Context, job *DeliverInvoiceJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error makes the job eligible for
// retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *DeliverInvoiceJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*DeliverInvoiceJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*DeliverInvoiceJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// BatchID filters jobs by submission batch.
	BatchID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
