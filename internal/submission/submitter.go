package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Sink durably records one line item as a row in an external system.
type Sink interface {
	AppendRow(ctx context.Context, item invoice.LineItem) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, item invoice.LineItem) error

func (f SinkFunc) AppendRow(ctx context.Context, item invoice.LineItem) error {
	return f(ctx, item)
}

type batchIDKey struct{}

// ContextWithBatchID tags ctx with the id of the batch being submitted.
func ContextWithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchIDFromContext returns the batch id set by the Submitter, if any.
// Sinks use it to group rows.
func BatchIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

// RetryPolicy controls per-row retries of retryable sink errors.
// MaxAttempts below 1 means a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Report describes the outcome of a submission.
type Report struct {
	Count           int             `json:"count"`
	Total           decimal.Decimal `json:"total"`
	NothingToSubmit bool            `json:"nothing_to_submit"`
	BatchID         string          `json:"batch_id,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
}

// Batch is a successfully submitted set of lines handed to AfterSubmit hooks.
type Batch struct {
	ID          string
	Items       []invoice.LineItem
	Total       decimal.Decimal
	SubmittedAt time.Time
}

// Hook runs after a batch has been fully written. Hook errors are logged and
// never affect the submission result.
type Hook func(ctx context.Context, batch Batch) error

// Submitter drains a ledger into a sink.
type Submitter struct {
	policy RetryPolicy
	hooks  []Hook
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSubmitter creates a Submitter with the given retry policy.
func NewSubmitter(policy RetryPolicy) *Submitter {
	return &Submitter{
		policy: policy,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// AfterSubmit registers a hook to run after each successful submission.
func (s *Submitter) AfterSubmit(h Hook) {
	s.hooks = append(s.hooks, h)
}

// Submit drains ledger and writes every line to sink in order. An empty
// ledger yields a NothingToSubmit report without touching the sink. If any
// row fails, no further rows are written, the entire batch is restored to
// the front of the ledger and a *PartialFailureError is returned.
func (s *Submitter) Submit(ctx context.Context, ledger *invoice.Ledger, sink Sink) (Report, error) {
	log := logger.FromContext(ctx)

	if err := ledger.BeginSubmission(); err != nil {
		return Report{}, fmt.Errorf("Submit: %w", err)
	}
	defer ledger.EndSubmission()

	batch := ledger.Drain()
	if len(batch) == 0 {
		log.Debug().Msg("Nothing to submit")
		return Report{NothingToSubmit: true, Total: decimal.Zero, SubmittedAt: s.now()}, nil
	}

	batchID := uuid.New().String()
	log = log.With().Str("batch_id", batchID).Int("rows", len(batch)).Logger()
	ctx = logger.WithContext(ContextWithBatchID(ctx, batchID), log)
	log.Info().Msg("Submitting invoice batch")

	for i, item := range batch {
		if err := s.appendWithRetry(ctx, log, sink, item); err != nil {
			ledger.Restore(batch)
			log.Error().Err(err).Int("completed", i).Msg("Submission failed, batch restored to ledger")
			return Report{}, &PartialFailureError{
				Completed: i,
				Err:       &SinkError{Row: i, Err: err},
			}
		}
	}

	report := Report{
		Count:       len(batch),
		Total:       invoice.Sum(batch),
		BatchID:     batchID,
		SubmittedAt: s.now(),
	}
	log.Info().Str("total", report.Total.String()).Msg("Invoice batch submitted")

	s.runHooks(ctx, log, Batch{
		ID:          batchID,
		Items:       batch,
		Total:       report.Total,
		SubmittedAt: report.SubmittedAt,
	})

	return report, nil
}

func (s *Submitter) appendWithRetry(ctx context.Context, log zerolog.Logger, sink Sink, item invoice.LineItem) error {
	attempts := s.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = sink.AppendRow(ctx, item); err == nil {
			return nil
		}
		if attempt == attempts || !IsRetryable(err) {
			break
		}

		backoff := time.Duration(attempt) * s.policy.Backoff
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("Retrying sink append")
		if sleepErr := s.sleep(ctx, backoff); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return err
}

func (s *Submitter) runHooks(ctx context.Context, log zerolog.Logger, batch Batch) {
	for i, h := range s.hooks {
		if err := h(ctx, batch); err != nil {
			log.Error().Err(err).Int("hook", i).Msg("After-submit hook failed")
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
