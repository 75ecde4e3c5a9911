// Package intake turns submitted form values and uploads into ledger lines.
package intake

import (
	"context"
	"fmt"

	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/logger"
)

// Upload is one file received with a line.
type Upload struct {
	Name string
	Data []byte
}

// Empty reports whether no file was provided.
func (u *Upload) Empty() bool {
	return u == nil || len(u.Data) == 0
}

// Request is the full input for adding or editing a line.
type Request struct {
	Raw       invoice.RawLineInput
	Primary   *Upload
	Secondary *Upload
}

// Requirements marks which uploads a caller insists on. Both are optional by
// default.
type Requirements struct {
	Primary   bool
	Secondary bool
}

// Step is one stage of line intake.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is shared across the steps of one intake run.
type State struct {
	Request  Request
	Quantity int64
	Refs     invoice.AttachmentRefs
	Item     invoice.LineItem

	// Index is the ledger position for edits; negative means append. After
	// an append it holds the position the line was stored at.
	Index int
}

// Pipeline executes steps in order and stops at the first failure.
type Pipeline struct {
	steps []Step
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("intake step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Service adds and edits lines of a ledger.
type Service struct {
	factory      *invoice.Factory
	store        attachments.Store
	requirements Requirements
}

// NewService wires a Service. store may be nil when uploads are not
// accepted; any upload then fails persistence.
func NewService(factory *invoice.Factory, store attachments.Store, req Requirements) *Service {
	return &Service{factory: factory, store: store, requirements: req}
}

// AddLine validates req, persists its uploads, builds the line and appends
// it to ledger. It returns the line and the index it was stored at.
func (s *Service) AddLine(ctx context.Context, ledger *invoice.Ledger, req Request) (invoice.LineItem, int, error) {
	state := &State{Request: req, Index: -1}
	if err := s.pipeline(ledger).Execute(ctx, state); err != nil {
		return invoice.LineItem{}, -1, err
	}
	logger.FromContext(ctx).Debug().
		Str("version", state.Item.ProductVersion()).
		Int64("qty", state.Item.Quantity()).
		Int("index", state.Index).
		Msg("Line added")
	return state.Item, state.Index, nil
}

// EditLine replaces the line at index. Attachment references of the current
// line are kept unless new uploads or references are supplied.
func (s *Service) EditLine(ctx context.Context, ledger *invoice.Ledger, index int, req Request) (invoice.LineItem, error) {
	current, err := ledger.At(index)
	if err != nil {
		return invoice.LineItem{}, fmt.Errorf("EditLine: %w", err)
	}

	existing := current.Attachments()
	if req.Raw.Attachments.Primary == "" {
		req.Raw.Attachments.Primary = existing.Primary
	}
	if req.Raw.Attachments.Secondary == "" {
		req.Raw.Attachments.Secondary = existing.Secondary
	}

	state := &State{Request: req, Index: index}
	if err := s.pipeline(ledger).Execute(ctx, state); err != nil {
		return invoice.LineItem{}, err
	}
	return state.Item, nil
}

func (s *Service) pipeline(ledger *invoice.Ledger) *Pipeline {
	return NewPipeline(
		&ValidateStep{Factory: s.factory, Requirements: s.requirements},
		&PersistUploadsStep{Store: s.store},
		&BuildStep{Factory: s.factory},
		&StoreLineStep{Ledger: ledger},
	)
}
