package intake

import (
	"context"
	"errors"

	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/logger"
)

// Form field names of the two uploads.
const (
	PrimaryUploadField   = "pan_img"
	SecondaryUploadField = "gst_img"
)

var errNoStore = errors.New("no attachment store configured")

// ValidateStep checks the form values and required uploads before anything
// is persisted.
type ValidateStep struct {
	Factory      *invoice.Factory
	Requirements Requirements
}

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	qty, err := s.Factory.Validate(state.Request.Raw)
	if err != nil {
		return err
	}

	refs := state.Request.Raw.Attachments
	if s.Requirements.Primary && state.Request.Primary.Empty() && refs.Primary == "" {
		return &invoice.ValidationError{Kind: invoice.MissingField, Field: PrimaryUploadField}
	}
	if s.Requirements.Secondary && state.Request.Secondary.Empty() && refs.Secondary == "" {
		return &invoice.ValidationError{Kind: invoice.MissingField, Field: SecondaryUploadField}
	}

	state.Quantity = qty
	return nil
}

// PersistUploadsStep stores any provided uploads and records their refs.
type PersistUploadsStep struct {
	Store attachments.Store
}

func (s *PersistUploadsStep) Execute(ctx context.Context, state *State) error {
	state.Refs = state.Request.Raw.Attachments

	if !state.Request.Primary.Empty() {
		ref, err := s.persist(ctx, state.Request.Primary)
		if err != nil {
			return err
		}
		state.Refs.Primary = ref
	}
	if !state.Request.Secondary.Empty() {
		ref, err := s.persist(ctx, state.Request.Secondary)
		if err != nil {
			if !state.Request.Primary.Empty() {
				s.discard(ctx, state.Refs.Primary)
			}
			return err
		}
		state.Refs.Secondary = ref
	}
	return nil
}

// discard removes an upload stored earlier in the same request.
func (s *PersistUploadsStep) discard(ctx context.Context, ref string) {
	remover, ok := s.Store.(attachments.Remover)
	if !ok {
		return
	}
	if err := remover.Remove(ctx, ref); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("ref", ref).Msg("Failed to remove orphaned upload")
	}
}

func (s *PersistUploadsStep) persist(ctx context.Context, u *Upload) (string, error) {
	if s.Store == nil {
		return "", &attachments.PersistError{Name: u.Name, Err: errNoStore}
	}
	return s.Store.Persist(ctx, u.Data, u.Name)
}

// BuildStep prices the line.
type BuildStep struct {
	Factory *invoice.Factory
}

func (s *BuildStep) Execute(ctx context.Context, state *State) error {
	raw := state.Request.Raw
	raw.Attachments = state.Refs

	item, err := s.Factory.Build(raw)
	if err != nil {
		return err
	}
	state.Item = item
	return nil
}

// StoreLineStep appends the line, or replaces it when editing.
type StoreLineStep struct {
	Ledger *invoice.Ledger
}

func (s *StoreLineStep) Execute(ctx context.Context, state *State) error {
	if state.Index < 0 {
		state.Index = s.Ledger.Append(state.Item)
		return nil
	}
	return s.Ledger.ReplaceAt(state.Index, state.Item)
}
