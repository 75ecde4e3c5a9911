package intake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/pricing"
)

type mockStore struct {
	persisted   []string
	removed     []string
	PersistFunc func(ctx context.Context, data []byte, name string) (string, error)
}

func (m *mockStore) Persist(ctx context.Context, data []byte, name string) (string, error) {
	m.persisted = append(m.persisted, name)
	if m.PersistFunc != nil {
		return m.PersistFunc(ctx, data, name)
	}
	return "ref-" + name, nil
}

func (m *mockStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (m *mockStore) Remove(ctx context.Context, ref string) error {
	m.removed = append(m.removed, ref)
	return nil
}

func rawLine(qty string) invoice.RawLineInput {
	return invoice.RawLineInput{
		VendorName:     "Acme",
		TaxID1:         "PAN1",
		TaxID2:         "GST1",
		ProductVersion: "ISEE",
		Language:       "English",
		QuantityText:   qty,
	}
}

func newService(store attachments.Store, req Requirements) *Service {
	return NewService(invoice.NewFactory(pricing.DefaultCatalog()), store, req)
}

func TestAddLine_PersistsUploadsAndAppends(t *testing.T) {
	store := &mockStore{}
	ledger := invoice.NewLedger()

	item, index, err := newService(store, Requirements{}).AddLine(context.Background(), ledger, Request{
		Raw:       rawLine("3"),
		Primary:   &Upload{Name: "pan.png", Data: []byte("p")},
		Secondary: &Upload{Name: "gst.png", Data: []byte("g")},
	})
	if err != nil {
		t.Fatalf("AddLine() error = %v", err)
	}
	if item.Attachments().Primary != "ref-pan.png" || item.Attachments().Secondary != "ref-gst.png" {
		t.Errorf("Attachments = %+v", item.Attachments())
	}
	if ledger.Len() != 1 || index != 0 {
		t.Errorf("ledger Len() = %d, index = %d, want 1 and 0", ledger.Len(), index)
	}
}

func TestAddLine_ReturnsStoredIndex(t *testing.T) {
	svc := newService(&mockStore{}, Requirements{})
	ledger := invoice.NewLedger()

	for want := 0; want < 3; want++ {
		_, index, err := svc.AddLine(context.Background(), ledger, Request{Raw: rawLine("1")})
		if err != nil {
			t.Fatalf("AddLine() error = %v", err)
		}
		if index != want {
			t.Errorf("index = %d, want %d", index, want)
		}
	}
}

func TestAddLine_SecondaryFailureRemovesPrimary(t *testing.T) {
	quota := errors.New("quota exceeded")
	store := &mockStore{
		PersistFunc: func(ctx context.Context, data []byte, name string) (string, error) {
			if name == "gst.png" {
				return "", &attachments.PersistError{Name: name, Err: quota}
			}
			return "ref-" + name, nil
		},
	}
	ledger := invoice.NewLedger()

	_, _, err := newService(store, Requirements{}).AddLine(context.Background(), ledger, Request{
		Raw:       rawLine("1"),
		Primary:   &Upload{Name: "pan.png", Data: []byte("p")},
		Secondary: &Upload{Name: "gst.png", Data: []byte("g")},
	})
	if !errors.Is(err, quota) {
		t.Fatalf("AddLine() error = %v, want quota exceeded", err)
	}
	if len(store.removed) != 1 || store.removed[0] != "ref-pan.png" {
		t.Errorf("removed = %v, want [ref-pan.png]", store.removed)
	}
	if ledger.Len() != 0 {
		t.Errorf("ledger Len() = %d, want 0", ledger.Len())
	}
}

func TestAddLine_InvalidInputPersistsNothing(t *testing.T) {
	store := &mockStore{}
	ledger := invoice.NewLedger()

	_, _, err := newService(store, Requirements{}).AddLine(context.Background(), ledger, Request{
		Raw:     rawLine("abc"),
		Primary: &Upload{Name: "pan.png", Data: []byte("p")},
	})
	if !errors.Is(err, invoice.ErrInvalidQuantity) {
		t.Fatalf("AddLine() error = %v, want ErrInvalidQuantity", err)
	}
	if len(store.persisted) != 0 {
		t.Errorf("persisted %v before validation passed", store.persisted)
	}
	if ledger.Len() != 0 {
		t.Errorf("ledger Len() = %d, want 0", ledger.Len())
	}
}

func TestAddLine_PersistFailureLeavesLedgerUnchanged(t *testing.T) {
	diskFull := errors.New("disk full")
	store := &mockStore{
		PersistFunc: func(ctx context.Context, data []byte, name string) (string, error) {
			return "", &attachments.PersistError{Name: name, Err: diskFull}
		},
	}
	ledger := invoice.NewLedger()

	_, _, err := newService(store, Requirements{}).AddLine(context.Background(), ledger, Request{
		Raw:     rawLine("1"),
		Primary: &Upload{Name: "pan.png", Data: []byte("p")},
	})
	var pErr *attachments.PersistError
	if !errors.As(err, &pErr) || !errors.Is(err, diskFull) {
		t.Fatalf("AddLine() error = %v, want PersistError wrapping disk full", err)
	}
	if ledger.Len() != 0 {
		t.Errorf("ledger Len() = %d, want 0", ledger.Len())
	}
}

func TestAddLine_Requirements(t *testing.T) {
	tests := []struct {
		name      string
		req       Requirements
		request   Request
		wantField string
	}{
		{
			name:      "primary required",
			req:       Requirements{Primary: true},
			request:   Request{Raw: rawLine("1")},
			wantField: PrimaryUploadField,
		},
		{
			name:      "secondary required",
			req:       Requirements{Secondary: true},
			request:   Request{Raw: rawLine("1"), Primary: &Upload{Name: "p", Data: []byte("p")}},
			wantField: SecondaryUploadField,
		},
		{
			name:      "empty upload does not count",
			req:       Requirements{Primary: true},
			request:   Request{Raw: rawLine("1"), Primary: &Upload{Name: "p"}},
			wantField: PrimaryUploadField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newService(&mockStore{}, tt.req).AddLine(context.Background(), invoice.NewLedger(), tt.request)
			var vErr *invoice.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.wantField {
				t.Fatalf("AddLine() error = %v, want missing %s", err, tt.wantField)
			}
		})
	}
}

func TestAddLine_NoStoreRejectsUploads(t *testing.T) {
	_, _, err := newService(nil, Requirements{}).AddLine(context.Background(), invoice.NewLedger(), Request{
		Raw:     rawLine("1"),
		Primary: &Upload{Name: "pan.png", Data: []byte("p")},
	})
	var pErr *attachments.PersistError
	if !errors.As(err, &pErr) {
		t.Fatalf("AddLine() error = %v, want *PersistError", err)
	}
}

func TestEditLine_KeepsExistingAttachments(t *testing.T) {
	svc := newService(&mockStore{}, Requirements{Primary: true})
	ledger := invoice.NewLedger()
	ctx := context.Background()

	if _, _, err := svc.AddLine(ctx, ledger, Request{Raw: rawLine("1"), Primary: &Upload{Name: "pan.png", Data: []byte("p")}}); err != nil {
		t.Fatalf("AddLine() error = %v", err)
	}

	edited, err := svc.EditLine(ctx, ledger, 0, Request{Raw: rawLine("5")})
	if err != nil {
		t.Fatalf("EditLine() error = %v", err)
	}
	if edited.Quantity() != 5 || edited.Attachments().Primary != "ref-pan.png" {
		t.Errorf("edited = qty %d, primary %q", edited.Quantity(), edited.Attachments().Primary)
	}
	if got := ledger.Items()[0].Quantity(); got != 5 {
		t.Errorf("ledger item qty = %d, want 5", got)
	}
}

func TestEditLine_IndexOutOfRange(t *testing.T) {
	_, _, err := newService(&mockStore{}, Requirements{}).EditLine(context.Background(), invoice.NewLedger(), 2, Request{Raw: rawLine("1")})
	if !errors.Is(err, invoice.ErrIndexOutOfRange) {
		t.Fatalf("EditLine() error = %v, want ErrIndexOutOfRange", err)
	}
}
