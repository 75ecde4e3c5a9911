package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/pricing"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockExecer struct {
	sql      []string
	args     [][]any
	ExecFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.sql = append(m.sql, sql)
	m.args = append(m.args, args)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestLineSink_AppendRow(t *testing.T) {
	item, err := invoice.NewFactory(pricing.DefaultCatalog()).Build(invoice.RawLineInput{
		VendorName: "Acme", TaxID1: "PAN1", TaxID2: "GST1",
		ProductVersion: "ISEE", Language: "English", QuantityText: "3",
		Attachments: invoice.AttachmentRefs{Secondary: "1_gst.jpg"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	db := &mockExecer{}
	ctx := submission.ContextWithBatchID(context.Background(), "batch-3")
	if err := NewLineSink(db).AppendRow(ctx, item); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}

	if !strings.Contains(db.sql[0], "ON CONFLICT (line_id) DO NOTHING") {
		t.Errorf("insert is not idempotent: %s", db.sql[0])
	}
	args := db.args[0]
	if len(args) != 14 {
		t.Fatalf("got %d args, want 14", len(args))
	}
	if args[0] != item.ID() || args[1] != "batch-3" {
		t.Errorf("ids = %v, %v", args[0], args[1])
	}
	if args[9] != int64(3) || args[10] != "300" || args[11] != "900" {
		t.Errorf("qty/price/amount = %v/%v/%v", args[9], args[10], args[11])
	}
	if args[13] != "1_gst.jpg" {
		t.Errorf("secondary attachment = %v", args[13])
	}
}

func TestLineSink_Errors(t *testing.T) {
	down := errors.New("connection reset")
	db := &mockExecer{ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, down
	}}
	sink := NewLineSink(db)

	if err := sink.EnsureSchema(context.Background()); !errors.Is(err, down) {
		t.Errorf("EnsureSchema() error = %v", err)
	}
	if !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS vendor_invoice_lines") {
		t.Errorf("schema SQL = %s", db.sql[0])
	}
}

func TestConnect_EmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatal("Connect(\"\") error = nil")
	}
}
