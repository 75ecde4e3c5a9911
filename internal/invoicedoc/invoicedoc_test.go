package invoicedoc

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/pricing"
	"github.com/shopspring/decimal"
)

func buildItems(t *testing.T) []invoice.LineItem {
	t.Helper()
	f := invoice.NewFactory(pricing.DefaultCatalog())
	var items []invoice.LineItem
	for _, v := range []string{"ISEE", "Actilearn 1.0"} {
		item, err := f.Build(invoice.RawLineInput{
			VendorName: "Acme", TaxID1: "PAN1", TaxID2: "GST1",
			ProductVersion: v, Language: "Kannada", QuantityText: "2",
		})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		items = append(items, item)
	}
	return items
}

func TestRender(t *testing.T) {
	doc := FromItems(buildItems(t), "batch-1", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if doc.Vendor != "Acme" || !doc.Total.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("FromItems() = vendor %q total %s", doc.Vendor, doc.Total)
	}

	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", out[:8])
	}
	if got := FileName(doc); got != "invoice_20240102_030405.pdf" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestRender_NoLines(t *testing.T) {
	if _, err := Render(Document{Vendor: "Acme"}); !errors.Is(err, ErrNoLines) {
		t.Fatalf("Render() error = %v, want ErrNoLines", err)
	}
}
