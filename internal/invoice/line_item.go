package invoice

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// RowTimeFormat is the timestamp layout written to row-oriented sinks.
const RowTimeFormat = time.RFC3339

// RowHeader names the sink columns in the order Row emits them.
var RowHeader = []string{
	"Timestamp", "Vendor Name", "Notes", "PAN", "GST", "Version",
	"Language", "Quantity", "Unit Price", "Amount", "PAN Image", "GST Image",
}

// AttachmentRefs are opaque references to previously persisted uploads.
// Empty means "no attachment".
type AttachmentRefs struct {
	Primary   string `json:"primary,omitempty" yaml:"primary"`
	Secondary string `json:"secondary,omitempty" yaml:"secondary"`
}

// LineItem is one priced entry of a vendor invoice. Values are only produced
// by Factory.Build, so every LineItem is valid and Amount always equals
// Quantity * UnitPrice. Fields are unexported; LineItem is a value type and
// copies cannot alter the original.
type LineItem struct {
	id             string
	vendorName     string
	taxID1         string
	taxID2         string
	productVersion string
	language       string
	quantity       int64
	unitPrice      decimal.Decimal
	amount         decimal.Decimal
	notes          string
	attachments    AttachmentRefs
	createdAt      time.Time
}

func (l LineItem) ID() string                  { return l.id }
func (l LineItem) VendorName() string          { return l.vendorName }
func (l LineItem) TaxID1() string              { return l.taxID1 }
func (l LineItem) TaxID2() string              { return l.taxID2 }
func (l LineItem) ProductVersion() string      { return l.productVersion }
func (l LineItem) Language() string            { return l.language }
func (l LineItem) Quantity() int64             { return l.quantity }
func (l LineItem) UnitPrice() decimal.Decimal  { return l.unitPrice }
func (l LineItem) Amount() decimal.Decimal     { return l.amount }
func (l LineItem) Notes() string               { return l.notes }
func (l LineItem) Attachments() AttachmentRefs { return l.attachments }
func (l LineItem) CreatedAt() time.Time        { return l.createdAt }

// Row renders the item in sink column order: timestamp, vendor, notes,
// PAN, GST, version, language, quantity, unit price, amount, primary and
// secondary attachment refs.
func (l LineItem) Row() []string {
	return []string{
		l.createdAt.Format(RowTimeFormat),
		l.vendorName,
		l.notes,
		l.taxID1,
		l.taxID2,
		l.productVersion,
		l.language,
		strconv.FormatInt(l.quantity, 10),
		l.unitPrice.String(),
		l.amount.String(),
		l.attachments.Primary,
		l.attachments.Secondary,
	}
}

// View is the JSON shape of a line item for API responses.
type View struct {
	ID             string          `json:"id"`
	VendorName     string          `json:"vendor_name"`
	TaxID1         string          `json:"pan"`
	TaxID2         string          `json:"gst"`
	ProductVersion string          `json:"version"`
	Language       string          `json:"language"`
	Quantity       int64           `json:"qty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Amount         decimal.Decimal `json:"amount"`
	Notes          string          `json:"notes,omitempty"`
	Attachments    AttachmentRefs  `json:"attachments"`
	CreatedAt      time.Time       `json:"created_at"`
}

// View returns a serialisable snapshot of the item.
func (l LineItem) View() View {
	return View{
		ID:             l.id,
		VendorName:     l.vendorName,
		TaxID1:         l.taxID1,
		TaxID2:         l.taxID2,
		ProductVersion: l.productVersion,
		Language:       l.language,
		Quantity:       l.quantity,
		UnitPrice:      l.unitPrice,
		Amount:         l.amount,
		Notes:          l.notes,
		Attachments:    l.attachments,
		CreatedAt:      l.createdAt,
	}
}

// Views converts a batch for serialisation.
func Views(items []LineItem) []View {
	views := make([]View, len(items))
	for i, item := range items {
		views[i] = item.View()
	}
	return views
}

// Sum adds up the amounts of items; zero for an empty slice.
func Sum(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.amount)
	}
	return total
}
