package invoice

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawLineInput carries the untrusted form values for one line.
type RawLineInput struct {
	VendorName     string         `json:"vendor" yaml:"vendor"`
	TaxID1         string         `json:"pan" yaml:"pan"`
	TaxID2         string         `json:"gst" yaml:"gst"`
	ProductVersion string         `json:"version" yaml:"version"`
	Language       string         `json:"language" yaml:"language"`
	QuantityText   string         `json:"qty" yaml:"qty"`
	Notes          string         `json:"notes,omitempty" yaml:"notes"`
	Attachments    AttachmentRefs `json:"attachments,omitempty" yaml:"attachments"`
}

// PriceLookup resolves a product version to its unit price.
type PriceLookup interface {
	Lookup(productVersion string) decimal.Decimal
}

// Factory validates raw input and builds priced line items.
type Factory struct {
	prices PriceLookup
	now    func() time.Time
	newID  func() string
}

// NewFactory creates a Factory pricing lines with prices.
func NewFactory(prices PriceLookup) *Factory {
	return &Factory{prices: prices, now: time.Now, newID: uuid.NewString}
}

// WithClock returns a copy of the factory that stamps items using now.
func (f *Factory) WithClock(now func() time.Time) *Factory {
	cp := *f
	cp.now = now
	return &cp
}

// Validate applies the input rules in order and returns the first failure
// together with the parsed quantity.
func (f *Factory) Validate(raw RawLineInput) (int64, error) {
	required := []struct {
		field string
		value string
	}{
		{"vendor", raw.VendorName},
		{"pan", raw.TaxID1},
		{"gst", raw.TaxID2},
		{"version", raw.ProductVersion},
		{"language", raw.Language},
		{"qty", raw.QuantityText},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return 0, &ValidationError{Kind: MissingField, Field: r.field}
		}
	}

	qty, err := strconv.ParseUint(strings.TrimSpace(raw.QuantityText), 10, 32)
	if err != nil || qty == 0 {
		return 0, &ValidationError{Kind: InvalidQuantity, Field: "qty"}
	}
	return int64(qty), nil
}

// Build validates raw and returns a fully priced LineItem. Text fields are
// stored trimmed. Every item gets a fresh random ID, so identical input
// built twice yields two distinct lines; sinks use the ID to recognise a
// retried write of the same line.
func (f *Factory) Build(raw RawLineInput) (LineItem, error) {
	qty, err := f.Validate(raw)
	if err != nil {
		return LineItem{}, err
	}

	version := strings.TrimSpace(raw.ProductVersion)
	unitPrice := f.prices.Lookup(version)

	return LineItem{
		id:             f.newID(),
		vendorName:     strings.TrimSpace(raw.VendorName),
		taxID1:         strings.TrimSpace(raw.TaxID1),
		taxID2:         strings.TrimSpace(raw.TaxID2),
		productVersion: version,
		language:       strings.TrimSpace(raw.Language),
		quantity:       qty,
		unitPrice:      unitPrice,
		amount:         unitPrice.Mul(decimal.NewFromInt(qty)),
		notes:          strings.TrimSpace(raw.Notes),
		attachments: AttachmentRefs{
			Primary:   strings.TrimSpace(raw.Attachments.Primary),
			Secondary: strings.TrimSpace(raw.Attachments.Secondary),
		},
		createdAt: f.now(),
	}, nil
}
