package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
)

// VendorLineRow mirrors one row of the vendor_invoice_lines table.
type VendorLineRow struct {
	LineID  string              `bigquery:"line_id"`  // REQUIRED
	BatchID bigquery.NullString `bigquery:"batch_id"` // NULLABLE

	InvoiceDate civil.Date `bigquery:"invoice_date"` // REQUIRED, partition column

	VendorName string              `bigquery:"vendor_name"` // REQUIRED
	Notes      bigquery.NullString `bigquery:"notes"`       // NULLABLE
	PAN        string              `bigquery:"pan"`         // REQUIRED
	GST        string              `bigquery:"gst"`         // REQUIRED

	ProductVersion string `bigquery:"product_version"` // REQUIRED
	Language       string `bigquery:"language"`        // REQUIRED

	Quantity  int64    `bigquery:"quantity"`   // REQUIRED
	UnitPrice *big.Rat `bigquery:"unit_price"` // REQUIRED NUMERIC
	Amount    *big.Rat `bigquery:"amount"`     // REQUIRED NUMERIC

	PrimaryAttachment   bigquery.NullString `bigquery:"primary_attachment"`   // NULLABLE
	SecondaryAttachment bigquery.NullString `bigquery:"secondary_attachment"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewVendorLineRow converts item for insertion.
func NewVendorLineRow(item invoice.LineItem, batchID string) *VendorLineRow {
	refs := item.Attachments()
	return &VendorLineRow{
		LineID:              item.ID(),
		BatchID:             nullString(batchID),
		InvoiceDate:         civil.DateOf(item.CreatedAt()),
		VendorName:          item.VendorName(),
		Notes:               nullString(item.Notes()),
		PAN:                 item.TaxID1(),
		GST:                 item.TaxID2(),
		ProductVersion:      item.ProductVersion(),
		Language:            item.Language(),
		Quantity:            item.Quantity(),
		UnitPrice:           item.UnitPrice().Rat(),
		Amount:              item.Amount().Rat(),
		PrimaryAttachment:   nullString(refs.Primary),
		SecondaryAttachment: nullString(refs.Secondary),
		CreatedTS:           item.CreatedAt(),
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
