// Package invoicedoc renders a vendor invoice batch as a PDF document.
package invoicedoc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ErrNoLines is returned when there is nothing to render.
var ErrNoLines = errors.New("invoice has no lines")

// Document is the content of one rendered invoice.
type Document struct {
	Vendor      string
	TaxID1      string
	TaxID2      string
	Items       []invoice.LineItem
	Total       decimal.Decimal
	GeneratedAt time.Time
	BatchID     string
}

// FromItems builds a Document for items, taking vendor details from the
// first line.
func FromItems(items []invoice.LineItem, batchID string, at time.Time) Document {
	doc := Document{
		Items:       items,
		Total:       invoice.Sum(items),
		GeneratedAt: at,
		BatchID:     batchID,
	}
	if len(items) > 0 {
		doc.Vendor = items[0].VendorName()
		doc.TaxID1 = items[0].TaxID1()
		doc.TaxID2 = items[0].TaxID2()
	}
	return doc
}

var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Version", 50, "L"},
	{"Language", 35, "L"},
	{"Qty", 20, "R"},
	{"Unit Price", 35, "R"},
	{"Amount", 40, "R"},
}

// Render produces an A4 PDF listing every line and the grand total.
func Render(doc Document) ([]byte, error) {
	if len(doc.Items) == 0 {
		return nil, ErrNoLines
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Vendor Invoice "+doc.Vendor, true)
	pdf.SetCreator("vendor-ledger", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Vendor Invoice", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	header := []string{
		"Vendor: " + doc.Vendor,
		"PAN: " + doc.TaxID1,
		"GST: " + doc.TaxID2,
		"Date: " + doc.GeneratedAt.Format("02 Jan 2006 15:04"),
	}
	if doc.BatchID != "" {
		header = append(header, "Reference: "+doc.BatchID)
	}
	for _, line := range header {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for i, item := range doc.Items {
		cells := []string{
			strconv.Itoa(i + 1),
			tr(item.ProductVersion()),
			tr(item.Language()),
			strconv.FormatInt(item.Quantity(), 10),
			item.UnitPrice().StringFixed(2),
			item.Amount().StringFixed(2),
		}
		for j, c := range columns {
			pdf.CellFormat(c.width, 7, cells[j], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var labelWidth float64
	for _, c := range columns[:len(columns)-1] {
		labelWidth += c.width
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(labelWidth, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columns[len(columns)-1].width, 8, doc.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("Render: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the suggested download name for doc.
func FileName(doc Document) string {
	return fmt.Sprintf("invoice_%s.pdf", doc.GeneratedAt.Format("20060102_150405"))
}
