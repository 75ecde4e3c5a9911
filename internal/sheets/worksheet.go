package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"google.golang.org/api/sheets/v4"
)

// Worksheet appends and reads rows of one tab.
type Worksheet struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	title         string
}

// SpreadsheetID returns the id of the containing spreadsheet.
func (w *Worksheet) SpreadsheetID() string { return w.spreadsheetID }

// Title returns the tab name.
func (w *Worksheet) Title() string { return w.title }

func (w *Worksheet) a1(cells string) string {
	return "'" + strings.ReplaceAll(w.title, "'", "''") + "'" + cells
}

// AppendRow adds cells as a new row after the last row of the table. Values
// are parsed as if typed by a user, so numbers stay numbers.
func (w *Worksheet) AppendRow(ctx context.Context, cells []string) error {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}

	_, err := w.values.Append(w.spreadsheetID, w.a1("!A1"), &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]interface{}{row},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("Worksheet.AppendRow: %s: %w", w.title, err)
	}
	return nil
}

// Rows returns every non-empty row of the tab, header included, as
// formatted strings.
func (w *Worksheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := w.values.Get(w.spreadsheetID, w.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Worksheet.Rows: %s: %w", w.title, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		row := make([]string, len(r))
		for i, cell := range r {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// VendorSink writes invoice lines to the vendor worksheet.
type VendorSink struct {
	ws *Worksheet
}

// NewVendorSink wraps ws.
func NewVendorSink(ws *Worksheet) *VendorSink {
	return &VendorSink{ws: ws}
}

func (s *VendorSink) AppendRow(ctx context.Context, item invoice.LineItem) error {
	return s.ws.AppendRow(ctx, item.Row())
}
