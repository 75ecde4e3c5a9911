// Package export keeps an offline XLSX copy of submitted invoice lines.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet lines are appended to.
const DefaultSheet = "Vendorsheet"

// WorkbookSink appends each line as a row of a local workbook, creating the
// file and a header row on first use.
type WorkbookSink struct {
	path  string
	sheet string
	mu    sync.Mutex
}

var _ submission.Sink = (*WorkbookSink)(nil)

// NewWorkbookSink writes to path. An empty sheet selects DefaultSheet.
func NewWorkbookSink(path, sheet string) *WorkbookSink {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &WorkbookSink{path: path, sheet: sheet}
}

func (s *WorkbookSink) AppendRow(ctx context.Context, item invoice.LineItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return fmt.Errorf("WorkbookSink.AppendRow: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("WorkbookSink.AppendRow: read rows: %w", err)
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		if err := writeRow(f, s.sheet, 1, headerCells()); err != nil {
			return fmt.Errorf("WorkbookSink.AppendRow: header: %w", err)
		}
		next = 2
	}
	if err := writeRow(f, s.sheet, next, Cells(item)); err != nil {
		return fmt.Errorf("WorkbookSink.AppendRow: %w", err)
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("WorkbookSink.AppendRow: save %s: %w", s.path, err)
	}
	return nil
}

func (s *WorkbookSink) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("name sheet: %w", err)
		}
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	idx, err := f.GetSheetIndex(s.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("find sheet: %w", err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(s.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet: %w", err)
		}
	}
	return f, nil
}

// Cells is item's row with numeric columns typed as numbers.
func Cells(item invoice.LineItem) []interface{} {
	row := item.Row()
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	unitPrice, _ := item.UnitPrice().Float64()
	amount, _ := item.Amount().Float64()
	cells[7] = item.Quantity()
	cells[8] = unitPrice
	cells[9] = amount
	return cells
}

func headerCells() []interface{} {
	cells := make([]interface{}, len(invoice.RowHeader))
	for i, h := range invoice.RowHeader {
		cells[i] = h
	}
	return cells
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// Exists reports whether the workbook file has been created.
func (s *WorkbookSink) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
