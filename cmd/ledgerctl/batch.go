package main

import (
	"fmt"
	"os"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"gopkg.in/yaml.v3"
)

// batchFile is a YAML invoice batch. Vendor details at the top apply to
// every line that does not set its own.
//
//	vendor: Acme Books
//	pan: ABCDE1234F
//	gst: 29ABCDE1234F1Z5
//	lines:
//	  - version: ISEE
//	    language: Kannada
//	    qty: 3
type batchFile struct {
	Vendor string                 `yaml:"vendor"`
	PAN    string                 `yaml:"pan"`
	GST    string                 `yaml:"gst"`
	Lines  []invoice.RawLineInput `yaml:"lines"`
}

func readBatch(path string) ([]invoice.RawLineInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readBatch: %w", err)
	}

	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("readBatch: decode %s: %w", path, err)
	}
	if len(f.Lines) == 0 {
		return nil, fmt.Errorf("readBatch: %s has no lines", path)
	}

	for i := range f.Lines {
		l := &f.Lines[i]
		if l.VendorName == "" {
			l.VendorName = f.Vendor
		}
		if l.TaxID1 == "" {
			l.TaxID1 = f.PAN
		}
		if l.TaxID2 == "" {
			l.TaxID2 = f.GST
		}
	}
	return f.Lines, nil
}

// buildLedger validates every line before adding any, so a bad batch leaves
// nothing behind.
func buildLedger(factory *invoice.Factory, raws []invoice.RawLineInput) (*invoice.Ledger, error) {
	items := make([]invoice.LineItem, 0, len(raws))
	for i, raw := range raws {
		item, err := factory.Build(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		items = append(items, item)
	}

	ledger := invoice.NewLedger()
	for _, item := range items {
		ledger.Append(item)
	}
	return ledger, nil
}
