// Package records keeps the donor and program team registers that live next
// to the vendor sheet.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDonorNameRequired is returned when a donor has no name.
var ErrDonorNameRequired = errors.New("donor name is required")

// RowStore is a row-oriented table: a worksheet, in production.
type RowStore interface {
	AppendRow(ctx context.Context, cells []string) error
	Rows(ctx context.Context) ([][]string, error)
}

// DonorColumns is the donor sheet column order.
var DonorColumns = []string{
	"Donor Name", "Version Book", "Total Unique Child", "Total Exposure",
	"Cost per Unique Child", "Cost per Exposure", "Donor Relation",
	"Point of Contact", "Project ID",
}

// Donor is one row of the donor sheet. Values are kept as entered.
type Donor struct {
	Name               string `json:"donor_name"`
	VersionBook        string `json:"version_book"`
	TotalUniqueChild   string `json:"total_unique_child"`
	TotalExposure      string `json:"total_exposure"`
	CostPerUniqueChild string `json:"cost_per_unique_child"`
	CostPerExposure    string `json:"cost_per_exposure"`
	Relation           string `json:"donor_relation"`
	PointOfContact     string `json:"point_of_contact"`
	ProjectID          string `json:"project_id"`
}

func (d Donor) Row() []string {
	return []string{
		d.Name, d.VersionBook, d.TotalUniqueChild, d.TotalExposure,
		d.CostPerUniqueChild, d.CostPerExposure, d.Relation,
		d.PointOfContact, d.ProjectID,
	}
}

// DonorFromForm reads a donor from values keyed by column title.
func DonorFromForm(get func(key string) string) Donor {
	v := make([]string, len(DonorColumns))
	for i, col := range DonorColumns {
		v[i] = strings.TrimSpace(get(col))
	}
	return Donor{
		Name: v[0], VersionBook: v[1], TotalUniqueChild: v[2], TotalExposure: v[3],
		CostPerUniqueChild: v[4], CostPerExposure: v[5], Relation: v[6],
		PointOfContact: v[7], ProjectID: v[8],
	}
}

// DonorBook reads and writes the donor sheet.
type DonorBook struct {
	store RowStore
}

func NewDonorBook(store RowStore) *DonorBook {
	return &DonorBook{store: store}
}

// Add appends d. The name is mandatory.
func (b *DonorBook) Add(ctx context.Context, d Donor) error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrDonorNameRequired
	}
	if err := b.store.AppendRow(ctx, d.Row()); err != nil {
		return fmt.Errorf("DonorBook.Add: %w", err)
	}
	return nil
}

// Names lists the first column of every non-empty row below the header.
func (b *DonorBook) Names(ctx context.Context) ([]string, error) {
	rows, err := b.store.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("DonorBook.Names: %w", err)
	}
	names := []string{}
	for i, r := range rows {
		if i == 0 || len(r) == 0 {
			continue
		}
		names = append(names, r[0])
	}
	return names, nil
}

// ProgramColumns is the program team sheet column order.
var ProgramColumns = []string{"Region", "Version", "Language", "Quantity", "Grade", "Total", "POC", "LR"}

// ProgramEntry is one row of the program team sheet.
type ProgramEntry struct {
	Region   string `json:"region"`
	Version  string `json:"version"`
	Language string `json:"language"`
	Quantity string `json:"quantity"`
	Grade    string `json:"grade"`
	Total    string `json:"total"`
	POC      string `json:"poc"`
	LR       string `json:"lr"`
}

func (e ProgramEntry) Row() []string {
	return []string{e.Region, e.Version, e.Language, e.Quantity, e.Grade, e.Total, e.POC, e.LR}
}

// ProgramEntryFromForm reads an entry from values keyed by column title.
func ProgramEntryFromForm(get func(key string) string) ProgramEntry {
	v := make([]string, len(ProgramColumns))
	for i, col := range ProgramColumns {
		v[i] = strings.TrimSpace(get(col))
	}
	return ProgramEntry{
		Region: v[0], Version: v[1], Language: v[2], Quantity: v[3],
		Grade: v[4], Total: v[5], POC: v[6], LR: v[7],
	}
}

// ProgramBook reads and writes the program team sheet.
type ProgramBook struct {
	store RowStore
}

func NewProgramBook(store RowStore) *ProgramBook {
	return &ProgramBook{store: store}
}

func (b *ProgramBook) Add(ctx context.Context, e ProgramEntry) error {
	if err := b.store.AppendRow(ctx, e.Row()); err != nil {
		return fmt.Errorf("ProgramBook.Add: %w", err)
	}
	return nil
}

// Records returns each data row keyed by the header row. Short rows get
// empty strings for the missing columns; rows with no values are skipped.
func (b *ProgramBook) Records(ctx context.Context) ([]map[string]string, error) {
	rows, err := b.store.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("ProgramBook.Records: %w", err)
	}
	if len(rows) == 0 {
		return []map[string]string{}, nil
	}

	header := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(r) {
				rec[key] = r[i]
			} else {
				rec[key] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
