// Package sheets stores rows in Google Sheets worksheets.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

// ErrSpreadsheetNotFound is returned when a title lookup finds nothing.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetIDFromURL extracts the id from a spreadsheet URL.
func SpreadsheetIDFromURL(url string) (string, bool) {
	m := spreadsheetURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Client opens spreadsheets and worksheets.
type Client struct {
	values *sheets.SpreadsheetsValuesService
	files  *drive.FilesService
}

// NewClient wraps the Sheets service. driveSvc is only needed to open
// spreadsheets by title and may be nil.
func NewClient(sheetsSvc *sheets.Service, driveSvc *drive.Service) *Client {
	c := &Client{values: sheetsSvc.Spreadsheets.Values}
	if driveSvc != nil {
		c.files = driveSvc.Files
	}
	return c
}

// ResolveSpreadsheet turns a spreadsheet URL or title into an id.
func (c *Client) ResolveSpreadsheet(ctx context.Context, ref string) (string, error) {
	if id, ok := SpreadsheetIDFromURL(ref); ok {
		return id, nil
	}
	if c.files == nil {
		return "", fmt.Errorf("ResolveSpreadsheet: %q is not a URL and no Drive client is configured", ref)
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(ref, "'", `\'`), spreadsheetMimeType)
	resp, err := c.files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("ResolveSpreadsheet: drive search: %w", err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("ResolveSpreadsheet: %q: %w", ref, ErrSpreadsheetNotFound)
	}
	return resp.Files[0].Id, nil
}

// OpenWorksheet resolves spreadsheetRef and returns a handle on one tab.
func (c *Client) OpenWorksheet(ctx context.Context, spreadsheetRef, title string) (*Worksheet, error) {
	id, err := c.ResolveSpreadsheet(ctx, spreadsheetRef)
	if err != nil {
		return nil, fmt.Errorf("OpenWorksheet: %w", err)
	}
	return c.Worksheet(id, title), nil
}

// Worksheet returns a handle on a tab of a known spreadsheet id.
func (c *Client) Worksheet(spreadsheetID, title string) *Worksheet {
	return &Worksheet{values: c.values, spreadsheetID: spreadsheetID, title: title}
}
