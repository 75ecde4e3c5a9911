package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultVendorLinesTable is the table created by the vendor lines migration.
const DefaultVendorLinesTable = "vendor_invoice_lines"

// InsertVendorLineWithClient streams one row into project.dataset.table. The
// line id doubles as the insert id so BigQuery can drop retried duplicates.
func InsertVendorLineWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string, row *VendorLineRow) error {
	inserter := client.DatasetInProject(project, dataset).Table(table).Inserter()
	saver := &bigquery.StructSaver{Struct: row, InsertID: row.LineID}
	if err := inserter.Put(ctx, saver); err != nil {
		return fmt.Errorf("InsertVendorLine: inserting row: %w", err)
	}
	return nil
}

// VendorDayTotal is the amount billed by one vendor on one day.
type VendorDayTotal struct {
	InvoiceDate civil.Date `bigquery:"invoice_date"`
	VendorName  string     `bigquery:"vendor_name"`
	Lines       int64      `bigquery:"lines"`
	Amount      *big.Rat   `bigquery:"amount"`
}

// QueryVendorTotalsWithClient sums submitted amounts per vendor and day
// between from and to inclusive.
func QueryVendorTotalsWithClient(ctx context.Context, client *bigquery.Client, project, dataset, table string, from, to civil.Date) ([]*VendorDayTotal, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			invoice_date,
			vendor_name,
			COUNT(*) AS lines,
			SUM(amount) AS amount
		FROM `+"`%s.%s.%s`"+`
		WHERE invoice_date BETWEEN @from AND @to
		GROUP BY invoice_date, vendor_name
		ORDER BY invoice_date, vendor_name
	`, project, dataset, table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "from", Value: from},
		{Name: "to", Value: to},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryVendorTotals: running query: %w", err)
	}

	var out []*VendorDayTotal
	for {
		var row VendorDayTotal
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryVendorTotals: reading row: %w", err)
		}
		out = append(out, &row)
	}
	return out, nil
}

// LineSink mirrors submitted lines into BigQuery.
type LineSink struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
}

var _ submission.Sink = (*LineSink)(nil)

// NewLineSink creates a BigQuery client for project. An empty table selects
// DefaultVendorLinesTable.
func NewLineSink(ctx context.Context, project, dataset, table string, opts ...option.ClientOption) (*LineSink, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewLineSink: creating client: %w", err)
	}
	return NewLineSinkWithClient(client, project, dataset, table), nil
}

// NewLineSinkWithClient wraps an existing client.
func NewLineSinkWithClient(client *bigquery.Client, project, dataset, table string) *LineSink {
	if table == "" {
		table = DefaultVendorLinesTable
	}
	return &LineSink{client: client, project: project, dataset: dataset, table: table}
}

// Close closes the BigQuery client connection.
func (s *LineSink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *LineSink) AppendRow(ctx context.Context, item invoice.LineItem) error {
	row := NewVendorLineRow(item, submission.BatchIDFromContext(ctx))
	return InsertVendorLineWithClient(ctx, s.client, s.project, s.dataset, s.table, row)
}

// VendorTotals queries per-vendor daily totals from the sink's table.
func (s *LineSink) VendorTotals(ctx context.Context, from, to civil.Date) ([]*VendorDayTotal, error) {
	return QueryVendorTotalsWithClient(ctx, s.client, s.project, s.dataset, s.table, from, to)
}
