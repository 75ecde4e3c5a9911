// Package postgres mirrors submitted invoice lines into PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS vendor_invoice_lines (
	line_id              UUID PRIMARY KEY,
	batch_id             TEXT,
	created_at           TIMESTAMPTZ NOT NULL,
	vendor_name          TEXT NOT NULL,
	notes                TEXT NOT NULL DEFAULT '',
	pan                  TEXT NOT NULL,
	gst                  TEXT NOT NULL,
	product_version      TEXT NOT NULL,
	language             TEXT NOT NULL,
	quantity             BIGINT NOT NULL CHECK (quantity > 0),
	unit_price           NUMERIC(14, 2) NOT NULL,
	amount               NUMERIC(14, 2) NOT NULL,
	primary_attachment   TEXT NOT NULL DEFAULT '',
	secondary_attachment TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS vendor_invoice_lines_vendor_idx ON vendor_invoice_lines (vendor_name, created_at);
`

const insertSQL = `
INSERT INTO vendor_invoice_lines (
	line_id, batch_id, created_at, vendor_name, notes, pan, gst,
	product_version, language, quantity, unit_price, amount,
	primary_attachment, secondary_attachment
)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13, $14)
ON CONFLICT (line_id) DO NOTHING
`

// Execer is the subset of pgxpool.Pool the sink uses.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect opens and pings a pool for dbURL.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("Connect: database URL is empty")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("Connect: parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("Connect: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}

	return pool, nil
}

// LineSink inserts one row per submitted line.
type LineSink struct {
	db Execer
}

var _ submission.Sink = (*LineSink)(nil)

// NewLineSink wraps db.
func NewLineSink(db Execer) *LineSink {
	return &LineSink{db: db}
}

// EnsureSchema creates the table and index when missing.
func (s *LineSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// AppendRow inserts item. Re-inserting an identical line is a no-op.
func (s *LineSink) AppendRow(ctx context.Context, item invoice.LineItem) error {
	refs := item.Attachments()
	_, err := s.db.Exec(ctx, insertSQL,
		item.ID(),
		submission.BatchIDFromContext(ctx),
		item.CreatedAt(),
		item.VendorName(),
		item.Notes(),
		item.TaxID1(),
		item.TaxID2(),
		item.ProductVersion(),
		item.Language(),
		item.Quantity(),
		item.UnitPrice().String(),
		item.Amount().String(),
		refs.Primary,
		refs.Secondary,
	)
	if err != nil {
		return fmt.Errorf("LineSink.AppendRow: insert line: %w", err)
	}
	return nil
}
