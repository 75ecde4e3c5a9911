package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/app"
	"github.com/dvloznov/vendor-ledger/internal/invoicedoc"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"github.com/spf13/cobra"
)

func newPriceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "price [version...]",
		Short: "Show unit prices, or the whole catalog when no version is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), c.cfg, app.WithoutSink())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if len(args) == 0 {
				for _, e := range a.Catalog.Entries() {
					fmt.Fprintf(w, "%s\t%s\n", e.Version, e.Price)
				}
				fmt.Fprintf(w, "(default)\t%s\n", a.Catalog.Fallback())
				return w.Flush()
			}

			for _, v := range args {
				note := ""
				if !a.Catalog.Known(v) {
					note = "\t(default)"
				}
				fmt.Fprintf(w, "%s\t%s%s\n", v, a.Catalog.Lookup(v), note)
			}
			return w.Flush()
		},
	}
}

func newRenderCmd(c *cli) *cobra.Command {
	var batchPath, out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a batch file to an invoice PDF without submitting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), c.cfg, app.WithoutSink())
			if err != nil {
				return err
			}
			defer a.Close()

			raws, err := readBatch(batchPath)
			if err != nil {
				return err
			}
			ledger, err := buildLedger(a.Factory, raws)
			if err != nil {
				return err
			}

			doc := invoicedoc.FromItems(ledger.Items(), "", time.Now())
			if err := writePDF(doc, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d lines, total %s, to %s\n", len(doc.Items), doc.Total.StringFixed(2), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&batchPath, "batch", "", "Batch YAML file")
	cmd.Flags().StringVar(&out, "out", "", "Output PDF path")
	cmd.MarkFlagRequired("batch")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newSubmitCmd(c *cli) *cobra.Command {
	var batchPath, pdfPath string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Write a batch file to the configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			raws, err := readBatch(batchPath)
			if err != nil {
				return err
			}

			a, err := app.New(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ledger, err := buildLedger(a.Factory, raws)
			if err != nil {
				return err
			}

			var written string
			if pdfPath != "" {
				a.Submitter.AfterSubmit(func(ctx context.Context, b submission.Batch) error {
					doc := invoicedoc.FromItems(b.Items, b.ID, b.SubmittedAt)
					if err := writePDF(doc, pdfPath); err != nil {
						return err
					}
					written = pdfPath
					return nil
				})
			}

			report, err := a.Submitter.Submit(ctx, ledger, a.Sink)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted %d lines, total %s (batch %s)\n", report.Count, report.Total.StringFixed(2), report.BatchID)
			if pdfPath != "" {
				if written == "" {
					return fmt.Errorf("submitted, but the invoice PDF could not be written to %s", pdfPath)
				}
				fmt.Fprintf(out, "Invoice written to %s\n", written)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&batchPath, "batch", "", "Batch YAML file")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also write the invoice PDF here after a successful submit")
	cmd.MarkFlagRequired("batch")
	return cmd
}

func newUploadCmd(c *cli) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Store an attachment and print its reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), c.cfg, app.WithoutSink())
			if err != nil {
				return err
			}
			defer a.Close()

			ref, err := a.Store.Persist(cmd.Context(), data, filepath.Base(file))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "File to upload")
	cmd.MarkFlagRequired("file")
	return cmd
}

func writePDF(doc invoicedoc.Document, path string) error {
	pdf, err := invoicedoc.Render(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
