// Package delivery sends the invoice PDF of every submitted batch.
package delivery

import (
	"context"
	"fmt"

	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/dvloznov/vendor-ledger/internal/invoicedoc"
	"github.com/dvloznov/vendor-ledger/internal/jobs"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/dvloznov/vendor-ledger/internal/mailer"
	"github.com/dvloznov/vendor-ledger/internal/submission"
)

// Hook returns a submission hook that queues a delivery job for each
// successful batch.
func Hook(pub jobs.Publisher, recipients []string) submission.Hook {
	return func(ctx context.Context, batch submission.Batch) error {
		job := &jobs.DeliverInvoiceJob{
			BatchID:    batch.ID,
			Items:      batch.Items,
			Total:      batch.Total,
			Recipients: recipients,
			CreatedAt:  batch.SubmittedAt,
		}
		if len(batch.Items) > 0 {
			job.Vendor = batch.Items[0].VendorName()
		}
		if err := pub.PublishDeliverInvoice(ctx, job); err != nil {
			return fmt.Errorf("delivery.Hook: publish: %w", err)
		}
		logger.FromContext(ctx).Info().Str("job_id", job.JobID).Str("batch_id", batch.ID).Msg("Invoice delivery queued")
		return nil
	}
}

// Handler renders, archives and emails invoices. Archive and Mail are
// optional; a nil collaborator skips that stage.
type Handler struct {
	Archive attachments.Store
	Mail    mailer.Sender
}

// Handle processes a DeliverInvoiceJob.
func (h *Handler) Handle(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.DeliverInvoiceJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type %s", job.GetType())
	}

	doc := invoicedoc.FromItems(j.Items, j.BatchID, j.CreatedAt)
	pdf, err := invoicedoc.Render(doc)
	if err != nil {
		return fmt.Errorf("Handle: render invoice: %w", err)
	}

	if h.Archive != nil && j.DocumentRef == "" {
		ref, err := h.Archive.Persist(ctx, pdf, invoicedoc.FileName(doc))
		if err != nil {
			return fmt.Errorf("Handle: archive invoice: %w", err)
		}
		j.DocumentRef = ref
	}

	if h.Mail == nil || len(j.Recipients) == 0 {
		return nil
	}

	msg := mailer.Message{
		To:      j.Recipients,
		Subject: fmt.Sprintf("Vendor invoice: %s", doc.Vendor),
		Body: fmt.Sprintf("Vendor: %s\nPAN: %s\nGST: %s\nLines: %d\nTotal: %s\n",
			doc.Vendor, doc.TaxID1, doc.TaxID2, len(doc.Items), doc.Total.StringFixed(2)),
		Attachments: []mailer.Attachment{{
			Name:        invoicedoc.FileName(doc),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := h.Mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("Handle: send invoice: %w", err)
	}
	return nil
}
