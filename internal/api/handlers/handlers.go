package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/api/middleware"
	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/dvloznov/vendor-ledger/internal/intake"
	"github.com/dvloznov/vendor-ledger/internal/invoice"
	"github.com/dvloznov/vendor-ledger/internal/invoicedoc"
	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/dvloznov/vendor-ledger/internal/session"
	"github.com/dvloznov/vendor-ledger/internal/submission"
	"github.com/rs/zerolog"
)

// Form field names of a vendor line.
const (
	FieldVendor   = "vendor"
	FieldPAN      = "pan"
	FieldGST      = "gst"
	FieldVersion  = "version"
	FieldLanguage = "language"
	FieldQuantity = "qty"
	FieldNotes    = "notes"
)

// DefaultMaxUploadBytes bounds a multipart line request when no limit is set.
const DefaultMaxUploadBytes = 10 << 20

// LinesHandler handles the vendor ledger endpoints of one browser session.
type LinesHandler struct {
	sessions  *session.Manager
	intake    *intake.Service
	submitter *submission.Submitter
	sink      submission.Sink
	maxUpload int64
	log       zerolog.Logger
}

// NewLinesHandler creates a new lines handler.
func NewLinesHandler(sessions *session.Manager, svc *intake.Service, submitter *submission.Submitter, sink submission.Sink, maxUpload int64, log zerolog.Logger) *LinesHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &LinesHandler{
		sessions:  sessions,
		intake:    svc,
		submitter: submitter,
		sink:      sink,
		maxUpload: maxUpload,
		log:       log,
	}
}

// ledger returns the caller's ledger, issuing a session cookie when the
// request did not carry a live one.
func (h *LinesHandler) ledger(w http.ResponseWriter, r *http.Request) *invoice.Ledger {
	var id string
	if c, err := r.Cookie(session.CookieName); err == nil {
		id = c.Value
	}
	newID, ledger := h.sessions.Get(id)
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return ledger
}

// ListLines handles GET /api/vendor/lines
func (h *LinesHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	ledger := h.ledger(w, r)
	items := ledger.Items()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": invoice.Views(items),
		"count": len(items),
		"total": invoice.Sum(items),
	})
}

// AddLine handles POST /api/vendor/lines
func (h *LinesHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	ledger := h.ledger(w, r)

	req, err := h.readRequest(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, index, err := h.intake.AddLine(r.Context(), ledger, req)
	if err != nil {
		h.writeIntakeError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"line":  item.View(),
		"index": index,
		"total": ledger.Total(),
	})
}

// UpdateLine handles PUT /api/vendor/lines/{index}
func (h *LinesHandler) UpdateLine(w http.ResponseWriter, r *http.Request, indexStr string) {
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid line index")
		return
	}
	ledger := h.ledger(w, r)

	req, err := h.readRequest(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.intake.EditLine(r.Context(), ledger, index, req)
	if err != nil {
		h.writeIntakeError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"line":  item.View(),
		"index": index,
		"total": ledger.Total(),
	})
}

// DeleteLine handles DELETE /api/vendor/lines/{index}
func (h *LinesHandler) DeleteLine(w http.ResponseWriter, r *http.Request, indexStr string) {
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid line index")
		return
	}
	ledger := h.ledger(w, r)

	if err := ledger.RemoveAt(index); err != nil {
		if errors.Is(err, invoice.ErrIndexOutOfRange) {
			middleware.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Int("line_index", index).Msg("Failed to remove line")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to remove line")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": ledger.Len(),
		"total": ledger.Total(),
	})
}

// ClearLines handles DELETE /api/vendor/lines
func (h *LinesHandler) ClearLines(w http.ResponseWriter, r *http.Request) {
	ledger := h.ledger(w, r)
	if ledger.Submitting() {
		middleware.WriteError(w, http.StatusConflict, invoice.ErrSubmissionInProgress.Error())
		return
	}
	ledger.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /api/vendor/submit
func (h *LinesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ledger := h.ledger(w, r)

	// A client disconnect must not abort a batch half way through the sink.
	ctx := context.WithoutCancel(r.Context())

	report, err := h.submitter.Submit(ctx, ledger, h.sink)
	if err != nil {
		if errors.Is(err, invoice.ErrSubmissionInProgress) {
			middleware.WriteError(w, http.StatusConflict, "A submission is already in progress")
			return
		}

		var partial *submission.PartialFailureError
		if errors.As(err, &partial) {
			middleware.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":     "Failed to write lines to the vendor sheet; the ledger was kept",
				"completed": partial.Completed,
				"remaining": ledger.Len(),
			})
			return
		}

		logger.FromContext(r.Context()).Error().Err(err).Msg("Submission failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Submission failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// InvoicePreview handles GET /api/vendor/invoice.pdf
func (h *LinesHandler) InvoicePreview(w http.ResponseWriter, r *http.Request) {
	ledger := h.ledger(w, r)

	doc := invoicedoc.FromItems(ledger.Items(), "", time.Now())
	pdf, err := invoicedoc.Render(doc)
	if err != nil {
		if errors.Is(err, invoicedoc.ErrNoLines) {
			middleware.WriteError(w, http.StatusNotFound, "No lines to render")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("Failed to render invoice")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render invoice")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", invoicedoc.FileName(doc)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *LinesHandler) readRequest(w http.ResponseWriter, r *http.Request) (intake.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return intake.Request{}, fmt.Errorf("invalid form: %w", err)
	}

	req := intake.Request{
		Raw: invoice.RawLineInput{
			VendorName:     r.FormValue(FieldVendor),
			TaxID1:         r.FormValue(FieldPAN),
			TaxID2:         r.FormValue(FieldGST),
			ProductVersion: r.FormValue(FieldVersion),
			Language:       r.FormValue(FieldLanguage),
			QuantityText:   r.FormValue(FieldQuantity),
			Notes:          r.FormValue(FieldNotes),
		},
	}

	var err error
	if req.Primary, err = readUpload(r, intake.PrimaryUploadField); err != nil {
		return intake.Request{}, err
	}
	if req.Secondary, err = readUpload(r, intake.SecondaryUploadField); err != nil {
		return intake.Request{}, err
	}
	return req, nil
}

func readUpload(r *http.Request, field string) (*intake.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	return &intake.Upload{Name: header.Filename, Data: data}, nil
}

func (h *LinesHandler) writeIntakeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var verr *invoice.ValidationError
	var perr *attachments.PersistError
	switch {
	case errors.As(err, &verr):
		log.Debug().Err(err).Msg("Line rejected")
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(),
			"kind":  string(verr.Kind),
			"field": verr.Field,
		})
	case errors.Is(err, invoice.ErrIndexOutOfRange):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &perr):
		log.Error().Err(err).Str("file", perr.Name).Msg("Failed to store attachment")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store attachment")
	default:
		log.Error().Err(err).Msg("Failed to add line")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to add line")
	}
}
