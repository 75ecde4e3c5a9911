package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/dvloznov/vendor-ledger/internal/api/middleware"
	"github.com/dvloznov/vendor-ledger/internal/attachments"
	"github.com/rs/zerolog"
)

// UploadsHandler streams stored attachments back to the browser.
type UploadsHandler struct {
	store attachments.Store
	log   zerolog.Logger
}

func NewUploadsHandler(store attachments.Store, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{store: store, log: log}
}

// ServeUpload handles GET /uploads/{name}
func (h *UploadsHandler) ServeUpload(w http.ResponseWriter, r *http.Request, name string) {
	rc, err := h.store.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, attachments.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Upload not found")
			return
		}
		h.log.Error().Err(err).Str("name", name).Msg("Failed to open upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to open upload")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn().Err(err).Str("name", name).Msg("Upload stream interrupted")
	}
}
