package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/vendor-ledger/internal/api/middleware"
	"github.com/dvloznov/vendor-ledger/internal/records"
	"github.com/rs/zerolog"
)

// RecordsHandler handles the donor and program team registers. Either book
// may be nil when its sheet is not configured.
type RecordsHandler struct {
	donors  *records.DonorBook
	program *records.ProgramBook
	log     zerolog.Logger
}

func NewRecordsHandler(donors *records.DonorBook, program *records.ProgramBook, log zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{donors: donors, program: program, log: log}
}

// ListDonors handles GET /api/donors
func (h *RecordsHandler) ListDonors(w http.ResponseWriter, r *http.Request) {
	if h.donors == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Donor sheet is not configured")
		return
	}

	names, err := h.donors.Names(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list donors")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to read donor sheet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"donors": names,
		"count":  len(names),
	})
}

// AddDonor handles POST /api/donors. Form keys are the donor column titles.
func (h *RecordsHandler) AddDonor(w http.ResponseWriter, r *http.Request) {
	if h.donors == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Donor sheet is not configured")
		return
	}

	donor := records.DonorFromForm(r.FormValue)
	if err := h.donors.Add(r.Context(), donor); err != nil {
		if errors.Is(err, records.ErrDonorNameRequired) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to add donor")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to write donor sheet")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, donor)
}

// ListProgram handles GET /api/program
func (h *RecordsHandler) ListProgram(w http.ResponseWriter, r *http.Request) {
	if h.program == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Program sheet is not configured")
		return
	}

	recs, err := h.program.Records(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list program records")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to read program sheet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": recs,
		"count":   len(recs),
	})
}

// AddProgram handles POST /api/program
func (h *RecordsHandler) AddProgram(w http.ResponseWriter, r *http.Request) {
	if h.program == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Program sheet is not configured")
		return
	}

	entry := records.ProgramEntryFromForm(r.FormValue)
	if err := h.program.Add(r.Context(), entry); err != nil {
		h.log.Error().Err(err).Msg("Failed to add program entry")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to write program sheet")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, entry)
}
