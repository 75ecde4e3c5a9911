package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/vendor-ledger/internal/api/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter. Uploads may
// be nil when no attachment store is configured.
type Handlers struct {
	Lines   *LinesHandler
	Prices  *PricesHandler
	Records *RecordsHandler
	Uploads *UploadsHandler
	Jobs    *JobsHandler
}

// NewRouter registers every endpoint on a new mux.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Vendor ledger endpoints
	mux.HandleFunc("GET /api/vendor/lines", h.Lines.ListLines)
	mux.HandleFunc("POST /api/vendor/lines", h.Lines.AddLine)
	mux.HandleFunc("DELETE /api/vendor/lines", h.Lines.ClearLines)
	mux.HandleFunc("PUT /api/vendor/lines/{index}", func(w http.ResponseWriter, r *http.Request) {
		h.Lines.UpdateLine(w, r, r.PathValue("index"))
	})
	mux.HandleFunc("DELETE /api/vendor/lines/{index}", func(w http.ResponseWriter, r *http.Request) {
		h.Lines.DeleteLine(w, r, r.PathValue("index"))
	})
	mux.HandleFunc("POST /api/vendor/submit", h.Lines.Submit)
	mux.HandleFunc("GET /api/vendor/invoice.pdf", h.Lines.InvoicePreview)

	// Price catalog endpoints
	mux.HandleFunc("GET /api/prices", h.Prices.ListPrices)
	mux.HandleFunc("GET /api/prices/{version}", func(w http.ResponseWriter, r *http.Request) {
		h.Prices.GetPrice(w, r, r.PathValue("version"))
	})

	// Donor and program registers
	mux.HandleFunc("GET /api/donors", h.Records.ListDonors)
	mux.HandleFunc("POST /api/donors", h.Records.AddDonor)
	mux.HandleFunc("GET /api/program", h.Records.ListProgram)
	mux.HandleFunc("POST /api/program", h.Records.AddProgram)

	if h.Uploads != nil {
		mux.HandleFunc("GET /uploads/{name}", func(w http.ResponseWriter, r *http.Request) {
			h.Uploads.ServeUpload(w, r, r.PathValue("name"))
		})
	}

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", h.Jobs.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.Jobs.GetJob(w, r, r.PathValue("id"))
	})

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
