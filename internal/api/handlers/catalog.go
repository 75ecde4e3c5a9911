package handlers

import (
	"net/http"

	"github.com/dvloznov/vendor-ledger/internal/api/middleware"
	"github.com/dvloznov/vendor-ledger/internal/pricing"
)

// PricesHandler exposes the price catalog.
type PricesHandler struct {
	catalog *pricing.Catalog
}

func NewPricesHandler(catalog *pricing.Catalog) *PricesHandler {
	return &PricesHandler{catalog: catalog}
}

// ListPrices handles GET /api/prices
func (h *PricesHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices":        h.catalog.Entries(),
		"default_price": h.catalog.Fallback(),
	})
}

// GetPrice handles GET /api/prices/{version}. Unknown versions answer with
// the default price and known=false.
func (h *PricesHandler) GetPrice(w http.ResponseWriter, r *http.Request, version string) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": version,
		"price":   h.catalog.Lookup(version),
		"known":   h.catalog.Known(version),
	})
}
