package handler

import (
	"net/http"
	"strconv"

	"github.com/irocky-stack/rjbtranz/internal/domain"
	"github.com/irocky-stack/rjbtranz/internal/rates"
)

// RatesHandler serves the live rate table and rate resolution.
type RatesHandler struct {
	table    *rates.Table
	resolver *rates.Resolver
}

func NewRatesHandler(table *rates.Table, resolver *rates.Resolver) *RatesHandler {
	return &RatesHandler{table: table, resolver: resolver}
}

// List returns the current quote snapshot.
func (h *RatesHandler) List(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"rates":      h.table.All(),
		"updated_at": h.table.UpdatedAt(),
	})
}

// Resolve answers a rate query for an arbitrary currency pair. The
// response carries both the internal rate and the customer-facing offered
// rate. Resolution never fails; see the viewed_rate query parameter for
// the degradation fallback.
func (h *RatesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-currency", "from and to query parameters are required")
		return
	}

	viewed := 1.0
	if raw := r.URL.Query().Get("viewed_rate"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-viewed-rate", "viewed_rate must be a positive number")
			return
		}
		viewed = parsed
	}

	rate := h.resolver.Resolve(from, to, viewed)
	RespondJSON(w, http.StatusOK, map[string]any{
		"from":         from,
		"to":           to,
		"rate":         rate,
		"offered_rate": h.resolver.OfferedRate(from, to, viewed),
	})
}

// Countries lists the known receiver countries and their currencies.
func (h *RatesHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries := domain.Countries()
	out := make([]map[string]string, 0, len(countries))
	for _, name := range countries {
		currency, _ := domain.CurrencyForCountry(name)
		out = append(out, map[string]string{"country": name, "currency": currency})
	}
	RespondJSON(w, http.StatusOK, out)
}
