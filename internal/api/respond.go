package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atmx/ledger-engine/internal/analysis"
	"github.com/atmx/ledger-engine/internal/model"
)

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeLedgerError maps a domain error onto a status code.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInsufficientFunds), errors.Is(err, model.ErrInvalidRepayment):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrInvalidOperation):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, analysis.ErrRateLimited):
		writeError(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	case errors.Is(err, analysis.ErrUpstreamQuotaExceeded):
		writeError(w, "Analysis quota exceeded. Please check the model provider plan and billing details.", http.StatusTooManyRequests)
	default:
		slog.Error("request failed", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// decode reads a JSON body into dst, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
