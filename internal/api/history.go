package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/report"
	"github.com/atmx/ledger-engine/internal/txlog"
)

// historyQuery reads ?kind=&q=&party= into a log query.
func historyQuery(w http.ResponseWriter, r *http.Request) (txlog.Query, bool) {
	q := r.URL.Query()
	query := txlog.Query{
		Kind:    model.TxKind(q.Get("kind")),
		PartyID: q.Get("party"),
		Search:  q.Get("q"),
	}
	if query.Kind != "" && !query.Kind.Valid() {
		writeError(w, "kind must be buy, sell, finance or repay", http.StatusBadRequest)
		return txlog.Query{}, false
	}
	return query, true
}

// ListTransactions handles GET /api/v1/transactions
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query, ok := historyQuery(w, r)
	if !ok {
		return
	}
	entries := s.ledger.History(query)
	if entries == nil {
		entries = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetTransaction handles GET /api/v1/transactions/{txID}
func (s *Service) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.Transaction(chi.URLParam(r, "txID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// GetHistory handles GET /api/v1/history
// Same filters as /transactions, plus per-kind totals.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	query, ok := historyQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.History(s.ledger, query))
}

// GetAudit handles GET /api/v1/audit
func (s *Service) GetAudit(w http.ResponseWriter, r *http.Request) {
	rep := s.ledger.Audit()
	writeJSON(w, http.StatusOK, AuditResponse{OK: rep.OK(), AuditReport: rep})
}

// AuditResponse is the JSON body returned from GET /audit.
type AuditResponse struct {
	OK bool `json:"ok"`
	ledger.AuditReport
}
