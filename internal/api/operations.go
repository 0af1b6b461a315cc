package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/commodity"
	"github.com/atmx/ledger-engine/internal/ledger"
)

// LoanRequest is the JSON body for POST /loans and POST /loans/repay.
type LoanRequest struct {
	TraderID    string          `json:"trader_id"`
	FinancierID string          `json:"financier_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// ExecuteTrade handles POST /api/v1/trades
// A buy debits party_id and credits counterparty_id; a sell reverses the
// roles. financier_id with finance_amount funds part of the purchase.
func (s *Service) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req ledger.TradeRequest
	if !decode(w, r, &req) {
		return
	}

	// --- Input validation ---
	if req.PartyID == "" || req.CounterpartyID == "" {
		writeError(w, "party_id and counterparty_id are required", http.StatusBadRequest)
		return
	}
	req.Commodity = commodity.Normalize(req.Commodity)

	res, err := s.ledger.ExecuteTrade(r.Context(), req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// IssueLoan handles POST /api/v1/loans
func (s *Service) IssueLoan(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !decodeLoan(w, r, &req) {
		return
	}

	res, err := s.ledger.IssueLoan(r.Context(), req.TraderID, req.FinancierID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RepayLoan handles POST /api/v1/loans/repay
func (s *Service) RepayLoan(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !decodeLoan(w, r, &req) {
		return
	}

	res, err := s.ledger.RepayLoan(r.Context(), req.TraderID, req.FinancierID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeLoan(w http.ResponseWriter, r *http.Request, req *LoanRequest) bool {
	if !decode(w, r, req) {
		return false
	}
	if req.TraderID == "" || req.FinancierID == "" {
		writeError(w, "trader_id and financier_id are required", http.StatusBadRequest)
		return false
	}
	return true
}
