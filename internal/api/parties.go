package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/report"
)

// CreatePartyRequest is the JSON body for POST /parties.
type CreatePartyRequest struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Bio       string          `json:"bio"`
	Type      model.PartyKind `json:"type"` // "trader" or "financier"
	Balance   decimal.Decimal `json:"balance"`
	Interests model.Interests `json:"interests"`
}

// UpdateProfileRequest is the JSON body for PATCH /parties/{partyID}.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Name      *string          `json:"name"`
	Email     *string          `json:"email"`
	Bio       *string          `json:"bio"`
	Interests *model.Interests `json:"interests"`
}

// SetBalanceRequest is the JSON body for PUT /parties/{partyID}/balance.
type SetBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

// ListParties handles GET /api/v1/parties
// Optionally filtered by ?type=trader|financier.
func (s *Service) ListParties(w http.ResponseWriter, r *http.Request) {
	var parties []model.Party
	switch model.PartyKind(r.URL.Query().Get("type")) {
	case "":
		parties = s.ledger.Parties()
	case model.KindTrader:
		parties = s.ledger.Traders()
	case model.KindFinancier:
		parties = s.ledger.Financiers()
	default:
		writeError(w, "type must be trader or financier", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, parties)
}

// CreateParty handles POST /api/v1/parties
func (s *Service) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req CreatePartyRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := s.ledger.CreateParty(r.Context(), account.NewParty{
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
		Kind:      req.Type,
		Balance:   req.Balance,
		Interests: req.Interests,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetParty handles GET /api/v1/parties/{partyID}
func (s *Service) GetParty(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Party(chi.URLParam(r, "partyID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PATCH /api/v1/parties/{partyID}
func (s *Service) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := s.ledger.UpdateProfile(r.Context(), chi.URLParam(r, "partyID"), account.ProfileUpdate{
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
		Interests: req.Interests,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetBalance handles PUT /api/v1/parties/{partyID}/balance
// Administrative override; not recorded in the transaction log.
func (s *Service) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req SetBalanceRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := s.ledger.SetBalance(r.Context(), chi.URLParam(r, "partyID"), req.Balance)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetSummary handles GET /api/v1/parties/{partyID}/summary?recent=N
func (s *Service) GetSummary(w http.ResponseWriter, r *http.Request) {
	recent := report.DefaultRecent
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "recent must be a positive integer", http.StatusBadRequest)
			return
		}
		recent = n
	}

	summary, err := report.Profile(s.ledger, chi.URLParam(r, "partyID"), recent)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetLoans handles GET /api/v1/parties/{partyID}/loans
func (s *Service) GetLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.Loans(chi.URLParam(r, "partyID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// GetPartyTransactions handles GET /api/v1/parties/{partyID}/transactions
func (s *Service) GetPartyTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.PartyTransactions(chi.URLParam(r, "partyID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
