package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/ledger-engine/internal/commodity"
	"github.com/atmx/ledger-engine/internal/listing"
	"github.com/atmx/ledger-engine/internal/model"
)

// ListingActionRequest is the JSON body for accepting or cancelling a
// listing: the acting party.
type ListingActionRequest struct {
	PartyID string `json:"party_id"`
}

// ListListings handles GET /api/v1/listings
// Filters: ?commodity=&type=&status=&q=; ordering: ?sort=price|quantity|created&order=desc.
func (s *Service) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := listing.Filter{
		Commodity: q.Get("commodity"),
		Kind:      model.TxKind(q.Get("type")),
		Status:    model.ListingStatus(q.Get("status")),
		Search:    q.Get("q"),
		SortBy:    q.Get("sort"),
		Desc:      q.Get("order") == "desc",
	}
	switch f.SortBy {
	case "", listing.SortCreated, listing.SortPrice, listing.SortQuantity:
	default:
		writeError(w, "sort must be created, price or quantity", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.board.List(f))
}

// PostListing handles POST /api/v1/listings
func (s *Service) PostListing(w http.ResponseWriter, r *http.Request) {
	var req listing.PostRequest
	if !decode(w, r, &req) {
		return
	}

	l, err := s.board.Post(r.Context(), req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// GetListing handles GET /api/v1/listings/{listingID}
func (s *Service) GetListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.board.Get(chi.URLParam(r, "listingID"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// AcceptListing handles POST /api/v1/listings/{listingID}/accept
func (s *Service) AcceptListing(w http.ResponseWriter, r *http.Request) {
	var req ListingActionRequest
	if !decodeAction(w, r, &req) {
		return
	}

	res, err := s.board.Accept(r.Context(), chi.URLParam(r, "listingID"), req.PartyID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelListing handles POST /api/v1/listings/{listingID}/cancel
func (s *Service) CancelListing(w http.ResponseWriter, r *http.Request) {
	var req ListingActionRequest
	if !decodeAction(w, r, &req) {
		return
	}

	l, err := s.board.Cancel(r.Context(), chi.URLParam(r, "listingID"), req.PartyID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListCommodities handles GET /api/v1/commodities
func (s *Service) ListCommodities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, commodity.All())
}

func decodeAction(w http.ResponseWriter, r *http.Request, req *ListingActionRequest) bool {
	if !decode(w, r, req) {
		return false
	}
	if req.PartyID == "" {
		writeError(w, "party_id is required", http.StatusBadRequest)
		return false
	}
	return true
}
