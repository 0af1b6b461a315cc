// Package api provides the HTTP handlers for the ledger: parties, trades,
// loans, history, the listing board and contract analysis.
//
// All monetary values use shopspring/decimal; never float64 for money.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/atmx/ledger-engine/internal/analysis"
	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/listing"
)

// Service exposes the ledger over HTTP. Handlers hold no ledger state of
// their own; serialisation happens inside the ledger.
type Service struct {
	ledger   *ledger.Ledger
	board    *listing.Board
	analyzer analysis.Analyzer // nil when analysis is not configured
	wsHub    *WSHub            // optional WebSocket hub for real-time broadcasts
}

// NewService creates the HTTP service.
// Pass nil for analyzer or hub to disable contract analysis or the
// WebSocket endpoint.
func NewService(l *ledger.Ledger, board *listing.Board, analyzer analysis.Analyzer, hub *WSHub) *Service {
	return &Service{
		ledger:   l,
		board:    board,
		analyzer: analyzer,
		wsHub:    hub,
	}
}

// Mount registers every route on r. main mounts it under /api/v1.
func (s *Service) Mount(r chi.Router) {
	if s.wsHub != nil {
		// WebSocket endpoint for real-time ledger events.
		r.Get("/ws", s.wsHub.HandleWS)
	}

	// Parties.
	r.Get("/parties", s.ListParties)
	r.Post("/parties", s.CreateParty)
	r.Get("/parties/{partyID}", s.GetParty)
	r.Patch("/parties/{partyID}", s.UpdateProfile)
	r.Put("/parties/{partyID}/balance", s.SetBalance)
	r.Get("/parties/{partyID}/summary", s.GetSummary)
	r.Get("/parties/{partyID}/loans", s.GetLoans)
	r.Get("/parties/{partyID}/transactions", s.GetPartyTransactions)

	// Ledger operations.
	r.Post("/trades", s.ExecuteTrade)
	r.Post("/loans", s.IssueLoan)
	r.Post("/loans/repay", s.RepayLoan)

	// History.
	r.Get("/transactions", s.ListTransactions)
	r.Get("/transactions/{txID}", s.GetTransaction)
	r.Get("/history", s.GetHistory)
	r.Get("/audit", s.GetAudit)

	// Listing board.
	r.Get("/listings", s.ListListings)
	r.Post("/listings", s.PostListing)
	r.Get("/listings/{listingID}", s.GetListing)
	r.Post("/listings/{listingID}/accept", s.AcceptListing)
	r.Post("/listings/{listingID}/cancel", s.CancelListing)
	r.Get("/commodities", s.ListCommodities)

	// Contract analysis.
	r.Post("/contracts/analyze", s.AnalyzeContract)
}
