// Package listing is the offer board: traders post buy or sell listings and
// other traders take them, which executes a trade through the ledger.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/commodity"
	"github.com/atmx/ledger-engine/internal/id"
	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/metrics"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/store"
)

// Ledger is the part of *ledger.Ledger the board needs.
type Ledger interface {
	Party(id string) (model.Party, error)
	ExecuteTrade(ctx context.Context, req ledger.TradeRequest) (ledger.TradeResult, error)
}

// PostRequest describes a new listing.
type PostRequest struct {
	PartyID   string          `json:"party_id"`
	Kind      model.TxKind    `json:"type"`
	Commodity string          `json:"commodity"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Sort keys for Filter.SortBy.
const (
	SortCreated  = "created"
	SortPrice    = "price"
	SortQuantity = "quantity"
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Commodity string
	Kind      model.TxKind
	Status    model.ListingStatus
	// Search matches commodity or poster id, case-insensitive.
	Search string
	SortBy string
	Desc   bool
}

// AcceptResult is a filled listing and the trade that filled it.
type AcceptResult struct {
	Listing model.Listing      `json:"listing"`
	Trade   ledger.TradeResult `json:"trade"`
}

// Board holds listings in posting order.
type Board struct {
	mu       sync.Mutex
	listings map[string]*model.Listing
	order    []string
	ledger   Ledger
	store    store.Store
	ids      *id.Generator
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Board.
type Option func(*Board)

// WithStore persists listings after every change.
func WithStore(st store.Store) Option {
	return func(b *Board) { b.store = st }
}

// WithClock overrides the posting timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithLogger overrides slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) { b.logger = logger }
}

// NewBoard creates an empty board that settles through l.
func NewBoard(l Ledger, opts ...Option) *Board {
	b := &Board{
		listings: make(map[string]*model.Listing),
		ledger:   l,
		ids:      id.NewGenerator(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Restore replaces the board's contents with persisted listings.
func (b *Board) Restore(listings []model.Listing) error {
	next := make(map[string]*model.Listing, len(listings))
	order := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.ID == "" {
			return fmt.Errorf("%w: persisted listing without id", model.ErrInvalidOperation)
		}
		if _, dup := next[l.ID]; dup {
			return fmt.Errorf("%w: duplicate listing id %s", model.ErrInvalidOperation, l.ID)
		}
		c := l
		next[l.ID] = &c
		order = append(order, l.ID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings = next
	b.order = order
	return nil
}

// Post validates and adds an open listing.
func (b *Board) Post(ctx context.Context, req PostRequest) (model.Listing, error) {
	if !req.Kind.IsTrade() {
		return model.Listing{}, fmt.Errorf("%w: listing type must be buy or sell, got %q", model.ErrInvalidOperation, req.Kind)
	}
	c, err := commodity.Lookup(req.Commodity)
	if err != nil {
		return model.Listing{}, fmt.Errorf("%w: %v", model.ErrInvalidOperation, err)
	}
	if !req.Quantity.IsPositive() {
		return model.Listing{}, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidOperation)
	}
	if !req.UnitPrice.IsPositive() {
		return model.Listing{}, fmt.Errorf("%w: price must be positive", model.ErrInvalidOperation)
	}
	poster, err := b.ledger.Party(req.PartyID)
	if err != nil {
		return model.Listing{}, err
	}
	if !poster.IsTrader() {
		return model.Listing{}, fmt.Errorf("%w: only traders can post listings", model.ErrInvalidOperation)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	l := model.Listing{
		ID:        b.ids.New(now),
		PartyID:   req.PartyID,
		Kind:      req.Kind,
		Commodity: c.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Status:    model.ListingOpen,
		CreatedAt: now,
	}
	b.listings[l.ID] = &l
	b.order = append(b.order, l.ID)
	b.persistLocked(ctx)

	b.logger.Info("listing posted", "id", l.ID, "party", l.PartyID, "type", l.Kind, "commodity", l.Commodity)
	return l, nil
}

// Get returns one listing.
func (b *Board) Get(listingID string) (model.Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.listings[listingID]
	if !ok {
		return model.Listing{}, fmt.Errorf("%w: listing %s", model.ErrNotFound, listingID)
	}
	return *l, nil
}

// List returns listings matching f, in posting order unless f.SortBy says
// otherwise.
func (b *Board) List(f Filter) []model.Listing {
	wantCommodity := strings.TrimSpace(f.Commodity)
	if c, err := commodity.Lookup(wantCommodity); err == nil {
		wantCommodity = c.Name
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	b.mu.Lock()
	out := make([]model.Listing, 0, len(b.order))
	for _, lid := range b.order {
		l := b.listings[lid]
		if wantCommodity != "" && !strings.EqualFold(l.Commodity, wantCommodity) {
			continue
		}
		if f.Kind != "" && l.Kind != f.Kind {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Commodity), search) &&
			!strings.Contains(strings.ToLower(l.PartyID), search) {
			continue
		}
		out = append(out, *l)
	}
	b.mu.Unlock()

	var less func(a, c *model.Listing) bool
	switch f.SortBy {
	case SortPrice:
		less = func(a, c *model.Listing) bool { return a.UnitPrice.LessThan(c.UnitPrice) }
	case SortQuantity:
		less = func(a, c *model.Listing) bool { return a.Quantity.LessThan(c.Quantity) }
	case SortCreated:
		less = func(a, c *model.Listing) bool { return a.CreatedAt.Before(c.CreatedAt) }
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool {
			if f.Desc {
				return less(&out[j], &out[i])
			}
			return less(&out[i], &out[j])
		})
	} else if f.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Cancel withdraws an open listing. Only the poster may cancel.
func (b *Board) Cancel(ctx context.Context, listingID, partyID string) (model.Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.openLocked(listingID)
	if err != nil {
		return model.Listing{}, err
	}
	if l.PartyID != partyID {
		return model.Listing{}, fmt.Errorf("%w: only the poster can cancel listing %s", model.ErrInvalidOperation, listingID)
	}
	l.Status = model.ListingCancelled
	b.persistLocked(ctx)

	b.logger.Info("listing cancelled", "id", l.ID, "party", partyID)
	return *l, nil
}

// Accept fills an open listing. Taking a sell listing buys from the poster;
// taking a buy listing sells to the poster. The listing stays open if the
// trade is rejected.
func (b *Board) Accept(ctx context.Context, listingID, takerID string) (AcceptResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.openLocked(listingID)
	if err != nil {
		return AcceptResult{}, err
	}
	if l.PartyID == takerID {
		return AcceptResult{}, fmt.Errorf("%w: cannot take your own listing", model.ErrInvalidOperation)
	}

	kind := model.TxBuy
	if l.Kind == model.TxBuy {
		kind = model.TxSell
	}
	res, err := b.ledger.ExecuteTrade(ctx, ledger.TradeRequest{
		Kind:           kind,
		PartyID:        takerID,
		CounterpartyID: l.PartyID,
		Commodity:      l.Commodity,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
	})
	if err != nil {
		return AcceptResult{}, err
	}

	l.Status = model.ListingFilled
	l.FilledBy = takerID
	l.TransactionID = res.Trade.ID
	b.persistLocked(ctx)

	b.logger.Info("listing filled", "id", l.ID, "taker", takerID, "transaction", res.Trade.ID)
	return AcceptResult{Listing: *l, Trade: res}, nil
}

func (b *Board) openLocked(listingID string) (*model.Listing, error) {
	l, ok := b.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("%w: listing %s", model.ErrNotFound, listingID)
	}
	if l.Status != model.ListingOpen {
		return nil, fmt.Errorf("%w: listing %s is %s", model.ErrInvalidOperation, listingID, l.Status)
	}
	return l, nil
}

// Len reports the number of listings in any status.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

func (b *Board) persistLocked(ctx context.Context) {
	if b.store == nil {
		return
	}
	all := make([]model.Listing, 0, len(b.order))
	for _, lid := range b.order {
		all = append(all, *b.listings[lid])
	}
	if err := store.SaveListings(context.WithoutCancel(ctx), b.store, all); err != nil {
		metrics.PersistFailures.Inc()
		b.logger.Error("persist listings failed", "err", err)
	}
}
