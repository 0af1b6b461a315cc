// Package account owns the authoritative set of parties. Every balance and
// loan-map mutation passes through it; reads hand out copies so callers can
// never change stored records behind the store's back.
package account

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/model"
)

// NewParty carries the fields supplied when a party is created.
type NewParty struct {
	Name      string
	Email     string
	Bio       string
	Kind      model.PartyKind
	Balance   decimal.Decimal
	Interests model.Interests
}

// ProfileUpdate replaces display fields. Nil pointers leave a field as is.
type ProfileUpdate struct {
	Name      *string
	Email     *string
	Bio       *string
	Interests *model.Interests
}

// Store holds parties in memory, keyed by id, in creation order.
type Store struct {
	mu      sync.RWMutex
	parties map[string]*model.Party
	order   []string
	newID   func() string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides id generation (tests use fixed ids).
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		parties: make(map[string]*model.Party),
		newID:   func() string { return uuid.New().String() },
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a party with a generated id. Financiers start with
// TotalFunds = AvailableFunds = Balance; traders start with an empty loan map.
func (s *Store) Create(np NewParty) (model.Party, error) {
	name := strings.TrimSpace(np.Name)
	if name == "" {
		return model.Party{}, fmt.Errorf("%w: name is required", model.ErrInvalidOperation)
	}
	if !np.Kind.Valid() {
		return model.Party{}, fmt.Errorf("%w: unknown party kind %q", model.ErrInvalidOperation, np.Kind)
	}
	if np.Balance.IsNegative() {
		return model.Party{}, fmt.Errorf("%w: initial balance must not be negative", model.ErrInvalidOperation)
	}

	p := model.Party{
		ID:        s.newID(),
		Name:      name,
		Email:     np.Email,
		Bio:       np.Bio,
		Kind:      np.Kind,
		Balance:   np.Balance,
		Interests: np.Interests,
		CreatedAt: s.now(),
	}
	switch np.Kind {
	case model.KindFinancier:
		p.TotalFunds = np.Balance
		p.AvailableFunds = np.Balance
	case model.KindTrader:
		p.Loans = make(map[string]decimal.Decimal)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.parties[p.ID]; exists {
		return model.Party{}, fmt.Errorf("%w: party %s already exists", model.ErrInvalidOperation, p.ID)
	}
	stored := p.Clone()
	s.parties[p.ID] = &stored
	s.order = append(s.order, p.ID)
	return p, nil
}

// Get returns a copy of the party or ErrNotFound.
func (s *Store) Get(id string) (model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parties[id]
	if !ok {
		return model.Party{}, fmt.Errorf("%w: party %s", model.ErrNotFound, id)
	}
	return p.Clone(), nil
}

// List returns every party in creation order.
func (s *Store) List() []model.Party {
	return s.filter(func(*model.Party) bool { return true })
}

// Financiers returns every financier in creation order.
func (s *Store) Financiers() []model.Party {
	return s.filter((*model.Party).IsFinancier)
}

// Traders returns every trader in creation order.
func (s *Store) Traders() []model.Party {
	return s.filter((*model.Party).IsTrader)
}

func (s *Store) filter(keep func(*model.Party) bool) []model.Party {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Party, 0, len(s.order))
	for _, id := range s.order {
		p := s.parties[id]
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Len reports the number of parties.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SetBalance replaces a party's balance. It exists for administrative edits
// only; trade and loan paths must go through Update. For a financier the
// delta is applied to both AvailableFunds and TotalFunds so the encumbered
// amount is left untouched.
func (s *Store) SetBalance(id string, newBalance decimal.Decimal) (model.Party, error) {
	var out model.Party
	err := s.Update(func(tx *Tx) error {
		p, err := tx.Party(id)
		if err != nil {
			return err
		}
		if newBalance.IsNegative() {
			return fmt.Errorf("%w: balance must not be negative", model.ErrInvalidOperation)
		}
		if p.IsFinancier() {
			delta := newBalance.Sub(p.Balance)
			available := p.AvailableFunds.Add(delta)
			if available.IsNegative() {
				return fmt.Errorf("%w: balance %s would leave available funds at %s",
					model.ErrInvalidOperation, newBalance, available)
			}
			p.AvailableFunds = available
			p.TotalFunds = p.TotalFunds.Add(delta)
		}
		p.Balance = newBalance
		out = p.Clone()
		return nil
	})
	return out, err
}

// AdjustLoan adds delta to the trader's obligation towards the financier.
// The key is removed once the obligation reaches zero; reducing it below
// zero is rejected, so callers clamp repayments first.
func (s *Store) AdjustLoan(traderID, financierID string, delta decimal.Decimal) error {
	return s.Update(func(tx *Tx) error {
		return tx.AdjustLoan(traderID, financierID, delta)
	})
}

// UpdateProfile replaces display fields of a party.
func (s *Store) UpdateProfile(id string, upd ProfileUpdate) (model.Party, error) {
	var out model.Party
	err := s.Update(func(tx *Tx) error {
		p, err := tx.Party(id)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return fmt.Errorf("%w: name is required", model.ErrInvalidOperation)
			}
			p.Name = name
		}
		if upd.Email != nil {
			p.Email = *upd.Email
		}
		if upd.Bio != nil {
			p.Bio = *upd.Bio
		}
		if upd.Interests != nil {
			p.Interests = *upd.Interests
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// Update runs fn against a transaction that hands out working copies of
// parties. When fn returns nil every touched copy is committed under one
// write lock; when it returns an error nothing is written.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s, touched: make(map[string]*model.Party)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, p := range tx.touched {
		committed := p.Clone()
		s.parties[id] = &committed
	}
	return nil
}

// Restore replaces the store's contents with previously persisted parties.
func (s *Store) Restore(parties []model.Party) error {
	next := make(map[string]*model.Party, len(parties))
	order := make([]string, 0, len(parties))
	for _, p := range parties {
		if p.ID == "" {
			return fmt.Errorf("%w: persisted party without id", model.ErrInvalidOperation)
		}
		if _, dup := next[p.ID]; dup {
			return fmt.Errorf("%w: duplicate party id %s", model.ErrInvalidOperation, p.ID)
		}
		c := p.Clone()
		if c.IsTrader() && c.Loans == nil {
			c.Loans = make(map[string]decimal.Decimal)
		}
		next[p.ID] = &c
		order = append(order, p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties = next
	s.order = order
	return nil
}

// Snapshot returns copies of every party for persistence.
func (s *Store) Snapshot() []model.Party {
	return s.List()
}
