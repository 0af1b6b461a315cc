package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/metrics"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/store"
	"github.com/atmx/ledger-engine/internal/txlog"
)

// CreateParty registers a trader or financier. No log entry is written.
func (l *Ledger) CreateParty(ctx context.Context, np account.NewParty) (model.Party, error) {
	return l.admin(ctx, "create_party", func() (model.Party, error) {
		return l.accounts.Create(np)
	})
}

// SetBalance overrides a party's balance from the admin surface. No log
// entry is written, so the change is not reflected in history.
func (l *Ledger) SetBalance(ctx context.Context, partyID string, balance decimal.Decimal) (model.Party, error) {
	p, err := l.admin(ctx, "set_balance", func() (model.Party, error) {
		return l.accounts.SetBalance(partyID, balance)
	})
	if err == nil {
		l.trackOutstanding(p)
		l.logger.Warn("balance overridden", "party", partyID, "balance", balance.String())
	}
	return p, err
}

// UpdateProfile replaces display fields. Balances and loans are untouched.
func (l *Ledger) UpdateProfile(ctx context.Context, partyID string, upd account.ProfileUpdate) (model.Party, error) {
	return l.admin(ctx, "update_profile", func() (model.Party, error) {
		return l.accounts.UpdateProfile(partyID, upd)
	})
}

func (l *Ledger) admin(ctx context.Context, kind string, fn func() (model.Party, error)) (model.Party, error) {
	started := time.Now()

	l.mu.Lock()
	p, err := fn()
	if err == nil {
		l.persistLocked(ctx)
	}
	l.mu.Unlock()

	metrics.ObserveOperation(kind, outcome(err), started)
	if err != nil {
		return model.Party{}, err
	}
	l.publish(Event{Type: EventPartyUpdated, Parties: []model.Party{p}})
	return p, nil
}

// Party returns a copy of one party. Like every read below it holds the
// ledger read lock, so it never sees an account change whose log entry has
// not been appended yet.
func (l *Ledger) Party(id string) (model.Party, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.Get(id)
}

// Parties returns every party in creation order.
func (l *Ledger) Parties() []model.Party {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.List()
}

// Traders returns every trader in creation order.
func (l *Ledger) Traders() []model.Party {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.Traders()
}

// Financiers returns every financier in creation order.
func (l *Ledger) Financiers() []model.Party {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.Financiers()
}

// Transaction returns one log entry.
func (l *Ledger) Transaction(id string) (model.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.log.Get(id)
}

// Transactions returns the whole log in append order.
func (l *Ledger) Transactions() []model.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.log.All()
}

// PartyTransactions returns every entry the party took part in.
func (l *Ledger) PartyTransactions(partyID string) ([]model.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, err := l.accounts.Get(partyID); err != nil {
		return nil, err
	}
	return l.log.ByParty(partyID), nil
}

// History filters the log.
func (l *Ledger) History(q txlog.Query) []model.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.log.Filter(q)
}

// Totals sums the whole log per kind.
func (l *Ledger) Totals() txlog.Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.log.Totals()
}

// Loan is one outstanding obligation of a trader.
type Loan struct {
	FinancierID   string          `json:"financier_id"`
	FinancierName string          `json:"financier_name"`
	Amount        decimal.Decimal `json:"amount"`
}

// Loans lists what the trader owes, in financier creation order.
func (l *Ledger) Loans(traderID string) ([]Loan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trader, err := l.accounts.Get(traderID)
	if err != nil {
		return nil, err
	}
	out := make([]Loan, 0, len(trader.Loans))
	for _, f := range l.accounts.Financiers() {
		if amt := trader.LoanTo(f.ID); amt.IsPositive() {
			out = append(out, Loan{FinancierID: f.ID, FinancierName: f.Name, Amount: amt})
		}
	}
	return out, nil
}

// Snapshot returns a consistent copy of parties and the log.
func (l *Ledger) Snapshot() store.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return store.Snapshot{
		Parties:      l.accounts.Snapshot(),
		Transactions: l.log.All(),
	}
}
