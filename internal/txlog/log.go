// Package txlog is the append-only history of ledger events plus the read
// queries derived from it. It never touches balances: the ledger applies
// state changes and records them here, so history and state can be audited
// independently.
package txlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/id"
	"github.com/atmx/ledger-engine/internal/model"
)

// Log stores transactions in insertion order. Insertion order reflects the
// causal order of events within a session.
type Log struct {
	mu      sync.RWMutex
	entries []model.Transaction
	index   map[string]int
	ids     *id.Generator
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source used by Append.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		index: make(map[string]int),
		ids:   id.NewGenerator(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append assigns an id and timestamp, stores the entry and returns the
// stored copy. Any id or date on the input is overwritten.
func (l *Log) Append(entry model.Transaction) model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Date = l.now()
	entry.ID = l.ids.New(entry.Date)
	l.index[entry.ID] = len(l.entries)
	l.entries = append(l.entries, entry)
	return entry
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// All returns a copy of every entry in insertion order.
func (l *Log) All() []model.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Transaction(nil), l.entries...)
}

// Get returns the entry with the given id.
func (l *Log) Get(txID string) (model.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[txID]
	if !ok {
		return model.Transaction{}, fmt.Errorf("%w: transaction %s", model.ErrNotFound, txID)
	}
	return l.entries[i], nil
}

// ByParty returns every entry where the party is buyer, seller or financier.
func (l *Log) ByParty(partyID string) []model.Transaction {
	return l.Filter(Query{PartyID: partyID})
}

// TotalVolume sums Total across all entries.
func (l *Log) TotalVolume() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.Total)
	}
	return total
}

// OutstandingLoan derives what is still owed to a financier from history:
// Σ finance − Σ repay. Diagnostic only; the party's loan map is the ground
// truth for runtime decisions.
func (l *Log) OutstandingLoan(financierID string) decimal.Decimal {
	return l.outstanding(func(e *model.Transaction) bool {
		return e.FinancierID == financierID
	})
}

// OutstandingLoanBetween is OutstandingLoan narrowed to one trader.
func (l *Log) OutstandingLoanBetween(traderID, financierID string) decimal.Decimal {
	return l.outstanding(func(e *model.Transaction) bool {
		return e.FinancierID == financierID && e.BuyerID == traderID
	})
}

func (l *Log) outstanding(match func(*model.Transaction) bool) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for i := range l.entries {
		e := &l.entries[i]
		if !match(e) {
			continue
		}
		switch e.Kind {
		case model.TxFinance:
			total = total.Add(e.LoanAmount)
		case model.TxRepay:
			total = total.Sub(e.LoanAmount)
		}
	}
	return total
}

// Query narrows Filter. Zero fields match everything.
type Query struct {
	Kind    model.TxKind
	PartyID string
	// Search matches the commodity (case-insensitive) or the YYYY-MM-DD date.
	Search string
}

// Filter returns entries matching q in insertion order.
func (l *Log) Filter(q Query) []model.Transaction {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Transaction
	for i := range l.entries {
		e := &l.entries[i]
		if q.Kind != "" && e.Kind != q.Kind {
			continue
		}
		if q.PartyID != "" && !e.Involves(q.PartyID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Commodity), search) &&
			!strings.Contains(e.Date.Format("2006-01-02"), search) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Totals aggregates entry totals per kind.
type Totals struct {
	Bought   decimal.Decimal `json:"bought"`
	Sold     decimal.Decimal `json:"sold"`
	Financed decimal.Decimal `json:"financed"`
	Repaid   decimal.Decimal `json:"repaid"`
	Volume   decimal.Decimal `json:"volume"`
}

// Sum totals a set of entries.
func Sum(entries []model.Transaction) Totals {
	var t Totals
	for _, e := range entries {
		switch e.Kind {
		case model.TxBuy:
			t.Bought = t.Bought.Add(e.Total)
		case model.TxSell:
			t.Sold = t.Sold.Add(e.Total)
		case model.TxFinance:
			t.Financed = t.Financed.Add(e.Total)
		case model.TxRepay:
			t.Repaid = t.Repaid.Add(e.Total)
		}
		t.Volume = t.Volume.Add(e.Total)
	}
	return t
}

// Totals aggregates the whole log.
func (l *Log) Totals() Totals {
	return Sum(l.All())
}

// Restore replaces the log with persisted history. Entries keep their ids
// and dates.
func (l *Log) Restore(entries []model.Transaction) error {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: persisted transaction without id", model.ErrInvalidOperation)
		}
		if _, dup := index[e.ID]; dup {
			return fmt.Errorf("%w: duplicate transaction id %s", model.ErrInvalidOperation, e.ID)
		}
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: transaction %s has unknown kind %q", model.ErrInvalidOperation, e.ID, e.Kind)
		}
		index[e.ID] = i
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]model.Transaction(nil), entries...)
	l.index = index
	return nil
}
