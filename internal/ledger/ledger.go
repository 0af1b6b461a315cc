// Package ledger implements the ledger operations: the only code paths that
// mutate the account store and the transaction log together.
//
// Every operation is one validate → mutate → log unit executed under a single
// ledger-wide lock. Mutations are staged on copies inside account.Store.Update
// and committed only after validation passes, so a rejected operation leaves
// both the store and the log exactly as they were.
//
// All monetary values use shopspring/decimal; never float64 for money.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/metrics"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/store"
	"github.com/atmx/ledger-engine/internal/txlog"
)

// Event types published after a committed operation.
const (
	EventTradeExecuted = "trade_executed"
	EventLoanIssued    = "loan_issued"
	EventLoanRepaid    = "loan_repaid"
	EventPartyUpdated  = "party_updated"
)

// Event describes a committed change for subscribers such as the websocket
// hub.
type Event struct {
	Type         string              `json:"type"`
	Transactions []model.Transaction `json:"transactions,omitempty"`
	Parties      []model.Party       `json:"parties,omitempty"`
}

// Publisher receives events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// Ledger ties the account store, the transaction log and the persistence
// collaborator together. It uses one lock for all writers; at this scale a
// global lock is simpler than per-pair locking and gives the same guarantees.
type Ledger struct {
	mu       sync.RWMutex
	accounts *account.Store
	log      *txlog.Log
	store    store.Store
	pub      Publisher
	logger   *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore persists parties and transactions after every committed change.
func WithStore(st store.Store) Option {
	return func(l *Ledger) { l.store = st }
}

// WithPublisher sends an Event after every committed change.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.pub = p }
}

// WithAccounts uses an existing account store.
func WithAccounts(a *account.Store) Option {
	return func(l *Ledger) { l.accounts = a }
}

// WithLog uses an existing transaction log.
func WithLog(tl *txlog.Log) Option {
	return func(l *Ledger) { l.log = tl }
}

// WithLogger overrides slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates a ledger. Without options it is purely in-memory.
func New(opts ...Option) *Ledger {
	l := &Ledger{}
	for _, opt := range opts {
		opt(l)
	}
	if l.accounts == nil {
		l.accounts = account.New()
	}
	if l.log == nil {
		l.log = txlog.New()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Restore loads persisted parties and transactions.
func (l *Ledger) Restore(snap store.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.accounts.Restore(snap.Parties); err != nil {
		return err
	}
	if err := l.log.Restore(snap.Transactions); err != nil {
		return err
	}
	for _, f := range l.accounts.Financiers() {
		metrics.OutstandingLoans.WithLabelValues(f.ID).Set(f.Encumbered().InexactFloat64())
	}
	return nil
}

// Save writes the current parties and transactions to the store.
func (l *Ledger) Save(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.saveLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context) error {
	if err := store.SaveParties(ctx, l.store, l.accounts.Snapshot()); err != nil {
		return err
	}
	return store.SaveTransactions(ctx, l.store, l.log.All())
}

// persistLocked saves after a committed change. In-memory state is
// authoritative, so a failed save is logged and counted, not returned.
func (l *Ledger) persistLocked(ctx context.Context) {
	if l.store == nil {
		return
	}
	if err := l.saveLocked(context.WithoutCancel(ctx)); err != nil {
		metrics.PersistFailures.Inc()
		l.logger.Error("persist ledger state failed", "err", err)
	}
}

func (l *Ledger) publish(ev Event) {
	if l.pub != nil {
		l.pub.Publish(ev)
	}
}

// apply runs stage inside an account-store update and, once the staged
// mutations are committed, appends the returned entries to the log.
func (l *Ledger) apply(ctx context.Context, kind string, stage func(tx *account.Tx) ([]model.Transaction, error)) ([]model.Transaction, error) {
	started := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []model.Transaction
	err := l.accounts.Update(func(tx *account.Tx) error {
		var err error
		pending, err = stage(tx)
		return err
	})
	if err != nil {
		metrics.ObserveOperation(kind, outcome(err), started)
		return nil, err
	}

	appended := make([]model.Transaction, 0, len(pending))
	for _, e := range pending {
		stored := l.log.Append(e)
		metrics.VolumeTotal.WithLabelValues(string(stored.Kind)).Add(stored.Total.InexactFloat64())
		appended = append(appended, stored)
	}
	l.persistLocked(ctx)
	metrics.ObserveOperation(kind, "ok", started)
	return appended, nil
}

// outcome maps an error onto a low-cardinality metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, model.ErrInvalidRepayment):
		return "invalid_repayment"
	case errors.Is(err, model.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
