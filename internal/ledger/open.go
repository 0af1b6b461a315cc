package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/store"
)

// DefaultParties is the demo set created when an empty ledger is seeded.
var DefaultParties = []account.NewParty{
	{
		Name:    "Trader A",
		Email:   "trader.a@example.com",
		Bio:     "Energy and precious metals trader",
		Kind:    model.KindTrader,
		Balance: decimal.NewFromInt(100000),
		Interests: model.Interests{
			Buy:  []string{"Crude Oil", "Gold"},
			Sell: []string{"Silver"},
		},
	},
	{
		Name:    "Trader B",
		Email:   "trader.b@example.com",
		Bio:     "Agricultural and base metals trader",
		Kind:    model.KindTrader,
		Balance: decimal.NewFromInt(150000),
		Interests: model.Interests{
			Buy:  []string{"Natural Gas", "Wheat"},
			Sell: []string{"Copper", "Corn"},
		},
	},
	{
		Name:    "Financier X",
		Email:   "financier.x@example.com",
		Bio:     "Trade finance provider",
		Kind:    model.KindFinancier,
		Balance: decimal.NewFromInt(500000),
		Interests: model.Interests{
			Finance: []string{"Invoice Financing", "Trade Finance"},
		},
	},
}

// Open loads persisted state from st into a new ledger bound to st. When
// nothing was persisted and seed is set, DefaultParties are created. The
// loaded snapshot is returned so callers can restore collections the ledger
// does not own, such as listings.
func Open(ctx context.Context, st store.Store, seed bool, opts ...Option) (*Ledger, store.Snapshot, error) {
	snap, err := store.Load(ctx, st)
	if err != nil {
		return nil, store.Snapshot{}, fmt.Errorf("load ledger state: %w", err)
	}

	l := New(append([]Option{WithStore(st)}, opts...)...)
	if err := l.Restore(snap); err != nil {
		return nil, store.Snapshot{}, fmt.Errorf("restore ledger state: %w", err)
	}
	if len(snap.Migrated) > 0 {
		l.logger.Info("migrated legacy loan records", "parties", snap.Migrated)
	}

	if seed && snap.Empty() {
		if err := l.Seed(ctx); err != nil {
			return nil, store.Snapshot{}, err
		}
	}
	l.logger.Info("ledger opened",
		"parties", l.accounts.Len(),
		"transactions", l.log.Len(),
	)
	return l, snap, nil
}

// Seed creates DefaultParties.
func (l *Ledger) Seed(ctx context.Context) error {
	for _, np := range DefaultParties {
		if _, err := l.CreateParty(ctx, np); err != nil {
			return fmt.Errorf("seed %s: %w", np.Name, err)
		}
	}
	l.logger.Info("seeded default parties", "count", len(DefaultParties))
	return nil
}
