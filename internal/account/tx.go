package account

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/model"
)

// Tx is a unit of work inside Store.Update. Parties fetched through it are
// private copies; the store only sees them if the update succeeds.
type Tx struct {
	store   *Store
	touched map[string]*model.Party
}

// Party returns the working copy of a party, cloning it on first access.
// The pointer stays valid for the rest of the transaction.
func (tx *Tx) Party(id string) (*model.Party, error) {
	if p, ok := tx.touched[id]; ok {
		return p, nil
	}
	stored, ok := tx.store.parties[id]
	if !ok {
		return nil, fmt.Errorf("%w: party %s", model.ErrNotFound, id)
	}
	c := stored.Clone()
	tx.touched[id] = &c
	return &c, nil
}

// AdjustLoan adds delta (which may be negative) to trader.Loans[financierID].
func (tx *Tx) AdjustLoan(traderID, financierID string, delta decimal.Decimal) error {
	trader, err := tx.Party(traderID)
	if err != nil {
		return err
	}
	financier, err := tx.Party(financierID)
	if err != nil {
		return err
	}
	if !trader.IsTrader() {
		return fmt.Errorf("%w: party %s is not a trader", model.ErrInvalidOperation, traderID)
	}
	if !financier.IsFinancier() {
		return fmt.Errorf("%w: party %s is not a financier", model.ErrInvalidOperation, financierID)
	}

	next := trader.LoanTo(financierID).Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: loan from %s would drop to %s", model.ErrInvalidOperation, financierID, next)
	}
	if trader.Loans == nil {
		trader.Loans = make(map[string]decimal.Decimal)
	}
	if next.IsZero() {
		delete(trader.Loans, financierID)
		return nil
	}
	trader.Loans[financierID] = next
	return nil
}
