package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/metrics"
	"github.com/atmx/ledger-engine/internal/model"
)

// TradeRequest describes a buy or sell from PartyID's point of view.
// For a buy PartyID is the buyer and CounterpartyID the seller; a sell swaps
// the roles. FinancierID with a positive FinanceAmount funds part of the
// buyer's payment with a loan issued in the same unit of work.
type TradeRequest struct {
	Kind           model.TxKind    `json:"type"`
	PartyID        string          `json:"party_id"`
	CounterpartyID string          `json:"counterparty_id"`
	Commodity      string          `json:"commodity"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"price"`
	FinancierID    string          `json:"financier_id,omitempty"`
	FinanceAmount  decimal.Decimal `json:"finance_amount"`
}

// roles resolves buyer and seller ids.
func (r TradeRequest) roles() (buyerID, sellerID string) {
	if r.Kind == model.TxSell {
		return r.CounterpartyID, r.PartyID
	}
	return r.PartyID, r.CounterpartyID
}

// TradeResult is the outcome of a committed trade.
type TradeResult struct {
	Trade   model.Transaction  `json:"trade"`
	Finance *model.Transaction `json:"finance,omitempty"`
	Buyer   model.Party        `json:"buyer"`
	Seller  model.Party        `json:"seller"`
}

// LoanResult is the outcome of a committed loan issue or repayment.
type LoanResult struct {
	Transaction model.Transaction `json:"transaction"`
	Trader      model.Party       `json:"trader"`
	Financier   model.Party       `json:"financier"`
}

// ExecuteTrade moves quantity × unit price from the buyer to the seller and
// appends one buy or sell entry. When financing is requested a finance entry
// precedes the trade entry.
func (l *Ledger) ExecuteTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	req.Commodity = strings.TrimSpace(req.Commodity)
	buyerID, sellerID := req.roles()
	financed := req.FinancierID != ""

	entries, err := l.apply(ctx, string(req.Kind), func(tx *account.Tx) ([]model.Transaction, error) {
		if !req.Kind.IsTrade() {
			return nil, fmt.Errorf("%w: trade type must be buy or sell, got %q", model.ErrInvalidOperation, req.Kind)
		}
		if req.Commodity == "" {
			return nil, fmt.Errorf("%w: commodity is required", model.ErrInvalidOperation)
		}
		if !req.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidOperation)
		}
		if !req.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: price must be positive", model.ErrInvalidOperation)
		}
		if buyerID == sellerID {
			return nil, fmt.Errorf("%w: buyer and seller must differ", model.ErrInvalidOperation)
		}
		if !financed && !req.FinanceAmount.IsZero() {
			return nil, fmt.Errorf("%w: finance amount given without a financier", model.ErrInvalidOperation)
		}
		if financed && !req.FinanceAmount.IsPositive() {
			return nil, fmt.Errorf("%w: finance amount must be positive", model.ErrInvalidOperation)
		}

		buyer, err := tx.Party(buyerID)
		if err != nil {
			return nil, err
		}
		seller, err := tx.Party(sellerID)
		if err != nil {
			return nil, err
		}
		if !buyer.IsTrader() || !seller.IsTrader() {
			return nil, fmt.Errorf("%w: only traders can trade", model.ErrInvalidOperation)
		}

		total := req.Quantity.Mul(req.UnitPrice)
		var out []model.Transaction

		if financed {
			fin, err := l.stageLoan(tx, buyerID, req.FinancierID, req.FinanceAmount)
			if err != nil {
				return nil, err
			}
			out = append(out, fin)
		}

		if buyer.Balance.LessThan(total) {
			return nil, fmt.Errorf("%w: buyer %s has %s, trade costs %s",
				model.ErrInsufficientFunds, buyerID, buyer.Balance, total)
		}
		buyer.Balance = buyer.Balance.Sub(total)
		seller.Balance = seller.Balance.Add(total)

		out = append(out, model.Transaction{
			Kind:        req.Kind,
			Commodity:   req.Commodity,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
			Total:       total,
			BuyerID:     buyerID,
			SellerID:    sellerID,
			FinancierID: req.FinancierID,
		})
		return out, nil
	})
	if err != nil {
		l.logger.Warn("trade rejected", "type", req.Kind, "buyer", buyerID, "seller", sellerID, "err", err)
		return TradeResult{}, err
	}

	res := TradeResult{Trade: entries[len(entries)-1]}
	if financed {
		res.Finance = &entries[0]
	}
	res.Buyer, _ = l.accounts.Get(buyerID)
	res.Seller, _ = l.accounts.Get(sellerID)

	parties := []model.Party{res.Buyer, res.Seller}
	if financed {
		f, _ := l.accounts.Get(req.FinancierID)
		l.trackOutstanding(f)
		parties = append(parties, f)
	}
	l.logger.Info("trade executed",
		"id", res.Trade.ID,
		"type", res.Trade.Kind,
		"commodity", res.Trade.Commodity,
		"total", res.Trade.Total.String(),
		"financed", financed,
	)
	l.publish(Event{Type: EventTradeExecuted, Transactions: entries, Parties: parties})
	return res, nil
}

// IssueLoan lends amount from the financier to the trader. The financier's
// balance stays as is; the loan is recorded as encumbrance by lowering
// AvailableFunds.
func (l *Ledger) IssueLoan(ctx context.Context, traderID, financierID string, amount decimal.Decimal) (LoanResult, error) {
	entries, err := l.apply(ctx, string(model.TxFinance), func(tx *account.Tx) ([]model.Transaction, error) {
		e, err := l.stageLoan(tx, traderID, financierID, amount)
		if err != nil {
			return nil, err
		}
		return []model.Transaction{e}, nil
	})
	if err != nil {
		l.logger.Warn("loan rejected", "trader", traderID, "financier", financierID, "amount", amount.String(), "err", err)
		return LoanResult{}, err
	}
	return l.loanCommitted(EventLoanIssued, entries[0], traderID, financierID), nil
}

// stageLoan validates and applies a loan inside an update.
func (l *Ledger) stageLoan(tx *account.Tx, traderID, financierID string, amount decimal.Decimal) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, fmt.Errorf("%w: loan amount must be positive", model.ErrInvalidOperation)
	}
	trader, financier, err := loanParties(tx, traderID, financierID)
	if err != nil {
		return model.Transaction{}, err
	}
	if financier.AvailableFunds.LessThan(amount) {
		return model.Transaction{}, fmt.Errorf("%w: financier %s has %s available, loan needs %s",
			model.ErrInsufficientFunds, financierID, financier.AvailableFunds, amount)
	}

	financier.AvailableFunds = financier.AvailableFunds.Sub(amount)
	trader.Balance = trader.Balance.Add(amount)
	if err := tx.AdjustLoan(traderID, financierID, amount); err != nil {
		return model.Transaction{}, err
	}
	return loanEntry(model.TxFinance, model.LoanCommodity, traderID, financierID, amount), nil
}

// RepayLoan pays amount of the trader's loan back to the financier.
func (l *Ledger) RepayLoan(ctx context.Context, traderID, financierID string, amount decimal.Decimal) (LoanResult, error) {
	entries, err := l.apply(ctx, string(model.TxRepay), func(tx *account.Tx) ([]model.Transaction, error) {
		trader, financier, err := loanParties(tx, traderID, financierID)
		if err != nil {
			return nil, err
		}
		owed := trader.LoanTo(financierID)
		if !amount.IsPositive() || amount.GreaterThan(owed) {
			return nil, fmt.Errorf("%w: repayment %s against outstanding %s",
				model.ErrInvalidRepayment, amount, owed)
		}
		if trader.Balance.LessThan(amount) {
			return nil, fmt.Errorf("%w: trader %s has %s, repayment needs %s",
				model.ErrInsufficientFunds, traderID, trader.Balance, amount)
		}

		trader.Balance = trader.Balance.Sub(amount)
		financier.AvailableFunds = financier.AvailableFunds.Add(amount)
		if err := tx.AdjustLoan(traderID, financierID, amount.Neg()); err != nil {
			return nil, err
		}
		return []model.Transaction{
			loanEntry(model.TxRepay, model.RepaymentCommodity, traderID, financierID, amount),
		}, nil
	})
	if err != nil {
		l.logger.Warn("repayment rejected", "trader", traderID, "financier", financierID, "amount", amount.String(), "err", err)
		return LoanResult{}, err
	}
	return l.loanCommitted(EventLoanRepaid, entries[0], traderID, financierID), nil
}

func (l *Ledger) loanCommitted(evType string, entry model.Transaction, traderID, financierID string) LoanResult {
	res := LoanResult{Transaction: entry}
	res.Trader, _ = l.accounts.Get(traderID)
	res.Financier, _ = l.accounts.Get(financierID)
	l.trackOutstanding(res.Financier)

	msg := "loan issued"
	if entry.Kind == model.TxRepay {
		msg = "loan repaid"
	}
	l.logger.Info(msg,
		"id", entry.ID,
		"trader", traderID,
		"financier", financierID,
		"amount", entry.LoanAmount.String(),
	)
	l.publish(Event{
		Type:         evType,
		Transactions: []model.Transaction{entry},
		Parties:      []model.Party{res.Trader, res.Financier},
	})
	return res
}

func (l *Ledger) trackOutstanding(f model.Party) {
	if f.IsFinancier() {
		metrics.OutstandingLoans.WithLabelValues(f.ID).Set(f.Encumbered().InexactFloat64())
	}
}

func loanParties(tx *account.Tx, traderID, financierID string) (*model.Party, *model.Party, error) {
	trader, err := tx.Party(traderID)
	if err != nil {
		return nil, nil, err
	}
	financier, err := tx.Party(financierID)
	if err != nil {
		return nil, nil, err
	}
	if !trader.IsTrader() {
		return nil, nil, fmt.Errorf("%w: party %s is not a trader", model.ErrInvalidOperation, traderID)
	}
	if !financier.IsFinancier() {
		return nil, nil, fmt.Errorf("%w: party %s is not a financier", model.ErrInvalidOperation, financierID)
	}
	return trader, financier, nil
}

// loanEntry builds a finance or repay entry: one unit at the loan amount,
// with the trader in the buyer slot.
func loanEntry(kind model.TxKind, commodity, traderID, financierID string, amount decimal.Decimal) model.Transaction {
	return model.Transaction{
		Kind:        kind,
		Commodity:   commodity,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount,
		Total:       amount,
		BuyerID:     traderID,
		FinancierID: financierID,
		LoanAmount:  amount,
	}
}
