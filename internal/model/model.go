// Package model defines the core domain types shared across the ledger engine.
// All monetary values use shopspring/decimal; never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartyKind distinguishes traders from financiers.
type PartyKind string

const (
	KindTrader    PartyKind = "trader"
	KindFinancier PartyKind = "financier"
)

// Valid reports whether k is a known party kind.
func (k PartyKind) Valid() bool {
	return k == KindTrader || k == KindFinancier
}

// Interests lists commodity names a party cares about. Informational only;
// the ledger never enforces them.
type Interests struct {
	Buy     []string `json:"buy"`
	Sell    []string `json:"sell"`
	Finance []string `json:"finance"`
}

func (i Interests) clone() Interests {
	return Interests{
		Buy:     append([]string(nil), i.Buy...),
		Sell:    append([]string(nil), i.Sell...),
		Finance: append([]string(nil), i.Finance...),
	}
}

// Party is a trader or financier account. TotalFunds and AvailableFunds are
// only meaningful for financiers; Loans maps financier id to the amount the
// party owes that financier.
type Party struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Email          string                     `json:"email,omitempty"`
	Bio            string                     `json:"bio,omitempty"`
	Kind           PartyKind                  `json:"type"`
	Balance        decimal.Decimal            `json:"balance"`
	Interests      Interests                  `json:"interests"`
	TotalFunds     decimal.Decimal            `json:"total_funds"`
	AvailableFunds decimal.Decimal            `json:"available_funds"`
	Loans          map[string]decimal.Decimal `json:"loans,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// IsFinancier reports whether the party supplies loans.
func (p Party) IsFinancier() bool { return p.Kind == KindFinancier }

// IsTrader reports whether the party trades and borrows.
func (p Party) IsTrader() bool { return p.Kind == KindTrader }

// Encumbered is the part of a financier's committed capital currently out on
// loan (TotalFunds - AvailableFunds). Zero for traders.
func (p Party) Encumbered() decimal.Decimal {
	if !p.IsFinancier() {
		return decimal.Zero
	}
	return p.TotalFunds.Sub(p.AvailableFunds)
}

// LoanTo returns the outstanding amount owed to financierID, zero if none.
func (p Party) LoanTo(financierID string) decimal.Decimal {
	return p.Loans[financierID]
}

// TotalOwed sums every outstanding loan held by the party.
func (p Party) TotalOwed() decimal.Decimal {
	total := decimal.Zero
	for _, amt := range p.Loans {
		total = total.Add(amt)
	}
	return total
}

// Clone returns a deep copy so callers can mutate it without touching the
// stored record.
func (p Party) Clone() Party {
	out := p
	out.Interests = p.Interests.clone()
	if p.Loans != nil {
		out.Loans = make(map[string]decimal.Decimal, len(p.Loans))
		for k, v := range p.Loans {
			out.Loans[k] = v
		}
	}
	return out
}

// TxKind is the type of a logged financial event.
type TxKind string

const (
	TxBuy     TxKind = "buy"
	TxSell    TxKind = "sell"
	TxFinance TxKind = "finance"
	TxRepay   TxKind = "repay"
)

// Valid reports whether k is a known transaction kind.
func (k TxKind) Valid() bool {
	switch k {
	case TxBuy, TxSell, TxFinance, TxRepay:
		return true
	}
	return false
}

// IsTrade reports whether k moves goods between a buyer and a seller.
func (k TxKind) IsTrade() bool { return k == TxBuy || k == TxSell }

// Commodity labels used on loan entries.
const (
	LoanCommodity      = "Loan"
	RepaymentCommodity = "Loan Repayment"
)

// Transaction is an immutable record of one financial event.
// Once appended to the log it is never modified or deleted.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        TxKind          `json:"type"`
	Commodity   string          `json:"commodity"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
	Date        time.Time       `json:"date"`
	BuyerID     string          `json:"buyer_id"`
	SellerID    string          `json:"seller_id,omitempty"`
	FinancierID string          `json:"financier_id,omitempty"`
	LoanAmount  decimal.Decimal `json:"loan_amount"`
}

// Involves reports whether partyID is the buyer, seller or financier.
func (t *Transaction) Involves(partyID string) bool {
	return t.BuyerID == partyID || t.SellerID == partyID || t.FinancierID == partyID
}

// ListingStatus tracks a listing through its life.
type ListingStatus string

const (
	ListingOpen      ListingStatus = "open"
	ListingFilled    ListingStatus = "filled"
	ListingCancelled ListingStatus = "cancelled"
)

// Listing is an offer posted on the board by a trader: Kind buy means the
// poster wants to buy, sell means the poster wants to sell.
type Listing struct {
	ID            string          `json:"id"`
	PartyID       string          `json:"party_id"`
	Kind          TxKind          `json:"type"`
	Commodity     string          `json:"commodity"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"price"`
	Status        ListingStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	FilledBy      string          `json:"filled_by,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

// Total is quantity × unit price.
func (l *Listing) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}
