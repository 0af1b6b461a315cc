// Package report derives display summaries from ledger state. Nothing here
// mutates the ledger.
package report

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/txlog"
)

// Currency of every amount in the ledger.
const Currency = money.USD

// DefaultRecent is how many recent transactions a profile summary shows.
const DefaultRecent = 5

// Source is the read side of *ledger.Ledger.
type Source interface {
	Party(id string) (model.Party, error)
	Traders() []model.Party
	PartyTransactions(partyID string) ([]model.Transaction, error)
	Loans(traderID string) ([]ledger.Loan, error)
	History(q txlog.Query) []model.Transaction
}

// Format renders an amount in the ledger currency, e.g. "$35,000.00".
func Format(amount decimal.Decimal) string {
	cur := money.GetCurrency(Currency)
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	if n := minor.BigInt(); n.IsInt64() {
		return money.New(n.Int64(), Currency).Display()
	}
	return formatDigits(cur.Formatter(), minor)
}

// formatDigits lays out amounts whose minor units overflow int64 with the
// same grouping and template money.Formatter uses.
func formatDigits(f *money.Formatter, minor decimal.Decimal) string {
	sa := minor.Abs().String()
	if len(sa) <= f.Fraction {
		sa = strings.Repeat("0", f.Fraction-len(sa)+1) + sa
	}
	if f.Thousand != "" {
		for i := len(sa) - f.Fraction - 3; i > 0; i -= 3 {
			sa = sa[:i] + f.Thousand + sa[i:]
		}
	}
	if f.Fraction > 0 {
		sa = sa[:len(sa)-f.Fraction] + f.Decimal + sa[len(sa)-f.Fraction:]
	}
	sa = strings.Replace(f.Template, "1", sa, 1)
	sa = strings.Replace(sa, "$", f.Grapheme, 1)
	if minor.IsNegative() {
		sa = "-" + sa
	}
	return sa
}

// LoanLine is one outstanding loan seen from either side.
type LoanLine struct {
	PartyID   string          `json:"party_id"`
	PartyName string          `json:"party_name"`
	Amount    decimal.Decimal `json:"amount"`
	Display   string          `json:"display"`
}

// ProfileSummary is what a profile page shows.
type ProfileSummary struct {
	Party          model.Party         `json:"party"`
	Balance        string              `json:"balance"`
	AvailableFunds string              `json:"available_funds,omitempty"`
	TotalFunds     string              `json:"total_funds,omitempty"`
	Encumbered     string              `json:"encumbered,omitempty"`
	Loans          []LoanLine          `json:"loans"`
	TotalOwed      string              `json:"total_owed"`
	Totals         txlog.Totals        `json:"totals"`
	Volume         string              `json:"volume"`
	Recent         []model.Transaction `json:"recent"`
}

// Profile summarises one party. For a trader Loans lists what it owes each
// financier; for a financier it lists what each trader owes it. Recent holds
// up to recent entries, newest first.
func Profile(src Source, partyID string, recent int) (ProfileSummary, error) {
	p, err := src.Party(partyID)
	if err != nil {
		return ProfileSummary{}, err
	}
	txs, err := src.PartyTransactions(partyID)
	if err != nil {
		return ProfileSummary{}, err
	}
	if recent <= 0 {
		recent = DefaultRecent
	}

	s := ProfileSummary{
		Party:   p,
		Balance: Format(p.Balance),
		Loans:   []LoanLine{},
		Recent:  newestFirst(txs, recent),
	}

	owed := decimal.Zero
	if p.IsFinancier() {
		s.AvailableFunds = Format(p.AvailableFunds)
		s.TotalFunds = Format(p.TotalFunds)
		s.Encumbered = Format(p.Encumbered())
		for _, tr := range src.Traders() {
			if amt := tr.LoanTo(p.ID); amt.IsPositive() {
				s.Loans = append(s.Loans, loanLine(tr.ID, tr.Name, amt))
				owed = owed.Add(amt)
			}
		}
	} else {
		loans, err := src.Loans(partyID)
		if err != nil {
			return ProfileSummary{}, err
		}
		for _, ln := range loans {
			s.Loans = append(s.Loans, loanLine(ln.FinancierID, ln.FinancierName, ln.Amount))
			owed = owed.Add(ln.Amount)
		}
	}
	s.TotalOwed = Format(owed)

	s.Totals = txlog.Sum(txs)
	s.Volume = Format(s.Totals.Volume)
	return s, nil
}

// HistorySummary is a filtered slice of the log with its totals.
type HistorySummary struct {
	Entries  []model.Transaction `json:"entries"`
	Count    int                 `json:"count"`
	Totals   txlog.Totals        `json:"totals"`
	Bought   string              `json:"bought"`
	Sold     string              `json:"sold"`
	Financed string              `json:"financed"`
	Repaid   string              `json:"repaid"`
	Volume   string              `json:"volume"`
}

// History filters the log and totals the result per kind.
func History(src Source, q txlog.Query) HistorySummary {
	entries := src.History(q)
	if entries == nil {
		entries = []model.Transaction{}
	}
	t := txlog.Sum(entries)
	return HistorySummary{
		Entries:  entries,
		Count:    len(entries),
		Totals:   t,
		Bought:   Format(t.Bought),
		Sold:     Format(t.Sold),
		Financed: Format(t.Financed),
		Repaid:   Format(t.Repaid),
		Volume:   Format(t.Volume),
	}
}

func loanLine(partyID, name string, amount decimal.Decimal) LoanLine {
	return LoanLine{PartyID: partyID, PartyName: name, Amount: amount, Display: Format(amount)}
}

func newestFirst(txs []model.Transaction, n int) []model.Transaction {
	out := make([]model.Transaction, 0, n)
	for i := len(txs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, txs[i])
	}
	return out
}
