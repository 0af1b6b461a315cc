package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/model"
)

// Audit rules.
const (
	RuleAvailableBounds  = "available_bounds"
	RuleLoanNonNegative  = "loan_non_negative"
	RuleLoanCounterparty = "loan_counterparty"
	RuleEncumbrance      = "encumbrance_matches_loans"
	RuleLogReplay        = "log_replay"
	RulePairReplay       = "pair_replay"
	RuleBalance          = "balance_non_negative"
)

// Violation is one broken invariant.
type Violation struct {
	Rule    string `json:"rule"`
	PartyID string `json:"party_id"`
	Detail  string `json:"detail"`
}

// AuditReport is the result of checking every invariant against the current
// state. NetPosition (Σ balances − Σ encumbrance) is unchanged by trades,
// loans and repayments; only admin edits move it.
type AuditReport struct {
	CheckedAt       time.Time       `json:"checked_at"`
	Parties         int             `json:"parties"`
	Transactions    int             `json:"transactions"`
	TotalBalances   decimal.Decimal `json:"total_balances"`
	TotalEncumbered decimal.Decimal `json:"total_encumbered"`
	NetPosition     decimal.Decimal `json:"net_position"`
	Violations      []Violation     `json:"violations"`
}

// OK reports whether no violation was found.
func (r *AuditReport) OK() bool { return len(r.Violations) == 0 }

// Audit checks the account store against itself and against the log.
func (l *Ledger) Audit() AuditReport {
	l.mu.RLock()
	defer l.mu.RUnlock()

	parties := l.accounts.List()
	rep := AuditReport{
		CheckedAt:       time.Now().UTC(),
		Parties:         len(parties),
		Transactions:    l.log.Len(),
		TotalBalances:   decimal.Zero,
		TotalEncumbered: decimal.Zero,
		Violations:      []Violation{},
	}
	flag := func(rule, partyID, format string, args ...any) {
		rep.Violations = append(rep.Violations, Violation{
			Rule: rule, PartyID: partyID, Detail: fmt.Sprintf(format, args...),
		})
	}

	owedTo := make(map[string]decimal.Decimal)
	financiers := make(map[string]bool)
	for i := range parties {
		if parties[i].IsFinancier() {
			financiers[parties[i].ID] = true
		}
	}

	for i := range parties {
		p := &parties[i]
		rep.TotalBalances = rep.TotalBalances.Add(p.Balance)
		if p.Balance.IsNegative() {
			flag(RuleBalance, p.ID, "balance %s", p.Balance)
		}
		if p.IsFinancier() {
			rep.TotalEncumbered = rep.TotalEncumbered.Add(p.Encumbered())
			if p.AvailableFunds.IsNegative() || p.AvailableFunds.GreaterThan(p.TotalFunds) {
				flag(RuleAvailableBounds, p.ID, "available %s outside [0, %s]", p.AvailableFunds, p.TotalFunds)
			}
			continue
		}
		for fid, amt := range p.Loans {
			if amt.IsNegative() {
				flag(RuleLoanNonNegative, p.ID, "owes %s to %s", amt, fid)
			}
			if !financiers[fid] {
				flag(RuleLoanCounterparty, p.ID, "loan from unknown financier %s", fid)
			}
			owedTo[fid] = owedTo[fid].Add(amt)
			if logged := l.log.OutstandingLoanBetween(p.ID, fid); !logged.Equal(amt) {
				flag(RulePairReplay, p.ID, "loan map has %s from %s, log replays to %s", amt, fid, logged)
			}
		}
	}

	// Pairs the log still carries but the loan map has lost.
	byID := make(map[string]*model.Party, len(parties))
	for i := range parties {
		byID[parties[i].ID] = &parties[i]
	}
	seen := make(map[[2]string]bool)
	for _, tx := range l.log.All() {
		if tx.Kind != model.TxFinance && tx.Kind != model.TxRepay {
			continue
		}
		pair := [2]string{tx.BuyerID, tx.FinancierID}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		if tr, ok := byID[tx.BuyerID]; ok {
			if _, inMap := tr.Loans[tx.FinancierID]; inMap {
				continue
			}
		}
		if logged := l.log.OutstandingLoanBetween(tx.BuyerID, tx.FinancierID); !logged.IsZero() {
			flag(RulePairReplay, tx.BuyerID, "no loan from %s in map, log replays to %s", tx.FinancierID, logged)
		}
	}

	for i := range parties {
		f := &parties[i]
		if !f.IsFinancier() {
			continue
		}
		owed := owedTo[f.ID]
		if !f.Encumbered().Equal(owed) {
			flag(RuleEncumbrance, f.ID, "encumbered %s, traders owe %s", f.Encumbered(), owed)
		}
		if logged := l.log.OutstandingLoan(f.ID); !logged.Equal(owed) {
			flag(RuleLogReplay, f.ID, "traders owe %s, log replays to %s", owed, logged)
		}
	}

	rep.NetPosition = rep.TotalBalances.Sub(rep.TotalEncumbered)
	return rep
}
