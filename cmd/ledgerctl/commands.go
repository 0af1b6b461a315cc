package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/report"
	"github.com/atmx/ledger-engine/internal/txlog"
)

func newPartiesCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parties",
		Short: "List or create parties",
	}

	var kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List parties with balances and loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var parties []model.Party
			switch model.PartyKind(kind) {
			case "":
				parties = rc.ledger.Parties()
			case model.KindTrader:
				parties = rc.ledger.Traders()
			case model.KindFinancier:
				parties = rc.ledger.Financiers()
			default:
				return fmt.Errorf("--type must be trader or financier, got %q", kind)
			}
			printParties(cmd.OutOrStdout(), parties)
			return nil
		},
	}
	list.Flags().StringVar(&kind, "type", "", "Only list trader or financier parties")

	var np account.NewParty
	var balance string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a party",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("--balance: %w", err)
			}
			np.Balance = amt
			p, err := rc.ledger.CreateParty(cmd.Context(), np)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", p.Kind, p.ID, p.Name)
			return nil
		},
	}
	add.Flags().StringVar(&np.Name, "name", "", "Display name")
	add.Flags().StringVar((*string)(&np.Kind), "type", string(model.KindTrader), "trader or financier")
	add.Flags().StringVar(&np.Email, "email", "", "Contact email")
	add.Flags().StringVar(&np.Bio, "bio", "", "Short profile text")
	add.Flags().StringVar(&balance, "balance", "0", "Opening balance")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(list, add)
	return cmd
}

func newSetBalanceCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "set-balance <party-id> <amount>",
		Short: "Override a party's balance (not logged as a transaction)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			p, err := rc.ledger.SetBalance(cmd.Context(), args[0], amt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", p.ID, report.Format(p.Balance))
			return nil
		},
	}
}

func newLoanCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Issue or repay financier loans",
	}

	run := func(repay bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			op := rc.ledger.IssueLoan
			if repay {
				op = rc.ledger.RepayLoan
			}
			res, err := op(cmd.Context(), args[0], args[1], amt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s now owes %s %s\n",
				res.Transaction.Kind, res.Transaction.ID, res.Trader.ID,
				res.Financier.ID, report.Format(res.Trader.LoanTo(res.Financier.ID)))
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "issue <trader-id> <financier-id> <amount>",
			Short: "Lend from a financier to a trader",
			Args:  cobra.ExactArgs(3),
			RunE:  run(false),
		},
		&cobra.Command{
			Use:   "repay <trader-id> <financier-id> <amount>",
			Short: "Repay part or all of a loan",
			Args:  cobra.ExactArgs(3),
			RunE:  run(true),
		},
	)
	return cmd
}

func newHistoryCmd(rc *rootConfig) *cobra.Command {
	var (
		kind   string
		q      txlog.Query
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the transaction log with per-kind totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Kind = model.TxKind(kind)
			if q.Kind != "" && !q.Kind.Valid() {
				return fmt.Errorf("--kind must be buy, sell, finance or repay, got %q", kind)
			}
			h := report.History(rc.ledger, q)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(h)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tID\tTYPE\tCOMMODITY\tQTY\tPRICE\tTOTAL\tBUYER\tSELLER\tFINANCIER")
			for _, tx := range h.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					tx.Date.Format("2006-01-02 15:04"), tx.ID, tx.Kind, tx.Commodity,
					tx.Quantity, report.Format(tx.UnitPrice), report.Format(tx.Total),
					tx.BuyerID, dash(tx.SellerID), dash(tx.FinancierID))
			}
			tw.Flush()
			fmt.Fprintf(out, "\n%d entries  bought %s  sold %s  financed %s  repaid %s\n",
				h.Count, h.Bought, h.Sold, h.Financed, h.Repaid)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only buy, sell, finance or repay entries")
	cmd.Flags().StringVar(&q.PartyID, "party", "", "Only entries involving this party")
	cmd.Flags().StringVarP(&q.Search, "query", "q", "", "Case-insensitive text search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newAuditCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check ledger invariants; fails when any is violated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep := rc.ledger.Audit()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "parties %d  transactions %d  balances %s  encumbered %s  net %s\n",
				rep.Parties, rep.Transactions,
				report.Format(rep.TotalBalances), report.Format(rep.TotalEncumbered), report.Format(rep.NetPosition))
			if rep.OK() {
				fmt.Fprintln(out, "ok")
				return nil
			}
			for _, v := range rep.Violations {
				fmt.Fprintf(out, "%s\t%s\t%s\n", v.Rule, dash(v.PartyID), v.Detail)
			}
			return fmt.Errorf("%d invariant violations", len(rep.Violations))
		},
	}
}

func newSeedCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo parties in an empty ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n := len(rc.ledger.Parties()); n > 0 {
				return fmt.Errorf("ledger already has %d parties", n)
			}
			if err := rc.ledger.Seed(cmd.Context()); err != nil {
				return err
			}
			printParties(cmd.OutOrStdout(), rc.ledger.Parties())
			return nil
		},
	}
}

func printParties(w io.Writer, parties []model.Party) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tBALANCE\tAVAILABLE\tOWED")
	for _, p := range parties {
		available := "-"
		if p.IsFinancier() {
			available = report.Format(p.AvailableFunds)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Kind, p.Name, report.Format(p.Balance), available, report.Format(p.TotalOwed()))
	}
	tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
