package report_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/ledger-engine/internal/account"
	"github.com/atmx/ledger-engine/internal/ledger"
	"github.com/atmx/ledger-engine/internal/model"
	"github.com/atmx/ledger-engine/internal/report"
	"github.com/atmx/ledger-engine/internal/txlog"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{d(0), "$0.00"},
		{d(35000), "$35,000.00"},
		{d(1234.5), "$1,234.50"},
		{d(0.125), "$0.13"},
		{d(-20), "-$20.00"},
		{decimal.RequireFromString("92233720368547758.07"), "$92,233,720,368,547,758.07"},
		{decimal.RequireFromString("123456789012345678.9"), "$123,456,789,012,345,678.90"},
		{decimal.RequireFromString("-123456789012345678.9"), "-$123,456,789,012,345,678.90"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, report.Format(tt.in), tt.in.String())
	}
}

func seeded(t *testing.T) *ledger.Ledger {
	t.Helper()
	ids := []string{"A", "B", "X"}
	i := 0
	l := ledger.New(ledger.WithAccounts(account.New(account.WithIDFunc(func() string {
		id := ids[i]
		i++
		return id
	}))))
	ctx := context.Background()
	for _, np := range ledger.DefaultParties {
		_, err := l.CreateParty(ctx, np)
		require.NoError(t, err)
	}

	_, err := l.ExecuteTrade(ctx, ledger.TradeRequest{
		Kind: model.TxBuy, PartyID: "A", CounterpartyID: "B",
		Commodity: "Crude Oil", Quantity: d(500), UnitPrice: d(70),
	})
	require.NoError(t, err)
	_, err = l.IssueLoan(ctx, "A", "X", d(35000))
	require.NoError(t, err)
	_, err = l.RepayLoan(ctx, "A", "X", d(20000))
	require.NoError(t, err)
	return l
}

func TestProfile_Trader(t *testing.T) {
	l := seeded(t)

	s, err := report.Profile(l, "A", 2)
	require.NoError(t, err)

	assert.Equal(t, "$80,000.00", s.Balance)
	assert.Empty(t, s.AvailableFunds)
	require.Len(t, s.Loans, 1)
	assert.Equal(t, "X", s.Loans[0].PartyID)
	assert.Equal(t, "Financier X", s.Loans[0].PartyName)
	assert.Equal(t, "$15,000.00", s.Loans[0].Display)
	assert.Equal(t, "$15,000.00", s.TotalOwed)
	assert.Equal(t, "$90,000.00", s.Volume)

	require.Len(t, s.Recent, 2)
	assert.Equal(t, model.TxRepay, s.Recent[0].Kind, "newest first")
	assert.Equal(t, model.TxFinance, s.Recent[1].Kind)
}

func TestProfile_Financier(t *testing.T) {
	l := seeded(t)

	s, err := report.Profile(l, "X", 0)
	require.NoError(t, err)

	assert.Equal(t, "$500,000.00", s.Balance)
	assert.Equal(t, "$485,000.00", s.AvailableFunds)
	assert.Equal(t, "$500,000.00", s.TotalFunds)
	assert.Equal(t, "$15,000.00", s.Encumbered)
	require.Len(t, s.Loans, 1)
	assert.Equal(t, "A", s.Loans[0].PartyID)
	assert.Len(t, s.Recent, 2)
	assert.True(t, s.Totals.Financed.Equal(d(35000)))
	assert.True(t, s.Totals.Repaid.Equal(d(20000)))
}

func TestProfile_Unknown(t *testing.T) {
	_, err := report.Profile(seeded(t), "nobody", 0)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHistory(t *testing.T) {
	l := seeded(t)

	all := report.History(l, txlog.Query{})
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, "$35,000.00", all.Bought)
	assert.Equal(t, "$35,000.00", all.Financed)
	assert.Equal(t, "$20,000.00", all.Repaid)
	assert.Equal(t, "$0.00", all.Sold)
	assert.Equal(t, "$90,000.00", all.Volume)

	none := report.History(l, txlog.Query{Search: "platinum"})
	assert.Equal(t, 0, none.Count)
	assert.NotNil(t, none.Entries)
}
