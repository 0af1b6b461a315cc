package txlog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/ledger-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func trade(kind model.TxKind, buyer, seller, commodity string, qty, price float64) model.Transaction {
	return model.Transaction{
		Kind:      kind,
		Commodity: commodity,
		Quantity:  d(qty),
		UnitPrice: d(price),
		Total:     d(qty).Mul(d(price)),
		BuyerID:   buyer,
		SellerID:  seller,
	}
}

func loan(kind model.TxKind, trader, financier string, amount float64) model.Transaction {
	return model.Transaction{
		Kind:        kind,
		Commodity:   model.LoanCommodity,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   d(amount),
		Total:       d(amount),
		BuyerID:     trader,
		FinancierID: financier,
		LoanAmount:  d(amount),
	}
}

func TestAppendAssignsIDAndDate(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	l := New(WithClock(fixedClock(at)))

	in := trade(model.TxBuy, "a", "b", "Oil", 500, 70)
	in.ID = "caller-supplied"
	got := l.Append(in)

	assert.NotEmpty(t, got.ID)
	assert.NotEqual(t, "caller-supplied", got.ID)
	assert.True(t, got.Date.Equal(at))
	assert.True(t, got.Total.Equal(d(35000)))

	stored, err := l.Get(got.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestAppendIDsAreUniqueAndOrdered(t *testing.T) {
	l := New(WithClock(fixedClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))))

	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 50; i++ {
		e := l.Append(trade(model.TxBuy, "a", "b", "Oil", 1, 1))
		assert.False(t, seen[e.ID])
		assert.Greater(t, e.ID, prev)
		seen[e.ID] = true
		prev = e.ID
	}
}

func TestGetUnknown(t *testing.T) {
	l := New()
	_, err := l.Get("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestByPartyInsertionOrder(t *testing.T) {
	l := New()
	first := l.Append(trade(model.TxBuy, "a", "b", "Oil", 1, 10))
	l.Append(trade(model.TxBuy, "c", "d", "Gold", 1, 10))
	second := l.Append(loan(model.TxFinance, "c", "a", 100))
	third := l.Append(trade(model.TxSell, "b", "a", "Corn", 2, 5))

	got := l.ByParty("a")
	require.Len(t, got, 3)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID, "financier role counts")
	assert.Equal(t, third.ID, got[2].ID, "seller role counts")

	assert.Empty(t, l.ByParty("nobody"))
}

func TestTotalVolume(t *testing.T) {
	l := New()
	assert.True(t, l.TotalVolume().IsZero())

	l.Append(trade(model.TxBuy, "a", "b", "Oil", 500, 70))
	l.Append(loan(model.TxFinance, "a", "x", 35000))
	l.Append(loan(model.TxRepay, "a", "x", 20000))

	assert.True(t, l.TotalVolume().Equal(d(90000)))
}

func TestOutstandingLoan(t *testing.T) {
	l := New()
	l.Append(loan(model.TxFinance, "a", "x", 35000))
	l.Append(loan(model.TxFinance, "b", "x", 1000))
	l.Append(loan(model.TxRepay, "a", "x", 20000))
	l.Append(loan(model.TxFinance, "a", "y", 5))
	l.Append(trade(model.TxBuy, "a", "b", "Oil", 1, 1))

	assert.True(t, l.OutstandingLoan("x").Equal(d(16000)))
	assert.True(t, l.OutstandingLoan("y").Equal(d(5)))
	assert.True(t, l.OutstandingLoan("z").IsZero())
	assert.True(t, l.OutstandingLoanBetween("a", "x").Equal(d(15000)))
	assert.True(t, l.OutstandingLoanBetween("b", "x").Equal(d(1000)))
}

func TestFilter(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	l := New(WithClock(fixedClock(at)))
	l.Append(trade(model.TxBuy, "a", "b", "Crude Oil", 1, 10))
	l.Append(trade(model.TxSell, "b", "a", "Gold", 1, 10))
	l.Append(loan(model.TxFinance, "a", "x", 100))

	assert.Len(t, l.Filter(Query{}), 3)
	assert.Len(t, l.Filter(Query{Kind: model.TxSell}), 1)
	assert.Len(t, l.Filter(Query{Search: "oil"}), 1)
	assert.Len(t, l.Filter(Query{Search: "2026-05-04"}), 3)
	assert.Len(t, l.Filter(Query{Search: "2025"}), 0)
	assert.Len(t, l.Filter(Query{PartyID: "x"}), 1)
	assert.Len(t, l.Filter(Query{Kind: model.TxBuy, PartyID: "b"}), 1)
}

func TestTotals(t *testing.T) {
	l := New()
	l.Append(trade(model.TxBuy, "a", "b", "Oil", 500, 70))
	l.Append(trade(model.TxSell, "a", "b", "Gold", 2, 100))
	l.Append(loan(model.TxFinance, "a", "x", 300))
	l.Append(loan(model.TxRepay, "a", "x", 100))

	tot := l.Totals()
	assert.True(t, tot.Bought.Equal(d(35000)))
	assert.True(t, tot.Sold.Equal(d(200)))
	assert.True(t, tot.Financed.Equal(d(300)))
	assert.True(t, tot.Repaid.Equal(d(100)))
	assert.True(t, tot.Volume.Equal(d(35600)))
}

func TestAllReturnsCopy(t *testing.T) {
	l := New()
	l.Append(trade(model.TxBuy, "a", "b", "Oil", 1, 10))

	all := l.All()
	all[0].Total = d(1)

	again := l.All()
	assert.True(t, again[0].Total.Equal(d(10)))
}

func TestRestore(t *testing.T) {
	l := New()
	src := New()
	a := src.Append(trade(model.TxBuy, "a", "b", "Oil", 1, 10))
	b := src.Append(loan(model.TxFinance, "a", "x", 5))

	require.NoError(t, l.Restore(src.All()))
	assert.Equal(t, 2, l.Len())
	got, err := l.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	err = l.Restore([]model.Transaction{a, a})
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	assert.Equal(t, 2, l.Len())

	bad := a
	bad.ID = "other"
	bad.Kind = "gift"
	assert.ErrorIs(t, l.Restore([]model.Transaction{bad}), model.ErrInvalidOperation)
}
