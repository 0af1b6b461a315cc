package account

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/ledger-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	n := 0
	return New(WithIDFunc(func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}))
}

func TestCreateTrader(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Create(NewParty{Name: "Trader A", Kind: model.KindTrader, Balance: d(100000)})
	require.NoError(t, err)

	assert.Equal(t, "p1", p.ID)
	assert.True(t, p.Balance.Equal(d(100000)))
	assert.NotNil(t, p.Loans)
	assert.Empty(t, p.Loans)
	assert.True(t, p.TotalFunds.IsZero())
	assert.False(t, p.CreatedAt.IsZero())
}

func TestCreateFinancierFundsMatchBalance(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Create(NewParty{Name: "Financier X", Kind: model.KindFinancier, Balance: d(500000)})
	require.NoError(t, err)

	assert.True(t, p.TotalFunds.Equal(d(500000)))
	assert.True(t, p.AvailableFunds.Equal(d(500000)))
	assert.Nil(t, p.Loans)
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := newTestStore(t)

	cases := []NewParty{
		{Name: "", Kind: model.KindTrader},
		{Name: "   ", Kind: model.KindTrader},
		{Name: "X", Kind: "bank"},
		{Name: "X", Kind: model.KindTrader, Balance: d(-1)},
	}
	for _, np := range cases {
		_, err := s.Create(np)
		assert.ErrorIs(t, err, model.ErrInvalidOperation, "input %+v", np)
	}
	assert.Equal(t, 0, s.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Create(NewParty{Name: "A", Kind: model.KindTrader, Balance: d(10)})
	require.NoError(t, err)

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	got.Balance = d(999)
	got.Loans["f"] = d(5)

	again, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(d(10)))
	assert.Empty(t, again.Loans)
}

func TestGetUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListPreservesCreationOrder(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.Create(NewParty{Name: name, Kind: model.KindTrader})
		require.NoError(t, err)
	}
	_, err := s.Create(NewParty{Name: "F", Kind: model.KindFinancier, Balance: d(1)})
	require.NoError(t, err)

	var names []string
	for _, p := range s.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "F"}, names)
	assert.Len(t, s.Traders(), 3)
	assert.Len(t, s.Financiers(), 1)
}

func TestSetBalanceTrader(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader, Balance: d(100)})

	got, err := s.SetBalance(p.ID, d(250))
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d(250)))
}

func TestSetBalanceFinancierKeepsEncumbrance(t *testing.T) {
	s := newTestStore(t)
	trader, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader})
	fin, _ := s.Create(NewParty{Name: "X", Kind: model.KindFinancier, Balance: d(1000)})

	// Encumber 300 the way a loan would.
	require.NoError(t, s.Update(func(tx *Tx) error {
		f, err := tx.Party(fin.ID)
		if err != nil {
			return err
		}
		f.AvailableFunds = f.AvailableFunds.Sub(d(300))
		return tx.AdjustLoan(trader.ID, fin.ID, d(300))
	}))

	got, err := s.SetBalance(fin.ID, d(1500))
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d(1500)))
	assert.True(t, got.TotalFunds.Equal(d(1500)))
	assert.True(t, got.AvailableFunds.Equal(d(1200)))
	assert.True(t, got.Encumbered().Equal(d(300)))
}

func TestSetBalanceFinancierCannotReleaseEncumberedFunds(t *testing.T) {
	s := newTestStore(t)
	trader, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader})
	fin, _ := s.Create(NewParty{Name: "X", Kind: model.KindFinancier, Balance: d(1000)})
	require.NoError(t, s.Update(func(tx *Tx) error {
		f, _ := tx.Party(fin.ID)
		f.AvailableFunds = d(100)
		return tx.AdjustLoan(trader.ID, fin.ID, d(900))
	}))

	_, err := s.SetBalance(fin.ID, d(500))
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	after, _ := s.Get(fin.ID)
	assert.True(t, after.Balance.Equal(d(1000)))
	assert.True(t, after.AvailableFunds.Equal(d(100)))
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader, Balance: d(100)})

	_, err := s.SetBalance(p.ID, d(-1))
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	_, err = s.SetBalance("missing", d(1))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAdjustLoan(t *testing.T) {
	s := newTestStore(t)
	trader, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader})
	fin, _ := s.Create(NewParty{Name: "X", Kind: model.KindFinancier, Balance: d(1000)})

	require.NoError(t, s.AdjustLoan(trader.ID, fin.ID, d(350)))
	got, _ := s.Get(trader.ID)
	assert.True(t, got.LoanTo(fin.ID).Equal(d(350)))

	require.NoError(t, s.AdjustLoan(trader.ID, fin.ID, d(-150)))
	got, _ = s.Get(trader.ID)
	assert.True(t, got.LoanTo(fin.ID).Equal(d(200)))

	require.NoError(t, s.AdjustLoan(trader.ID, fin.ID, d(-200)))
	got, _ = s.Get(trader.ID)
	_, present := got.Loans[fin.ID]
	assert.False(t, present, "fully repaid loan must be pruned")
}

func TestAdjustLoanCannotGoNegative(t *testing.T) {
	s := newTestStore(t)
	trader, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader})
	fin, _ := s.Create(NewParty{Name: "X", Kind: model.KindFinancier, Balance: d(1000)})
	require.NoError(t, s.AdjustLoan(trader.ID, fin.ID, d(100)))

	err := s.AdjustLoan(trader.ID, fin.ID, d(-100.01))
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	got, _ := s.Get(trader.ID)
	assert.True(t, got.LoanTo(fin.ID).Equal(d(100)))
}

func TestAdjustLoanChecksKinds(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader})
	b, _ := s.Create(NewParty{Name: "B", Kind: model.KindTrader})
	fin, _ := s.Create(NewParty{Name: "X", Kind: model.KindFinancier, Balance: d(1000)})

	assert.ErrorIs(t, s.AdjustLoan(a.ID, b.ID, d(1)), model.ErrInvalidOperation)
	assert.ErrorIs(t, s.AdjustLoan(fin.ID, fin.ID, d(1)), model.ErrInvalidOperation)
	assert.ErrorIs(t, s.AdjustLoan(a.ID, "ghost", d(1)), model.ErrNotFound)
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader, Balance: d(100)})
	b, _ := s.Create(NewParty{Name: "B", Kind: model.KindTrader, Balance: d(100)})

	boom := errors.New("boom")
	err := s.Update(func(tx *Tx) error {
		pa, _ := tx.Party(a.ID)
		pb, _ := tx.Party(b.ID)
		pa.Balance = pa.Balance.Sub(d(50))
		pb.Balance = pb.Balance.Add(d(50))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	gotA, _ := s.Get(a.ID)
	gotB, _ := s.Get(b.ID)
	assert.True(t, gotA.Balance.Equal(d(100)))
	assert.True(t, gotB.Balance.Equal(d(100)))
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Create(NewParty{Name: "A", Kind: model.KindTrader})

	name := "Trader Alpha"
	interests := model.Interests{Buy: []string{"Oil"}, Sell: []string{"Gold"}}
	got, err := s.UpdateProfile(p.ID, ProfileUpdate{Name: &name, Interests: &interests})
	require.NoError(t, err)
	assert.Equal(t, "Trader Alpha", got.Name)
	assert.Equal(t, []string{"Oil"}, got.Interests.Buy)

	empty := " "
	_, err = s.UpdateProfile(p.ID, ProfileUpdate{Name: &empty})
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
}

func TestRestoreAndSnapshot(t *testing.T) {
	s := newTestStore(t)
	parties := []model.Party{
		{ID: "t1", Name: "A", Kind: model.KindTrader, Balance: d(10)},
		{ID: "f1", Name: "X", Kind: model.KindFinancier, Balance: d(50), TotalFunds: d(50), AvailableFunds: d(40)},
	}
	require.NoError(t, s.Restore(parties))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "t1", snap[0].ID)
	assert.NotNil(t, snap[0].Loans, "traders get an empty loan map on restore")

	err := s.Restore([]model.Party{{ID: "x"}, {ID: "x"}})
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	assert.Len(t, s.List(), 2, "failed restore leaves previous contents")
}
