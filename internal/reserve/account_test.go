package reserve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newUSD(t *testing.T, opts ...Option) *Account {
	t.Helper()
	acc, err := New("USD", d("1.0"), d("0.0001"), d("0"), opts...)
	require.NoError(t, err)
	return acc
}

func TestNew_SeedsLadders(t *testing.T) {
	acc := newUSD(t)

	book := acc.IssuanceLadder()
	require.Len(t, book, 5)
	wantBook := []string{"0.0001", "0.000101", "0.000102", "0.000103", "0.000104"}
	for i, want := range wantBook {
		assert.True(t, book[i].Price.Equal(d(want)), "issuance tranche %d price = %s, want %s", i, book[i].Price, want)
		assert.True(t, book[i].Volume.Equal(d("1000000")))
	}

	rec := acc.RetirementLadder()
	require.Len(t, rec, 5)
	wantRec := []string{"0.000096", "0.000097", "0.000098", "0.000099", "0.0001"}
	for i, want := range wantRec {
		assert.True(t, rec[i].Price.Equal(d(want)), "retirement tranche %d price = %s, want %s", i, rec[i].Price, want)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		pair    string
		factor  string
		price   string
		balance string
	}{
		{"empty pair", "", "1", "0.0001", "0"},
		{"zero factor", "USD", "0", "0.0001", "0"},
		{"negative factor", "USD", "-1", "0.0001", "0"},
		{"zero price", "USD", "1", "0", "0"},
		{"negative balance", "USD", "1", "0.0001", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.pair, d(tc.factor), d(tc.price), d(tc.balance))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestQuote(t *testing.T) {
	acc := newUSD(t)

	buy, err := acc.Quote(SideBuy)
	require.NoError(t, err)
	assert.True(t, buy.Price.Equal(d("0.0001")))
	assert.True(t, buy.Volume.Equal(d("1000000")))

	sell, err := acc.Quote(SideSell)
	require.NoError(t, err)
	assert.True(t, sell.Price.Equal(d("0.0001")))

	_, err = acc.Quote(Side("hold"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseSide(t *testing.T) {
	side, err := ParseSide(" BUY ")
	require.NoError(t, err)
	assert.Equal(t, SideBuy, side)

	side, err = ParseSide("sell")
	require.NoError(t, err)
	assert.Equal(t, SideSell, side)

	_, err = ParseSide("short")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIssue_WalksLadderAndAccruesCost(t *testing.T) {
	acc := newUSD(t)

	res, err := acc.Issue(d("1500000"))
	require.NoError(t, err)

	// 1,000,000 @ 0.0001 + 500,000 @ 0.000101 = 100 + 50.5
	assert.True(t, res.Cost.Equal(d("150.5")), "cost = %s", res.Cost)
	assert.True(t, res.Issued.Equal(d("1500000")))
	assert.True(t, acc.ReserveBalance().Equal(d("150.5")))

	// Front tranche fully consumed, second partially.
	buy, err := acc.Quote(SideBuy)
	require.NoError(t, err)
	assert.True(t, buy.Price.Equal(d("0.000101")))
	assert.True(t, buy.Volume.Equal(d("500000")))

	// The consumed tranche was replenished one step above the previous back.
	book := acc.IssuanceLadder()
	last := book[len(book)-1]
	assert.True(t, last.Price.Equal(d("0.00010504")), "refill price = %s", last.Price)
	assert.True(t, last.Volume.Equal(d("1000000")))

	// The issued volume is retirable at the prices actually paid.
	sell, err := acc.Quote(SideSell)
	require.NoError(t, err)
	assert.True(t, sell.Price.Equal(d("0.000101")))
}

func TestIssue_InvalidVolume(t *testing.T) {
	acc := newUSD(t)

	_, err := acc.Issue(d("0"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = acc.Issue(d("-10"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.True(t, acc.ReserveBalance().IsZero())
}

func TestIssue_RefillLimitExhausted(t *testing.T) {
	acc := newUSD(t, WithRefillLimit(1))

	before := acc.IssuanceLadder()

	// 5 seed tranches + 1 refill = 6,000,000 available.
	_, err := acc.Issue(d("7000000"))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	// No partial mutation on failure.
	assert.Equal(t, before, acc.IssuanceLadder())
	assert.True(t, acc.ReserveBalance().IsZero())
}

func TestIssue_MarginalPriceMonotone(t *testing.T) {
	acc := newUSD(t)

	prev := decimal.Zero
	for i := 0; i < 12; i++ {
		_, err := acc.Issue(d("700000"))
		require.NoError(t, err)

		buy, err := acc.Quote(SideBuy)
		require.NoError(t, err)
		assert.True(t, buy.Price.GreaterThanOrEqual(prev),
			"marginal price regressed: %s after %s", buy.Price, prev)
		prev = buy.Price

		require.NoError(t, validateAccount(acc))
	}
}

func TestRetire_RoundTripRestoresAccount(t *testing.T) {
	acc := newUSD(t)

	bookBefore := acc.IssuanceLadder()
	recBefore := acc.RetirementLadder()

	issued, err := acc.Issue(d("1500000"))
	require.NoError(t, err)

	retired, err := acc.Retire(d("1500000"))
	require.NoError(t, err)

	assert.True(t, retired.Proceeds.Equal(issued.Cost), "proceeds %s != cost %s", retired.Proceeds, issued.Cost)
	assert.True(t, acc.ReserveBalance().IsZero(), "balance = %s", acc.ReserveBalance())
	assert.Equal(t, bookBefore, acc.IssuanceLadder())
	assert.Equal(t, recBefore, acc.RetirementLadder())
}

func TestRetire_LIFOConsumesHighestPriceFirst(t *testing.T) {
	acc := newUSD(t)

	_, err := acc.Issue(d("2500000"))
	require.NoError(t, err)

	// The most recent (highest priced) slice was 500,000 @ 0.000102.
	res, err := acc.Retire(d("400000"))
	require.NoError(t, err)
	assert.True(t, res.AvgPrice.Equal(d("0.000102")))
	assert.True(t, res.Proceeds.Equal(d("40.8")))
}

func TestRetire_InsufficientReserveLeavesStateUntouched(t *testing.T) {
	acc := newUSD(t)

	bookBefore := acc.IssuanceLadder()
	recBefore := acc.RetirementLadder()

	// Balance is zero; any retirement against the seeded ladder overdraws.
	_, err := acc.Retire(d("2000000"))
	require.ErrorIs(t, err, ErrInsufficientReserve)

	assert.True(t, acc.ReserveBalance().IsZero())
	assert.Equal(t, bookBefore, acc.IssuanceLadder())
	assert.Equal(t, recBefore, acc.RetirementLadder())
}

func TestRetire_InvalidVolume(t *testing.T) {
	acc := newUSD(t)

	_, err := acc.Retire(d("-1"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRetire_LadderExhausted(t *testing.T) {
	acc, err := New("USD", d("1.0"), d("0.0001"), d("100000"))
	require.NoError(t, err)

	// More than the whole retirement ladder (5,000,000) holds.
	_, err = acc.Retire(d("6000000"))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestUpdateSupply_AffectsOnlyFutureRefills(t *testing.T) {
	acc := newUSD(t)

	require.NoError(t, acc.UpdateSupply(d("0.5")))

	// Pre-existing tranches keep their original volume.
	for _, tr := range acc.IssuanceLadder() {
		assert.True(t, tr.Volume.Equal(d("1000000")))
	}

	// A refill-triggering issue generates tranches at the new size.
	_, err := acc.Issue(d("1000000"))
	require.NoError(t, err)

	book := acc.IssuanceLadder()
	last := book[len(book)-1]
	assert.True(t, last.Volume.Equal(d("500000")), "refill volume = %s", last.Volume)
	for _, tr := range book[:len(book)-1] {
		assert.True(t, tr.Volume.Equal(d("1000000")))
	}
}

func TestUpdateSupply_Invalid(t *testing.T) {
	acc := newUSD(t)

	err := acc.UpdateSupply(d("0"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.True(t, acc.SupplyFactor().Equal(d("1.0")))
}

func TestConservation_MixedSequence(t *testing.T) {
	acc, err := New("EUR", d("2"), d("0.00025"), d("1000"))
	require.NoError(t, err)

	balance := acc.ReserveBalance()

	ops := []struct {
		retire bool
		volume string
	}{
		{false, "1200000"},
		{false, "3500000"},
		{true, "900000"},
		{false, "250000"},
		{true, "2000000"},
		{false, "5000000"},
		{true, "100000"},
	}

	for i, op := range ops {
		if op.retire {
			res, err := acc.Retire(d(op.volume))
			require.NoError(t, err, "op %d", i)
			balance = balance.Sub(res.Proceeds)
			assert.False(t, balance.IsNegative(), "op %d drove balance negative", i)
		} else {
			res, err := acc.Issue(d(op.volume))
			require.NoError(t, err, "op %d", i)
			balance = balance.Add(res.Cost)
		}

		assert.True(t, acc.ReserveBalance().Equal(balance),
			"op %d: balance = %s, want %s", i, acc.ReserveBalance(), balance)
		require.NoError(t, validateAccount(acc), "op %d", i)
	}
}

// validateAccount rebuilds ladders from snapshots and checks the shared
// ladder invariant on both sides.
func validateAccount(acc *Account) error {
	for _, side := range [][]Tranche{acc.IssuanceLadder(), acc.RetirementLadder()} {
		l := NewLadder()
		for _, t := range side {
			l.Append(t)
		}
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}
