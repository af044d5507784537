package reserve

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Side selects which side of the reserve a quote is taken from.
type Side string

const (
	// SideBuy quotes buying Fuel from the reserve (issuance).
	SideBuy Side = "buy"
	// SideSell quotes selling Fuel back to the reserve (retirement).
	SideSell Side = "sell"
)

// ParseSide maps a request token to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: side must be %q or %q, got %q", ErrInvalidArgument, SideBuy, SideSell, s)
	}
}

const seedTranches = 5

// IssueResult reports a completed issuance.
type IssueResult struct {
	Pair     string          `json:"pair"`
	Issued   decimal.Decimal `json:"issued"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Cost     decimal.Decimal `json:"cost"`
}

// RetireResult reports a completed retirement.
type RetireResult struct {
	Pair     string          `json:"pair"`
	Retired  decimal.Decimal `json:"retired"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Proceeds decimal.Decimal `json:"proceeds"`
}

// Account is a two-sided reserve for one currency pair. It issues Fuel
// against the external currency along an ascending issuance ladder and
// retires it along the retirement ladder, highest recorded price first.
//
// All state is guarded by a single lock per account: issue, retire and
// supply updates are mutually atomic, and quotes never observe a
// partially mutated ladder. Accounts are independent of each other.
type Account struct {
	mu sync.RWMutex

	pair         string
	supplyFactor decimal.Decimal
	balance      decimal.Decimal
	refillLimit  int // 0 = unbounded

	book     *Ladder // issuance ladder, consumed from the front
	reserves *Ladder // retirement ladder, consumed from the back
}

// Option customizes account construction.
type Option func(*Account)

// WithRefillLimit caps the number of ladder refills a single issuance may
// trigger. Zero means unbounded, in which case issuance never runs dry.
func WithRefillLimit(n int) Option {
	return func(a *Account) { a.refillLimit = n }
}

// New creates a reserve account and seeds both ladders.
//
// The issuance ladder gets seedTranches tranches at startPrice*(1 + i/100),
// ascending, each of volume supplyFactor*TrancheUnit. The retirement ladder is
// seeded with the same geometry mirrored downward, so its back sits exactly at
// startPrice: the first sell-back quote matches the starting issue price, and
// every price recorded by later issuance lands at or above it.
func New(pair string, supplyFactor, startPrice, reserveBalance decimal.Decimal, opts ...Option) (*Account, error) {
	if pair == "" {
		return nil, fmt.Errorf("%w: currency pair is required", ErrInvalidArgument)
	}
	if !supplyFactor.IsPositive() {
		return nil, fmt.Errorf("%w: supply factor must be positive, got %s", ErrInvalidArgument, supplyFactor)
	}
	if !startPrice.IsPositive() {
		return nil, fmt.Errorf("%w: start price must be positive, got %s", ErrInvalidArgument, startPrice)
	}
	if reserveBalance.IsNegative() {
		return nil, fmt.Errorf("%w: reserve balance must not be negative, got %s", ErrInvalidArgument, reserveBalance)
	}

	a := &Account{
		pair:         pair,
		supplyFactor: supplyFactor,
		balance:      reserveBalance,
		book:         NewLadder(),
		reserves:     NewLadder(),
	}
	for _, opt := range opts {
		opt(a)
	}

	vol := supplyFactor.Mul(TrancheUnit)
	for i := 0; i < seedTranches; i++ {
		step := PriceStep.Mul(decimal.NewFromInt(int64(i)))
		a.book.Append(Tranche{Price: startPrice.Mul(one.Add(step)), Volume: vol})

		down := PriceStep.Mul(decimal.NewFromInt(int64(seedTranches - 1 - i)))
		a.reserves.Append(Tranche{Price: startPrice.Mul(one.Sub(down)), Volume: vol})
	}

	return a, nil
}

// Pair returns the external currency identifier.
func (a *Account) Pair() string { return a.pair }

// ReserveBalance returns the external currency currently held.
func (a *Account) ReserveBalance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

// SupplyFactor returns the current supply factor.
func (a *Account) SupplyFactor() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.supplyFactor
}

// IssuanceLadder returns a snapshot of the issuance ladder, front first.
func (a *Account) IssuanceLadder() []Tranche {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.book.Snapshot()
}

// RetirementLadder returns a snapshot of the retirement ladder, front first.
func (a *Account) RetirementLadder() []Tranche {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reserves.Snapshot()
}

// Quote returns the marginal tranche for the given side: the lowest-price
// issuance tranche for SideBuy, the highest-price retirement tranche for
// SideSell. Read-only, O(1).
func (a *Account) Quote(side Side) (Tranche, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	switch side {
	case SideBuy:
		if t, ok := a.book.Front(); ok {
			return t, nil
		}
	case SideSell:
		if t, ok := a.reserves.Back(); ok {
			return t, nil
		}
	default:
		return Tranche{}, fmt.Errorf("%w: side must be %q or %q, got %q", ErrInvalidArgument, SideBuy, SideSell, side)
	}
	return Tranche{}, fmt.Errorf("%w: no %s tranches available for %s", ErrInsufficientLiquidity, side, a.pair)
}

// Issue consumes the issuance ladder from the front and emits volume Fuel,
// accruing cost at each marginal price. A fully consumed tranche is replaced
// by a new one at the back, one price step above the previous back, so the
// ladder self-replenishes and marginal prices grow monotonically.
//
// The consumed slices are recorded on the retirement ladder's back in
// consumption order, so the same units can later be retired LIFO at the
// exact prices they were issued at. The accrued cost is credited to the
// reserve balance. On any failure the account is left unchanged.
func (a *Account) Issue(volume decimal.Decimal) (IssueResult, error) {
	if !volume.IsPositive() {
		return IssueResult{}, fmt.Errorf("%w: issue volume must be positive, got %s", ErrInvalidArgument, volume)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	book := a.book.Clone()
	rec := a.reserves.Clone()

	requested := volume
	cost := decimal.Zero
	refills := 0

	for requested.IsPositive() {
		front, ok := book.Front()
		if !ok {
			return IssueResult{}, fmt.Errorf("%w: issuance ladder exhausted for %s with %s of %s unfilled",
				ErrInsufficientLiquidity, a.pair, requested, volume)
		}

		taken := decimal.Min(requested, front.Volume)
		cost = cost.Add(taken.Mul(front.Price))
		requested = requested.Sub(taken)
		rec.AppendMerge(Tranche{Price: front.Price, Volume: taken})

		if taken.Equal(front.Volume) {
			book.PopFront()
			if a.refillLimit == 0 || refills < a.refillLimit {
				next := front.Price
				if back, ok := book.Back(); ok {
					next = back.Price
				}
				book.AppendRefill(Tranche{
					Price:  next.Mul(one.Add(PriceStep)),
					Volume: a.supplyFactor.Mul(TrancheUnit),
				})
				refills++
			}
		} else {
			book.ShrinkFront(taken)
		}
	}

	a.book = book
	a.reserves = rec
	a.balance = a.balance.Add(cost)

	return IssueResult{
		Pair:     a.pair,
		Issued:   volume,
		AvgPrice: cost.Div(volume),
		Cost:     cost,
	}, nil
}

// Retire consumes the retirement ladder from the back (last issued, first
// retired) and pays out proceeds from the reserve balance. The retired
// slices are restored to the issuance ladder's front at the prices actually
// paid, and refill tranches at the ladder's deep end are unwound by the
// restored volume, so an issue followed by a retire of the same volume is a
// true round trip. All-or-nothing: the balance check happens before any
// state is committed.
func (a *Account) Retire(volume decimal.Decimal) (RetireResult, error) {
	if !volume.IsPositive() {
		return RetireResult{}, fmt.Errorf("%w: retire volume must be positive, got %s", ErrInvalidArgument, volume)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	book := a.book.Clone()
	rec := a.reserves.Clone()

	requested := volume
	proceeds := decimal.Zero
	var slices []Tranche // consumption order, prices descending

	for requested.IsPositive() {
		back, ok := rec.Back()
		if !ok {
			return RetireResult{}, fmt.Errorf("%w: retirement ladder exhausted for %s with %s of %s unfilled",
				ErrInsufficientLiquidity, a.pair, requested, volume)
		}

		taken := decimal.Min(requested, back.Volume)
		proceeds = proceeds.Add(taken.Mul(back.Price))
		requested = requested.Sub(taken)
		slices = append(slices, Tranche{Price: back.Price, Volume: taken})

		if taken.Equal(back.Volume) {
			rec.PopBack()
		} else {
			rec.ShrinkBack(taken)
		}
	}

	if proceeds.GreaterThan(a.balance) {
		return RetireResult{}, fmt.Errorf("%w: retiring %s of %s requires %s but reserve holds %s",
			ErrInsufficientReserve, volume, a.pair, proceeds, a.balance)
	}

	for _, s := range slices {
		book.PushFront(s)
	}

	// Unwind refill tranches from the deep end by the restored volume so the
	// ladder does not accumulate phantom supply across round trips. Seeded
	// tranches are never trimmed.
	trim := volume
	for trim.IsPositive() && book.BackIsRefill() {
		back, _ := book.Back()
		if trim.GreaterThanOrEqual(back.Volume) {
			book.PopBack()
			trim = trim.Sub(back.Volume)
		} else {
			book.ShrinkBack(trim)
			break
		}
	}

	a.book = book
	a.reserves = rec
	a.balance = a.balance.Sub(proceeds)

	return RetireResult{
		Pair:     a.pair,
		Retired:  volume,
		AvgPrice: proceeds.Div(volume),
		Proceeds: proceeds,
	}, nil
}

// UpdateSupply sets the supply factor used for tranches generated by future
// ladder refills. Existing tranches keep their original volume.
func (a *Account) UpdateSupply(factor decimal.Decimal) error {
	if !factor.IsPositive() {
		return fmt.Errorf("%w: supply factor must be positive, got %s", ErrInvalidArgument, factor)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.supplyFactor = factor
	return nil
}
