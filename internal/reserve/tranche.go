package reserve

import "github.com/shopspring/decimal"

// Tranche is a fixed-volume slice of one side of the market at a single
// marginal price. Tranches are immutable values; a ladder replaces a
// partially consumed tranche with a smaller one at the same price.
type Tranche struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// TrancheUnit is the base volume of a generated tranche before the supply
// factor is applied: 1,000,000 Fuel per price band.
var TrancheUnit = decimal.New(1, 6)

// PriceStep is the geometric step between adjacent price bands (1%).
var PriceStep = decimal.New(1, -2)

var one = decimal.NewFromInt(1)

// Notional returns Price * Volume in external-currency units.
func (t Tranche) Notional() decimal.Decimal {
	return t.Price.Mul(t.Volume)
}
