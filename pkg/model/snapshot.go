package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is the projected state of one reserve account, written to
// the snapshot table after every mutating operation and cached for reporting.
type AccountSnapshot struct {
	Pair            string          `json:"pair"`
	ReserveBalance  decimal.Decimal `json:"reserve_balance"`
	SupplyFactor    decimal.Decimal `json:"supply_factor"`
	MarginalPrice   decimal.Decimal `json:"marginal_price"`
	FuelOutstanding decimal.Decimal `json:"fuel_outstanding"`
	AsOf            time.Time       `json:"as_of"`
}
