package reserve

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryRow aggregates one account's holdings for reporting.
type SummaryRow struct {
	Currency string `json:"currency"`
	// AvgRate is the volume-weighted average price over the retirement
	// ladder: the blended rate at which outstanding Fuel was recorded.
	AvgRate decimal.Decimal `json:"avg_rate"`
	// Reserves is the external currency held by the account.
	Reserves decimal.Decimal `json:"reserves"`
	// FuelCredits is the outstanding Fuel redeemable against the account.
	FuelCredits decimal.Decimal `json:"fuel_credits"`
}

// Summary is the multi-account reporting table plus its grand total.
type Summary struct {
	Rows        []SummaryRow    `json:"rows"`
	TotalFuel   decimal.Decimal `json:"total_fuel_credits"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// BuildSummary renders the reporting table from the accounts' public state.
// It reads only balances and ladder snapshots; the aggregation policy lives
// entirely outside the pricing core.
func BuildSummary(accounts []*Account) Summary {
	s := Summary{
		Rows:        make([]SummaryRow, 0, len(accounts)),
		TotalFuel:   decimal.Zero,
		GeneratedAt: time.Now().UTC(),
	}

	for _, acc := range accounts {
		notional := decimal.Zero
		fuel := decimal.Zero
		for _, t := range acc.RetirementLadder() {
			notional = notional.Add(t.Notional())
			fuel = fuel.Add(t.Volume)
		}

		avg := decimal.Zero
		if fuel.IsPositive() {
			avg = notional.Div(fuel)
		}

		s.Rows = append(s.Rows, SummaryRow{
			Currency:    acc.Pair(),
			AvgRate:     avg,
			Reserves:    acc.ReserveBalance(),
			FuelCredits: fuel,
		})
		s.TotalFuel = s.TotalFuel.Add(fuel)
	}

	return s
}
