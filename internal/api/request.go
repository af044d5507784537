package api

import "github.com/shopspring/decimal"

// AccountCreateRequest is the payload to register a new reserve account.
type AccountCreateRequest struct {
	Pair           string          `json:"pair" example:"USD"`
	SupplyFactor   decimal.Decimal `json:"supplyFactor" example:"1.0"`
	StartPrice     decimal.Decimal `json:"startPrice" example:"0.0001"`
	ReserveBalance decimal.Decimal `json:"reserveBalance" example:"0"`
}

// VolumeRequest is the payload for issue and retire operations.
type VolumeRequest struct {
	Volume decimal.Decimal `json:"volume" example:"1500000"`
}

// SupplyRequest is the payload for supply factor updates.
type SupplyRequest struct {
	Factor decimal.Decimal `json:"factor" example:"0.5"`
}
