package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
)

// QuoteResponse carries the marginal tranche for a side.
type QuoteResponse struct {
	Pair   string          `json:"pair"`
	Side   string          `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// AccountResponse is the public projection of one reserve account.
type AccountResponse struct {
	Pair           string          `json:"pair"`
	SupplyFactor   decimal.Decimal `json:"supplyFactor"`
	ReserveBalance decimal.Decimal `json:"reserveBalance"`
}

// LaddersResponse exposes both ladder snapshots for reporting.
type LaddersResponse struct {
	Pair       string            `json:"pair"`
	Issuance   []reserve.Tranche `json:"issuance"`
	Retirement []reserve.Tranche `json:"retirement"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps the core error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, reserve.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, reserve.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, reserve.ErrAccountExists):
		return fiber.StatusConflict
	case errors.Is(err, reserve.ErrInsufficientReserve):
		return fiber.StatusConflict
	case errors.Is(err, reserve.ErrInsufficientLiquidity):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
