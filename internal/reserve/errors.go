package reserve

import "errors"

// Sentinel errors for the reserve pricing core. Callers match with errors.Is;
// wrapped variants carry the operation context.
var (
	// ErrInvalidArgument covers bad side tokens and non-positive volumes/factors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientLiquidity means a ladder could not supply the requested volume.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInsufficientReserve means a retirement would overdraw the reserve balance.
	ErrInsufficientReserve = errors.New("insufficient reserve")

	// ErrAccountExists is returned by Registry.Create for a duplicate currency pair.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound is returned by Registry.Get for an unknown currency pair.
	ErrAccountNotFound = errors.New("account not found")
)
