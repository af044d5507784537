package api

import (
	"fmt"
	"strings"
)

func (r AccountCreateRequest) Validate() error {
	if strings.TrimSpace(r.Pair) == "" {
		return fmt.Errorf("pair is required")
	}
	if !r.SupplyFactor.IsPositive() {
		return fmt.Errorf("supplyFactor must be greater than 0")
	}
	if !r.StartPrice.IsPositive() {
		return fmt.Errorf("startPrice must be greater than 0")
	}
	if r.ReserveBalance.IsNegative() {
		return fmt.Errorf("reserveBalance must not be negative")
	}
	return nil
}

func (r VolumeRequest) Validate() error {
	if !r.Volume.IsPositive() {
		return fmt.Errorf("volume must be greater than 0")
	}
	return nil
}

func (r SupplyRequest) Validate() error {
	if !r.Factor.IsPositive() {
		return fmt.Errorf("factor must be greater than 0")
	}
	return nil
}
