package model

import (
	"errors"
	"math"
)

// BatteryParams defines the household battery.
// Units: kWh for all fields.
type BatteryParams struct {
	Name       string
	MinKWh     float64
	MaxKWh     float64
	InitialKWh float64
}

func (p BatteryParams) Validate() error {
	if p.MinKWh < 0 {
		return errors.New("MinKWh must be >= 0")
	}
	if p.MaxKWh <= 0 {
		return errors.New("MaxKWh must be > 0")
	}
	if p.MinKWh > p.MaxKWh {
		return errors.New("MinKWh must be <= MaxKWh")
	}
	if p.InitialKWh < p.MinKWh || p.InitialKWh > p.MaxKWh {
		return errors.New("InitialKWh must be within [MinKWh, MaxKWh]")
	}
	return nil
}

// Usable is the energy that can be withdrawn from level before hitting MinKWh.
func (p BatteryParams) Usable(level float64) float64 {
	return math.Max(0, level-p.MinKWh)
}

// Headroom is the energy that can still be stored on top of level.
func (p BatteryParams) Headroom(level float64) float64 {
	return math.Max(0, p.MaxKWh-level)
}

// InBounds reports whether level is a feasible state of charge.
func (p BatteryParams) InBounds(level float64) bool {
	return level >= p.MinKWh && level <= p.MaxKWh
}
