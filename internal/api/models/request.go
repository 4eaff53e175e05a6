package models

import (
	"prosumer-sim/internal/config"
	"prosumer-sim/internal/data"
)

// SimulateRequest represents the request body for running a simulation.
// Zero-valued sections fall back to the server's configuration.
type SimulateRequest struct {
	Simulation *config.SimulationConfig `json:"simulation,omitempty"`
	Dataset    DatasetSource            `json:"dataset"`
	Config     SimulationConfig         `json:"config"`
	Options    SimulateOptions          `json:"options,omitempty"`
}

// DatasetSource selects the series a simulation replays.
type DatasetSource struct {
	Type string `json:"type"` // "synthetic" (default), "files" or "inline"

	// synthetic
	Seed uint64 `json:"seed,omitempty"`

	// inline
	Data *data.Dataset `json:"data,omitempty"`
}

// SimulationConfig contains battery and market overrides
type SimulationConfig struct {
	BatteryFile string               `json:"battery_file,omitempty"` // preset id, e.g. "home_10kwh"
	Battery     config.BatteryConfig `json:"battery,omitempty"`
	Market      config.MarketConfig  `json:"market,omitempty"`
}

// SimulateOptions contains optional output parameters
type SimulateOptions struct {
	IncludeSteps   bool `json:"include_steps,omitempty"`
	IncludeActions bool `json:"include_actions,omitempty"`
}

// CompareRequest runs the base simulation once per variation on the same data.
type CompareRequest struct {
	Simulation *config.SimulationConfig `json:"simulation,omitempty"`
	Dataset    DatasetSource            `json:"dataset"`
	BaseConfig SimulationConfig         `json:"base_config"`
	Variations []Variation              `json:"variations" binding:"required,min=1,dive"`
}

// Variation defines a variation to test
type Variation struct {
	Name   string           `json:"name" binding:"required"`
	Config SimulationConfig `json:"config"`
}
