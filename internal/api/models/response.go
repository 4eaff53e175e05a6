package models

import "time"

// SimulateResponse represents the response from a simulation run
type SimulateResponse struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Saved   bool            `json:"saved"`
	Summary SimulateSummary `json:"summary"`
	Steps   []StepRow       `json:"steps,omitempty"`
	Actions []ActionRow     `json:"actions,omitempty"`
}

// SimulateSummary contains aggregated run results. Money is rendered as
// fixed-point strings to keep decimal precision.
type SimulateSummary struct {
	Window TimeWindow `json:"window"`
	Steps  int        `json:"steps"`

	Gains       map[string]string `json:"gains"`
	MarketGains string            `json:"market_gains"`
	GridGains   string            `json:"grid_gains"`
	GridCost    string            `json:"grid_cost"`
	Net         string            `json:"net"`

	FinalBatteryKWh float64 `json:"final_battery_kwh"`

	Placed    int `json:"placed"`
	Rejected  int `json:"rejected"`
	Fulfilled int `json:"fulfilled"`
	Open      int `json:"open_contracts"`

	Violations           int            `json:"violations"`
	ViolationsByKind     map[string]int `json:"violations_by_kind,omitempty"`
	InfeasibleRebalances int            `json:"infeasible_rebalances"`

	Markets []MarketStats `json:"markets,omitempty"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarketStats summarizes the prices realized during a run.
type MarketStats struct {
	Rank         int     `json:"rank"`
	Market       string  `json:"market"`
	Count        int     `json:"count"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`
	AboveRetail  float64 `json:"above_retail"`
	BelowFeedIn  float64 `json:"below_feed_in"`
}

// StepRow represents one slot of the run ledger
type StepRow struct {
	Index      int                `json:"index"`
	Time       time.Time          `json:"time"`
	Prices     map[string]float64 `json:"prices"`
	Action     string             `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	LoadKWh    float64            `json:"load_kwh"`
	PVKWh      float64            `json:"pv_kwh"`
	BatteryKWh float64            `json:"battery_kwh"`
	Charge     float64            `json:"charge_kwh"`
	Discharge  float64            `json:"discharge_kwh"`
	GridDemand float64            `json:"grid_demand_kwh"`
	GridSupply float64            `json:"grid_supply_kwh"`
	Delivered  float64            `json:"delivered_kwh"`
	Net        string             `json:"net"`
	Violations int                `json:"violations,omitempty"`
}

// ActionRow represents one market action
type ActionRow struct {
	Time         time.Time `json:"time"`
	Kind         string    `json:"kind"` // "PLACED", "REJECTED", "FULFILLED"
	Market       string    `json:"market"`
	DeliveryTime time.Time `json:"delivery_time"`
	QuantityKWh  float64   `json:"quantity_kwh"`
	Price        float64   `json:"price"`
}

// CompareResponse represents the response from a comparison
type CompareResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string          `json:"name"`
	ID      string          `json:"id"`
	Summary SimulateSummary `json:"summary"`
}

// RunResponse is a stored run summary.
type RunResponse struct {
	ID                   string            `json:"id"`
	CreatedAt            time.Time         `json:"created_at"`
	Start                time.Time         `json:"start"`
	SlotMinutes          int               `json:"slot_minutes"`
	Steps                int               `json:"steps"`
	Battery              string            `json:"battery,omitempty"`
	Gains                map[string]string `json:"gains"`
	GridGains            string            `json:"grid_gains"`
	GridCost             string            `json:"grid_cost"`
	Net                  string            `json:"net"`
	FinalBatteryKWh      float64           `json:"final_battery_kwh"`
	Violations           int               `json:"violations"`
	InfeasibleRebalances int               `json:"infeasible_rebalances"`
	OpenContracts        int               `json:"open_contracts"`
}

// MarketInfo describes the rules of one market
type MarketInfo struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	GateClosure      string `json:"gate_closure,omitempty"` // "HH:MM:SS" on the day before delivery
	GranularitySlots int    `json:"granularity_slots"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Specs BatterySpecs `json:"specs"`
}

// BatterySpecs contains battery specifications
type BatterySpecs struct {
	MinKWh     float64 `json:"min_kwh"`
	MaxKWh     float64 `json:"max_kwh"`
	InitialKWh float64 `json:"initial_kwh"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
