package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"prosumer-sim/internal/agent"
	"prosumer-sim/internal/model"
)

// StepRow is one row of per-slot output.
// This is the primary artifact for "what happened" in a run.
type StepRow struct {
	Index int
	Time  time.Time

	Prices model.Prices

	Action model.Action

	Load       float64
	PV         float64
	Battery    float64
	Charge     float64
	Discharge  float64
	GridDemand float64
	GridSupply float64
	Delivered  float64

	// Cumulative gains per market and from the grid, and the cumulative grid cost.
	Gains     [model.NumMarkets]decimal.Decimal
	GridGains decimal.Decimal
	GridCost  decimal.Decimal

	Violations int
}

// Net is everything earned so far minus what the grid cost.
func (r StepRow) Net() decimal.Decimal {
	total := r.GridGains.Sub(r.GridCost)
	for _, g := range r.Gains {
		total = total.Add(g)
	}
	return total
}

// ActionRow is one entry of the market action log.
type ActionRow struct {
	Time         time.Time
	Kind         model.ActionKind
	Market       model.Market
	DeliveryTime time.Time
	Quantity     float64
	Price        float64
}

type Result struct {
	ID    string
	Start time.Time
	Slot  time.Duration

	Steps   []StepRow
	Actions []ActionRow

	Violations           []agent.Violation
	ViolationCount       int
	InfeasibleRebalances int

	Gains     [model.NumMarkets]decimal.Decimal
	GridGains decimal.Decimal
	GridCost  decimal.Decimal

	FinalBattery  float64
	OpenContracts int
}

// Net is the total market and feed-in revenue minus grid import cost.
func (r *Result) Net() decimal.Decimal {
	total := r.GridGains.Sub(r.GridCost)
	for _, g := range r.Gains {
		total = total.Add(g)
	}
	return total
}

// MarketGains sums the revenue of all markets.
func (r *Result) MarketGains() decimal.Decimal {
	total := decimal.Zero
	for _, g := range r.Gains {
		total = total.Add(g)
	}
	return total
}

// CountActions counts log entries of the given kind.
func (r *Result) CountActions(kind model.ActionKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func stepRow(rep agent.StepReport) StepRow {
	s := rep.Slot
	return StepRow{
		Index:      rep.Index,
		Time:       rep.Time,
		Prices:     rep.Prices,
		Action:     model.ActionFromFlows(s.Charge, s.Discharge),
		Load:       s.Load,
		PV:         s.PV,
		Battery:    s.Battery,
		Charge:     s.Charge,
		Discharge:  s.Discharge,
		GridDemand: s.GridDemand,
		GridSupply: s.GridSupply,
		Delivered:  rep.Delivered,
		Gains:      rep.Gains,
		GridGains:  rep.GridGains,
		GridCost:   rep.GridCost,
		Violations: len(rep.Violations),
	}
}

func actionRow(a agent.ActionRecord) ActionRow {
	return ActionRow{
		Time:         a.Time,
		Kind:         a.Kind,
		Market:       a.Contract.Market,
		DeliveryTime: a.Contract.DeliveryTime,
		Quantity:     a.Contract.Quantity,
		Price:        a.Contract.Price,
	}
}
