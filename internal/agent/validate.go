package agent

import (
	"fmt"
	"math"
	"time"

	"prosumer-sim/internal/forecast"
	"prosumer-sim/internal/model"
)

// BalanceTolerance is the largest energy imbalance accepted for a slot, in kWh.
const BalanceTolerance = 1e-6

type ViolationKind string

const (
	ViolationNegativeFlow    ViolationKind = "negative_flow"
	ViolationBatteryBounds   ViolationKind = "battery_bounds"
	ViolationGridBothWays    ViolationKind = "grid_both_ways"
	ViolationBatteryBothWays ViolationKind = "battery_both_ways"
	ViolationLoadBalance     ViolationKind = "load_balance"
	ViolationRejectedOffer   ViolationKind = "rejected_offer"
)

// Violation is a breached physical or market constraint. Violations are
// counted and reported; they never stop a run.
type Violation struct {
	Time   time.Time
	Kind   ViolationKind
	Detail string
}

// Check validates a realized slot. delivered is the energy handed to the
// markets during the slot.
func Check(at time.Time, e forecast.Entry, delivered float64, battery model.BatteryParams) []Violation {
	var out []Violation
	add := func(kind ViolationKind, format string, args ...any) {
		out = append(out, Violation{Time: at, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}

	flows := []struct {
		name  string
		value float64
	}{
		{"charge", e.Charge},
		{"discharge", e.Discharge},
		{"grid_demand", e.GridDemand},
		{"grid_supply", e.GridSupply},
	}
	for _, f := range flows {
		if f.value < 0 {
			add(ViolationNegativeFlow, "%s=%.6f", f.name, f.value)
		}
	}

	if !battery.InBounds(e.Battery) {
		add(ViolationBatteryBounds, "battery=%.6f outside [%.6f, %.6f]", e.Battery, battery.MinKWh, battery.MaxKWh)
	}
	if e.GridDemand > 0 && e.GridSupply > 0 {
		add(ViolationGridBothWays, "grid_demand=%.6f grid_supply=%.6f", e.GridDemand, e.GridSupply)
	}
	if e.Charge > 0 && e.Discharge > 0 {
		add(ViolationBatteryBothWays, "charge=%.6f discharge=%.6f", e.Charge, e.Discharge)
	}

	balance := e.PV + e.Discharge - e.Charge + e.GridDemand - e.GridSupply - delivered - e.Load
	if math.Abs(balance) > BalanceTolerance {
		add(ViolationLoadBalance, "balance=%.9f", balance)
	}
	return out
}
