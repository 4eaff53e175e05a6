package model

// Action is a human-friendly operating mode of the battery for a slot.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromFlows classifies a slot by its net battery flow.
func ActionFromFlows(charge, discharge float64) Action {
	switch net := charge - discharge; {
	case net > 0:
		return ActionCharging
	case net < 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}

// ActionKind distinguishes entries of the market action log.
type ActionKind string

const (
	ActionPlaced    ActionKind = "PLACED"
	ActionRejected  ActionKind = "REJECTED"
	ActionFulfilled ActionKind = "FULFILLED"
)
