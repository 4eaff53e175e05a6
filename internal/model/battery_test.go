package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatteryParams(t *testing.T) {
	p := BatteryParams{MinKWh: 1, MaxKWh: 10, InitialKWh: 4}
	assert.NoError(t, p.Validate())
	assert.InDelta(t, 3, p.Usable(4), 1e-12)
	assert.Zero(t, p.Usable(0.5))
	assert.InDelta(t, 6, p.Headroom(4), 1e-12)
	assert.Zero(t, p.Headroom(11))
	assert.True(t, p.InBounds(1))
	assert.True(t, p.InBounds(10))
	assert.False(t, p.InBounds(10.5))

	assert.Error(t, BatteryParams{MaxKWh: 0}.Validate())
	assert.Error(t, BatteryParams{MinKWh: 5, MaxKWh: 4}.Validate())
	assert.Error(t, BatteryParams{MaxKWh: 4, InitialKWh: 5}.Validate())
	assert.Error(t, BatteryParams{MinKWh: -1, MaxKWh: 4}.Validate())
}

func TestActionFromFlows(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromFlows(2, 0))
	assert.Equal(t, ActionDischarging, ActionFromFlows(0, 2))
	assert.Equal(t, ActionIdle, ActionFromFlows(0, 0))
}

func TestContract(t *testing.T) {
	c := Contract{Market: DayAhead, Quantity: 10, Price: 0.25}
	assert.True(t, c.Equal(c))
	d := c
	d.Market = IntradayAuction
	assert.False(t, c.Equal(d))
}
