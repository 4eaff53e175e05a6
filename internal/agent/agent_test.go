package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-sim/internal/household"
	"prosumer-sim/internal/model"
)

func TestParamsValidate(t *testing.T) {
	good := testParams(t0, model.BatteryParams{MaxKWh: 10})
	require.NoError(t, good.Validate())
	assert.Equal(t, 96, good.SlotsPerDay())

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"slot does not divide a day", func(p *Params) { p.Slot = 7 * time.Minute }},
		{"zero slot", func(p *Params) { p.Slot = 0 }},
		{"lambda above one", func(p *Params) { p.Lambda = 1.5 }},
		{"negative minimum offer", func(p *Params) { p.MinOfferQuantity = -1 }},
		{"bad battery", func(p *Params) { p.Battery.InitialKWh = 20 }},
		{"closure off the slot grid", func(p *Params) {
			p.Markets = model.NewMarketTable(11*time.Hour+40*time.Minute, 15*time.Hour+45*time.Minute)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	p := testParams(t0, model.BatteryParams{MaxKWh: 10})
	_, err := New(p, nil, household.NewSeriesHousehold(nil, nil), nil)
	assert.Error(t, err)
	_, err = New(p, &fakeMarket{}, nil, nil)
	assert.Error(t, err)
}

func TestStep_BootstrapsAndBooksGrid(t *testing.T) {
	p := testParams(t0, model.BatteryParams{MaxKWh: 2})
	mkt := &fakeMarket{}
	// slot 0: 5 kWh surplus, 2 stored and 3 exported; slot 1: 4 kWh deficit,
	// 2 from the battery and 2 imported.
	a := newTestAgent(t, p, mkt, []float64{5, 0, 0}, []float64{0, 4, 0})

	rep, err := a.Step()
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Index)
	assert.InDelta(t, 2, rep.Slot.Charge, 1e-9)
	assert.InDelta(t, 3, rep.Slot.GridSupply, 1e-9)
	assert.Equal(t, "0.24", rep.GridGains.StringFixed(2))
	assert.Empty(t, rep.Violations)

	rep, err = a.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Index)
	assert.InDelta(t, 2, rep.Slot.Discharge, 1e-9)
	assert.InDelta(t, 2, rep.Slot.GridDemand, 1e-9)
	assert.InDelta(t, 0, rep.Slot.Battery, 1e-9)
	assert.Equal(t, "0.60", rep.GridCost.StringFixed(2))
	assert.Empty(t, rep.Violations)
	assert.Empty(t, mkt.offers)
}

func TestStep_SettlesContractsAtDelivery(t *testing.T) {
	p := testParams(t0, model.BatteryParams{MaxKWh: 10})
	mkt := &fakeMarket{}
	a := newTestAgent(t, p, mkt, []float64{0, 40, 0, 0}, []float64{0, 0, 0, 0})
	seedNext(a, flat(0.40))

	rep, err := a.Step()
	require.NoError(t, err)
	require.Len(t, rep.Actions, 1)
	assert.Equal(t, model.ActionPlaced, rep.Actions[0].Kind)

	rep, err = a.Step()
	require.NoError(t, err)
	require.Len(t, rep.Actions, 1)
	assert.Equal(t, model.ActionFulfilled, rep.Actions[0].Kind)
	assert.InDelta(t, 40, rep.Delivered, 1e-9)
	assert.Equal(t, "16.00", rep.Gains[model.IntradayContinuous].StringFixed(2))
	assert.Empty(t, rep.Violations)
	assert.Empty(t, a.OpenContracts())
}
