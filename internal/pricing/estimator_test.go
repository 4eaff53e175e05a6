package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"prosumer-sim/internal/model"
)

func TestObserve_Smoothing(t *testing.T) {
	e := New(4, 0.75, model.Prices{})
	e.Observe(1, model.Prices{model.DayAhead: 0.4, model.IntradayAuction: 0.8, model.IntradayContinuous: -0.4})

	assert.InDelta(t, 0.1, e.Table(model.DayAhead)[1], 1e-12)
	assert.InDelta(t, 0.2, e.Table(model.IntradayAuction)[1], 1e-12)
	assert.InDelta(t, -0.1, e.Table(model.IntradayContinuous)[1], 1e-12)

	e.Observe(1, model.Prices{model.DayAhead: 0.4})
	assert.InDelta(t, 0.175, e.Table(model.DayAhead)[1], 1e-12)
	assert.Zero(t, e.Table(model.DayAhead)[0], "other times of day are untouched")
}

func TestObserve_LambdaZeroTracksLastPrice(t *testing.T) {
	e := New(4, 0, model.Prices{})
	e.Observe(2, model.Prices{model.DayAhead: 0.3})
	e.Observe(2, model.Prices{model.DayAhead: 0.5})
	assert.InDelta(t, 0.5, e.Table(model.DayAhead)[2], 1e-12)
}

func TestForecast_WrapsAndDecays(t *testing.T) {
	vol := model.Prices{model.DayAhead: 0.1, model.IntradayAuction: 0, model.IntradayContinuous: 0.8}
	e := New(4, 0, vol)
	e.Observe(1, model.Prices{0.2, 0.2, 0.2})

	// lead 0 is the estimate itself
	got := e.Forecast(1, 0)
	assert.InDelta(t, 0.2, got[model.DayAhead], 1e-12)

	// 3 + 2 wraps to index 1; decay is sqrt(2)*volatility
	got = e.Forecast(3, 2)
	assert.InDelta(t, 0.2*(1-math.Sqrt2*0.1), got[model.DayAhead], 1e-12)
	assert.InDelta(t, 0.2, got[model.IntradayAuction], 1e-12)
	assert.Less(t, got[model.IntradayContinuous], 0.0, "large leads may turn the estimate negative")
}

func TestTable_IsACopy(t *testing.T) {
	e := New(2, 0, model.Prices{})
	e.Observe(0, model.Prices{1, 1, 1})
	tbl := e.Table(model.DayAhead)
	tbl[0] = 99
	assert.InDelta(t, 1, e.Table(model.DayAhead)[0], 1e-12)
	assert.Equal(t, 2, e.SlotsPerDay())
}
