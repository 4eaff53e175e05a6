// Package pricing keeps smoothed time-of-day price estimates per market.
package pricing

import (
	"math"

	"prosumer-sim/internal/model"
)

// Estimator holds an exponentially smoothed price per market and time of day.
type Estimator struct {
	lambda     float64
	volatility model.Prices
	tables     [model.NumMarkets][]float64
}

// New creates an estimator with all-zero tables. lambda is the weight kept
// from the previous estimate on each observation.
func New(slotsPerDay int, lambda float64, volatility model.Prices) *Estimator {
	e := &Estimator{lambda: lambda, volatility: volatility}
	for m := range e.tables {
		e.tables[m] = make([]float64, slotsPerDay)
	}
	return e
}

func (e *Estimator) SlotsPerDay() int { return len(e.tables[0]) }

// Observe folds realized prices into the estimate for time-of-day index tod.
func (e *Estimator) Observe(tod int, p model.Prices) {
	i := e.wrap(tod)
	for m := range e.tables {
		e.tables[m][i] = e.tables[m][i]*e.lambda + p[m]*(1-e.lambda)
	}
}

// Forecast estimates prices lead slots after time-of-day index tod. The
// estimate is discounted by sqrt(lead) times the market volatility and may
// turn negative.
func (e *Estimator) Forecast(tod, lead int) model.Prices {
	i := e.wrap(tod + lead)
	decay := math.Sqrt(float64(lead))
	var out model.Prices
	for m := range e.tables {
		out[m] = e.tables[m][i] * (1 - decay*e.volatility[m])
	}
	return out
}

// Table returns a copy of the smoothed table for m.
func (e *Estimator) Table(m model.Market) []float64 {
	out := make([]float64, len(e.tables[m]))
	copy(out, e.tables[m])
	return out
}

func (e *Estimator) wrap(i int) int {
	n := len(e.tables[0])
	return (i%n + n) % n
}
