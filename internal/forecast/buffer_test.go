package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	pv, load   []float64
	pvN, loadN int
}

func (s *countingSource) NextPV() (float64, error) {
	if s.pvN >= len(s.pv) {
		return 0, errors.New("no pv")
	}
	s.pvN++
	return s.pv[s.pvN-1], nil
}

func (s *countingSource) NextLoad() (float64, error) {
	if s.loadN >= len(s.load) {
		return 0, errors.New("no load")
	}
	s.loadN++
	return s.load[s.loadN-1], nil
}

func TestEnsure_Idempotent(t *testing.T) {
	src := &countingSource{pv: []float64{1, 2, 3, 4}, load: []float64{0, 1, 1, 1}}
	b := New(src, 8, 5)

	require.NoError(t, b.Ensure(2))
	assert.Equal(t, 3, src.pvN)
	assert.Equal(t, 3, src.loadN)
	before, err := b.Get(2)
	require.NoError(t, err)

	require.NoError(t, b.Ensure(2))
	require.NoError(t, b.Ensure(1))
	after, err := b.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 3, src.pvN, "already valid offsets must not re-fetch")
	assert.Equal(t, before, after)
}

func TestEnsure_AggregatesSurplusAndCarriesBattery(t *testing.T) {
	src := &countingSource{pv: []float64{4, 0, 2}, load: []float64{1, 3, 2}}
	b := New(src, 4, 7)

	want := []float64{3, 0, 0}
	for i, w := range want {
		e, err := b.Get(i)
		require.NoError(t, err)
		assert.InDelta(t, w, e.AggregatedSurplus, 1e-12, "offset %d", i)
		assert.InDelta(t, 7, e.Battery, 1e-12)
	}
}

func TestEnsure_Horizon(t *testing.T) {
	b := New(&countingSource{}, 4, 0)
	assert.ErrorIs(t, b.Ensure(4), ErrHorizon)
	assert.ErrorIs(t, b.Ensure(-1), ErrHorizon)
}

func TestEnsure_SourceErrorPropagates(t *testing.T) {
	b := New(&countingSource{pv: []float64{1}, load: []float64{1}}, 4, 0)
	require.NoError(t, b.Ensure(0))
	assert.Error(t, b.Ensure(1))
	assert.Equal(t, 1, b.Valid())
}

func TestApplyDelta_PropagatesToLaterSlots(t *testing.T) {
	src := &countingSource{pv: []float64{0, 10, 0, 0}, load: []float64{0, 0, 0, 0}}
	b := New(src, 8, 2)
	require.NoError(t, b.Ensure(3))

	require.NoError(t, b.ApplyDelta(1, Delta{Charge: 6}))

	e0, _ := b.Get(0)
	assert.InDelta(t, 2, e0.Battery, 1e-12, "earlier slots are untouched")
	for i := 1; i <= 3; i++ {
		e, _ := b.Get(i)
		assert.InDelta(t, 8, e.Battery, 1e-12)
		assert.InDelta(t, 4, e.AggregatedSurplus, 1e-12)
	}
	e1, _ := b.Get(1)
	assert.InDelta(t, 6, e1.Charge, 1e-12)
	e2, _ := b.Get(2)
	assert.Zero(t, e2.Charge, "flows only change at the committed slot")
}

func TestApplyDelta_DeliveredReducesSurplus(t *testing.T) {
	src := &countingSource{pv: []float64{0, 10, 0}, load: []float64{0, 0, 0}}
	b := New(src, 4, 5)
	require.NoError(t, b.Ensure(2))

	require.NoError(t, b.ApplyDelta(1, Delta{Discharge: 3, Delivered: 13}))
	low, err := b.MinSurplusFrom(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, low, 1e-12)
	e2, _ := b.Get(2)
	assert.InDelta(t, 2, e2.Battery, 1e-12)
}

func TestApplyDelta_ClampsAndReportsShortfall(t *testing.T) {
	src := &countingSource{pv: []float64{0, 1, 0}, load: []float64{0, 0, 0}}
	b := New(src, 4, 2)
	require.NoError(t, b.Ensure(2))

	err := b.ApplyDelta(1, Delta{Discharge: 5, Delivered: 6})
	var rerr *RebalanceError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, ErrInfeasibleRebalance)
	require.Len(t, rerr.Shortfalls, 2)
	assert.Equal(t, 1, rerr.Shortfalls[0].Offset)
	assert.InDelta(t, 3, rerr.Shortfalls[0].Shortfall, 1e-12)
	assert.InDelta(t, 0, rerr.Shortfalls[0].Available, 1e-12)

	for i := 1; i <= 2; i++ {
		e, _ := b.Get(i)
		assert.InDelta(t, 0, e.Battery, 1e-12, "battery is clamped at zero")
	}
	e1, _ := b.Get(1)
	// 1 (pv) + 5 (discharge) - 6 (delivered) - 3 (clamped back out of surplus)
	assert.InDelta(t, -3, e1.AggregatedSurplus, 1e-12)
}

func TestApplyDelta_ClampBackedBySurplusIsNotAnError(t *testing.T) {
	src := &countingSource{pv: []float64{0, 10}, load: []float64{0, 0}}
	b := New(src, 4, 1)
	require.NoError(t, b.Ensure(1))

	require.NoError(t, b.ApplyDelta(1, Delta{Discharge: 3}))
	e, _ := b.Get(1)
	assert.InDelta(t, 0, e.Battery, 1e-12)
	assert.InDelta(t, 11, e.AggregatedSurplus, 1e-12)
}

func TestApplyDelta_ClampsAtFloor(t *testing.T) {
	src := &countingSource{pv: []float64{0, 0, 0}, load: []float64{0, 0, 0}}
	b := New(src, 4, 3)
	b.SetFloor(1)
	require.NoError(t, b.Ensure(2))

	require.NoError(t, b.ApplyDelta(1, Delta{Discharge: 2.5}))
	for i := 1; i <= 2; i++ {
		e, _ := b.Get(i)
		assert.InDelta(t, 1, e.Battery, 1e-12)
		assert.InDelta(t, 2, e.AggregatedSurplus, 1e-12)
	}

	err := b.ApplyDelta(2, Delta{Discharge: 1, Delivered: 2.5})
	var rerr *RebalanceError
	require.ErrorAs(t, err, &rerr)
	require.Len(t, rerr.Shortfalls, 1)
	assert.Equal(t, Shortfall{Offset: 2, Shortfall: 1, Available: 0.5}, rerr.Shortfalls[0])

	e, _ := b.Get(2)
	assert.InDelta(t, 1, e.Battery, 1e-12)
	assert.InDelta(t, -0.5, e.AggregatedSurplus, 1e-12)
}

func TestMinSurplusFrom(t *testing.T) {
	src := &countingSource{pv: []float64{5, 0, 0, 4}, load: []float64{0, 3, 4, 0}}
	b := New(src, 8, 0)
	require.NoError(t, b.Ensure(3))

	low, err := b.MinSurplusFrom(0)
	require.NoError(t, err)
	assert.InDelta(t, -2, low, 1e-12)

	low, err = b.MinSurplusFrom(3)
	require.NoError(t, err)
	assert.InDelta(t, 2, low, 1e-12)
}

func TestAdvance_RebasesAndWraps(t *testing.T) {
	pv := []float64{3, 1, 1, 1, 1, 1}
	src := &countingSource{pv: pv, load: make([]float64, len(pv))}
	b := New(src, 3, 0)
	require.NoError(t, b.Ensure(2))
	require.NoError(t, b.ApplyDelta(0, Delta{Charge: 3}))

	b.Advance()
	assert.Equal(t, 2, b.Valid())

	e0, err := b.Get(0)
	require.NoError(t, err)
	assert.InDelta(t, 1, e0.AggregatedSurplus, 1e-12)
	assert.InDelta(t, 3, e0.Battery, 1e-12)

	// the freed slot is reused for the next observation
	e2, err := b.Get(2)
	require.NoError(t, err)
	assert.InDelta(t, 3, e2.AggregatedSurplus, 1e-12)
	assert.InDelta(t, 3, e2.Battery, 1e-12)
	assert.Zero(t, e2.Charge)

	b.Advance()
	b.Advance()
	b.Advance()
	assert.Equal(t, 0, b.Valid())
	e, err := b.Get(0)
	require.NoError(t, err)
	assert.InDelta(t, 1, e.PV, 1e-12)
	assert.InDelta(t, 1, e.AggregatedSurplus, 1e-12)
}
