package household

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesHousehold(t *testing.T) {
	h := NewSeriesHousehold([]float64{1, 2, 3}, []float64{0.5, 0.6})
	assert.Equal(t, 2, h.Remaining())

	pv, err := h.NextPV()
	require.NoError(t, err)
	assert.InDelta(t, 1, pv, 1e-12)

	// cursors are independent
	pv, err = h.NextPV()
	require.NoError(t, err)
	assert.InDelta(t, 2, pv, 1e-12)
	assert.Equal(t, 1, h.Remaining())

	load, err := h.NextLoad()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, load, 1e-12)
	_, err = h.NextLoad()
	require.NoError(t, err)

	_, err = h.NextLoad()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Zero(t, h.Remaining())

	_, err = h.NextPV()
	require.NoError(t, err)
	_, err = h.NextPV()
	assert.ErrorIs(t, err, ErrExhausted)
}
