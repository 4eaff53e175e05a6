// Package household replays PV generation and load observations.
package household

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when a series has no further observations.
var ErrExhausted = errors.New("household series exhausted")

// SeriesHousehold hands out PV and load values in order. Each series keeps
// its own cursor.
type SeriesHousehold struct {
	pv   []float64
	load []float64

	pvNext   int
	loadNext int
}

func NewSeriesHousehold(pv, load []float64) *SeriesHousehold {
	return &SeriesHousehold{pv: pv, load: load}
}

func (h *SeriesHousehold) NextPV() (float64, error) {
	if h.pvNext >= len(h.pv) {
		return 0, fmt.Errorf("pv observation %d: %w", h.pvNext, ErrExhausted)
	}
	v := h.pv[h.pvNext]
	h.pvNext++
	return v, nil
}

func (h *SeriesHousehold) NextLoad() (float64, error) {
	if h.loadNext >= len(h.load) {
		return 0, fmt.Errorf("load observation %d: %w", h.loadNext, ErrExhausted)
	}
	v := h.load[h.loadNext]
	h.loadNext++
	return v, nil
}

// Remaining is the number of complete (pv, load) pairs left.
func (h *SeriesHousehold) Remaining() int {
	return min(len(h.pv)-h.pvNext, len(h.load)-h.loadNext)
}
