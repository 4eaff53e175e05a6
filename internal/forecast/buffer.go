// Package forecast keeps the rolling per-slot projection of household energy
// flows the planner commits against.
package forecast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHorizon is returned for offsets the ring cannot hold.
	ErrHorizon = errors.New("offset beyond forecast horizon")

	// ErrInfeasibleRebalance is wrapped by RebalanceError.
	ErrInfeasibleRebalance = errors.New("insufficient aggregated surplus to rebalance battery")
)

// Source supplies the next chronological PV and load observations.
type Source interface {
	NextPV() (float64, error)
	NextLoad() (float64, error)
}

// Entry is the projection for one slot. Load and PV are observations; the
// remaining flows are commitments accumulated by planning.
type Entry struct {
	Load float64
	PV   float64

	// Battery is the projected level at the end of the slot, in kWh.
	Battery float64

	Charge     float64
	Discharge  float64
	GridDemand float64
	GridSupply float64

	// AggregatedSurplus is the net surplus summed from the head through this slot.
	AggregatedSurplus float64
}

// Delta is an additional commitment for a single slot. A negative flow
// withdraws part of an earlier commitment.
type Delta struct {
	Charge     float64
	Discharge  float64
	GridDemand float64
	GridSupply float64
	Delivered  float64
}

// Shortfall describes one slot where a battery projection below the floor
// could not be absorbed by the aggregated surplus.
type Shortfall struct {
	Offset    int
	Shortfall float64
	Available float64
}

// RebalanceError reports slots whose battery projection was clamped without
// enough surplus to cover it. Results downstream of these slots are unreliable.
type RebalanceError struct {
	Shortfalls []Shortfall
}

func (e *RebalanceError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("offset %d: need %.6f, have %.6f", s.Offset, s.Shortfall, s.Available))
	}
	return fmt.Sprintf("%v (%s)", ErrInfeasibleRebalance, strings.Join(parts, "; "))
}

func (e *RebalanceError) Unwrap() error { return ErrInfeasibleRebalance }

// Buffer is a fixed-capacity ring of slot projections. Offset 0 is the
// current real slot; offsets grow into the future.
type Buffer struct {
	src     Source
	entries []Entry
	head    int
	valid   int

	// floor is the lowest level a projection may reach.
	floor float64
}

// New creates a buffer holding capacity slots. Every slot starts at
// initialBattery so the first fetched slot inherits it.
func New(src Source, capacity int, initialBattery float64) *Buffer {
	if capacity <= 0 {
		panic("forecast: capacity must be > 0")
	}
	entries := make([]Entry, capacity)
	for i := range entries {
		entries[i].Battery = initialBattery
	}
	return &Buffer{src: src, entries: entries}
}

// SetFloor sets the level projections are clamped at. It defaults to zero.
func (b *Buffer) SetFloor(kWh float64) { b.floor = kWh }

// Valid is the number of populated slots from the head, inclusive.
func (b *Buffer) Valid() int { return b.valid }

func (b *Buffer) index(offset int) int {
	n := len(b.entries)
	return ((b.head+offset)%n + n) % n
}

// Ensure fetches observations until offset is populated.
func (b *Buffer) Ensure(offset int) error {
	if offset < 0 || offset >= len(b.entries) {
		return fmt.Errorf("%w: %d (capacity %d)", ErrHorizon, offset, len(b.entries))
	}
	for b.valid <= offset {
		pv, err := b.src.NextPV()
		if err != nil {
			return fmt.Errorf("slot %d pv: %w", b.valid, err)
		}
		load, err := b.src.NextLoad()
		if err != nil {
			return fmt.Errorf("slot %d load: %w", b.valid, err)
		}
		prev := b.entries[b.index(b.valid-1)]
		b.entries[b.index(b.valid)] = Entry{
			Load:              load,
			PV:                pv,
			Battery:           prev.Battery,
			AggregatedSurplus: prev.AggregatedSurplus + pv - load,
		}
		b.valid++
	}
	return nil
}

// Get returns the projection for offset.
func (b *Buffer) Get(offset int) (Entry, error) {
	if err := b.Ensure(offset); err != nil {
		return Entry{}, err
	}
	return b.entries[b.index(offset)], nil
}

// MinSurplusFrom returns the smallest aggregated surplus over the populated
// slots from offset onward.
func (b *Buffer) MinSurplusFrom(offset int) (float64, error) {
	if err := b.Ensure(offset); err != nil {
		return 0, err
	}
	lowest := b.entries[b.index(offset)].AggregatedSurplus
	for i := offset + 1; i < b.valid; i++ {
		if s := b.entries[b.index(i)].AggregatedSurplus; s < lowest {
			lowest = s
		}
	}
	return lowest, nil
}

// ApplyDelta commits d at offset and propagates the battery and surplus
// projections through every populated slot after it. The projection is
// always clamped; a *RebalanceError is returned when the clamp was not
// backed by surplus.
func (b *Buffer) ApplyDelta(offset int, d Delta) error {
	if err := b.Ensure(offset); err != nil {
		return err
	}
	e := &b.entries[b.index(offset)]
	e.Charge += d.Charge
	e.Discharge += d.Discharge
	e.GridDemand += d.GridDemand
	e.GridSupply += d.GridSupply

	var shortfalls []Shortfall
	for i := offset; i < b.valid; i++ {
		s := &b.entries[b.index(i)]
		s.Battery += d.Charge - d.Discharge
		s.AggregatedSurplus += d.Discharge - d.Charge + d.GridDemand - d.GridSupply - d.Delivered

		// battery cannot drop below the floor: the energy has to come out of surplus
		if s.Battery < b.floor {
			missing := b.floor - s.Battery
			if s.AggregatedSurplus < missing {
				shortfalls = append(shortfalls, Shortfall{Offset: i, Shortfall: missing, Available: s.AggregatedSurplus})
			}
			s.AggregatedSurplus -= missing
			s.Battery = b.floor
		}
	}
	if len(shortfalls) > 0 {
		return &RebalanceError{Shortfalls: shortfalls}
	}
	return nil
}

// Advance retires the head slot. The aggregated surplus is rebased so it
// stays cumulative from the new head.
func (b *Buffer) Advance() {
	base := b.entries[b.head].AggregatedSurplus
	for i := 1; i < b.valid; i++ {
		b.entries[b.index(i)].AggregatedSurplus -= base
	}
	b.entries[b.head].AggregatedSurplus = 0
	b.head = (b.head + 1) % len(b.entries)
	if b.valid > 0 {
		b.valid--
	}
}
