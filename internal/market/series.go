// Package market replays historical market prices and validates offers
// against gate-closure rules.
package market

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prosumer-sim/internal/model"
)

// ErrExhausted is returned once a price series has no more slots.
var ErrExhausted = errors.New("market price series exhausted")

// SeriesMarket publishes one slot of prices per CurrentPrices call. Series
// with a coarser granularity (DA is hourly) hold one value per block of slots.
type SeriesMarket struct {
	markets  model.MarketTable
	series   [model.NumMarkets][]float64
	minOffer float64
	slot     time.Duration
	log      *zap.Logger

	cursor int
	// observed is the start of the most recently published slot.
	observed time.Time
}

// NewSeriesMarket creates a market starting at start. series is indexed by
// model.Market.
func NewSeriesMarket(markets model.MarketTable, series [model.NumMarkets][]float64, start time.Time, slot time.Duration, minOffer float64, log *zap.Logger) *SeriesMarket {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeriesMarket{
		markets:  markets,
		series:   series,
		minOffer: minOffer,
		slot:     slot,
		log:      log,
		observed: start.Add(-slot),
	}
}

// Now is the start of the slot whose prices were published last.
func (m *SeriesMarket) Now() time.Time { return m.observed }

// Slots is the number of slots the series can publish.
func (m *SeriesMarket) Slots() int {
	n := -1
	for _, mk := range model.Markets {
		s := len(m.series[mk]) * m.granularity(mk)
		if n < 0 || s < n {
			n = s
		}
	}
	return n
}

func (m *SeriesMarket) CurrentPrices() (model.Prices, error) {
	var p model.Prices
	for _, mk := range model.Markets {
		i := m.cursor / m.granularity(mk)
		if i >= len(m.series[mk]) {
			return model.Prices{}, fmt.Errorf("%s slot %d: %w", mk, m.cursor, ErrExhausted)
		}
		p[mk] = m.series[mk][i]
	}
	m.cursor++
	m.observed = m.observed.Add(m.slot)
	return p, nil
}

// PlaceOffer reports whether the market accepts c.
func (m *SeriesMarket) PlaceOffer(c model.Contract) bool {
	if reason := m.Reason(c); reason != "" {
		m.log.Debug("offer rejected",
			zap.Stringer("market", c.Market),
			zap.Time("delivery", c.DeliveryTime),
			zap.Float64("quantity", c.Quantity),
			zap.Time("market_time", m.observed),
			zap.String("reason", reason),
		)
		return false
	}
	return true
}

// Reason returns why c would be rejected, or "" when it is acceptable.
func (m *SeriesMarket) Reason(c model.Contract) string {
	if !c.Market.Valid() {
		return "unknown market"
	}
	if c.Quantity < m.minOffer {
		return fmt.Sprintf("quantity %.6f below minimum %.6f", c.Quantity, m.minOffer)
	}
	if closure, ok := m.markets.ClosureFor(c.Market, c.DeliveryTime); ok {
		if closure.Before(m.observed) {
			return fmt.Sprintf("gate closed at %s", closure.Format(time.RFC3339))
		}
		return ""
	}
	if !c.DeliveryTime.After(m.observed) {
		return "delivery is not in the future"
	}
	return ""
}

func (m *SeriesMarket) granularity(mk model.Market) int {
	if g := m.markets.Spec(mk).GranularitySlots; g > 0 {
		return g
	}
	return 1
}
