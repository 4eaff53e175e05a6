// Package analysis summarizes market price series.
package analysis

import (
	"math"
	"sort"

	"prosumer-sim/internal/model"
)

// PriceStats is a market-level summary of one price series, in €/kWh.
type PriceStats struct {
	Market model.Market

	Count int

	Min  float64
	Max  float64
	Mean float64
	P05  float64
	P95  float64

	SpreadP95P05 float64

	// Share of prices above the retail price and below the feed-in tariff.
	// The first are slots where selling beats buying from the grid, the
	// second where the grid pays more for exports than the market.
	AboveRetail float64
	BelowFeedIn float64
}

// Thresholds are the household's grid tariffs the stats compare against.
type Thresholds struct {
	RetailPrice  float64
	FeedInTariff float64
}

func ComputeStats(m model.Market, prices []float64, th Thresholds) PriceStats {
	s := PriceStats{Market: m}
	if len(prices) == 0 {
		return s
	}
	s.Count = len(prices)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	above, below := 0, 0
	vals := make([]float64, 0, len(prices))
	for _, v := range prices {
		vals = append(vals, v)
		sum += v
		minv = math.Min(minv, v)
		maxv = math.Max(maxv, v)
		if v > th.RetailPrice {
			above++
		}
		if v < th.FeedInTariff {
			below++
		}
	}
	sort.Float64s(vals)
	s.Min = minv
	s.Max = maxv
	s.Mean = sum / float64(len(vals))
	s.P05 = percentileSorted(vals, 0.05)
	s.P95 = percentileSorted(vals, 0.95)
	s.SpreadP95P05 = s.P95 - s.P05
	s.AboveRetail = float64(above) / float64(len(vals))
	s.BelowFeedIn = float64(below) / float64(len(vals))
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
