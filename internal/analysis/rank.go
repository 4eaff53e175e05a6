package analysis

import (
	"sort"

	"prosumer-sim/internal/model"
)

// RankBySpread computes stats for every market and sorts them by descending
// P95-P05 spread. Ties keep the planning order of model.Markets.
func RankBySpread(prices [model.NumMarkets][]float64, th Thresholds) []PriceStats {
	out := make([]PriceStats, 0, model.NumMarkets)
	for _, m := range model.Markets {
		out = append(out, ComputeStats(m, prices[m], th))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SpreadP95P05 > out[j].SpreadP95P05
	})
	return out
}
