// Package data loads the price and household series a simulation replays.
package data

import (
	"fmt"
	"io"
	"time"

	"prosumer-sim/internal/config"
	"prosumer-sim/internal/model"
)

// Dataset is everything a run replays, already sliced from the simulation
// start. Prices are €/kWh indexed by model.Market, PV and Load kWh per slot.
type Dataset struct {
	Prices [model.NumMarkets][]float64 `json:"prices"`
	PV     []float64                   `json:"pv"`
	Load   []float64                   `json:"load"`
}

// LoadDataset reads every file named in cfg, keeping rows at or after from.
func LoadDataset(cfg config.DataConfig, from time.Time) (*Dataset, error) {
	var ds Dataset
	paths := map[model.Market]string{
		model.DayAhead:           cfg.DayAheadPath,
		model.IntradayAuction:    cfg.IntradayAuctionPath,
		model.IntradayContinuous: cfg.IntradayContinuousPath,
	}
	for _, m := range model.Markets {
		path := paths[m]
		if path == "" {
			return nil, fmt.Errorf("no price file configured for %s", m)
		}
		points, err := readFile(path, func(r io.Reader) ([]Point, error) { return ReadPrices(r, from) })
		if err != nil {
			return nil, err
		}
		ds.Prices[m] = Values(points)
	}

	if cfg.LoadPath == "" || cfg.PVPath == "" {
		return nil, fmt.Errorf("load_path and pv_path are required")
	}
	load, err := readFile(cfg.LoadPath, func(r io.Reader) ([]Point, error) { return ReadLoad(r, from) })
	if err != nil {
		return nil, err
	}
	scale := cfg.PVScale
	if scale == 0 {
		scale = 1
	}
	pv, err := readFile(cfg.PVPath, func(r io.Reader) ([]Point, error) { return ReadPV(r, from, scale) })
	if err != nil {
		return nil, err
	}
	ds.Load = Values(load)
	ds.PV = Values(pv)
	return &ds, nil
}

// Covers reports whether ds holds enough data for steps slots. The household
// series must also reach the forecast horizon past the last step.
func (ds *Dataset) Covers(markets model.MarketTable, steps, horizon int) error {
	for _, m := range model.Markets {
		g := max(markets.Spec(m).GranularitySlots, 1)
		need := (steps + g - 1) / g
		if len(ds.Prices[m]) < need {
			return fmt.Errorf("%s prices: have %d values, need %d", m, len(ds.Prices[m]), need)
		}
	}
	need := steps + horizon
	if len(ds.PV) < need {
		return fmt.Errorf("pv: have %d values, need %d", len(ds.PV), need)
	}
	if len(ds.Load) < need {
		return fmt.Errorf("load: have %d values, need %d", len(ds.Load), need)
	}
	return nil
}
