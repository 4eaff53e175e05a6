package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-sim/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_BatteryFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "batteries"), 0o755))
	writeFile(t, filepath.Join(dir, "batteries"), "home.yaml", `
battery:
  name: home
  min_kwh: 1
  max_kwh: 10
  initial_kwh: 5
`)
	path := writeFile(t, dir, "config.yaml", `
simulation:
  start: "2023-01-02 12:00:00"
  end: "2023-01-03 12:00:00"
battery_file: batteries/home.yaml
battery:
  max_kwh: 12
market:
  lambda: 0.5
  volatility:
    ic: 0.02
  day_ahead_closure: "12:00"
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BatteryConfig{Name: "home", MinKWh: 1, MaxKWh: 12, InitialKWh: 5}, c.Battery)
	assert.Equal(t, 15, c.Simulation.SlotMinutes)
	assert.InDelta(t, 0.5, c.Market.Lambda, 1e-12)
	assert.InDelta(t, 0.10, c.Market.RetailPrice, 1e-12)
	assert.InDelta(t, 0.03, c.Market.FeedInTariff, 1e-12)

	steps, err := c.Steps()
	require.NoError(t, err)
	assert.Equal(t, 96, steps)

	p, err := c.AgentParams()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, 12*time.Hour, p.Markets.Spec(model.DayAhead).Closure)
	assert.Equal(t, 15*time.Hour+45*time.Minute, p.Markets.Spec(model.IntradayAuction).Closure)
	assert.Equal(t, 4, p.Markets.Spec(model.DayAhead).GranularitySlots)
	assert.InDelta(t, 0.02, p.Volatility[model.IntradayContinuous], 1e-12)
	assert.InDelta(t, 0.5, p.MinOfferQuantity, 1e-12)
}

func TestLoad_MissingBatteryFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "battery_file: nope.yaml\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"ok", func(c *Config) {}, ""},
		{"bad start", func(c *Config) { c.Simulation.Start = "yesterday" }, "simulation.start"},
		{"end before start", func(c *Config) { c.Simulation.End = "2023-01-01 00:00:00" }, "must be after"},
		{"slot", func(c *Config) { c.Simulation.SlotMinutes = 7 }, "divide an hour"},
		{"tariffs", func(c *Config) { c.Market.FeedInTariff = 0.5 }, "feed_in_tariff"},
		{"closure", func(c *Config) { c.Market.DayAheadClosure = "noon" }, "day_ahead_closure"},
		{"battery", func(c *Config) { c.Battery.MaxKWh = 0 }, "MaxKWh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarkets_SlotGranularity(t *testing.T) {
	c := Default()
	c.Simulation.SlotMinutes = 30
	m, err := c.Markets()
	require.NoError(t, err)
	assert.Equal(t, 2, m.Spec(model.DayAhead).GranularitySlots)
}

func TestParseTimeOfDay(t *testing.T) {
	d, err := ParseTimeOfDay("11:45")
	require.NoError(t, err)
	assert.Equal(t, 11*time.Hour+45*time.Minute, d)

	d, err = ParseTimeOfDay(" 15:45:30 ")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Hour+45*time.Minute+30*time.Second, d)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestMergeMarket(t *testing.T) {
	base := Default().Market
	out := MergeMarket(base, MarketConfig{RetailPrice: 0.4, Volatility: VolatilityConfig{DA: 0.01}})
	assert.InDelta(t, 0.4, out.RetailPrice, 1e-12)
	assert.InDelta(t, 0.01, out.Volatility.DA, 1e-12)
	assert.Equal(t, base.DayAheadClosure, out.DayAheadClosure)
	assert.InDelta(t, base.FeedInTariff, out.FeedInTariff, 1e-12)
}
