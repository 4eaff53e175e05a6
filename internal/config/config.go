package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prosumer-sim/internal/agent"
	"prosumer-sim/internal/model"

	"gopkg.in/yaml.v3"
)

// TimeLayout is the layout of simulation start/end and of series timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`

	// Optional: load battery parameters from a separate YAML (e.g. examples/batteries/*.yaml).
	// If both BatteryFile and Battery are provided, Battery overrides BatteryFile.
	BatteryFile string        `yaml:"battery_file" json:"battery_file,omitempty"`
	Battery     BatteryConfig `yaml:"battery" json:"battery"`
	Market      MarketConfig  `yaml:"market" json:"market"`

	Data   DataConfig   `yaml:"data" json:"data"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Output OutputConfig `yaml:"output" json:"output"`
}

type SimulationConfig struct {
	Start       string `yaml:"start" json:"start"` // "2006-01-02 15:04:05", UTC
	End         string `yaml:"end" json:"end"`
	SlotMinutes int    `yaml:"slot_minutes" json:"slot_minutes"`
}

type BatteryConfig struct {
	Name       string  `yaml:"name" json:"name,omitempty"`
	MinKWh     float64 `yaml:"min_kwh" json:"min_kwh"`
	MaxKWh     float64 `yaml:"max_kwh" json:"max_kwh"`
	InitialKWh float64 `yaml:"initial_kwh" json:"initial_kwh"`
}

type MarketConfig struct {
	MinOfferQuantityKWh float64 `yaml:"min_offer_quantity_kwh" json:"min_offer_quantity_kwh"`
	RetailPrice         float64 `yaml:"retail_price" json:"retail_price"`     // €/kWh paid for grid imports
	FeedInTariff        float64 `yaml:"feed_in_tariff" json:"feed_in_tariff"` // €/kWh paid for grid exports

	Lambda     float64          `yaml:"lambda" json:"lambda"`
	Volatility VolatilityConfig `yaml:"volatility" json:"volatility"`

	DayAheadClosure        string `yaml:"day_ahead_closure" json:"day_ahead_closure"`               // "HH:MM:SS"
	IntradayAuctionClosure string `yaml:"intraday_auction_closure" json:"intraday_auction_closure"` // "HH:MM:SS"
}

type VolatilityConfig struct {
	DA float64 `yaml:"da" json:"da"`
	IA float64 `yaml:"ia" json:"ia"`
	IC float64 `yaml:"ic" json:"ic"`
}

type DataConfig struct {
	DayAheadPath           string  `yaml:"day_ahead_path" json:"day_ahead_path,omitempty"`
	IntradayAuctionPath    string  `yaml:"intraday_auction_path" json:"intraday_auction_path,omitempty"`
	IntradayContinuousPath string  `yaml:"intraday_continuous_path" json:"intraday_continuous_path,omitempty"`
	LoadPath               string  `yaml:"load_path" json:"load_path,omitempty"`
	PVPath                 string  `yaml:"pv_path" json:"pv_path,omitempty"`
	PVScale                float64 `yaml:"pv_scale" json:"pv_scale,omitempty"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level,omitempty"`
	Encoding    string `yaml:"encoding" json:"encoding,omitempty"` // "json" or "console"
	Development bool   `yaml:"development" json:"development,omitempty"`
}

type OutputConfig struct {
	StepsCSV   string `yaml:"steps_csv" json:"steps_csv,omitempty"`
	ActionsCSV string `yaml:"actions_csv" json:"actions_csv,omitempty"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path,omitempty"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.BatteryFile != "" {
		batteryPath := c.BatteryFile
		if !filepath.IsAbs(batteryPath) {
			// Prefer paths relative to the config file, fall back to cwd.
			cand := filepath.Join(filepath.Dir(path), batteryPath)
			if _, err := os.Stat(cand); err == nil {
				batteryPath = cand
			}
		}
		loaded, err := LoadBatteryFile(batteryPath)
		if err != nil {
			return nil, err
		}
		c.Battery = MergeBattery(loaded, c.Battery)
	}
	return &c, nil
}

// Default returns a config for a 10 kWh home battery trading a single week.
func Default() *Config {
	c := &Config{
		Simulation: SimulationConfig{
			Start: "2023-01-02 12:00:00",
			End:   "2023-01-09 12:00:00",
		},
		Battery: BatteryConfig{Name: "home", MaxKWh: 10},
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Simulation.SlotMinutes == 0 {
		c.Simulation.SlotMinutes = 15
	}
	m := &c.Market
	// sized for the synthetic wholesale price level
	if m.Lambda == 0 {
		m.Lambda = 0.5
	}
	if m.RetailPrice == 0 {
		m.RetailPrice = 0.10
	}
	if m.FeedInTariff == 0 {
		m.FeedInTariff = 0.03
	}
	if m.MinOfferQuantityKWh == 0 {
		m.MinOfferQuantityKWh = 0.5
	}
	if m.DayAheadClosure == "" {
		m.DayAheadClosure = "11:45:00"
	}
	if m.IntradayAuctionClosure == "" {
		m.IntradayAuctionClosure = "15:45:00"
	}
	if c.Data.PVScale == 0 {
		c.Data.PVScale = 0.01
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	start, err := c.StartTime()
	if err != nil {
		return err
	}
	end, err := c.EndTime()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return errors.New("simulation.end must be after simulation.start")
	}
	if slot := c.SlotDuration(); slot <= 0 || time.Hour%slot != 0 {
		return errors.New("simulation.slot_minutes must divide an hour")
	}
	if c.Market.FeedInTariff > c.Market.RetailPrice {
		return errors.New("market.feed_in_tariff must not exceed market.retail_price")
	}
	params, err := c.AgentParams()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	return nil
}

func (c *Config) StartTime() (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, c.Simulation.Start, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("simulation.start: %w", err)
	}
	return t, nil
}

func (c *Config) EndTime() (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, c.Simulation.End, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("simulation.end: %w", err)
	}
	return t, nil
}

func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.Simulation.SlotMinutes) * time.Minute
}

// Steps is the number of slots between start and end.
func (c *Config) Steps() (int, error) {
	start, err := c.StartTime()
	if err != nil {
		return 0, err
	}
	end, err := c.EndTime()
	if err != nil {
		return 0, err
	}
	slot := c.SlotDuration()
	if slot <= 0 {
		return 0, errors.New("simulation.slot_minutes must be > 0")
	}
	return int(end.Sub(start) / slot), nil
}

// Markets builds the market rule table from the configured gate closures.
func (c *Config) Markets() (model.MarketTable, error) {
	da, err := ParseTimeOfDay(c.Market.DayAheadClosure)
	if err != nil {
		return model.MarketTable{}, fmt.Errorf("market.day_ahead_closure: %w", err)
	}
	ia, err := ParseTimeOfDay(c.Market.IntradayAuctionClosure)
	if err != nil {
		return model.MarketTable{}, fmt.Errorf("market.intraday_auction_closure: %w", err)
	}
	return model.NewMarketTable(da, ia).WithSlot(c.SlotDuration()), nil
}

// AgentParams converts the configuration into decision engine parameters.
func (c *Config) AgentParams() (agent.Params, error) {
	start, err := c.StartTime()
	if err != nil {
		return agent.Params{}, err
	}
	markets, err := c.Markets()
	if err != nil {
		return agent.Params{}, err
	}
	var vol model.Prices
	vol[model.DayAhead] = c.Market.Volatility.DA
	vol[model.IntradayAuction] = c.Market.Volatility.IA
	vol[model.IntradayContinuous] = c.Market.Volatility.IC
	return agent.Params{
		Start:            start,
		Slot:             c.SlotDuration(),
		Battery:          c.Battery.ToModelParams(),
		Markets:          markets,
		MinOfferQuantity: c.Market.MinOfferQuantityKWh,
		RetailPrice:      c.Market.RetailPrice,
		FeedInTariff:     c.Market.FeedInTariff,
		Lambda:           c.Market.Lambda,
		Volatility:       vol,
	}, nil
}

func (b BatteryConfig) ToModelParams() model.BatteryParams {
	return model.BatteryParams{
		Name:       b.Name,
		MinKWh:     b.MinKWh,
		MaxKWh:     b.MaxKWh,
		InitialKWh: b.InitialKWh,
	}
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM[:SS]", s)
}

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

// LoadBatteryFile reads a battery preset.
func LoadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, err
	}
	return w.Battery, nil
}

// MergeBattery overlays non-zero fields from override onto base.
// This is used when loading a battery file and then applying overrides from the request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	// Note: MinKWh and InitialKWh are commonly 0, so a zero override keeps the base.
	if override.MinKWh != 0 {
		out.MinKWh = override.MinKWh
	}
	if override.MaxKWh != 0 {
		out.MaxKWh = override.MaxKWh
	}
	if override.InitialKWh != 0 {
		out.InitialKWh = override.InitialKWh
	}
	return out
}

// MergeMarket overlays non-zero fields from override onto base.
func MergeMarket(base, override MarketConfig) MarketConfig {
	out := base
	if override.MinOfferQuantityKWh != 0 {
		out.MinOfferQuantityKWh = override.MinOfferQuantityKWh
	}
	if override.RetailPrice != 0 {
		out.RetailPrice = override.RetailPrice
	}
	if override.FeedInTariff != 0 {
		out.FeedInTariff = override.FeedInTariff
	}
	if override.Lambda != 0 {
		out.Lambda = override.Lambda
	}
	if override.Volatility.DA != 0 {
		out.Volatility.DA = override.Volatility.DA
	}
	if override.Volatility.IA != 0 {
		out.Volatility.IA = override.Volatility.IA
	}
	if override.Volatility.IC != 0 {
		out.Volatility.IC = override.Volatility.IC
	}
	if override.DayAheadClosure != "" {
		out.DayAheadClosure = override.DayAheadClosure
	}
	if override.IntradayAuctionClosure != "" {
		out.IntradayAuctionClosure = override.IntradayAuctionClosure
	}
	return out
}
