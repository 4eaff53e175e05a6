package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prosumer-sim/internal/analysis"
	"prosumer-sim/internal/api/models"
	"prosumer-sim/internal/backtest"
	"prosumer-sim/internal/config"
	"prosumer-sim/internal/data"
	"prosumer-sim/internal/model"
	"prosumer-sim/internal/store"
)

// MaxSteps caps a single API run at one year of quarter-hour slots.
const MaxSteps = 366 * 96

// RunStore persists finished runs. A nil RunStore disables persistence.
type RunStore interface {
	SaveRun(ctx context.Context, res *backtest.Result, battery string) error
	Run(ctx context.Context, id string) (*store.RunSummary, error)
	Actions(ctx context.Context, id string) ([]backtest.ActionRow, error)
}

// SimulateHandler handles simulation requests
type SimulateHandler struct {
	base      *config.Config
	engine    *backtest.Engine
	batteries *BatteryHandler
	cache     *data.Cache
	runs      RunStore
	log       *zap.Logger
}

func NewSimulateHandler(base *config.Config, engine *backtest.Engine, batteries *BatteryHandler, cache *data.Cache, runs RunStore, log *zap.Logger) *SimulateHandler {
	return &SimulateHandler{
		base:      base,
		engine:    engine,
		batteries: batteries,
		cache:     cache,
		runs:      runs,
		log:       log,
	}
}

// errBadRequest marks errors caused by the request rather than the server.
type errBadRequest struct {
	code string
	err  error
}

func (e *errBadRequest) Error() string { return e.err.Error() }
func (e *errBadRequest) Unwrap() error { return e.err }

func badRequest(code string, format string, args ...any) error {
	return &errBadRequest{code: code, err: fmt.Errorf(format, args...)}
}

func (h *SimulateHandler) fail(c *gin.Context, err error) {
	var br *errBadRequest
	switch {
	case errors.As(err, &br):
		abortWithError(c, http.StatusBadRequest, br.code, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusServiceUnavailable, "CANCELED", err)
	default:
		h.log.Error("simulation failed", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "SIMULATION_ERROR", err)
	}
}

// Simulate handles POST /api/v1/simulate
func (h *SimulateHandler) Simulate(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	cfg, err := h.buildConfig(req.Simulation, req.Config)
	if err != nil {
		h.fail(c, err)
		return
	}
	steps, ds, err := h.prepare(cfg, req.Dataset)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, saved, err := h.run(c.Request.Context(), cfg, ds, steps, nil)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := models.SimulateResponse{
		ID:      res.ID,
		Status:  "completed",
		Saved:   saved,
		Summary: buildSummary(res, cfg),
	}
	if req.Options.IncludeSteps {
		resp.Steps = convertSteps(res.Steps)
	}
	if req.Options.IncludeActions {
		resp.Actions = convertActions(res.Actions)
	}
	c.JSON(http.StatusOK, resp)
}

// Compare handles POST /api/v1/simulate/compare. Variations run
// concurrently on the same dataset.
func (h *SimulateHandler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	cfgs := make([]*config.Config, len(req.Variations))
	for i, v := range req.Variations {
		cfg, err := h.buildConfig(req.Simulation, mergeSimulationConfig(req.BaseConfig, v.Config))
		if err != nil {
			h.fail(c, fmt.Errorf("variation %q: %w", v.Name, err))
			return
		}
		cfgs[i] = cfg
	}
	steps, ds, err := h.prepare(cfgs[0], req.Dataset)
	if err != nil {
		h.fail(c, err)
		return
	}

	results := make([]models.ComparisonResult, len(req.Variations))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, v := range req.Variations {
		g.Go(func() error {
			res, _, err := h.run(ctx, cfgs[i], ds, steps, nil)
			if err != nil {
				return fmt.Errorf("variation %q: %w", v.Name, err)
			}
			results[i] = models.ComparisonResult{
				Name:    v.Name,
				ID:      res.ID,
				Summary: buildSummary(res, cfgs[i]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CompareResponse{Comparison: results})
}

// run simulates cfg over ds and saves the result when a store is configured.
// onStep may be nil.
func (h *SimulateHandler) run(ctx context.Context, cfg *config.Config, ds *data.Dataset, steps int, onStep backtest.StepFunc) (*backtest.Result, bool, error) {
	params, err := cfg.AgentParams()
	if err != nil {
		return nil, false, badRequest("INVALID_CONFIG", "%v", err)
	}
	engine := h.engine
	if onStep != nil {
		engine = engine.Observe(onStep)
	}
	res, err := engine.RunDataset(ctx, params, ds, steps)
	if err != nil {
		return nil, false, err
	}
	if h.runs == nil {
		return res, false, nil
	}
	if err := h.runs.SaveRun(ctx, res, cfg.Battery.Name); err != nil {
		h.log.Warn("save run", zap.String("run_id", res.ID), zap.Error(err))
		return res, false, nil
	}
	return res, true, nil
}

// buildConfig layers the request over the server configuration.
func (h *SimulateHandler) buildConfig(sim *config.SimulationConfig, sc models.SimulationConfig) (*config.Config, error) {
	cfg := *h.base
	if sim != nil {
		if sim.Start != "" {
			cfg.Simulation.Start = sim.Start
		}
		if sim.End != "" {
			cfg.Simulation.End = sim.End
		}
		if sim.SlotMinutes != 0 {
			cfg.Simulation.SlotMinutes = sim.SlotMinutes
		}
	}

	battery := cfg.Battery
	if sc.BatteryFile != "" {
		preset, err := h.batteries.Preset(sc.BatteryFile)
		if errors.Is(err, ErrUnknownPreset) {
			return nil, badRequest("INVALID_BATTERY", "unknown battery preset %q", sc.BatteryFile)
		}
		if err != nil {
			return nil, err
		}
		battery = preset
	}
	cfg.Battery = config.MergeBattery(battery, sc.Battery)
	cfg.Market = config.MergeMarket(cfg.Market, sc.Market)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, badRequest("INVALID_CONFIG", "%v", err)
	}
	return &cfg, nil
}

func mergeSimulationConfig(base, override models.SimulationConfig) models.SimulationConfig {
	out := base
	if override.BatteryFile != "" {
		out.BatteryFile = override.BatteryFile
	}
	out.Battery = config.MergeBattery(base.Battery, override.Battery)
	out.Market = config.MergeMarket(base.Market, override.Market)
	return out
}

// prepare resolves the step count and the dataset for cfg.
func (h *SimulateHandler) prepare(cfg *config.Config, src models.DatasetSource) (int, *data.Dataset, error) {
	steps, err := cfg.Steps()
	if err != nil {
		return 0, nil, badRequest("INVALID_CONFIG", "%v", err)
	}
	if steps > MaxSteps {
		return 0, nil, badRequest("TOO_MANY_STEPS", "simulation spans %d slots, limit is %d", steps, MaxSteps)
	}
	start, _ := cfg.StartTime()
	slot := cfg.SlotDuration()
	spd := int(24 * time.Hour / slot)

	var ds *data.Dataset
	switch src.Type {
	case "", "synthetic":
		seed := src.Seed
		if seed == 0 {
			seed = 1
		}
		ds = data.Synthetic(start, slot, steps/spd+3, seed)
	case "files":
		if h.base.Data.DayAheadPath == "" {
			return 0, nil, badRequest("NO_DATA_FILES", "server has no data files configured")
		}
		ds, err = h.cache.Load(h.base.Data, start)
		if err != nil {
			return 0, nil, fmt.Errorf("load dataset: %w", err)
		}
	case "inline":
		if src.Data == nil {
			return 0, nil, badRequest("INVALID_DATASET", "inline dataset requires data")
		}
		ds = src.Data
	default:
		return 0, nil, badRequest("INVALID_DATASET", "unknown dataset type %q", src.Type)
	}

	markets, err := cfg.Markets()
	if err != nil {
		return 0, nil, badRequest("INVALID_CONFIG", "%v", err)
	}
	if err := ds.Covers(markets, steps, 2*spd); err != nil {
		return 0, nil, badRequest("DATA_TOO_SHORT", "%v", err)
	}
	return steps, ds, nil
}

func buildSummary(res *backtest.Result, cfg *config.Config) models.SimulateSummary {
	s := models.SimulateSummary{
		Steps:                len(res.Steps),
		Gains:                map[string]string{},
		MarketGains:          res.MarketGains().StringFixed(4),
		GridGains:            res.GridGains.StringFixed(4),
		GridCost:             res.GridCost.StringFixed(4),
		Net:                  res.Net().StringFixed(4),
		FinalBatteryKWh:      res.FinalBattery,
		Placed:               res.CountActions(model.ActionPlaced),
		Rejected:             res.CountActions(model.ActionRejected),
		Fulfilled:            res.CountActions(model.ActionFulfilled),
		Open:                 res.OpenContracts,
		Violations:           res.ViolationCount,
		InfeasibleRebalances: res.InfeasibleRebalances,
	}
	for _, m := range model.Markets {
		s.Gains[m.String()] = res.Gains[m].StringFixed(4)
	}
	if len(res.Steps) > 0 {
		s.Window = models.TimeWindow{
			Start: res.Steps[0].Time,
			End:   res.Steps[len(res.Steps)-1].Time.Add(res.Slot),
		}
	}
	if len(res.Violations) > 0 {
		s.ViolationsByKind = map[string]int{}
		for _, v := range res.Violations {
			s.ViolationsByKind[string(v.Kind)]++
		}
	}

	var realized [model.NumMarkets][]float64
	for _, r := range res.Steps {
		for _, m := range model.Markets {
			realized[m] = append(realized[m], r.Prices[m])
		}
	}
	th := analysis.Thresholds{RetailPrice: cfg.Market.RetailPrice, FeedInTariff: cfg.Market.FeedInTariff}
	for i, st := range analysis.RankBySpread(realized, th) {
		s.Markets = append(s.Markets, models.MarketStats{
			Rank:         i + 1,
			Market:       st.Market.String(),
			Count:        st.Count,
			Min:          st.Min,
			Max:          st.Max,
			Mean:         st.Mean,
			SpreadP95P05: st.SpreadP95P05,
			AboveRetail:  st.AboveRetail,
			BelowFeedIn:  st.BelowFeedIn,
		})
	}
	return s
}

func convertSteps(rows []backtest.StepRow) []models.StepRow {
	out := make([]models.StepRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, convertStep(r))
	}
	return out
}

func convertStep(r backtest.StepRow) models.StepRow {
	return models.StepRow{
		Index:      r.Index,
		Time:       r.Time,
		Prices:     r.Prices.MapByCode(),
		Action:     string(r.Action),
		LoadKWh:    r.Load,
		PVKWh:      r.PV,
		BatteryKWh: r.Battery,
		Charge:     r.Charge,
		Discharge:  r.Discharge,
		GridDemand: r.GridDemand,
		GridSupply: r.GridSupply,
		Delivered:  r.Delivered,
		Net:        r.Net().StringFixed(4),
		Violations: r.Violations,
	}
}

func convertActions(rows []backtest.ActionRow) []models.ActionRow {
	out := make([]models.ActionRow, 0, len(rows))
	for _, a := range rows {
		out = append(out, models.ActionRow{
			Time:         a.Time,
			Kind:         string(a.Kind),
			Market:       a.Market.String(),
			DeliveryTime: a.DeliveryTime,
			QuantityKWh:  a.Quantity,
			Price:        a.Price,
		})
	}
	return out
}
