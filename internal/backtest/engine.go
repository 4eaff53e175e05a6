package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prosumer-sim/internal/agent"
	"prosumer-sim/internal/data"
	"prosumer-sim/internal/household"
	"prosumer-sim/internal/market"
	"prosumer-sim/internal/model"
)

// StepFunc receives every row as soon as its slot is realized. A non-nil
// error stops the run.
type StepFunc func(StepRow) error

type Engine struct {
	log    *zap.Logger
	onStep StepFunc
}

func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Observe returns a copy of e that hands each step to fn.
func (e *Engine) Observe(fn StepFunc) *Engine {
	out := *e
	out.onStep = fn
	return &out
}

// Run steps a fresh agent steps times and collects the per-slot ledger.
func (e *Engine) Run(ctx context.Context, params agent.Params, mkt agent.Market, hh agent.Household, steps int) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be > 0")
	}
	id := uuid.NewString()
	log := e.log.With(zap.String("run_id", id))

	a, err := agent.New(params, mkt, hh, log)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:    id,
		Start: params.Start,
		Slot:  params.Slot,
		Steps: make([]StepRow, 0, steps),
	}
	began := time.Now()
	log.Info("run started",
		zap.Time("start", params.Start),
		zap.Int("steps", steps),
		zap.String("battery", params.Battery.Name),
	)

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := a.Step()
		if err != nil {
			return nil, err
		}
		row := stepRow(rep)
		res.Steps = append(res.Steps, row)
		for _, act := range rep.Actions {
			res.Actions = append(res.Actions, actionRow(act))
		}
		if e.onStep != nil {
			if err := e.onStep(row); err != nil {
				return nil, fmt.Errorf("step %d observer: %w", i, err)
			}
		}
	}

	res.Violations = a.Violations()
	res.ViolationCount = a.ViolationCount()
	res.InfeasibleRebalances = a.InfeasibleRebalances()
	for _, m := range model.Markets {
		res.Gains[m] = a.Gains(m)
	}
	res.GridGains = a.GridGains()
	res.GridCost = a.GridCost()
	res.OpenContracts = len(a.OpenContracts())
	res.FinalBattery = res.Steps[len(res.Steps)-1].Battery

	log.Info("run finished",
		zap.Duration("elapsed", time.Since(began)),
		zap.String("net", res.Net().StringFixed(2)),
		zap.Int("violations", res.ViolationCount),
		zap.Int("infeasible_rebalances", res.InfeasibleRebalances),
	)
	return res, nil
}

// RunDataset replays ds through a series market and household.
func (e *Engine) RunDataset(ctx context.Context, params agent.Params, ds *data.Dataset, steps int) (*Result, error) {
	horizon := 2 * params.SlotsPerDay()
	if err := ds.Covers(params.Markets, steps, horizon); err != nil {
		return nil, fmt.Errorf("dataset too short: %w", err)
	}
	mkt := market.NewSeriesMarket(params.Markets, ds.Prices, params.Start, params.Slot, params.MinOfferQuantity, e.log)
	hh := household.NewSeriesHousehold(ds.PV, ds.Load)
	return e.Run(ctx, params, mkt, hh, steps)
}
