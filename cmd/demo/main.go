package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prosumer-sim/internal/backtest"
	"prosumer-sim/internal/config"
	"prosumer-sim/internal/data"
	"prosumer-sim/internal/logger"
	"prosumer-sim/internal/model"
)

// Demo:
// - Generate a synthetic week of PV, load and market prices
// - Let the greedy agent trade it with a 10 kWh home battery
// - Print the first slots and the totals to show how the pieces fit together
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	days := flag.Int("days", 7, "Number of days to simulate")
	n := flag.Int("n", 16, "Number of slots to print")
	seed := flag.Uint64("seed", 42, "Synthetic data seed")
	outCSV := flag.String("out", "", "Optional path to write the steps CSV (e.g. results/steps.csv)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}
	start, err := cfg.StartTime()
	if err != nil {
		panic(err)
	}
	cfg.Simulation.End = start.Add(time.Duration(*days) * 24 * time.Hour).Format(config.TimeLayout)

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	params, err := cfg.AgentParams()
	if err != nil {
		panic(err)
	}
	steps, err := cfg.Steps()
	if err != nil {
		panic(err)
	}
	ds := data.Synthetic(start, cfg.SlotDuration(), *days+3, *seed)

	result, err := backtest.New(log).RunDataset(context.Background(), params, ds, steps)
	if err != nil {
		log.Fatal("run failed", zap.Error(err))
	}

	fmt.Printf("Simulated %d slots from %s\n", len(result.Steps), start.Format("2006-01-02 15:04"))
	fmt.Printf("Battery=%s  %.1f..%.1f kWh, start %.1f kWh\n\n",
		params.Battery.Name, params.Battery.MinKWh, params.Battery.MaxKWh, params.Battery.InitialKWh)

	for i := 0; i < min(*n, len(result.Steps)); i++ {
		r := result.Steps[i]
		fmt.Printf(
			"%s ic=%6.3f  action=%-11s  pv=%5.2f load=%5.2f  batt=%5.2f  grid +%5.2f/-%5.2f  delivered=%5.2f  net=%8s\n",
			r.Time.Format("2006-01-02 15:04"),
			r.Prices[model.IntradayContinuous],
			string(r.Action),
			r.PV,
			r.Load,
			r.Battery,
			r.GridDemand,
			r.GridSupply,
			r.Delivered,
			r.Net().StringFixed(2),
		)
	}

	if *outCSV != "" {
		if err := backtest.WriteStepsCSV(*outCSV, result.Steps); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nPlaced=%d  Rejected=%d  Fulfilled=%d  Open=%d\n",
		result.CountActions(model.ActionPlaced),
		result.CountActions(model.ActionRejected),
		result.CountActions(model.ActionFulfilled),
		result.OpenContracts,
	)
	fmt.Printf("Done. Final battery=%.2f kWh  Net=€%s  Violations=%d\n",
		result.FinalBattery, result.Net().StringFixed(2), result.ViolationCount)
}
