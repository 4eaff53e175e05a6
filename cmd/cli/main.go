package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"prosumer-sim/internal/analysis"
	"prosumer-sim/internal/backtest"
	"prosumer-sim/internal/config"
	"prosumer-sim/internal/data"
	"prosumer-sim/internal/logger"
	"prosumer-sim/internal/model"
	"prosumer-sim/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "simulate":
		err = cmdSimulate(os.Args[2:])
	case "stats":
		err = cmdStats(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli simulate --config examples/config.yaml [--synthetic] [--seed 1]")
	fmt.Println("  cli stats --config examples/config.yaml [--synthetic]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - simulate writes output.steps_csv and output.actions_csv when configured")
	fmt.Println("  - data series must extend two days past simulation.end")
	fmt.Println("  - stats ranks DA/IA/IC by the P95-P05 spread of their prices")
}

func cmdSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	synthetic := fs.Bool("synthetic", false, "Replay generated data instead of the configured files")
	seed := fs.Uint64("seed", 1, "Seed for --synthetic")
	stepsOut := fs.String("steps-out", "", "Override output.steps_csv")
	actionsOut := fs.String("actions-out", "", "Override output.actions_csv")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *stepsOut != "" {
		cfg.Output.StepsCSV = *stepsOut
	}
	if *actionsOut != "" {
		cfg.Output.ActionsCSV = *actionsOut
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	params, err := cfg.AgentParams()
	if err != nil {
		return err
	}
	steps, err := cfg.Steps()
	if err != nil {
		return err
	}
	ds, err := loadData(cfg, *synthetic, *seed)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := backtest.New(log).RunDataset(ctx, params, ds, steps)
	if err != nil {
		return err
	}

	if p := cfg.Output.StepsCSV; p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := backtest.WriteStepsCSV(p, res.Steps); err != nil {
			return err
		}
		fmt.Printf("Wrote %d steps to %s\n", len(res.Steps), p)
	}
	if p := cfg.Output.ActionsCSV; p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := backtest.WriteActionsCSV(p, res.Actions); err != nil {
			return err
		}
		fmt.Printf("Wrote %d actions to %s\n", len(res.Actions), p)
	}
	if p := cfg.Output.SQLitePath; p != "" {
		db, err := store.Open(p, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(ctx, res, cfg.Battery.Name); err != nil {
			return err
		}
		fmt.Printf("Saved run %s to %s\n", res.ID, p)
	}

	fmt.Printf("\nRun %s: %d steps\n", res.ID, len(res.Steps))
	for _, m := range model.Markets {
		fmt.Printf("  %s gains   = €%s\n", m, res.Gains[m].StringFixed(2))
	}
	fmt.Printf("  grid gains = €%s\n", res.GridGains.StringFixed(2))
	fmt.Printf("  grid cost  = €%s\n", res.GridCost.StringFixed(2))
	fmt.Printf("  net        = €%s\n", res.Net().StringFixed(2))
	fmt.Printf("  final battery=%.3f kWh  violations=%d  infeasible rebalances=%d\n",
		res.FinalBattery, res.ViolationCount, res.InfeasibleRebalances)
	if res.ViolationCount > 0 {
		log.Warn("run finished with constraint violations", zap.Int("count", res.ViolationCount))
	}
	return nil
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	synthetic := fs.Bool("synthetic", false, "Use generated data instead of the configured files")
	seed := fs.Uint64("seed", 1, "Seed for --synthetic")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	ds, err := loadData(cfg, *synthetic, *seed)
	if err != nil {
		return err
	}

	th := analysis.Thresholds{RetailPrice: cfg.Market.RetailPrice, FeedInTariff: cfg.Market.FeedInTariff}
	ranked := analysis.RankBySpread(ds.Prices, th)
	fmt.Printf("%-4s %-6s %-8s %-10s %-10s %-10s %-10s %-8s %-8s\n",
		"rank", "market", "count", "min", "max", "mean", "p95-p05", ">retail", "<feedin")
	for i, r := range ranked {
		fmt.Printf("%-4d %-6s %-8d %-10.4f %-10.4f %-10.4f %-10.4f %-8.3f %-8.3f\n",
			i+1,
			r.Market,
			r.Count,
			r.Min,
			r.Max,
			r.Mean,
			r.SpreadP95P05,
			r.AboveRetail,
			r.BelowFeedIn,
		)
	}
	return nil
}

func loadData(cfg *config.Config, synthetic bool, seed uint64) (*data.Dataset, error) {
	start, err := cfg.StartTime()
	if err != nil {
		return nil, err
	}
	if synthetic {
		end, err := cfg.EndTime()
		if err != nil {
			return nil, err
		}
		days := int(end.Sub(start)/(24*time.Hour)) + 3
		return data.Synthetic(start, cfg.SlotDuration(), days, seed), nil
	}
	return data.LoadDataset(cfg.Data, start)
}
