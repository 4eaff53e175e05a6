package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prosumer-sim/internal/api"
	"prosumer-sim/internal/config"
	"prosumer-sim/internal/data"
	"prosumer-sim/internal/jobs"
	"prosumer-sim/internal/logger"
	"prosumer-sim/internal/store"
)

func main() {
	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := config.Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := data.NewCache(time.Hour)
	deps := api.Deps{
		Config:     cfg,
		BatteryDir: os.Getenv("BATTERY_DIR"),
		Cache:      cache,
		Log:        log,
	}
	if p := cfg.Output.SQLitePath; p != "" {
		db, err := store.Open(p, log)
		if err != nil {
			log.Fatal("open run store", zap.Error(err))
		}
		defer db.Close()
		deps.Runs = db
	}

	router, err := api.NewRouter(deps)
	if err != nil {
		log.Fatal("build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	spec := os.Getenv("CACHE_PRUNE_SPEC")
	if spec == "" {
		spec = jobs.DefaultCachePruneSpec
	}
	runner := jobs.New(ctx, log)
	if err := runner.Add("prune-dataset-cache", spec, jobs.PruneCache(cache, log)); err != nil {
		log.Fatal("schedule jobs", zap.Error(err))
	}
	runner.Start()
	defer runner.Stop()

	go func() {
		log.Info("starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
