// Package jobs runs periodic maintenance for the API server.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"prosumer-sim/internal/data"
)

// DefaultCachePruneSpec prunes the dataset cache every ten minutes.
const DefaultCachePruneSpec = "@every 10m"

type Runner struct {
	cron    *cron.Cron
	log     *zap.Logger
	baseCtx context.Context
}

func New(baseCtx context.Context, log *zap.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add schedules job on spec. Jobs receive the runner's base context.
func (r *Runner) Add(name, spec string, job func(context.Context)) error {
	_, err := r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		job(r.baseCtx)
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	r.log.Info("job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// PruneCache returns a job that drops expired datasets from c.
func PruneCache(c *data.Cache, log *zap.Logger) func(context.Context) {
	return func(context.Context) {
		if n := c.Prune(); n > 0 {
			log.Info("dataset cache pruned", zap.Int("removed", n), zap.Int("remaining", c.Len()))
		}
	}
}

func (r *Runner) Len() int { return len(r.cron.Entries()) }

func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info("jobs started", zap.Int("count", r.Len()))
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("jobs stopped")
}
