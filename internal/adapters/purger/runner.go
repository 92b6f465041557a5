// Package purger provides adapters for running the expired-job purge loop.
package purger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/observability/statsd"
	"github.com/target/printmaker/internal/service"
)

// Runner constructs the purge service and runs its loop.
type Runner struct {
	purge  *service.PurgeService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Jobs   core.JobStore
	Config config.PurgeConfig
	// MaxAge is the record expiration; zero purges every record.
	MaxAge time.Duration
	Logger *slog.Logger

	Metrics statsd.Sink
}

// NewRunner creates a new purge runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	svc, err := service.NewPurgeService(service.PurgeServiceOptions{
		Jobs:    opts.Jobs,
		Config:  opts.Config,
		MaxAge:  opts.MaxAge,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire purge service: %w", err)
	}

	return &Runner{purge: svc, logger: opts.Logger}, nil
}

// Run starts the purge loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting purge runner")
	return r.purge.Run(ctx)
}

// RunOnce performs a single purge pass.
func (r *Runner) RunOnce(ctx context.Context) (int64, error) {
	return r.purge.RunOnce(ctx)
}
