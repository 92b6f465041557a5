package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/observability/metrics"
	"github.com/target/printmaker/internal/observability/statsd"
)

// PurgeServiceOptions groups dependencies for PurgeService.
type PurgeServiceOptions struct {
	Jobs    core.JobStore      // Required: job store
	Config  config.PurgeConfig // Required: interval and batch size
	MaxAge  time.Duration      // Required: record expiration
	Logger  *slog.Logger       // Optional: structured logger
	Metrics statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// PurgeService periodically flags expired job records deleted and removes their spool files.
type PurgeService struct {
	jobs    core.JobStore
	config  config.PurgeConfig
	maxAge  time.Duration
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewPurgeService constructs a new PurgeService.
func NewPurgeService(opts PurgeServiceOptions) (*PurgeService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.MaxAge < 0 {
		return nil, fmt.Errorf("max age cannot be negative: %s", opts.MaxAge)
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("purge interval must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "purge_service")
	logger.Debug("PurgeService initialized",
		"interval", opts.Config.Interval,
		"batch_size", opts.Config.BatchSize,
		"max_age", opts.MaxAge,
	)

	return &PurgeService{
		jobs:    opts.Jobs,
		config:  opts.Config,
		maxAge:  opts.MaxAge,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run purges immediately after a start jitter and then on every tick until ctx is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *PurgeService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting purge service", "interval", s.config.Interval)

	// Spread instances that start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logPurgeError(ctx, err, "initial purge")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "purge service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logPurgeError(ctx, err, "purge")
			}
		}
	}
}

// RunOnce purges batches until one flags nothing and reports the total flagged.
func (s *PurgeService) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	total, err := purgeAll(ctx, s.jobs, core.PurgeParams{MaxAge: s.maxAge, BatchSize: s.config.BatchSize})
	metrics.EmitPurge(s.metrics, total, time.Since(start), suppressContextCancellation(err))

	if total > 0 {
		s.logger.InfoContext(ctx, "purged expired jobs", "count", total, "max_age", s.maxAge)
	}
	return total, err
}

// waitWithJitter delays up to 10% of the interval.
func (s *PurgeService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *PurgeService) logPurgeError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" interrupted", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

// purgeAll calls Purge until a batch flags nothing, checking ctx between batches.
func purgeAll(ctx context.Context, jobs core.JobStore, params core.PurgeParams) (int64, error) {
	var total int64
	for {
		n, err := jobs.Purge(ctx, params)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
