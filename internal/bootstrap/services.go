package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/adapters/purger"
	"github.com/target/printmaker/internal/observability/statsd"
)

// ServiceOrchestrationConfig contains everything needed to run the daemon's services.
type ServiceOrchestrationConfig struct {
	Config  *config.AppConfig
	Engine  *Engine
	Logger  *slog.Logger
	Metrics statsd.Sink

	// Signals overrides the OS signal channel. Tests use it to trigger shutdown.
	Signals <-chan os.Signal
}

// backgroundService describes a long-running loop started for an enabled service mode.
type backgroundService struct {
	name string
	run  func(ctx context.Context) error
}

// RunServicesWithShutdown runs enabled background services until a signal arrives or a service
// fails, then drains the pipeline within the configured shutdown timeout.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Engine == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services, err := buildBackgroundServices(cfg, logger)
	if err != nil {
		return err
	}

	signals := cfg.Signals
	if signals == nil {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		signals = quit
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, groupCtx := errgroup.WithContext(serviceCtx)
	for _, svc := range services {
		group.Go(func() error {
			logger.InfoContext(groupCtx, "starting background service", "service", svc.name)
			if runErr := svc.run(groupCtx); runErr != nil {
				return fmt.Errorf("%s: %w", svc.name, runErr)
			}
			logger.InfoContext(groupCtx, "background service stopped", "service", svc.name)
			return nil
		})
	}

	var serviceErr error
	select {
	case sig := <-signals:
		logger.Info("shutting down services...", "signal", sig.String())
	case <-groupCtx.Done():
		// A service returned an error; the group context is only cancelled by failures here.
		logger.Error("background service failed, shutting down")
	}
	cancel()
	serviceErr = group.Wait()
	if serviceErr != nil {
		logger.Error("service error", "error", serviceErr)
	}

	return errors.Join(serviceErr, gracefulStop(cfg.Engine, cfg.Config.Pipeline.ShutdownTimeout, logger))
}

// gracefulStop stops intake and drains queued jobs until the timeout, then cancels the rest.
func gracefulStop(engine *Engine, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := engine.Pipeline.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("drain timed out, active jobs were cancelled", "timeout", timeout)
			return nil
		}
		return fmt.Errorf("shutdown pipeline: %w", err)
	}
	logger.Info("pipeline drained")
	return nil
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) ([]backgroundService, error) {
	enabled, err := config.ParseServices(cfg.Config.Services)
	if err != nil {
		return nil, fmt.Errorf("determine enabled services: %w", err)
	}

	var services []backgroundService
	if enabled[config.ServiceModePurger] {
		runner, runnerErr := purger.NewRunner(purger.RunnerOptions{
			Jobs:    cfg.Engine.Jobs,
			Config:  cfg.Config.Purge,
			MaxAge:  cfg.Config.Pipeline.Expiration,
			Logger:  logger,
			Metrics: cfg.Metrics,
		})
		if runnerErr != nil {
			return nil, fmt.Errorf("create purge runner: %w", runnerErr)
		}
		services = append(services, backgroundService{name: string(config.ServiceModePurger), run: runner.Run})
	}
	return services, nil
}
