package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/adapters/analyzer"
	"github.com/target/printmaker/internal/adapters/idgen"
	"github.com/target/printmaker/internal/adapters/jobrunner"
	"github.com/target/printmaker/internal/adapters/spool"
	"github.com/target/printmaker/internal/adapters/transmit"
	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/data"
	"github.com/target/printmaker/internal/data/memstore"
	"github.com/target/printmaker/internal/domain/balancer"
	"github.com/target/printmaker/internal/observability/statsd"
	"github.com/target/printmaker/internal/service"
)

// EngineDeps contains the infrastructure the engine is built on.
type EngineDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // nil for the memory driver
	RedisClient redis.UniversalClient // required when QUOTA_SOURCE=redis
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// Engine holds the wired print pipeline and the stores behind it.
type Engine struct {
	Jobs     core.JobStore
	Queues   core.QueueStore
	Quota    core.QuotaSource
	Spool    *spool.Dir
	Pool     *jobrunner.Pool
	Registry *balancer.Registry
	Manager  *service.QueueManager
	Pipeline *service.Pipeline
}

// NewEngine builds stores, collaborators, the worker pool and the pipeline from configuration.
func NewEngine(deps *EngineDeps) (*Engine, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("engine config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobs, queues, err := buildStores(deps, logger)
	if err != nil {
		return nil, err
	}
	quota, err := buildQuotaSource(cfg.Quota, deps.RedisClient)
	if err != nil {
		return nil, err
	}

	sp, err := spool.New(spool.Options{
		Dir:     cfg.Pipeline.SpoolDir,
		WorkDir: filepath.Join(cfg.Pipeline.SpoolDir, "work"),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	ids, ok := idgen.ByName(cfg.Pipeline.IDGenerator)
	if !ok {
		return nil, fmt.Errorf("unknown id generator %q", cfg.Pipeline.IDGenerator)
	}
	transmitter, err := buildTransmitter(cfg.Pipeline, queues, logger)
	if err != nil {
		return nil, err
	}

	registry, err := balancer.NewRegistry(balancer.RegistryOptions{
		Store:    queues,
		Policies: balancer.NewPolicies(balancer.PoliciesOptions{PageDuration: cfg.Pipeline.PageDuration}),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create balancer registry: %w", err)
	}
	manager, err := service.NewQueueManager(service.QueueManagerOptions{
		Queues:   queues,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create queue manager: %w", err)
	}

	pool := jobrunner.NewPool(jobrunner.PoolOptions{
		MinWorkers:    cfg.Pipeline.WorkersMin,
		MaxWorkers:    cfg.Pipeline.WorkersMax,
		QueueCapacity: cfg.Pipeline.WorkerQueueCapacity,
		IdleTimeout:   cfg.Pipeline.WorkerIdleTimeout,
		Logger:        logger,
		Metrics:       deps.Metrics,
	})

	pipeline, err := service.NewPipeline(service.PipelineOptions{
		Jobs:             jobs,
		Spool:            sp,
		Analyzer:         buildAnalyzer(cfg.Pipeline, logger),
		Transmitter:      transmitter,
		Runner:           pool,
		Queues:           manager,
		IDs:              ids,
		Validators:       []service.Validator{service.QuotaValidator(jobs, quota)},
		ColourMultiplier: cfg.Pipeline.ColourPageCost,
		WatchInterval:    cfg.Pipeline.WatchInterval,
		WatchTimeout:     cfg.Pipeline.WatchTimeout,
		PurgeBatchSize:   cfg.Purge.BatchSize,
		Logger:           logger,
		Metrics:          deps.Metrics,
	})
	if err != nil {
		shutdownErr := pool.Shutdown(context.Background())
		return nil, errors.Join(fmt.Errorf("create pipeline: %w", err), shutdownErr)
	}

	return &Engine{
		Jobs:     jobs,
		Queues:   queues,
		Quota:    quota,
		Spool:    sp,
		Pool:     pool,
		Registry: registry,
		Manager:  manager,
		Pipeline: pipeline,
	}, nil
}

func buildStores(deps *EngineDeps, logger *slog.Logger) (core.JobStore, core.QueueStore, error) {
	if deps.Config.DB.Driver == config.DBDriverMemory {
		return memstore.NewJobStore(memstore.Options{Logger: logger}), memstore.NewQueueStore(), nil
	}
	if deps.DB == nil {
		return nil, nil, fmt.Errorf("database handle is required for driver %q", deps.Config.DB.Driver)
	}
	dialect, err := data.ParseDialect(string(deps.Config.DB.Driver))
	if err != nil {
		return nil, nil, err
	}
	repoCfg := data.RepoConfig{Dialect: dialect, Logger: logger}
	return data.NewPrintJobRepo(deps.DB, repoCfg), data.NewQueueRepo(deps.DB, repoCfg), nil
}

//nolint:ireturn // the quota source is selected at runtime.
func buildQuotaSource(cfg config.QuotaConfig, client redis.UniversalClient) (core.QuotaSource, error) {
	if cfg.Source != config.QuotaSourceRedis {
		return data.StaticQuota(cfg.Base), nil
	}
	repo, err := data.NewRedisQuotaRepo(client, data.RedisQuotaRepoOptions{
		KeyPrefix: cfg.KeyPrefix,
		Fallback:  cfg.Base,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis quota source: %w", err)
	}
	return repo, nil
}

//nolint:ireturn // the analyzer is selected at runtime.
func buildAnalyzer(cfg config.PipelineConfig, logger *slog.Logger) core.DocumentAnalyzer {
	if cfg.Analyzer == config.AnalyzerGhostscript {
		return analyzer.NewGhostscript(analyzer.GhostscriptOptions{Path: cfg.GhostscriptPath, Logger: logger})
	}
	return analyzer.DSC{}
}

//nolint:ireturn // the transmitter is selected at runtime.
func buildTransmitter(cfg config.PipelineConfig, queues core.QueueStore, logger *slog.Logger) (core.Transmitter, error) {
	if cfg.Transmitter != config.TransmitterSocket {
		return transmit.NewLog(logger), nil
	}
	socket, err := transmit.NewSocket(transmit.SocketOptions{
		Destinations: queues,
		Timeout:      cfg.TransmitTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create socket transmitter: %w", err)
	}
	return socket, nil
}

// BuildMetrics returns a StatsD client, disabled unless metrics are configured.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}
	return client, nil
}
