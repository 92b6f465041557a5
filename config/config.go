package config

import (
	"errors"
	"fmt"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: storage and Redis configuration
//   - pipeline.go: spool, worker pool, watcher and collaborator selection
//   - quota.go: quota source configuration
//   - services.go: background services and the purger
type AppConfig struct {
	// Storage configuration
	DB    DBConfig    `envPrefix:"DB_"`
	Redis RedisConfig `envPrefix:"REDIS_"`

	Pipeline PipelineConfig
	Quota    QuotaConfig

	// Services is a comma-delimited list of background services.
	Services string `env:"SERVICES" envDefault:"purger"`

	Purge PurgeConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.DB.Sanitize()
	c.Pipeline.Sanitize()
	c.Quota.Sanitize()
	c.Purge.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports missing or inconsistent mandatory options. Call after Sanitize.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.DB.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Quota.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Quota.Source == QuotaSourceRedis && !c.Redis.Enabled {
		errs = append(errs, errors.New("QUOTA_SOURCE=redis requires REDIS_ENABLED=true"))
	}
	if _, err := ParseServices(c.Services); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
