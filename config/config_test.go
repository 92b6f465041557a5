package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{name: "purger", input: "purger", expected: map[ServiceMode]bool{ServiceModePurger: true}},
		{name: "with spaces", input: " purger , ", expected: map[ServiceMode]bool{ServiceModePurger: true}},
		{name: "empty disables all", input: "", expected: map[ServiceMode]bool{}},
		{name: "none disables all", input: "none", expected: map[ServiceMode]bool{}},
		{name: "invalid", input: "purger,http", expectError: true},
		{name: "only separators", input: ",,", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidServiceModes(t *testing.T) {
	assert.Equal(t, []ServiceMode{ServiceModePurger}, ValidServiceModes())
}

func TestAppConfig_ParseEnvDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/var/lib/printmaker/jobs.db")
	t.Setenv("WORKERS_MAX", "2")
	t.Setenv("TRANSMITTER", " Socket ")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DBDriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "file:/var/lib/printmaker/jobs.db?_foreign_keys=on&_busy_timeout=5000", cfg.DB.SQLiteDSN())
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.Expiration)
	assert.Equal(t, 1500*time.Millisecond, cfg.Pipeline.PageDuration)
	assert.Equal(t, time.Second, cfg.Pipeline.WatchInterval)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.WatchTimeout)
	assert.Equal(t, 3, cfg.Pipeline.ColourPageCost)
	assert.Equal(t, 5, cfg.Pipeline.WorkersMin)
	assert.Equal(t, 5, cfg.Pipeline.WorkersMax, "max is raised to min")
	assert.Equal(t, 300, cfg.Pipeline.WorkerQueueCapacity)
	assert.Equal(t, TransmitterSocket, cfg.Pipeline.Transmitter)
	assert.NotEmpty(t, cfg.Pipeline.SpoolDir)
	assert.Equal(t, QuotaSourceStatic, cfg.Quota.Source)
	assert.Equal(t, 1000, cfg.Quota.Base)
	assert.Equal(t, 500, cfg.Purge.BatchSize)
}

func TestAppConfig_Validate(t *testing.T) {
	base := func() AppConfig {
		var cfg AppConfig
		require.NoError(t, env.Parse(&cfg))
		cfg.Sanitize()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		errMsg string
	}{
		{"redis quota without redis", func(c *AppConfig) { c.Quota.Source = QuotaSourceRedis }, "REDIS_ENABLED"},
		{"unknown analyzer", func(c *AppConfig) { c.Pipeline.Analyzer = "ocr" }, "ANALYZER"},
		{"unknown quota source", func(c *AppConfig) { c.Quota.Source = "ldap" }, "QUOTA_SOURCE"},
		{"missing postgres host", func(c *AppConfig) { c.DB.Host = "" }, "DB_HOST"},
		{"missing sqlite path", func(c *AppConfig) { c.DB.Driver = DBDriverSQLite; c.DB.Path = "" }, "DB_PATH"},
		{"bad services", func(c *AppConfig) { c.Services = "http" }, "invalid service name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := base()
	cfg.DB.Driver = DBDriverMemory
	assert.NoError(t, cfg.Validate())
}

func TestDBDriver_UnmarshalText(t *testing.T) {
	var d DBDriver
	require.NoError(t, d.UnmarshalText([]byte("postgres")))
	assert.Equal(t, DBDriverPostgres, d)
	require.NoError(t, d.UnmarshalText([]byte("MEMORY")))
	assert.Equal(t, DBDriverMemory, d)
	assert.Error(t, d.UnmarshalText([]byte("mysql")))
}

func TestPurgeConfig_Sanitize(t *testing.T) {
	p := PurgeConfig{Interval: time.Second, BatchSize: 50000}
	p.Sanitize()
	assert.Equal(t, time.Minute, p.Interval)
	assert.Equal(t, 10000, p.BatchSize)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	c := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	c.Sanitize()
	assert.False(t, c.IsEnabled())

	c = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " 127.0.0.1:8125 "}
	c.Sanitize()
	assert.True(t, c.IsEnabled())
	assert.Equal(t, "127.0.0.1:8125", c.StatsdAddress)
}
