package config

import (
	"fmt"
	"strings"
)

// QuotaSource selects where per-user base quotas come from.
type QuotaSource string

const (
	QuotaSourceStatic QuotaSource = "static"
	QuotaSourceRedis  QuotaSource = "redis"
)

// QuotaConfig configures the base quota source.
type QuotaConfig struct {
	Source QuotaSource `env:"QUOTA_SOURCE" envDefault:"static"`
	// Base is the quota of every user for the static source, and the fallback for Redis.
	Base      int    `env:"QUOTA_BASE"       envDefault:"1000"`
	KeyPrefix string `env:"QUOTA_KEY_PREFIX" envDefault:"printmaker:quota:"`
}

// Sanitize normalizes the source name.
func (c *QuotaConfig) Sanitize() {
	c.Source = QuotaSource(strings.ToLower(strings.TrimSpace(string(c.Source))))
	if c.Base < 0 {
		c.Base = 0
	}
}

// Validate checks the source name.
func (c *QuotaConfig) Validate() error {
	switch c.Source {
	case QuotaSourceStatic, QuotaSourceRedis:
		return nil
	}
	return fmt.Errorf("invalid QUOTA_SOURCE %q (valid options: static, redis)", c.Source)
}
