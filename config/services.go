package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available background services.
type ServiceMode string

const (
	// ServiceModePurger periodically purges expired jobs.
	ServiceModePurger ServiceMode = "purger"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModePurger}
}

// ParseServices parses a comma-delimited string of service names. "none" and an empty
// string disable every background service.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)
	if s := strings.TrimSpace(servicesStr); s == "" || s == "none" {
		return services, nil
	}

	for _, part := range strings.Split(servicesStr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		switch mode := ServiceMode(name); mode {
		case ServiceModePurger:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: purger, none)", name)
		}
	}
	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// PurgeConfig contains purge service configuration.
type PurgeConfig struct {
	// Interval is the purge tick interval.
	Interval time.Duration `env:"PURGE_INTERVAL" envDefault:"1h"`

	// BatchSize is the maximum number of records flagged per transaction.
	BatchSize int `env:"PURGE_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to purge configuration values.
func (p *PurgeConfig) Sanitize() {
	if p.Interval < time.Minute {
		p.Interval = time.Minute
	}
	if p.BatchSize < 1 {
		p.BatchSize = 1
	}
	if p.BatchSize > 10000 {
		p.BatchSize = 10000
	}
}
