package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Analyzer names.
const (
	AnalyzerDSC         = "dsc"
	AnalyzerGhostscript = "ghostscript"
)

// Transmitter names.
const (
	TransmitterLog    = "log"
	TransmitterSocket = "socket"
)

// PipelineConfig configures job processing.
type PipelineConfig struct {
	// SpoolDir holds compressed submissions. Defaults to $TMPDIR/printmaker.
	SpoolDir string `env:"SPOOL_DIR"`

	// Expiration is the age after which purge flags records deleted.
	Expiration time.Duration `env:"JOB_EXPIRATION" envDefault:"24h"`

	// PageDuration is the estimated print time of one page for shortest-wait balancing.
	PageDuration time.Duration `env:"PAGE_DURATION" envDefault:"1500ms"`

	WatchInterval time.Duration `env:"WATCH_INTERVAL" envDefault:"1s"`
	WatchTimeout  time.Duration `env:"WATCH_TIMEOUT"  envDefault:"120s"`

	// ColourPageCost is the quota cost of a colour page relative to a monochrome page.
	ColourPageCost int `env:"COLOUR_PAGE_COST" envDefault:"3"`

	WorkersMin          int           `env:"WORKERS_MIN"           envDefault:"5"`
	WorkersMax          int           `env:"WORKERS_MAX"           envDefault:"30"`
	WorkerQueueCapacity int           `env:"WORKER_QUEUE_CAPACITY" envDefault:"300"`
	WorkerIdleTimeout   time.Duration `env:"WORKER_IDLE_TIMEOUT"   envDefault:"10m"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"30s"`

	Analyzer        string `env:"ANALYZER"         envDefault:"dsc"`
	GhostscriptPath string `env:"GHOSTSCRIPT_PATH" envDefault:"gs"`

	Transmitter     string        `env:"TRANSMITTER"      envDefault:"log"`
	TransmitTimeout time.Duration `env:"TRANSMIT_TIMEOUT" envDefault:"30s"`

	IDGenerator string `env:"ID_GENERATOR" envDefault:"uuid"`
}

// Sanitize applies guardrails to pipeline values.
func (c *PipelineConfig) Sanitize() {
	c.SpoolDir = strings.TrimSpace(c.SpoolDir)
	if c.SpoolDir == "" {
		c.SpoolDir = filepath.Join(os.TempDir(), "printmaker")
	}
	if c.Expiration < 0 {
		c.Expiration = 0
	}
	if c.PageDuration <= 0 {
		c.PageDuration = 1500 * time.Millisecond
	}
	if c.WatchInterval < 10*time.Millisecond {
		c.WatchInterval = 10 * time.Millisecond
	}
	if c.WatchTimeout < c.WatchInterval {
		c.WatchTimeout = c.WatchInterval
	}
	if c.ColourPageCost < 1 {
		c.ColourPageCost = 1
	}
	if c.WorkersMin < 1 {
		c.WorkersMin = 1
	}
	if c.WorkersMax < c.WorkersMin {
		c.WorkersMax = c.WorkersMin
	}
	if c.WorkerQueueCapacity < 1 {
		c.WorkerQueueCapacity = 1
	}
	if c.WorkerIdleTimeout < time.Second {
		c.WorkerIdleTimeout = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.TransmitTimeout <= 0 {
		c.TransmitTimeout = 30 * time.Second
	}
	c.Analyzer = strings.ToLower(strings.TrimSpace(c.Analyzer))
	c.Transmitter = strings.ToLower(strings.TrimSpace(c.Transmitter))
	c.IDGenerator = strings.ToLower(strings.TrimSpace(c.IDGenerator))
}

// Validate checks collaborator names.
func (c *PipelineConfig) Validate() error {
	switch c.Analyzer {
	case AnalyzerDSC, AnalyzerGhostscript:
	default:
		return fmt.Errorf("invalid ANALYZER %q (valid options: dsc, ghostscript)", c.Analyzer)
	}
	switch c.Transmitter {
	case TransmitterLog, TransmitterSocket:
	default:
		return fmt.Errorf("invalid TRANSMITTER %q (valid options: log, socket)", c.Transmitter)
	}
	switch c.IDGenerator {
	case "", "uuid", "random":
	default:
		return fmt.Errorf("invalid ID_GENERATOR %q (valid options: uuid, random)", c.IDGenerator)
	}
	return nil
}
