package config

import (
	"fmt"
	"strings"
)

// DBDriver selects the job and queue storage backend.
type DBDriver string

const (
	DBDriverPostgres DBDriver = "pgx"
	DBDriverSQLite   DBDriver = "sqlite3"
	DBDriverMemory   DBDriver = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for DBDriver.
func (d *DBDriver) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "", "pgx", "postgres":
		*d = DBDriverPostgres
	case "sqlite3", "sqlite":
		*d = DBDriverSQLite
	case "memory":
		*d = DBDriverMemory
	default:
		return fmt.Errorf("invalid DBDriver: %q (valid options: pgx, sqlite3, memory)", v)
	}
	return nil
}

// DBConfig contains storage configuration.
type DBConfig struct {
	Driver   DBDriver `env:"DRIVER"   envDefault:"pgx"`
	Host     string   `env:"HOST"     envDefault:"localhost"`
	Port     int      `env:"PORT"     envDefault:"5432"`
	User     string   `env:"USER"     envDefault:"printmaker"`
	Password string   `env:"PASSWORD" envDefault:"printmaker"`
	Name     string   `env:"NAME"     envDefault:"printmaker"`
	SSLMode  string   `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// Path is the SQLite database file.
	Path string `env:"PATH" envDefault:"printmaker.db"`
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	// SeedFile is an optional YAML file of queues and destinations applied at startup.
	SeedFile string `env:"SEED_FILE"`
}

// Sanitize trims free-form fields.
func (c *DBConfig) Sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	c.Path = strings.TrimSpace(c.Path)
	c.SeedFile = strings.TrimSpace(c.SeedFile)
	if c.Driver == "" {
		c.Driver = DBDriverPostgres
	}
}

// Validate checks the connection settings of the selected driver.
func (c *DBConfig) Validate() error {
	switch c.Driver {
	case DBDriverPostgres:
		if c.Host == "" || c.Name == "" || c.Port <= 0 {
			return fmt.Errorf("postgres storage requires DB_HOST, DB_PORT and DB_NAME")
		}
	case DBDriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("sqlite storage requires DB_PATH")
		}
	case DBDriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
	return nil
}

// DSN returns the Postgres connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// SQLiteDSN returns the SQLite connection string with foreign keys enforced.
func (c *DBConfig) SQLiteDSN() string {
	return "file:" + c.Path + "?_foreign_keys=on&_busy_timeout=5000"
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	Enabled            bool     `env:"ENABLED"              envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
