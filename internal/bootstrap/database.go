package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/data"
	"github.com/target/printmaker/internal/migrate"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the SQL database selected by DB_DRIVER. It returns a nil handle for the
// memory driver.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBConfig.Driver {
	case config.DBDriverMemory:
		return nil, nil
	case config.DBDriverSQLite:
		db, err = sql.Open(string(data.DialectSQLite), cfg.DBConfig.SQLiteDSN())
		if err == nil {
			// SQLite serializes writers; a single connection avoids SQLITE_BUSY between them.
			db.SetMaxOpenConns(1)
		}
	default:
		db, err = sql.Open(string(data.DialectPostgres), postgresURL(cfg.DBConfig))
		if err == nil {
			// Configure connection pool
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		if cfg.DBConfig.Driver == config.DBDriverSQLite {
			cfg.Logger.Info("database connected", "driver", cfg.DBConfig.Driver, "path", cfg.DBConfig.Path)
		} else {
			cfg.Logger.Info("database connected",
				"driver", cfg.DBConfig.Driver,
				"host", cfg.DBConfig.Host,
				"port", cfg.DBConfig.Port,
				"database", cfg.DBConfig.Name,
			)
		}
	}

	return db, nil
}

// postgresURL builds the DSN with url.URL to safely handle special characters in credentials.
func postgresURL(c config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectRedis establishes a connection to Redis. Cluster and sentinel modes are selected by
// configuration; a redis:// or rediss:// URI is parsed for direct connections.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, addrDesc, err := universalOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	var client redis.UniversalClient
	if cfg.RedisConfig.UseCluster {
		// A single seed address would otherwise produce a plain client.
		client = redis.NewClusterClient(opts.Cluster())
	} else {
		client = redis.NewUniversalClient(opts)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "addr", addrDesc)
	}
	return client, nil
}

// universalOptions maps RedisConfig onto redis.UniversalOptions and returns a credential-free
// description of the target for logging.
func universalOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	opts := &redis.UniversalOptions{Password: cfg.Password}

	switch {
	case cfg.UseCluster:
		addrs := normalizeAddrs(cfg.ClusterNodes)
		if len(addrs) == 0 {
			fallback, err := parseDirect(cfg.URI, opts)
			if err != nil {
				return nil, "", err
			}
			addrs = fallback
		}
		if len(addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		opts.Addrs = addrs
		return opts, "cluster:" + strings.Join(addrs, ","), nil

	case cfg.UseSentinel:
		addrs := normalizeAddrs(cfg.SentinelNodes)
		if len(addrs) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		opts.Addrs = addrs
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, "sentinel:" + cfg.SentinelMasterName, nil
	}

	addrs, err := parseDirect(cfg.URI, opts)
	if err != nil {
		return nil, "", err
	}
	if len(addrs) == 0 {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}
	opts.Addrs = addrs
	return opts, addrs[0], nil
}

// parseDirect resolves a single-node URI. URL forms may carry credentials, TLS and a DB index,
// which are copied into opts.
func parseDirect(uri string, opts *redis.UniversalOptions) ([]string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return []string{uri}, nil
	}
	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if parsed.Username != "" {
		opts.Username = parsed.Username
	}
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	opts.DB = parsed.DB
	opts.TLSConfig = parsed.TLSConfig
	return []string{parsed.Addr}, nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// RunMigrations runs database migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}

// ApplySeedFile loads a YAML seed file of queues and destinations into store. An empty path
// is a no-op.
func ApplySeedFile(ctx context.Context, store core.QueueStore, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	seed, err := data.LoadSeedFile(path)
	if err != nil {
		return err
	}
	if err := data.ApplySeed(ctx, store, seed); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "seed applied",
			"file", path,
			"queues", len(seed.Queues),
			"destinations", len(seed.Destinations),
		)
	}
	return nil
}
