package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"account-grid/pkg/logging"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config is the process configuration shared by the API server, the seeder
// and the grid.
type Config struct {
	Server  ServerConfig
	Grid    GridConfig
	Store   StoreConfig
	Breaker BreakerConfig
	Log     logging.Config

	// MetricsNamespace prefixes every Prometheus metric name
	MetricsNamespace string

	// SeedCount is the number of demo accounts the seeder generates
	SeedCount int
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// CORSOrigin is the grid origin allowed to call the API. "*" allows any.
	CORSOrigin string
}

// GridConfig configures paging for both ends of the wire.
type GridConfig struct {
	// APIBaseURL is where the grid client finds the API
	APIBaseURL string

	// DefaultPageSize is used by the grid on mount and by the API when pageSize is absent
	DefaultPageSize int

	// MaxPageSize caps pageSize on the API. 0 disables the cap.
	MaxPageSize int
}

// StoreConfig selects and configures the account store.
type StoreConfig struct {
	Driver   string
	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig holds the Redis store settings.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// PostgresConfig holds the PostgreSQL store settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// BreakerConfig configures the resilience wrapper around the store.
type BreakerConfig struct {
	// StoreTimeout bounds each store call
	StoreTimeout time.Duration

	// OpenTimeout is how long the breaker stays open before probing
	OpenTimeout time.Duration

	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures int
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigin:      "http://localhost:4200",
		},
		Grid: GridConfig{
			APIBaseURL:      "http://localhost:5000",
			DefaultPageSize: 10,
			MaxPageSize:     1000,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "bbbank:",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "postgres",
				Database: "bbbank",
				SSLMode:  "disable",
			},
		},
		Breaker: BreakerConfig{
			StoreTimeout:        5 * time.Second,
			OpenTimeout:         30 * time.Second,
			ConsecutiveFailures: 5,
		},
		Log:              logging.DefaultConfig(),
		MetricsNamespace: "bbbank",
		SeedCount:        100,
	}
}

// Load reads .env files (".env" when none are given, ignored if missing)
// into the environment and then builds the configuration from it.
// Variables already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", strings.Join(files, ","), err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds the configuration from environment variables over Default().
func FromEnv() (Config, error) {
	cfg := Default()
	r := &reader{}

	cfg.Server.Addr = r.String("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.ReadTimeout = r.Duration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = r.Duration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = r.Duration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.CORSOrigin = r.String("CORS_ORIGIN", cfg.Server.CORSOrigin)

	cfg.Grid.APIBaseURL = r.String("API_BASE_URL", cfg.Grid.APIBaseURL)
	cfg.Grid.DefaultPageSize = r.Int("GRID_DEFAULT_PAGE_SIZE", cfg.Grid.DefaultPageSize)
	cfg.Grid.MaxPageSize = r.Int("MAX_PAGE_SIZE", cfg.Grid.MaxPageSize)

	cfg.Store.Driver = strings.ToLower(r.String("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.Redis.Addr = r.String("REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = r.String("REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = r.Int("REDIS_DB", cfg.Store.Redis.DB)
	cfg.Store.Redis.KeyPrefix = r.String("REDIS_KEY_PREFIX", cfg.Store.Redis.KeyPrefix)
	cfg.Store.Postgres.Host = r.String("POSTGRES_HOST", cfg.Store.Postgres.Host)
	cfg.Store.Postgres.Port = r.Int("POSTGRES_PORT", cfg.Store.Postgres.Port)
	cfg.Store.Postgres.User = r.String("POSTGRES_USER", cfg.Store.Postgres.User)
	cfg.Store.Postgres.Password = r.String("POSTGRES_PASSWORD", cfg.Store.Postgres.Password)
	cfg.Store.Postgres.Database = r.String("POSTGRES_DB", cfg.Store.Postgres.Database)
	cfg.Store.Postgres.SSLMode = r.String("POSTGRES_SSLMODE", cfg.Store.Postgres.SSLMode)

	cfg.Breaker.StoreTimeout = r.Duration("STORE_TIMEOUT", cfg.Breaker.StoreTimeout)
	cfg.Breaker.OpenTimeout = r.Duration("BREAKER_OPEN_TIMEOUT", cfg.Breaker.OpenTimeout)
	cfg.Breaker.ConsecutiveFailures = r.Int("BREAKER_FAILURES", cfg.Breaker.ConsecutiveFailures)

	if r.Bool("LOG_DEV", false) {
		cfg.Log = logging.DevelopmentConfig()
	}
	cfg.Log.Level = r.String("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = r.String("LOG_FORMAT", cfg.Log.Format)

	cfg.MetricsNamespace = r.String("METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.SeedCount = r.Int("SEED_COUNT", cfg.SeedCount)

	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("config: SERVER_ADDR is empty"))
	}
	if c.Grid.DefaultPageSize < 1 {
		errs = append(errs, fmt.Errorf("config: GRID_DEFAULT_PAGE_SIZE must be >= 1, got %d", c.Grid.DefaultPageSize))
	}
	if c.Grid.MaxPageSize < 0 {
		errs = append(errs, fmt.Errorf("config: MAX_PAGE_SIZE must be >= 0, got %d", c.Grid.MaxPageSize))
	}
	if c.Grid.MaxPageSize > 0 && c.Grid.DefaultPageSize > c.Grid.MaxPageSize {
		errs = append(errs, fmt.Errorf("config: GRID_DEFAULT_PAGE_SIZE %d exceeds MAX_PAGE_SIZE %d", c.Grid.DefaultPageSize, c.Grid.MaxPageSize))
	}
	if u, err := url.Parse(c.Grid.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: API_BASE_URL %q is not an absolute URL", c.Grid.APIBaseURL))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("config: REDIS_ADDR is required for the redis driver"))
		}
	case DriverPostgres:
		if c.Store.Postgres.Host == "" || c.Store.Postgres.Database == "" {
			errs = append(errs, errors.New("config: POSTGRES_HOST and POSTGRES_DB are required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if c.Breaker.StoreTimeout < 0 {
		errs = append(errs, errors.New("config: STORE_TIMEOUT must not be negative"))
	}
	if c.Breaker.ConsecutiveFailures < 1 {
		errs = append(errs, fmt.Errorf("config: BREAKER_FAILURES must be >= 1, got %d", c.Breaker.ConsecutiveFailures))
	}
	if c.SeedCount < 0 {
		errs = append(errs, fmt.Errorf("config: SEED_COUNT must not be negative, got %d", c.SeedCount))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// reader looks up environment variables and collects parse errors.
type reader struct {
	errs []error
}

func (r *reader) String(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (r *reader) Int(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("config: invalid value for %s: %w", key, err))
			return fallback
		}
		return parsed
	}
	return fallback
}

func (r *reader) Bool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("config: invalid value for %s: %w", key, err))
			return fallback
		}
		return parsed
	}
	return fallback
}

func (r *reader) Duration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("config: invalid value for %s: %w", key, err))
			return fallback
		}
		return parsed
	}
	return fallback
}
