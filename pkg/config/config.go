package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tunogya/twin/pkg/logger"
	queue "github.com/tunogya/twin/pkg/queue/nats"
	"github.com/tunogya/twin/pkg/similarity"
)

// Provider names
const (
	ProviderDuckDB = "duckdb"
	ProviderSQLite = "sqlite"
	ProviderCSV    = "csv"
)

// Duration is a time.Duration that reads Go duration strings from YAML
type Duration struct{ time.Duration }

// UnmarshalYAML parses values such as "30s" or "72h"
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be scalar")
	}
	dd, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

// MarshalYAML writes the duration in Go syntax
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config is the root configuration shared by every binary
type Config struct {
	Provider string            `yaml:"provider"` // duckdb | sqlite | csv
	DuckDB   DuckDBConfig      `yaml:"duckdb"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	CSV      CSVConfig         `yaml:"csv"`
	NATS     NATSConfig        `yaml:"nats"`
	HTTP     HTTPConfig        `yaml:"http"`
	Engine   similarity.Config `yaml:"engine"`
	Log      logger.Config     `yaml:"log"`
}

// DuckDBConfig locates the primary store
type DuckDBConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig locates an existing stock database opened read-only
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CSVConfig locates snapshot and price files
type CSVConfig struct {
	Snapshots string `yaml:"snapshots"`
	Prices    string `yaml:"prices"`
}

// NATSConfig holds ingestion queue settings
type NATSConfig struct {
	URL            string   `yaml:"url"`
	Stream         string   `yaml:"stream"`
	ConsumerPrefix string   `yaml:"consumer_prefix"`
	MaxAge         Duration `yaml:"max_age"`
	AckWait        Duration `yaml:"ack_wait"`
	MaxDeliver     int      `yaml:"max_deliver"`
}

// Client converts the section into a queue client configuration
func (c NATSConfig) Client() queue.Config {
	cfg := queue.DefaultConfig()
	cfg.URL = c.URL
	cfg.StreamName = c.Stream
	cfg.MaxAge = c.MaxAge.Duration
	cfg.AckWait = c.AckWait.Duration
	cfg.MaxDeliver = c.MaxDeliver
	return cfg
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	RequestTimeout Duration `yaml:"request_timeout"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	q := queue.DefaultConfig()
	return Config{
		Provider: ProviderDuckDB,
		DuckDB:   DuckDBConfig{Path: "./data/twin.duckdb"},
		SQLite:   SQLiteConfig{Path: "./data/stock_data.db"},
		NATS: NATSConfig{
			URL:            q.URL,
			Stream:         q.StreamName,
			ConsumerPrefix: "twin-writer",
			MaxAge:         Duration{q.MaxAge},
			AckWait:        Duration{q.AckWait},
			MaxDeliver:     q.MaxDeliver,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: Duration{30 * time.Second},
			AllowedOrigins: []string{"*"},
		},
		Engine: similarity.DefaultConfig(),
		Log:    logger.Config{Level: "info"},
	}
}

// Load reads .env, the optional YAML file at path and environment overrides,
// then applies defaults and validates the result
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Provider = getEnv("TWIN_PROVIDER", c.Provider)
	c.DuckDB.Path = getEnv("TWIN_DUCKDB_PATH", c.DuckDB.Path)
	c.SQLite.Path = getEnv("TWIN_SQLITE_PATH", c.SQLite.Path)
	c.CSV.Snapshots = getEnv("TWIN_CSV_SNAPSHOTS", c.CSV.Snapshots)
	c.CSV.Prices = getEnv("TWIN_CSV_PRICES", c.CSV.Prices)
	c.NATS.URL = getEnv("TWIN_NATS_URL", c.NATS.URL)
	c.HTTP.Addr = getEnv("TWIN_HTTP_ADDR", c.HTTP.Addr)
	c.Log.Level = getEnv("TWIN_LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("TWIN_LOG_PRETTY", c.Log.Pretty)
}

func (c *Config) applyDefaults() {
	def := Default()

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = def.Provider
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = def.NATS.Stream
	}
	if c.NATS.ConsumerPrefix == "" {
		c.NATS.ConsumerPrefix = def.NATS.ConsumerPrefix
	}
	if c.NATS.MaxAge.Duration <= 0 {
		c.NATS.MaxAge = def.NATS.MaxAge
	}
	if c.NATS.AckWait.Duration <= 0 {
		c.NATS.AckWait = def.NATS.AckWait
	}
	if c.NATS.MaxDeliver <= 0 {
		c.NATS.MaxDeliver = def.NATS.MaxDeliver
	}
	if c.HTTP.RequestTimeout.Duration <= 0 {
		c.HTTP.RequestTimeout = def.HTTP.RequestTimeout
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = def.HTTP.AllowedOrigins
	}
	if c.Engine.DefaultLimit == 0 {
		c.Engine.DefaultLimit = def.Engine.DefaultLimit
	}
	if c.Engine.DefaultWeight == 0 {
		c.Engine.DefaultWeight = def.Engine.DefaultWeight
	}
	if c.Engine.Trend.Window <= 0 {
		c.Engine.Trend.Window = def.Engine.Trend.Window
	}
	if c.Engine.Trend.HorizonDays <= 0 {
		c.Engine.Trend.HorizonDays = def.Engine.Trend.HorizonDays
	}
	if c.Engine.Trend.MinOverlap <= 0 {
		c.Engine.Trend.MinOverlap = def.Engine.Trend.MinOverlap
	}
}

// Validate checks that the selected provider is fully configured
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderDuckDB:
		if c.DuckDB.Path == "" {
			errs = append(errs, errors.New("duckdb.path is required"))
		}
	case ProviderSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required"))
		}
	case ProviderCSV:
		if c.CSV.Snapshots == "" {
			errs = append(errs, errors.New("csv.snapshots is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (want duckdb, sqlite or csv)", c.Provider))
	}

	if c.Engine.DefaultWeight < 0 || c.Engine.DefaultWeight > 5 {
		errs = append(errs, fmt.Errorf("engine.default_weight %d outside [0,5]", c.Engine.DefaultWeight))
	}
	if c.Engine.Trend.MinOverlap < 2 {
		errs = append(errs, fmt.Errorf("engine.trend.min_overlap must be at least 2"))
	}

	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
