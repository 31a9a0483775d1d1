// Package config loads service settings: defaults, then an optional YAML
// file, then environment overrides. Binaries apply command-line flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	HTTPAddr      string `yaml:"http_addr"`
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisURL      string `yaml:"redis_url"`

	PostgresPool PostgresPoolConfig `yaml:"postgres_pool"`
	Streaming    StreamingConfig    `yaml:"streaming"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Cache        CacheConfig        `yaml:"cache"`
	Seed         SeedConfig         `yaml:"seed"`
}

// PostgresPoolConfig sizes the durable store's connection pool. Zero keeps
// the pgx default.
type PostgresPoolConfig struct {
	MaxConns           int `yaml:"max_conns"`
	MinConns           int `yaml:"min_conns"`
	HealthCheckSeconds int `yaml:"health_check_seconds"`
}

// HealthCheckPeriod between idle connection checks.
func (p PostgresPoolConfig) HealthCheckPeriod() time.Duration {
	return time.Duration(p.HealthCheckSeconds) * time.Second
}

// StreamingConfig drives the event generator and the stream transports.
type StreamingConfig struct {
	IntervalSeconds    float64 `yaml:"interval_seconds"`
	MinIntervalSeconds float64 `yaml:"min_interval_seconds"`
	Seed               uint64  `yaml:"seed"` // 0 seeds from the clock
	BufferSize         int     `yaml:"buffer_size"`
}

// Interval is the base delay between generated events.
func (s StreamingConfig) Interval() time.Duration {
	return seconds(s.IntervalSeconds)
}

// MinInterval is the floor applied after jitter.
func (s StreamingConfig) MinInterval() time.Duration {
	return seconds(s.MinIntervalSeconds)
}

// CatalogConfig sizes the location and product catalog.
type CatalogConfig struct {
	Locations int `yaml:"locations"`
	Products  int `yaml:"products"`
}

// AlertsConfig drives the alert publisher.
type AlertsConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
	LowStockLimit   int     `yaml:"low_stock_limit"`
	AnomalyLimit    int     `yaml:"anomaly_limit"`
}

// Interval between detection passes.
func (a AlertsConfig) Interval() time.Duration {
	return seconds(a.IntervalSeconds)
}

// CacheConfig tunes the derived metrics cache.
type CacheConfig struct {
	// TTLSeconds overrides per-operation expiries.
	TTLSeconds        map[string]int `yaml:"ttl_seconds"`
	DefaultTTLSeconds int            `yaml:"default_ttl_seconds"`
	TimeoutMillis     int            `yaml:"timeout_ms"`
}

// TTLs converts the overrides to durations.
func (c CacheConfig) TTLs() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.TTLSeconds))
	for op, s := range c.TTLSeconds {
		out[op] = time.Duration(s) * time.Second
	}
	return out
}

// DefaultTTL for operations without an override.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// Timeout bounds each backend call.
func (c CacheConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// SeedConfig controls synthetic history.
type SeedConfig struct {
	Days int    `yaml:"days"`
	Seed uint64 `yaml:"seed"`
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr: ":8000",
		Streaming: StreamingConfig{
			IntervalSeconds:    5,
			MinIntervalSeconds: 3,
			BufferSize:         256,
		},
		Catalog: CatalogConfig{
			Locations: 10,
			Products:  50,
		},
		Alerts: AlertsConfig{
			IntervalSeconds: 60,
			LowStockLimit:   10,
			AnomalyLimit:    5,
		},
		Cache: CacheConfig{
			DefaultTTLSeconds: 30,
			TimeoutMillis:     500,
		},
		Seed: SeedConfig{
			Days: 90,
			Seed: 42,
		},
	}
}

// Environment variables read by Load.
const (
	EnvConfigPath    = "APP_CONFIG"
	EnvInterval      = "STREAMING_INTERVAL_SECONDS"
	EnvLocations     = "CATALOG_LOCATIONS"
	EnvProducts      = "CATALOG_PRODUCTS"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
	EnvRedisURL      = "REDIS_URL"
	EnvHTTPAddr      = "HTTP_ADDR"
	EnvUseMemory     = "USE_MEMORY"
	EnvPostgresMax   = "POSTGRES_MAX_CONNS"
)

// Load builds the configuration from defaults, the YAML file at path (or
// $APP_CONFIG when path is empty; no file is fine) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvInterval); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInterval, err)
		}
		cfg.Streaming.IntervalSeconds = f
	}
	if err := envInt(EnvLocations, &cfg.Catalog.Locations); err != nil {
		return err
	}
	if err := envInt(EnvProducts, &cfg.Catalog.Products); err != nil {
		return err
	}
	if err := envInt(EnvPostgresMax, &cfg.PostgresPool.MaxConns); err != nil {
		return err
	}
	envString(EnvPostgresDSN, &cfg.PostgresDSN)
	envString(EnvClickhouseDSN, &cfg.ClickhouseDSN)
	envString(EnvRedisURL, &cfg.RedisURL)
	envString(EnvHTTPAddr, &cfg.HTTPAddr)
	if v := os.Getenv(EnvUseMemory); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUseMemory, err)
		}
		cfg.UseMemory = b
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Streaming.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("streaming interval must be positive"))
	}
	if c.Streaming.MinIntervalSeconds < 0 {
		errs = append(errs, errors.New("streaming min interval must not be negative"))
	}
	if c.Catalog.Locations <= 0 {
		errs = append(errs, errors.New("catalog locations must be positive"))
	}
	if c.Catalog.Products <= 0 {
		errs = append(errs, errors.New("catalog products must be positive"))
	}
	if c.Alerts.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("alerts interval must be positive"))
	}
	pool := c.PostgresPool
	if pool.MaxConns < 0 || pool.MinConns < 0 || pool.HealthCheckSeconds < 0 {
		errs = append(errs, errors.New("postgres pool settings must not be negative"))
	}
	if pool.MaxConns > 0 && pool.MinConns > pool.MaxConns {
		errs = append(errs, fmt.Errorf("postgres pool min_conns %d exceeds max_conns %d", pool.MinConns, pool.MaxConns))
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres dsn is required unless use_memory is set"))
	}
	return errors.Join(errs...)
}

// LoadEnvFile sets variables from a KEY=VALUE file without overriding ones
// that already have a value. A missing file is ignored.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return nil
}
