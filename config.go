package ygggo_db

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const memorySchema = ":memory:"

// Session attribute controlling how classified errors are reported.
const (
	AttrErrorMode = "errmode"

	// ErrorModeRaise returns classified errors to the caller.
	ErrorModeRaise = "raise"
	// ErrorModeLog also writes every classified error to the logger.
	ErrorModeLog = "log"
)

// ClientOptions tunes the underlying database/sql pool.
type ClientOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// LoggingConfig turns on structured logging at connect time.
type LoggingConfig struct {
	Enabled bool
	// Logger defaults to a JSON logger on stdout.
	Logger *slog.Logger
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled bool
	// DriverSpans opens the pool through otelsql so every driver call
	// gets its own span.
	DriverSpans bool
}

type MetricsConfig struct {
	Enabled       bool
	MeterProvider metric.MeterProvider
}

// Config describes how to reach a database.
type Config struct {
	Driver   Engine
	Host     string
	Schema   string
	Username string
	Password string
	// DSNOptions are merged into the connection string as key=value pairs.
	DSNOptions    map[string]string
	ClientOptions ClientOptions
	// ClientAttributes are applied to the session after connecting.
	// AttrErrorMode defaults to ErrorModeRaise.
	ClientAttributes map[string]string

	// SQLDriver overrides the database/sql driver name (e.g. "pgx" or
	// "sqlmock" in tests). A driver the engine does not know is handed the
	// descriptor from DSN().
	SQLDriver string

	Retry              RetryPolicy
	Logging            LoggingConfig
	Telemetry          TelemetryConfig
	Metrics            MetricsConfig
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns a Config for e with the documented defaults.
func DefaultConfig(e Engine) Config {
	return Config{Driver: e}.withDefaults()
}

func (c Config) withDefaults() Config {
	if e, err := ParseEngine(string(c.Driver)); err == nil {
		c.Driver = e
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	attrs := make(map[string]string, len(c.ClientAttributes)+1)
	for k, v := range c.ClientAttributes {
		attrs[k] = v
	}
	if _, ok := attrs[AttrErrorMode]; !ok {
		attrs[AttrErrorMode] = ErrorModeRaise
	}
	c.ClientAttributes = attrs
	if c.DSNOptions != nil {
		c.DSNOptions = maps.Clone(c.DSNOptions)
	}
	return c
}

func (c Config) errorMode() (string, error) {
	mode := strings.ToLower(c.ClientAttributes[AttrErrorMode])
	switch mode {
	case "", ErrorModeRaise:
		return ErrorModeRaise, nil
	case ErrorModeLog:
		return ErrorModeLog, nil
	}
	return "", fmt.Errorf("ygggo_db: unknown %s %q", AttrErrorMode, mode)
}

// DSN returns the connection descriptor "{driver}:k=v;k=v". The DSN
// options come first in key order, followed by host and, when a schema is
// set, dbname. An SQLite ":memory:" schema yields "sqlite::memory:".
func (c Config) DSN() string {
	if c.Driver == EngineSQLite && c.Schema == memorySchema {
		return "sqlite::memory:"
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	keys := sortedKeys(c.DSNOptions)
	values := make(map[string]string, len(keys)+2)
	for _, k := range keys {
		values[k] = c.DSNOptions[k]
	}
	merge := func(k, v string) {
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = v
	}
	merge("host", host)
	if c.Schema != "" {
		merge("dbname", c.Schema)
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+values[k])
	}
	return string(c.Driver) + ":" + strings.Join(parts, ";")
}

// DataSourceName returns the string passed to sql.Open.
func (c Config) DataSourceName() (string, error) {
	cfg := c.withDefaults()
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return "", err
	}
	if cfg.SQLDriver != "" && !d.ownsSQLDriver(cfg.SQLDriver) {
		return cfg.DSN(), nil
	}
	return d.dataSourceName(cfg), nil
}

func (c Config) sqlDriverName(d dialect) string {
	if c.SQLDriver != "" {
		return c.SQLDriver
	}
	return d.defaultSQLDriver()
}

// Environment variables read by ConfigFromEnv.
const (
	EnvDriver     = "YGGGO_DB_DRIVER"
	EnvSQLDriver  = "YGGGO_DB_SQL_DRIVER"
	EnvHost       = "YGGGO_DB_HOST"
	EnvSchema     = "YGGGO_DB_SCHEMA"
	EnvUsername   = "YGGGO_DB_USERNAME"
	EnvPassword   = "YGGGO_DB_PASSWORD"
	EnvDSNOptions = "YGGGO_DB_DSN_OPTIONS" // k=v;k=v
	EnvErrorMode  = "YGGGO_DB_ERRMODE"
	EnvSlowQuery  = "YGGGO_DB_SLOW_QUERY_MS"
)

// ConfigFromEnv returns base with every YGGGO_DB_* variable that is set
// applied on top.
func ConfigFromEnv(base Config) (Config, error) {
	cfg := base
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) error {
	if v := getenv(EnvDriver); v != "" {
		e, err := ParseEngine(v)
		if err != nil {
			return err
		}
		c.Driver = e
	}
	if v := getenv(EnvSQLDriver); v != "" {
		c.SQLDriver = v
	}
	if v := getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := getenv(EnvSchema); v != "" {
		c.Schema = v
	}
	if v := getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Password = v
	}
	if v := getenv(EnvDSNOptions); v != "" {
		opts, err := parseOptionList(v)
		if err != nil {
			return err
		}
		merged := make(map[string]string, len(c.DSNOptions)+len(opts))
		maps.Copy(merged, c.DSNOptions)
		maps.Copy(merged, opts)
		c.DSNOptions = merged
	}
	if v := getenv(EnvErrorMode); v != "" {
		attrs := make(map[string]string, len(c.ClientAttributes)+1)
		for k, val := range c.ClientAttributes {
			attrs[k] = val
		}
		attrs[AttrErrorMode] = v
		c.ClientAttributes = attrs
	}
	if v := getenv(EnvSlowQuery); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ygggo_db: %s: %w", EnvSlowQuery, err)
		}
		c.SlowQueryThreshold = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// parseOptionList parses "k=v;k=v".
func parseOptionList(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("ygggo_db: malformed option %q", part)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
