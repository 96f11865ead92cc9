// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Database drivers. DriverMemory keeps everything in process.
const (
	DriverSQLite  = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverPureGo  = "sqlite"  // modernc.org/sqlite
	DriverMemory  = "memory"
	envPrefix     = "ACCRUE_"
	defaultDBPath = "accrue.db"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures storage.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3", "sqlite" or "memory"
	Path   string `yaml:"path"`
}

// CacheConfig configures the read-through cache in front of storage.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// EngineConfig configures the accrual engine.
type EngineConfig struct {
	Timezone string `yaml:"timezone"` // IANA name used for calendar days
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTConfig configures item state publishing.
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	TopicPrefix    string        `yaml:"topic_prefix"`
	Username       string        `yaml:"username,omitempty"`
	Password       string        `yaml:"password,omitempty"`
	QoS            int           `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Location resolves Engine.Timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return loc, nil
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	ACCRUE_SERVER_HOST       - Server host (default: 0.0.0.0)
//	ACCRUE_SERVER_PORT       - Server port (default: 8080)
//	ACCRUE_DATABASE_DRIVER   - sqlite3, sqlite or memory (default: sqlite3)
//	ACCRUE_DATABASE_PATH     - Database file (default: accrue.db)
//	ACCRUE_CACHE_ENABLED     - Cache storage reads (default: true)
//	ACCRUE_CACHE_TTL         - Cache entry lifetime (default: 5m)
//	ACCRUE_TIMEZONE          - Calendar-day timezone (default: UTC)
//	ACCRUE_LOG_LEVEL         - debug, info, warn, error (default: info)
//	ACCRUE_LOG_FORMAT        - json or console (default: json)
//	ACCRUE_METRICS_ENABLED   - Enable /metrics (default: true)
//	ACCRUE_OPENAPI_ENABLED   - Enable Swagger UI (default: true)
//	ACCRUE_MQTT_BROKER       - Broker URL; setting it enables publishing
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise. accrue runs with no configuration at all.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// Default returns the configuration used when nothing is set. Boolean
// switches default to on so that a YAML file can turn them off.
func Default() *Config {
	cfg := &Config{
		Cache:   CacheConfig{Enabled: true},
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
	}
	setDefaults(cfg)
	return cfg
}

// applyEnvOverrides applies ACCRUE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := env("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := env("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := env("SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := env("SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := env("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := env("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Cache configuration
	if v := env("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := env("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}

	if v := env("TIMEZONE"); v != "" {
		cfg.Engine.Timezone = v
	}

	// Logging configuration
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := env("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := env("OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}

	// MQTT configuration
	if v := env("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	if v := env("MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = parseBool(v)
	}
	if v := env("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := env("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := env("MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}
}

func env(name string) string {
	return os.Getenv(envPrefix + name)
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" && cfg.Database.Driver != DriverMemory {
		cfg.Database.Path = defaultDBPath
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}

	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "UTC"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "accrue"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "accrue"
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = 10 * time.Second
	}
	if cfg.MQTT.PublishTimeout == 0 {
		cfg.MQTT.PublishTimeout = 5 * time.Second
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPureGo, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of: sqlite3, sqlite, memory, got %q", cfg.Database.Driver)
	}

	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
		}
	}

	return nil
}

// Validate checks a configuration built in code.
func Validate(cfg *Config) error {
	return validate(cfg)
}
