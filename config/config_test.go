package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/accrue/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  request_timeout: 5s

database:
  driver: "sqlite"
  path: "/var/lib/accrue/accrue.db"

cache:
  enabled: false
  ttl: 1m

engine:
  timezone: "America/New_York"

logging:
  level: debug
  format: console

mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  qos: 1
  retain: true
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
	}
	if cfg.Database.Driver != config.DriverPureGo || cfg.Database.Path != "/var/lib/accrue/accrue.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false")
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("Cache.TTL = %v, want 1m", cfg.Cache.TTL)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.QoS != 1 || !cfg.MQTT.Retain {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.MQTT.TopicPrefix != "accrue" {
		t.Errorf("MQTT.TopicPrefix = %s, want default accrue", cfg.MQTT.TopicPrefix)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Database.Driver != config.DriverSQLite || cfg.Database.Path != "accrue.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !cfg.Metrics.Enabled || !cfg.OpenAPI.Enabled {
		t.Error("metrics and openapi should default to enabled")
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt should default to disabled")
	}
	if cfg.Engine.Timezone != "UTC" {
		t.Errorf("Timezone = %s, want UTC", cfg.Engine.Timezone)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ACCRUE_DB", "/tmp/expanded.db")

	cfg := writeAndLoad(t, `
database:
  path: "${TEST_ACCRUE_DB}"
`)
	if cfg.Database.Path != "/tmp/expanded.db" {
		t.Errorf("Database.Path = %s, want /tmp/expanded.db", cfg.Database.Path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad driver", "database:\n  driver: postgres\n", "database.driver"},
		{"bad timezone", "engine:\n  timezone: Nowhere/Land\n", "engine.timezone"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"negative ttl", "cache:\n  ttl: -1s\n", "cache.ttl"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n", "mqtt.broker"},
		{"mqtt bad qos", "mqtt:\n  enabled: true\n  broker: tcp://x:1883\n  qos: 3\n", "mqtt.qos"},
		{"invalid yaml", "server: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ACCRUE_SERVER_PORT", "7070")
	t.Setenv("ACCRUE_DATABASE_DRIVER", "memory")
	t.Setenv("ACCRUE_CACHE_ENABLED", "no")
	t.Setenv("ACCRUE_CACHE_TTL", "10s")
	t.Setenv("ACCRUE_TIMEZONE", "Europe/Paris")
	t.Setenv("ACCRUE_LOG_LEVEL", "warn")
	t.Setenv("ACCRUE_MQTT_BROKER", "tcp://broker:1883")

	cfg := writeAndLoad(t, `
server:
  port: 9090
database:
  driver: sqlite3
engine:
  timezone: UTC
`)

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Database.Driver != config.DriverMemory {
		t.Errorf("Driver = %s, want memory", cfg.Database.Driver)
	}
	if cfg.Cache.Enabled || cfg.Cache.TTL != 10*time.Second {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Engine.Timezone != "Europe/Paris" || cfg.Logging.Level != "warn" {
		t.Errorf("Engine = %+v, Logging = %+v", cfg.Engine, cfg.Logging)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("ACCRUE_SERVER_PORT", "not-a-port")
	t.Setenv("ACCRUE_CACHE_TTL", "forever")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("invalid env values should fall back to defaults, got port %d ttl %v", cfg.Server.Port, cfg.Cache.TTL)
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file exists", func(t *testing.T) {
		cfg, err := config.LoadWithFallback(writeFile(t, "server:\n  port: 9191\n"))
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if cfg.Server.Port != 9191 {
			t.Errorf("Port = %d, want 9191", cfg.Server.Port)
		}
	})

	t.Run("missing file uses env", func(t *testing.T) {
		t.Setenv("ACCRUE_SERVER_PORT", "9292")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if cfg.Server.Port != 9292 {
			t.Errorf("Port = %d, want 9292", cfg.Server.Port)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		cfg, err := config.LoadWithFallback("")
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if cfg.Server.Port == 0 {
			t.Error("defaults not applied")
		}
	})
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{" on ", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ACCRUE_METRICS_ENABLED", tt.value)
			cfg, err := config.LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv error: %v", err)
			}
			if cfg.Metrics.Enabled != tt.want {
				t.Errorf("Metrics.Enabled = %v, want %v", cfg.Metrics.Enabled, tt.want)
			}
		})
	}
}

func TestValidate_CodeBuiltConfig(t *testing.T) {
	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
	cfg.Database.Driver = "mysql"
	if err := config.Validate(cfg); err == nil {
		t.Error("expected error for unknown driver")
	}
}

// Helpers

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeFile(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}
