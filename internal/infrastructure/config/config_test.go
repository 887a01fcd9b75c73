package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
)

// validJWTSecret meets the 32-character minimum.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "bench-1"
dictionary:
  definition: "/etc/dictd/laser.yaml"
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
  mirror:
    prefix: "lab/bench-1"
    format: cbor
    subscribe: ["laser1:enable"]
    userlevel: service
cli:
  port: 5025
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
  default_userlevel: readonly
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "bench-1" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "bench-1")
	}
	if cfg.Dictionary.Definition != "/etc/dictd/laser.yaml" {
		t.Errorf("Dictionary.Definition = %q", cfg.Dictionary.Definition)
	}
	if cfg.MQTT.Mirror.Format != "cbor" || cfg.MQTT.Mirror.Userlevel != access.Service {
		t.Errorf("Mirror = %+v", cfg.MQTT.Mirror)
	}
	if cfg.Security.DefaultUserlevel != access.Readonly {
		t.Errorf("DefaultUserlevel = %s, want readonly", cfg.Security.DefaultUserlevel)
	}
	// Defaults survive for unset keys.
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want default /ws", cfg.WebSocket.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidUserlevel(t *testing.T) {
	path := writeConfig(t, "security:\n  default_userlevel: superuser\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for unknown userlevel, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "device:\n  id: \"\"\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected validation error for empty device.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing device ID", func(c *Config) { c.Device.ID = "" }, "device.id"},
		{"missing definition", func(c *Config) { c.Dictionary.Definition = "" }, "dictionary.definition"},
		{"audit without database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"audit disabled without database", func(c *Config) {
			c.Audit.Enabled = false
			c.Database.Path = ""
		}, ""},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"mirror bad format", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Mirror.Format = "xml"
		}, "mqtt.mirror.format"},
		{"telemetry without influx", func(c *Config) { c.Telemetry.Enabled = true }, "telemetry requires"},
		{"invalid port low", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"invalid port high", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"api disabled ignores port", func(c *Config) {
			c.API.Enabled = false
			c.WebSocket.Enabled = false
			c.API.Port = 0
		}, ""},
		{"websocket without api", func(c *Config) { c.API.Enabled = false }, "websocket requires"},
		{"invalid cli port", func(c *Config) { c.CLI.Port = -1 }, "cli.port"},
		{"missing JWT secret", func(c *Config) { c.Security.JWT.Secret = "" }, "security.jwt.secret is required"},
		{"JWT secret too short", func(c *Config) { c.Security.JWT.Secret = "short" }, "at least 32"},
		{"bad userlevel name", func(c *Config) {
			c.Security.Userlevels = map[string]string{"root": "$argon2id$"}
		}, "security.userlevels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = validJWTSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	cfg := defaultConfig()
	cfg.Device.ID = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"device.id", "mqtt.qos", "security.jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestConfig_PasswordHashes(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.Userlevels = map[string]string{"service": "h1", "Internal": "h2"}

	got, err := cfg.PasswordHashes()
	if err != nil {
		t.Fatalf("PasswordHashes() error = %v", err)
	}
	if got[access.Service] != "h1" || got[access.Internal] != "h2" || len(got) != 2 {
		t.Errorf("PasswordHashes() = %v", got)
	}
}

func TestConfig_Durations(t *testing.T) {
	timeouts := APITimeoutConfig{Read: 30, Write: 45, Idle: 60}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"read", timeouts.ReadTimeout(), 30 * time.Second},
		{"write", timeouts.WriteTimeout(), 45 * time.Second},
		{"idle", timeouts.IdleTimeout(), time.Minute},
		{"token ttl", JWTConfig{TokenTTL: 5}.TTL(), 5 * time.Minute},
		{"token ttl unset", JWTConfig{}.TTL(), 15 * time.Minute},
		{"token ttl negative", JWTConfig{TokenTTL: -1}.TTL(), 15 * time.Minute},
		{"drain interval", TelemetryConfig{Interval: 7}.DrainInterval(), 7 * time.Second},
		{"drain interval unset", TelemetryConfig{}.DrainInterval(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("DICTD_DICTIONARY_DEFINITION", "/srv/dict.yaml")
	t.Setenv("DICTD_DATABASE_PATH", "/custom/path.db")
	t.Setenv("DICTD_MQTT_HOST", "mqtt.example.com")
	t.Setenv("DICTD_MQTT_USERNAME", "testuser")
	t.Setenv("DICTD_MQTT_PASSWORD", "testpass")
	t.Setenv("DICTD_API_HOST", "192.168.1.1")
	t.Setenv("DICTD_API_PORT", "9090")
	t.Setenv("DICTD_CLI_PORT", "not-a-number")
	t.Setenv("DICTD_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("DICTD_JWT_SECRET", "jwt-secret")
	t.Setenv("DICTD_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	checks := []struct {
		name      string
		got, want any
	}{
		{"Dictionary.Definition", cfg.Dictionary.Definition, "/srv/dict.yaml"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"API.Port", cfg.API.Port, 9090},
		{"CLI.Port", cfg.CLI.Port, 5025},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Security.JWT.Secret", cfg.Security.JWT.Secret, "jwt-secret"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Device.ID == "" {
		t.Error("defaultConfig should have non-empty Device.ID")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Security.DefaultUserlevel != access.Normal {
		t.Errorf("defaultConfig DefaultUserlevel = %s, want normal", cfg.Security.DefaultUserlevel)
	}
}
