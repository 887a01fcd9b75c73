package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
)

// Config is the root configuration structure for dictd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Database   DatabaseConfig   `yaml:"database"`
	Audit      AuditConfig      `yaml:"audit"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	CLI        CLIConfig        `yaml:"cli"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// DeviceConfig identifies the device serving the dictionary.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DictionaryConfig locates the dictionary definition.
type DictionaryConfig struct {
	// Definition is the path of the YAML node definition file.
	Definition string `yaml:"definition"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuditConfig controls the request and connection audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Requests records every raw request, not only connects and disconnects.
	Requests bool `yaml:"requests"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Mirror    MirrorConfig        `yaml:"mirror"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MirrorConfig configures the MQTT mirror session.
type MirrorConfig struct {
	// Prefix is the topic root, e.g. "dictd/laser-bench".
	Prefix string `yaml:"prefix"`

	// Format is the payload encoding: "json" or "cbor".
	Format string `yaml:"format"`

	// Subscribe lists the leaf URIs mirrored; empty mirrors every leaf.
	Subscribe []string `yaml:"subscribe"`

	// ReadOnly disables the <prefix>/set/# write path.
	ReadOnly bool `yaml:"read_only"`

	// Userlevel is the level inbound writes are performed at.
	Userlevel access.Userlevel `yaml:"userlevel"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// TelemetryConfig configures the periodic telemetry session.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval is the drain period in seconds.
	Interval int `yaml:"interval"`

	// Measurement is the InfluxDB measurement name.
	Measurement string `yaml:"measurement"`

	// Subscribe lists the leaf URIs sampled; empty samples every parameter.
	Subscribe []string `yaml:"subscribe"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// CLIConfig contains the line-oriented TCP console settings.
type CLIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// IdleTimeout closes connections silent for this many seconds; 0 disables.
	IdleTimeout int `yaml:"idle_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`

	// Userlevels maps a level name to the Argon2id PHC hash of the password
	// that unlocks it.
	Userlevels map[string]string `yaml:"userlevels"`

	// DefaultUserlevel is the level new sessions start at.
	DefaultUserlevel access.Userlevel `yaml:"default_userlevel"`
}

// JWTConfig contains userlevel token settings.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"`
}

// minJWTSecretLength is the shortest accepted token signing secret.
const minJWTSecretLength = 32

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DICTD_SECTION_KEY
// For example: DICTD_DATABASE_PATH, DICTD_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "dictd-001",
			Name: "Object Dictionary",
		},
		Dictionary: DictionaryConfig{
			Definition: "./configs/dictionary.yaml",
		},
		Database: DatabaseConfig{
			Path:        "./data/dictd.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "dictd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Mirror: MirrorConfig{
				Prefix:    "dictd",
				Format:    "json",
				Userlevel: access.Normal,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Telemetry: TelemetryConfig{
			Interval:    10,
			Measurement: "dictionary",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		CLI: CLIConfig{
			Enabled:     true,
			Host:        "127.0.0.1",
			Port:        5025,
			IdleTimeout: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 15,
			},
			DefaultUserlevel: access.Normal,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DICTD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DICTD_DICTIONARY_DEFINITION"); v != "" {
		cfg.Dictionary.Definition = v
	}

	// Database
	if v := os.Getenv("DICTD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DICTD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DICTD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DICTD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("DICTD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DICTD_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// CLI
	if v := os.Getenv("DICTD_CLI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.CLI.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("DICTD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security
	if v := os.Getenv("DICTD_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("DICTD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors and security issues.
// Every problem found is reported, not only the first.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}
	if c.Dictionary.Definition == "" {
		errs = append(errs, "dictionary.definition is required")
	}

	if c.Audit.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when audit is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Mirror.Prefix == "" {
			errs = append(errs, "mqtt.mirror.prefix is required")
		}
		if f := c.MQTT.Mirror.Format; f != "json" && f != "cbor" {
			errs = append(errs, fmt.Sprintf("mqtt.mirror.format must be json or cbor, got %q", f))
		}
	}

	if c.Telemetry.Enabled {
		if !c.InfluxDB.Enabled {
			errs = append(errs, "telemetry requires influxdb.enabled")
		}
		if c.Telemetry.Interval < 1 {
			errs = append(errs, "telemetry.interval must be at least 1 second")
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.WebSocket.Enabled && !c.API.Enabled {
		errs = append(errs, "websocket requires api.enabled")
	}
	if c.CLI.Enabled && (c.CLI.Port < 1 || c.CLI.Port > 65535) {
		errs = append(errs, "cli.port must be between 1 and 65535")
	}

	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.API.Enabled && c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required when the API is enabled (set DICTD_JWT_SECRET)")
	}
	if _, err := c.PasswordHashes(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PasswordHashes returns security.userlevels keyed by parsed level.
func (c *Config) PasswordHashes() (map[access.Userlevel]string, error) {
	out := make(map[access.Userlevel]string, len(c.Security.Userlevels))
	for name, hash := range c.Security.Userlevels {
		level, err := access.ParseUserlevel(name)
		if err != nil {
			return nil, fmt.Errorf("security.userlevels: %w", err)
		}
		out[level] = hash
	}
	return out, nil
}

// ReadTimeout bounds reading a request, headers included.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout bounds writing a response.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout bounds an idle keep-alive connection.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// defaultTokenTTL applies when security.jwt.token_ttl is unset.
const defaultTokenTTL = 15 * time.Minute

// TTL returns the lifetime of issued userlevel tokens.
func (j JWTConfig) TTL() time.Duration {
	if j.TokenTTL <= 0 {
		return defaultTokenTTL
	}
	return time.Duration(j.TokenTTL) * time.Minute
}

// DrainInterval returns the telemetry drain period, or zero when unset.
func (t TelemetryConfig) DrainInterval() time.Duration {
	return time.Duration(t.Interval) * time.Second
}
