package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the curtain bridge daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Curtain  CurtainConfig  `yaml:"curtain"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Health   HealthConfig   `yaml:"health"`
}

// CurtainConfig contains hub link and device settings.
type CurtainConfig struct {
	Hub       HubConfig       `yaml:"hub"`
	Polling   PollingConfig   `yaml:"polling"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Journal   JournalConfig   `yaml:"journal"`
}

// HubConfig contains the TCP hub connection settings.
type HubConfig struct {
	// Host is the hub's address or hostname.
	Host string `yaml:"host"`

	// Port is the hub's TCP port. Default: 32.
	Port int `yaml:"port"`

	// ReadBufferSize is the maximum bytes per read. Default: 1024.
	ReadBufferSize int `yaml:"read_buffer_size"`

	// RetryInterval is the fixed delay after connect failures and read
	// errors. Default: 5s.
	RetryInterval time.Duration `yaml:"retry_interval"`

	// DialTimeout is the maximum time to wait for a connection.
	// Default: 10s.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ReadTimeout bounds a single blocking read. Default: 30s.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds a single command write. Default: 5s.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PollingConfig contains the optional periodic status poll settings.
type PollingConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// DiscoveryConfig contains passive discovery settings.
type DiscoveryConfig struct {
	// ScanTimeout is the default listening window. Default: 30s.
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// UseNames applies the Names mapping to scan results.
	UseNames bool `yaml:"use_names"`

	// Names maps hexadecimal device addresses (e.g. "0x06FE") to
	// display names.
	Names map[string]string `yaml:"names"`
}

// JournalConfig contains traffic journal settings.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// HealthConfig contains health reporting settings.
type HealthConfig struct {
	// Interval is the time between retained health publications.
	// Default: 30s.
	Interval time.Duration `yaml:"interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CURTAIN_SECTION_KEY
// For example: CURTAIN_HUB_HOST, CURTAIN_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Curtain: CurtainConfig{
			Hub: HubConfig{
				Port:           32,
				ReadBufferSize: 1024,
				RetryInterval:  5 * time.Second,
				DialTimeout:    10 * time.Second,
				ReadTimeout:    30 * time.Second,
				WriteTimeout:   5 * time.Second,
			},
			Polling: PollingConfig{
				Enabled:  false,
				Interval: 5 * time.Second,
			},
			Discovery: DiscoveryConfig{
				ScanTimeout: 30 * time.Second,
			},
			Journal: JournalConfig{
				Enabled: true,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "curtain-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/curtaind.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Health: HealthConfig{
			Interval: 30 * time.Second,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CURTAIN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("CURTAIN_HUB_HOST"); v != "" {
		cfg.Curtain.Hub.Host = v
	}

	// Database
	if v := os.Getenv("CURTAIN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CURTAIN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CURTAIN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CURTAIN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CURTAIN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("CURTAIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hub validation
	if c.Curtain.Hub.Host == "" {
		errs = append(errs, "curtain.hub.host is required (set CURTAIN_HUB_HOST environment variable)")
	}
	if c.Curtain.Hub.Port < 1 || c.Curtain.Hub.Port > 65535 {
		errs = append(errs, "curtain.hub.port must be between 1 and 65535")
	}
	if c.Curtain.Hub.ReadBufferSize < 8 {
		errs = append(errs, "curtain.hub.read_buffer_size must be at least one frame (8 bytes)")
	}
	if c.Curtain.Polling.Enabled && c.Curtain.Polling.Interval <= 0 {
		errs = append(errs, "curtain.polling.interval must be positive when polling is enabled")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// HubAddress returns the hub endpoint in host:port form for logs and health
// reports.
func (c *Config) HubAddress() string {
	return fmt.Sprintf("%s:%d", c.Curtain.Hub.Host, c.Curtain.Hub.Port)
}
