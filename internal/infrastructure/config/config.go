package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Sync modes accepted in schema.sync_mode.
const (
	SyncModeOpen = "open"
	SyncModeLazy = "lazy"
	SyncModeOff  = "off"
)

// Config is the root configuration structure for microdb.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Schema     SchemaConfig     `yaml:"schema"`
	Registry   RegistryConfig   `yaml:"registry"`
	Changefeed ChangefeedConfig `yaml:"changefeed"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig selects and tunes the database connection.
type DatabaseConfig struct {
	// Name is a connection registered in the register file. It is used when
	// Connection is empty, and names the database in change feed topics.
	Name string `yaml:"name"`

	// Connection is a connection string: sqlite:///path, postgres://...,
	// mysql://..., cockroachdb://... or a bare SQLite path.
	Connection string `yaml:"connection"`

	// WALMode enables SQLite write-ahead logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite lock wait in seconds.
	BusyTimeout int `yaml:"busy_timeout"`

	// MaxOpenConns limits the pool of client-server dialects. Zero keeps
	// the dialect default.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// SchemaConfig locates the table declarations.
type SchemaConfig struct {
	// Path is the YAML schema declaration file.
	Path string `yaml:"path"`

	// SyncMode is "open" (synchronize every table when the database opens),
	// "lazy" (each table on first use) or "off".
	SyncMode string `yaml:"sync_mode"`
}

// RegistryConfig locates the connection register.
type RegistryConfig struct {
	// Path of the register file. Empty means ~/.microdb/db/register.yaml.
	Path string `yaml:"path"`
}

// ChangefeedConfig controls publishing committed changes over MQTT.
type ChangefeedConfig struct {
	Enabled bool       `yaml:"enabled"`
	MQTT    MQTTConfig `yaml:"mqtt"`
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

// InfluxDBConfig contains InfluxDB connection settings for operation and
// synchronization metrics.
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
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MICRODB_SECTION_KEY
// For example: MICRODB_DATABASE_CONNECTION, MICRODB_SCHEMA_SYNC_MODE
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Path comes from the command line
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := unmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration with environment overrides applied.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			WALMode:     true,
			BusyTimeout: 5,
		},
		Schema: SchemaConfig{
			Path:     "./schema.yaml",
			SyncMode: SyncModeOpen,
		},
		Changefeed: ChangefeedConfig{
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host:     "localhost",
					Port:     1883,
					ClientID: "microdb",
				},
				QoS: 1,
				Reconnect: MQTTReconnectConfig{
					InitialDelay: 1,
					MaxDelay:     60,
					MaxAttempts:  0,
				},
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MICRODB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("MICRODB_DATABASE_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("MICRODB_DATABASE_CONNECTION"); v != "" {
		cfg.Database.Connection = v
	}
	if v := os.Getenv("MICRODB_DATABASE_BUSY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.BusyTimeout = n
		}
	}

	// Schema
	if v := os.Getenv("MICRODB_SCHEMA_PATH"); v != "" {
		cfg.Schema.Path = v
	}
	if v := os.Getenv("MICRODB_SCHEMA_SYNC_MODE"); v != "" {
		cfg.Schema.SyncMode = v
	}

	// Registry
	if v := os.Getenv("MICRODB_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}

	// Change feed
	if v := os.Getenv("MICRODB_MQTT_HOST"); v != "" {
		cfg.Changefeed.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MICRODB_MQTT_USERNAME"); v != "" {
		cfg.Changefeed.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MICRODB_MQTT_PASSWORD"); v != "" {
		cfg.Changefeed.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("MICRODB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("MICRODB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}
	if c.Database.MaxOpenConns < 0 {
		errs = append(errs, "database.max_open_conns must not be negative")
	}

	// Schema validation
	switch c.Schema.SyncMode {
	case SyncModeOpen, SyncModeLazy, SyncModeOff:
	default:
		errs = append(errs, fmt.Sprintf("schema.sync_mode must be %s, %s or %s", SyncModeOpen, SyncModeLazy, SyncModeOff))
	}

	// Change feed validation
	if c.Changefeed.MQTT.QoS < 0 || c.Changefeed.MQTT.QoS > 2 {
		errs = append(errs, "changefeed.mqtt.qos must be 0, 1, or 2")
	}
	if c.Changefeed.Enabled && c.Changefeed.MQTT.Broker.Host == "" {
		errs = append(errs, "changefeed.mqtt.broker.host is required when the change feed is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
