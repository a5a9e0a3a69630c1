package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the firecracker bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Protocols ProtocolsConfig `yaml:"protocols"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// ReadTimeout is Read as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return seconds(t.Read) }

// WriteTimeout is Write as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }

// IdleTimeout is Idle as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return seconds(t.Idle) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

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
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ProtocolsConfig contains protocol bridge settings.
type ProtocolsConfig struct {
	Firecracker FirecrackerConfig `yaml:"firecracker"`
}

// FirecrackerConfig contains settings for the X10 firecracker transmitter
// attached to a serial port.
type FirecrackerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Port is the serial device the transmitter is plugged into
	// (e.g., "/dev/ttyUSB0" or "COM3").
	Port string `yaml:"port"`

	// Baud is the line rate used when opening the port. The transmitter is
	// driven through RTS/DTR only, so this rarely matters. Default: 9600
	Baud int `yaml:"baud"`

	// BitInterval is how long each half of a bit is held on the lines.
	// Default: 1ms
	BitInterval time.Duration `yaml:"bit_interval"`

	// Warmup is how long to wait after opening the port before the
	// transmitter accepts commands. Default: 500ms
	Warmup time.Duration `yaml:"warmup"`

	// CommandTimeout bounds how long a command may wait for the transmitter.
	// Default: 10s
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// HealthInterval is how often bridge health is published. Default: 30s
	HealthInterval time.Duration `yaml:"health_interval"`

	// Devices seeds the device registry on startup.
	Devices []FirecrackerDeviceConfig `yaml:"devices"`
}

// FirecrackerDeviceConfig maps a device ID to its X10 address.
type FirecrackerDeviceConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	House string `yaml:"house"` // "A".."P"
	Unit  int    `yaml:"unit"`  // 1..16
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
// When Secret is empty the API command routes are unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// Load builds the configuration from defaults, then the YAML file at path,
// then GRAYLOGIC_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in defaults with environment overrides
// applied, for CLI commands that run without a config file.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Database: DatabaseConfig{
			Path:        "./data/firecracker.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-firecracker",
			},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     8090,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Protocols: ProtocolsConfig{
			Firecracker: FirecrackerConfig{
				Enabled:        true,
				Port:           "/dev/ttyUSB0",
				Baud:           9600,
				BitInterval:    time.Millisecond,
				Warmup:         500 * time.Millisecond,
				CommandTimeout: 10 * time.Second,
				HealthInterval: 30 * time.Second,
			},
		},
	}
}

// stringEnv maps GRAYLOGIC_* variables onto string settings.
var stringEnv = map[string]func(*Config) *string{
	"GRAYLOGIC_DATABASE_PATH":    func(c *Config) *string { return &c.Database.Path },
	"GRAYLOGIC_MQTT_HOST":        func(c *Config) *string { return &c.MQTT.Broker.Host },
	"GRAYLOGIC_MQTT_USERNAME":    func(c *Config) *string { return &c.MQTT.Auth.Username },
	"GRAYLOGIC_MQTT_PASSWORD":    func(c *Config) *string { return &c.MQTT.Auth.Password },
	"GRAYLOGIC_API_HOST":         func(c *Config) *string { return &c.API.Host },
	"GRAYLOGIC_INFLUXDB_TOKEN":   func(c *Config) *string { return &c.InfluxDB.Token },
	"GRAYLOGIC_LOG_LEVEL":        func(c *Config) *string { return &c.Logging.Level },
	"GRAYLOGIC_FIRECRACKER_PORT": func(c *Config) *string { return &c.Protocols.Firecracker.Port },
	"GRAYLOGIC_JWT_SECRET":       func(c *Config) *string { return &c.Security.JWT.Secret },
}

// intEnv maps GRAYLOGIC_* variables onto integer settings. Values that do
// not parse are ignored and Validate judges the file value instead.
var intEnv = map[string]func(*Config) *int{
	"GRAYLOGIC_MQTT_PORT":        func(c *Config) *int { return &c.MQTT.Broker.Port },
	"GRAYLOGIC_API_PORT":         func(c *Config) *int { return &c.API.Port },
	"GRAYLOGIC_FIRECRACKER_BAUD": func(c *Config) *int { return &c.Protocols.Firecracker.Baud },
}

func applyEnvOverrides(cfg *Config) {
	for name, field := range stringEnv {
		if v := os.Getenv(name); v != "" {
			*field(cfg) = v
		}
	}
	for name, field := range intEnv {
		if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
			*field(cfg) = n
		}
	}
}

// minJWTSecretLength rejects secrets short enough to brute-force.
const minJWTSecretLength = 32

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Site.ID == "" {
		fail("site.id is required")
	}
	if c.Database.Path == "" {
		fail("database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		fail("mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		fail("api.port must be between 1 and 65535")
	}

	fc := c.Protocols.Firecracker
	if fc.Enabled {
		if fc.Port == "" {
			fail("protocols.firecracker.port is required")
		}
		if fc.Baud <= 0 {
			fail("protocols.firecracker.baud must be positive")
		}
		if fc.BitInterval <= 0 {
			fail("protocols.firecracker.bit_interval must be positive")
		}
		if fc.Warmup < 0 {
			fail("protocols.firecracker.warmup must not be negative")
		}
	}

	seen := make(map[string]bool, len(fc.Devices))
	for i, d := range fc.Devices {
		field := fmt.Sprintf("protocols.firecracker.devices[%d]", i)
		if d.ID == "" {
			fail("%s.id is required", field)
			continue
		}
		if seen[d.ID] {
			fail("%s: duplicate id %q", field, d.ID)
		}
		seen[d.ID] = true
		if !validHouse(d.House) {
			fail("%s.house must be A-P", field)
		}
		if d.Unit < 1 || d.Unit > 16 {
			fail("%s.unit must be 1-16", field)
		}
	}

	if secret := c.Security.JWT.Secret; secret != "" && len(secret) < minJWTSecretLength {
		fail("security.jwt.secret must be at least %d characters", minJWTSecretLength)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("configuration errors: %w", err)
	}
	return nil
}

func validHouse(h string) bool {
	if len(h) != 1 {
		return false
	}
	c := h[0] &^ 0x20
	return c >= 'A' && c <= 'P'
}
