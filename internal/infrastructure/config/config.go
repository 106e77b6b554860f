package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the camera node.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// Note that uplink credentials and the broker URL are NOT part of this file;
// they live in the on-device settings store (see internal/infrastructure/settings)
// so that a single firmware image can be provisioned per device.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Settings  SettingsConfig  `yaml:"settings"`
	Uplink    UplinkConfig    `yaml:"uplink"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Camera    CameraConfig    `yaml:"camera"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig contains device identity settings.
type DeviceConfig struct {
	// Name is a human-readable device name used for logging.
	Name string `yaml:"name"`

	// TopicPrefix is the device-class prefix of the MQTT topic namespace.
	// The full base topic is "<prefix>_<mac-hex>".
	TopicPrefix string `yaml:"topic_prefix"`
}

// SettingsConfig contains settings-store (SQLite) options.
type SettingsConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// UplinkConfig contains wireless uplink settings.
type UplinkConfig struct {
	// Interface is the wireless network interface to manage (e.g. "wlan0").
	Interface string `yaml:"interface"`

	// MaxRetries is the reconnect budget during initial link establishment.
	MaxRetries int `yaml:"max_retries"`

	// Supplicant contains settings for the managed wpa_supplicant helper.
	Supplicant SupplicantConfig `yaml:"supplicant"`
}

// SupplicantConfig contains settings for managing the wpa_supplicant daemon.
type SupplicantConfig struct {
	// Managed indicates whether the node should manage wpa_supplicant itself.
	// If false, association is expected to be handled externally (e.g. systemd)
	// and the node only watches the interface for link state.
	Managed bool `yaml:"managed"`

	// Binary is the path to the wpa_supplicant executable.
	Binary string `yaml:"binary"`

	// Driver is the wpa_supplicant driver backend (e.g. "nl80211").
	Driver string `yaml:"driver"`

	// ConfigDir is the directory where the generated supplicant
	// configuration is written. Default: /tmp.
	ConfigDir string `yaml:"config_dir"`

	// PollInterval is how often the interface is polled for link
	// state, in milliseconds.
	PollInterval int `yaml:"poll_interval"`
}

// MQTTConfig contains broker client settings.
// The broker URL itself comes from the settings store (key MQTT_URL).
type MQTTConfig struct {
	// ClientID is the MQTT client identifier. If empty, one is derived
	// from the topic prefix plus a random suffix.
	ClientID string `yaml:"client_id"`

	// KeepAlive is the MQTT keepalive interval in seconds.
	KeepAlive int `yaml:"keep_alive"`

	// Reconnect contains reconnection backoff settings.
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// CameraConfig contains capture pipeline settings.
type CameraConfig struct {
	// Source selects the frame source: "pattern" (generated test card)
	// or "file" (a JPEG refreshed externally, e.g. a v4l2 snapshot path).
	Source string `yaml:"source"`

	// Path is the JPEG path for the "file" source.
	Path string `yaml:"path"`

	// Width and Height are the test card dimensions for the "pattern" source.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Quality is the JPEG encode quality (1-100) for the "pattern" source.
	Quality int `yaml:"quality"`
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Timeouts HTTPTimeoutConfig `yaml:"timeouts"`
}

// HTTPTimeoutConfig contains HTTP timeout settings (seconds).
// Write is 0 by default: /stream responses are unbounded and a write
// timeout would cut every stream after that duration.
type HTTPTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// TelemetryConfig contains periodic publish settings (seconds).
type TelemetryConfig struct {
	// StatusInterval is the cycle time for status publishes.
	StatusInterval int `yaml:"status_interval"`

	// ImageInterval is the cycle time for snapshot publishes.
	ImageInterval int `yaml:"image_interval"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// status mirror.
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
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ESP32CAM_SECTION_KEY
// For example: ESP32CAM_SETTINGS_PATH, ESP32CAM_HTTP_HOST
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
			Name:        "esp32cam",
			TopicPrefix: "ESP32CAM",
		},
		Settings: SettingsConfig{
			Path:        "./data/settings.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Uplink: UplinkConfig{
			Interface:  "wlan0",
			MaxRetries: 10,
			Supplicant: SupplicantConfig{
				Managed:      false,
				Binary:       "/usr/sbin/wpa_supplicant",
				Driver:       "nl80211",
				ConfigDir:    "/tmp",
				PollInterval: 500,
			},
		},
		MQTT: MQTTConfig{
			KeepAlive: 60,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Camera: CameraConfig{
			Source:  "pattern",
			Width:   1280,
			Height:  1024,
			Quality: 80,
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: HTTPTimeoutConfig{
				Read:  30,
				Write: 0,
				Idle:  60,
			},
		},
		Telemetry: TelemetryConfig{
			StatusInterval: 30,
			ImageInterval:  60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ESP32CAM_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ESP32CAM_SETTINGS_PATH"); v != "" {
		cfg.Settings.Path = v
	}
	if v := os.Getenv("ESP32CAM_UPLINK_INTERFACE"); v != "" {
		cfg.Uplink.Interface = v
	}
	if v := os.Getenv("ESP32CAM_HTTP_HOST"); v != "" {
		cfg.HTTP.Host = v
	}
	if v := os.Getenv("ESP32CAM_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("ESP32CAM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.TopicPrefix == "" {
		errs = append(errs, "device.topic_prefix is required")
	}
	if c.Settings.Path == "" {
		errs = append(errs, "settings.path is required")
	}
	if c.Uplink.Interface == "" {
		errs = append(errs, "uplink.interface is required")
	}
	if c.Uplink.MaxRetries < 0 {
		errs = append(errs, "uplink.max_retries must not be negative")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "http.port must be between 1 and 65535")
	}
	switch c.Camera.Source {
	case "pattern", "file":
	default:
		errs = append(errs, "camera.source must be \"pattern\" or \"file\"")
	}
	if c.Camera.Source == "file" && c.Camera.Path == "" {
		errs = append(errs, "camera.path is required for the file source")
	}
	if c.Telemetry.StatusInterval < 1 {
		errs = append(errs, "telemetry.status_interval must be at least 1 second")
	}
	if c.Telemetry.ImageInterval < 1 {
		errs = append(errs, "telemetry.image_interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Idle) * time.Second
}

// StatusIntervalDuration returns the telemetry status cycle time as a Duration.
func (c *TelemetryConfig) StatusIntervalDuration() time.Duration {
	return time.Duration(c.StatusInterval) * time.Second
}

// ImageIntervalDuration returns the telemetry image cycle time as a Duration.
func (c *TelemetryConfig) ImageIntervalDuration() time.Duration {
	return time.Duration(c.ImageInterval) * time.Second
}
