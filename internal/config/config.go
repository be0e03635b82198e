package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Reminder ReminderConfig `mapstructure:"reminder"`
	Device   DeviceConfig   `mapstructure:"device"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ReminderConfig defines the countdown defaults
type ReminderConfig struct {
	Interval int `mapstructure:"interval"` // seconds
}

// DeviceConfig defines how the bottle is found and written to
type DeviceConfig struct {
	Name               string        `mapstructure:"name"`
	ServiceUUID        string        `mapstructure:"service_uuid"`
	CharacteristicUUID string        `mapstructure:"characteristic_uuid"`
	ScanTimeout        time.Duration `mapstructure:"scan_timeout"`
	SendTimeout        time.Duration `mapstructure:"send_timeout"`
	Simulate           bool          `mapstructure:"simulate"`
	Breaker            BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig defines when a failing bottle link stops being tried
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StorageConfig defines where history and settings live
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // file path, "stdout" or "stderr"
}

// MetricsConfig defines the optional Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// Load loads configuration from file and environment variables. An empty
// configPath searches the user config directory and tolerates a missing file;
// an explicit path must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}
	v.SetEnvPrefix("HYDRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultDir returns ~/.config/hydrate
func DefaultDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "hydrate"), nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Reminder defaults
	v.SetDefault("reminder.interval", 3600)

	// Device defaults
	v.SetDefault("device.name", "")
	v.SetDefault("device.service_uuid", "0000ffe0-0000-1000-8000-00805f9b34fb")
	v.SetDefault("device.characteristic_uuid", "0000ffe1-0000-1000-8000-00805f9b34fb")
	v.SetDefault("device.scan_timeout", "15s")
	v.SetDefault("device.send_timeout", "5s")
	v.SetDefault("device.simulate", false)
	v.SetDefault("device.breaker.max_failures", 3)
	v.SetDefault("device.breaker.timeout", "30s")

	// Storage defaults
	v.SetDefault("storage.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "")

	// Metrics defaults
	v.SetDefault("metrics.addr", "")
}

// validate validates the configuration and fills derived paths
func validate(cfg *Config) error {
	if cfg.Reminder.Interval <= 0 {
		return fmt.Errorf("reminder interval must be positive: %d", cfg.Reminder.Interval)
	}

	if _, err := uuid.Parse(cfg.Device.ServiceUUID); err != nil {
		return fmt.Errorf("invalid service UUID %q: %w", cfg.Device.ServiceUUID, err)
	}
	if _, err := uuid.Parse(cfg.Device.CharacteristicUUID); err != nil {
		return fmt.Errorf("invalid characteristic UUID %q: %w", cfg.Device.CharacteristicUUID, err)
	}
	if cfg.Device.ScanTimeout <= 0 {
		return fmt.Errorf("invalid scan timeout: %s", cfg.Device.ScanTimeout)
	}
	if cfg.Device.SendTimeout <= 0 {
		return fmt.Errorf("invalid send timeout: %s", cfg.Device.SendTimeout)
	}
	if cfg.Device.Breaker.MaxFailures == 0 {
		return fmt.Errorf("breaker max_failures must be at least 1")
	}
	if cfg.Device.Breaker.Timeout <= 0 {
		return fmt.Errorf("invalid breaker timeout: %s", cfg.Device.Breaker.Timeout)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", cfg.Logging.Format)
	}

	if cfg.Storage.Path == "" || cfg.Logging.Output == "" {
		dir, err := DefaultDir()
		if err != nil {
			return fmt.Errorf("resolve config directory: %w", err)
		}
		if cfg.Storage.Path == "" {
			cfg.Storage.Path = filepath.Join(dir, "hydrate.db")
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = filepath.Join(dir, "hydrate.log")
		}
	}

	return nil
}
