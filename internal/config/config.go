// Package config provides configuration management for the weather
// aggregator.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the aggregator's full configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Sweeper SweeperConfig `yaml:"sweeper"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the core wire-protocol listener and its
// dispatcher pool.
type ServerConfig struct {
	Port      int `yaml:"port"`
	QueueSize int `yaml:"queue_size"`
	PoolSize  int `yaml:"pool_size"`
}

// StorageConfig configures the persisted snapshot file.
type StorageConfig struct {
	DataFile string `yaml:"data_file"`
}

// SweeperConfig configures expiry. TTLSeconds and IntervalSeconds are
// the only fields the hot-reload watcher picks up without a restart.
type SweeperConfig struct {
	TTLSeconds      int `yaml:"ttl_seconds"`
	IntervalSeconds int `yaml:"interval_seconds"`
}

// AdminConfig configures the additive operability surface. Setting Addr
// to "" or ":0" disables it entirely.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the slog JSON handler and optional rotation.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty means stderr
}

// DefaultConfig returns a configuration with the aggregator's defaults,
// matching spec.md's §6 CLI defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      4567,
			QueueSize: 64,
			PoolSize:  10,
		},
		Storage: StorageConfig{
			DataFile: "resources/weather_data.json",
		},
		Sweeper: SweeperConfig{
			TTLSeconds:      30,
			IntervalSeconds: 10,
		},
		Admin: AdminConfig{
			Addr: ":9567",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file, applies environment variable
// overrides, and validates the result. An empty path skips the file
// read and returns defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyAndValidate(cfg)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return applyAndValidate(cfg)
}

func applyAndValidate(cfg *Config) (*Config, error) {
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WEATHER_AGGREGATOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("WEATHER_AGGREGATOR_DATA_FILE"); v != "" {
		c.Storage.DataFile = v
	}
	if v := os.Getenv("WEATHER_AGGREGATOR_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sweeper.TTLSeconds = n
		}
	}
	if v := os.Getenv("WEATHER_AGGREGATOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the invariants Load relies on before handing the
// config to the rest of the process.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.Server.QueueSize)
	}
	if c.Server.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.Server.PoolSize)
	}
	if c.Storage.DataFile == "" {
		return fmt.Errorf("storage.data_file must not be empty")
	}
	if c.Sweeper.TTLSeconds <= 0 {
		return fmt.Errorf("sweeper.ttl_seconds must be positive, got %d", c.Sweeper.TTLSeconds)
	}
	if c.Sweeper.IntervalSeconds <= 0 {
		return fmt.Errorf("sweeper.interval_seconds must be positive, got %d", c.Sweeper.IntervalSeconds)
	}
	return nil
}

// ServerAddr returns the listen address for the core wire protocol.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
