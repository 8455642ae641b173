package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

const envPrefix = "TRAINX_"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Polling  PollingConfig  `toml:"polling"`
	Tracking TrackingConfig `toml:"tracking"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains training backend connection settings.
type APIConfig struct {
	BaseURL string        `toml:"base_url"`
	Token   string        `toml:"token"`
	Timeout time.Duration `toml:"timeout"`
}

// PollingConfig controls how often training progress is fetched.
type PollingConfig struct {
	Interval time.Duration `toml:"interval"`
}

// TrackingConfig locates the experiment tracking UI used for run links.
type TrackingConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Experiment string `toml:"experiment"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains mock backend settings.
type ServerConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	Step       int      `toml:"step"`
	FailModels []string `toml:"fail_models"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIPath string `toml:"tui_path"`
}

// envOverrides holds the subset of settings that may come from the environment.
// Empty values leave the file configuration untouched.
type envOverrides struct {
	APIURL       string        `env:"API_URL"`
	APIToken     string        `env:"API_TOKEN"`
	PollInterval time.Duration `env:"POLL_INTERVAL"`
	LogLevel     string        `env:"LOG_LEVEL"`
	DatabasePath string        `env:"DATABASE_PATH"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values. A missing file returns [ErrMissingConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides config values with TRAINX_* environment variables.
func ApplyEnv(config *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if o.APIURL != "" {
		config.API.BaseURL = o.APIURL
	}
	if o.APIToken != "" {
		config.API.Token = o.APIToken
	}
	if o.PollInterval > 0 {
		config.Polling.Interval = o.PollInterval
	}
	if o.LogLevel != "" {
		config.Log.Level = o.LogLevel
	}
	if o.DatabasePath != "" {
		config.Database.Path = o.DatabasePath
	}
	return nil
}

// Validate checks settings that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("%w: polling.interval must be positive", ErrInvalidConfig)
	}
	if c.Tracking.Port <= 0 {
		return fmt.Errorf("%w: tracking.port must be positive", ErrInvalidConfig)
	}
	return nil
}
