// Package config exposes strongly typed application configuration structs
// loaded from YAML. Out-of-range values fail loudly at load time; nothing is
// silently clamped.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"momentum-go/internal/strategy"
)

// App captures process-wide runtime settings such as name, environment,
// metrics listener, and logging level.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes market data connectivity for the tracked symbol.
type Exchange struct {
	Name              string  `yaml:"name"`
	Symbol            string  `yaml:"symbol" validate:"required"`
	Interval          string  `yaml:"interval" validate:"required"`
	RESTBaseURL       string  `yaml:"rest_base_url"`
	WSBaseURL         string  `yaml:"ws_base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
}

// Data configures the on-disk bar cache used by fetch and backtest runs.
type Data struct {
	CacheDir    string `yaml:"cache_dir"`
	CacheFormat string `yaml:"cache_format" validate:"oneof=csv json parquet"`
}

// Portfolio captures paper-trading account settings.
type Portfolio struct {
	StartingCash float64 `yaml:"starting_cash" validate:"gt=0"`
	FillsPath    string  `yaml:"fills_path"`
}

// Store locates the SQLite state database.
type Store struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App             `yaml:"app"`
	Exchange  Exchange        `yaml:"exchange"`
	Strategy  strategy.Params `yaml:"strategy"`
	Data      Data            `yaml:"data"`
	Portfolio Portfolio       `yaml:"portfolio"`
	Store     Store           `yaml:"store"`
}

// Default returns a runnable configuration for hourly BTCUSDT paper trading.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "momentum",
			Env:         "dev",
			MetricsAddr: ":9091",
			LogLevel:    "info",
		},
		Exchange: Exchange{
			Name:              "binance",
			Symbol:            "BTCUSDT",
			Interval:          "1h",
			RESTBaseURL:       "https://api.binance.com",
			WSBaseURL:         "wss://stream.binance.com:9443",
			RequestsPerSecond: 5,
		},
		Strategy: strategy.DefaultParams(),
		Data: Data{
			CacheDir:    "data",
			CacheFormat: "parquet",
		},
		Portfolio: Portfolio{
			StartingCash: 10000,
			FillsPath:    "data/fills.jsonl",
		},
		Store: Store{Path: "data/momentum.db"},
	}
}

var validate = validator.New()

// Validate checks the whole tree, including the strategy parameter ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", strategy.ErrInvalidConfig, err)
	}
	return c.Strategy.Validate()
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
