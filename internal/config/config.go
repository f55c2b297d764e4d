package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for equitysim.
type Config struct {
	Storage Storage `yaml:"storage"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Logging Logging `yaml:"logging"`
	Sim     Sim     `yaml:"sim"`
	Fetch   Fetch   `yaml:"fetch"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Sim holds defaults for a simulation run; CLI flags override these.
type Sim struct {
	Start       string  `yaml:"start"`
	End         string  `yaml:"end"`
	ShortWindow int     `yaml:"short_window"`
	LongWindow  int     `yaml:"long_window"`
	CashBuffer  float64 `yaml:"cash_buffer"`
	Rebalance   string  `yaml:"rebalance"`
	OutputDir   string  `yaml:"output_dir"`
	Format      string  `yaml:"format"`
	MaxWorkers  int     `yaml:"max_workers"`
}

// Fetch holds parameters for the market-data fetcher.
type Fetch struct {
	StartDate string `yaml:"start_date"`
	Interval  string `yaml:"interval"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration used when no file is supplied.
// The values mirror the defaults of the run surface: 2022-01-01 start, 20/50
// windows, 20% cash buffer, daily rebalancing, CSV output.
func Default() *Config {
	return &Config{
		Storage: Storage{SQLitePath: "equitysim.db"},
		Logging: Logging{Level: "info", Format: "text"},
		Sim: Sim{
			Start:       "2022-01-01",
			ShortWindow: 20,
			LongWindow:  50,
			CashBuffer:  0.2,
			Rebalance:   "daily",
			OutputDir:   "base_algo_result",
			Format:      "csv",
			MaxWorkers:  4,
		},
		Fetch: Fetch{StartDate: "2015-01-01", Interval: "1d"},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides. An empty
// path yields the defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Sim.OutputDir = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
