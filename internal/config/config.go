package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo, alpaca, csv, mock
		CSVDir   string `yaml:"csv_dir"`
		Alpaca   struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			DataURL   string `yaml:"data_url"`
			Feed      string `yaml:"feed"`
		} `yaml:"alpaca"`
	} `yaml:"data_source"`
	Tickers struct {
		Baseline []string `yaml:"baseline"`
		Default  string   `yaml:"default"`
	} `yaml:"tickers"`
	Forecast struct {
		LookbackYears         int     `yaml:"lookback_years"`
		MaxYears              int     `yaml:"max_years"`
		Changepoints          int     `yaml:"changepoints"`
		ChangepointPriorScale float64 `yaml:"changepoint_prior_scale"`
		SeasonalityPriorScale float64 `yaml:"seasonality_prior_scale"`
		IntervalWidth         float64 `yaml:"interval_width"`
	} `yaml:"forecast"`
	Session struct {
		IdleTTL         time.Duration `yaml:"idle_ttl"`
		SweepCron       string        `yaml:"sweep_cron"`
		CacheMaxEntries int           `yaml:"cache_max_entries"`
	} `yaml:"session"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("CSV_DIR"); v != "" {
		cfg.DataSource.CSVDir = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.DataSource.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.DataSource.Alpaca.APISecret = v
	}
	// Canonical names used by the Alpaca SDK win over ours.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.DataSource.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.DataSource.Alpaca.APISecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BASELINE_TICKERS"); v != "" {
		var tickers []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, t)
			}
		}
		cfg.Tickers.Baseline = tickers
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8501"
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	cfg.DataSource.Provider = strings.ToLower(cfg.DataSource.Provider)
	if cfg.DataSource.Alpaca.Feed == "" {
		cfg.DataSource.Alpaca.Feed = "iex"
	}
	if len(cfg.Tickers.Baseline) == 0 {
		cfg.Tickers.Baseline = []string{"AAPL", "GOOG", "MSFT", "NVDA"}
	}
	if cfg.Tickers.Default == "" {
		cfg.Tickers.Default = "AAPL"
	}
	if cfg.Forecast.LookbackYears == 0 {
		cfg.Forecast.LookbackYears = 10
	}
	if cfg.Forecast.MaxYears == 0 {
		cfg.Forecast.MaxYears = 10
	}
	if cfg.Forecast.Changepoints == 0 {
		cfg.Forecast.Changepoints = 25
	}
	if cfg.Forecast.ChangepointPriorScale == 0 {
		cfg.Forecast.ChangepointPriorScale = 0.05
	}
	if cfg.Forecast.SeasonalityPriorScale == 0 {
		cfg.Forecast.SeasonalityPriorScale = 10
	}
	if cfg.Forecast.IntervalWidth == 0 {
		cfg.Forecast.IntervalWidth = 0.8
	}
	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = 2 * time.Hour
	}
	if cfg.Session.SweepCron == "" {
		cfg.Session.SweepCron = "0 */10 * * * *"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "alpaca":
		if c.DataSource.Alpaca.APIKey == "" || c.DataSource.Alpaca.APISecret == "" {
			return fmt.Errorf("data_source.alpaca api_key and api_secret are required for the alpaca provider")
		}
	case "csv":
		if c.DataSource.CSVDir == "" {
			return fmt.Errorf("data_source.csv_dir is required for the csv provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.Forecast.MaxYears < 1 || c.Forecast.MaxYears > c.Forecast.LookbackYears {
		return fmt.Errorf("forecast.max_years must be in [1, lookback_years]")
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		return fmt.Errorf("forecast.interval_width must be in (0, 1)")
	}
	if c.Forecast.Changepoints < 0 {
		return fmt.Errorf("forecast.changepoints must not be negative")
	}
	if c.Session.CacheMaxEntries < 0 {
		return fmt.Errorf("session.cache_max_entries must not be negative")
	}
	seen := make(map[string]bool, len(c.Tickers.Baseline))
	for _, t := range c.Tickers.Baseline {
		u := strings.ToUpper(strings.TrimSpace(t))
		if u == "" {
			return fmt.Errorf("tickers.baseline contains an empty symbol")
		}
		if seen[u] {
			return fmt.Errorf("tickers.baseline lists %s twice", u)
		}
		seen[u] = true
	}
	return nil
}
