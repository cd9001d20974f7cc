package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "DATA_PROVIDER", "CSV_DIR", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "HTTPS_PROXY", "SQLITE_PATH", "LOG_LEVEL",
		"BASELINE_TICKERS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Addr != ":8501" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8501")
	}
	if cfg.DataSource.Provider != "yahoo" {
		t.Errorf("DataSource.Provider = %q, want yahoo", cfg.DataSource.Provider)
	}
	want := []string{"AAPL", "GOOG", "MSFT", "NVDA"}
	if len(cfg.Tickers.Baseline) != len(want) {
		t.Fatalf("Tickers.Baseline = %v, want %v", cfg.Tickers.Baseline, want)
	}
	for i := range want {
		if cfg.Tickers.Baseline[i] != want[i] {
			t.Errorf("Tickers.Baseline[%d] = %q, want %q", i, cfg.Tickers.Baseline[i], want[i])
		}
	}
	if cfg.Forecast.MaxYears != 10 || cfg.Forecast.LookbackYears != 10 {
		t.Errorf("Forecast years = %d/%d, want 10/10", cfg.Forecast.MaxYears, cfg.Forecast.LookbackYears)
	}
	if cfg.Session.IdleTTL != 2*time.Hour {
		t.Errorf("Session.IdleTTL = %v, want 2h", cfg.Session.IdleTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
data_source:
  provider: CSV
  csv_dir: /data/csv
tickers:
  baseline: [SPY, QQQ]
  default: QQQ
forecast:
  interval_width: 0.95
session:
  idle_ttl: 30m
  cache_max_entries: 8
database:
  sqlite_path: /tmp/runs.db
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.DataSource.Provider != "csv" {
		t.Errorf("DataSource.Provider = %q, want lower-cased csv", cfg.DataSource.Provider)
	}
	if cfg.Tickers.Default != "QQQ" || len(cfg.Tickers.Baseline) != 2 {
		t.Errorf("Tickers = %+v", cfg.Tickers)
	}
	if cfg.Forecast.IntervalWidth != 0.95 {
		t.Errorf("Forecast.IntervalWidth = %v, want 0.95", cfg.Forecast.IntervalWidth)
	}
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want 30m", cfg.Session.IdleTTL)
	}
	if cfg.Session.CacheMaxEntries != 8 {
		t.Errorf("Session.CacheMaxEntries = %d, want 8", cfg.Session.CacheMaxEntries)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate(): %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_source:
  provider: alpaca
  alpaca:
    api_key: yaml-key
    api_secret: yaml-secret
`)
	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "sdk-secret")
	t.Setenv("BASELINE_TICKERS", " tsla, nflx ,,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.DataSource.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want env-key", cfg.DataSource.Alpaca.APIKey)
	}
	if cfg.DataSource.Alpaca.APISecret != "sdk-secret" {
		t.Errorf("Alpaca.APISecret = %q, want sdk-secret", cfg.DataSource.Alpaca.APISecret)
	}
	if len(cfg.Tickers.Baseline) != 2 || cfg.Tickers.Baseline[0] != "tsla" || cfg.Tickers.Baseline[1] != "nflx" {
		t.Errorf("Tickers.Baseline = %v, want [tsla nflx]", cfg.Tickers.Baseline)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, false},
		{"alpaca without keys", func(c *Config) { c.DataSource.Provider = "alpaca" }, false},
		{"csv without dir", func(c *Config) { c.DataSource.Provider = "csv" }, false},
		{"max years above lookback", func(c *Config) { c.Forecast.MaxYears = 11 }, false},
		{"interval width of one", func(c *Config) { c.Forecast.IntervalWidth = 1 }, false},
		{"duplicate baseline", func(c *Config) { c.Tickers.Baseline = []string{"AAPL", "aapl"} }, false},
		{"negative cache size", func(c *Config) { c.Session.CacheMaxEntries = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			applyDefaults(c)
			tt.mutate(c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
