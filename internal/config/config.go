// Package config loads the YAML configuration, applies defaults and
// environment overrides, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/logger"
	"lending-interest-lab/internal/reporting"
)

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Bitfinex BitfinexConfig `yaml:"bitfinex"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Deals    []DealConfig   `yaml:"deals" validate:"dive"`
	Server   ServerConfig   `yaml:"server"`
	Report   ReportConfig   `yaml:"report"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stderr"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory postgres"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional columnar copy of observations
	SQLitePath    string `yaml:"sqlite_path"`    // optional local snapshot of runs

	PostgresMaxConns int32 `yaml:"postgres_max_conns" validate:"gte=0"`
	PostgresMinConns int32 `yaml:"postgres_min_conns" validate:"gte=0"`
}

type BitfinexConfig struct {
	V1URL      string        `yaml:"v1_url" default:"https://api.bitfinex.com/v1" validate:"url"`
	V2URL      string        `yaml:"v2_url" default:"https://api.bitfinex.com/v2" validate:"url"`
	WSURL      string        `yaml:"ws_url" default:"wss://api-pub.bitfinex.com/ws/2" validate:"url"`
	Timeout    time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" default:"3" validate:"gte=0"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"1s"`
	PageLimit  int           `yaml:"page_limit" default:"1000" validate:"gt=0,lte=10000"`
	PageDelay  time.Duration `yaml:"page_delay" default:"60s"`
	LendsLimit int           `yaml:"lends_limit" default:"1000" validate:"gt=0"`
	Timeframe  string        `yaml:"timeframe" default:"15m" validate:"oneof=1m 5m 15m 30m 1h 3h 6h 12h 1D 1W 14D"`
	Quote      string        `yaml:"quote" default:"BTC" validate:"required"`
}

type AnalysisConfig struct {
	WindowDuration  time.Duration `yaml:"window_duration" default:"24h" validate:"gte=1s"`
	MinRunLength    int           `yaml:"min_run_length" default:"10" validate:"gt=0"`
	Parallelism     int           `yaml:"parallelism" default:"4" validate:"gt=0"`
	MinObservations int           `yaml:"min_observations" default:"100" validate:"gte=0"`
	MinCoverageDays int           `yaml:"min_coverage_days" default:"7" validate:"gte=0"`
	Pairs           []PairConfig  `yaml:"pairs" validate:"dive"`
}

// PairConfig names a pair and an optional date range ("2006-01-02").
type PairConfig struct {
	LendingTicker string `yaml:"lending_ticker" validate:"required"`
	TargetTicker  string `yaml:"target_ticker"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
}

type DealConfig struct {
	Entry   string  `yaml:"entry" default:"ENTER_AT_START" validate:"oneof=ENTER_AT_START"`
	Exit    string  `yaml:"exit" default:"CLOSE_ON_BELOW_AVERAGE" validate:"oneof=CLOSE_ON_BELOW_AVERAGE CLOSE_ON_PERCENT_FALL"`
	FallPct float64 `yaml:"fall_pct" validate:"gte=0,lt=1"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	Schedule        string        `yaml:"schedule" default:"@every 1h"`
	LookbackDays    int           `yaml:"lookback_days" default:"30" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir" default:"reports" validate:"required"`
}

var validate = validator.New()

// Load reads config from a YAML file, applies defaults, then environment
// variable overrides, and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Deals) == 0 {
		c.Deals = []DealConfig{
			{Exit: domain.ExitOnBelowAverage},
			{Exit: domain.ExitOnPercentFall, FallPct: 0.05},
		}
	}
	for i := range c.Deals {
		if err := defaults.Set(&c.Deals[i]); err != nil {
			return fmt.Errorf("config defaults: %w", err)
		}
	}
	return nil
}

// applyEnv applies LIL_* environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("LIL_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("LIL_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("LIL_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("LIL_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("LIL_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LIL_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LIL_REPORT_DIR"); v != "" {
		c.Report.OutputDir = v
	}
}

// Validate checks struct constraints and pair dates.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, e := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, d := range c.Deals {
		if d.Exit == domain.ExitOnPercentFall && d.FallPct <= 0 {
			return fmt.Errorf("invalid config: deal %s needs a positive fall_pct", d.Exit)
		}
	}
	if _, err := c.Pairs(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Pairs converts the configured pairs, parsing their dates. A missing
// "to" date means open-ended.
func (c *Config) Pairs() ([]domain.Pair, error) {
	pairs := make([]domain.Pair, len(c.Analysis.Pairs))
	for i, p := range c.Analysis.Pairs {
		pair := domain.Pair{
			LendingTicker: strings.ToUpper(p.LendingTicker),
			TargetTicker:  strings.ToUpper(p.TargetTicker),
		}
		if p.From != "" {
			from, err := reporting.ParseDate(p.From)
			if err != nil {
				return nil, fmt.Errorf("pair %d from: %w", i, err)
			}
			pair.From = from
		}
		if p.To != "" {
			to, err := reporting.ParseDate(p.To)
			if err != nil {
				return nil, fmt.Errorf("pair %d to: %w", i, err)
			}
			pair.To = to
		}
		if pair.To != 0 && pair.To < pair.From {
			return nil, fmt.Errorf("pair %d: to before from", i)
		}
		pairs[i] = pair
	}
	return pairs, nil
}

// DealConfigs converts the configured deals.
func (c *Config) DealConfigs() []domain.DealConfig {
	out := make([]domain.DealConfig, len(c.Deals))
	for i, d := range c.Deals {
		out[i] = domain.DealConfig{Entry: d.Entry, Exit: d.Exit, FallPct: d.FallPct}
	}
	return out
}

// WindowSeconds returns the window duration in whole seconds.
func (c *Config) WindowSeconds() int64 {
	return int64(c.Analysis.WindowDuration / time.Second)
}

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: c.Log.Output,
	}
}
