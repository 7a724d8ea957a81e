package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/marginsim/market"
)

// Config represents the complete backtest configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Oracle   OracleConfig   `json:"oracle" yaml:"oracle"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig contains ledger initialization parameters
type AccountConfig struct {
	InitialCapital    float64 `json:"initial_capital" yaml:"initial_capital"`
	MarginRequirement float64 `json:"margin_requirement" yaml:"margin_requirement"`
	Fee               float64 `json:"fee" yaml:"fee"`
}

// BacktestConfig contains the run window and instruments
type BacktestConfig struct {
	Symbols  []string `json:"symbols" yaml:"symbols"`
	Interval string   `json:"interval" yaml:"interval"`
	Start    string   `json:"start" yaml:"start"` // YYYY-MM-DD
	End      string   `json:"end" yaml:"end"`
	DataDir  string   `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
}

// OracleConfig selects and tunes the decision oracle
type OracleConfig struct {
	Name       string  `json:"name" yaml:"name"`
	SizePct    float64 `json:"size_pct,omitempty" yaml:"size_pct,omitempty"`
	FastPeriod int     `json:"fast_period,omitempty" yaml:"fast_period,omitempty"`
	SlowPeriod int     `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
	Retries    int     `json:"retries,omitempty" yaml:"retries,omitempty"`
	OnFailure  string  `json:"on_failure,omitempty" yaml:"on_failure,omitempty"` // "hold" or "abort"
}

// RiskConfig contains optional pre-trade limits
type RiskConfig struct {
	MaxPositionPct float64 `json:"max_position_pct,omitempty" yaml:"max_position_pct,omitempty"`
	MaxGrossPct    float64 `json:"max_gross_pct,omitempty" yaml:"max_gross_pct,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	ValuesFile string `json:"values_file,omitempty" yaml:"values_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Window parses the configured start and end dates.
func (c *Config) Window() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", c.Backtest.Start)
	if err != nil {
		return start, end, fmt.Errorf("backtest.start: %w", err)
	}
	end, err = time.Parse("2006-01-02", c.Backtest.End)
	if err != nil {
		return start, end, fmt.Errorf("backtest.end: %w", err)
	}
	return start, end, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Account.MarginRequirement <= 0 || c.Account.MarginRequirement > 1 {
		return fmt.Errorf("account.margin_requirement must be in (0, 1]")
	}
	if c.Account.Fee < 0 {
		return fmt.Errorf("account.fee must not be negative")
	}
	if len(c.Backtest.Symbols) == 0 {
		return fmt.Errorf("backtest.symbols is required")
	}
	for _, s := range c.Backtest.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("backtest.symbols must not contain empty entries")
		}
	}
	if !market.Interval(c.Backtest.Interval).Valid() {
		return fmt.Errorf("unknown interval: %s", c.Backtest.Interval)
	}
	start, end, err := c.Window()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("backtest.end must be after backtest.start")
	}
	if c.Oracle.Name == "" {
		return fmt.Errorf("oracle.name is required")
	}
	if c.Oracle.Retries < 0 {
		return fmt.Errorf("oracle.retries must not be negative")
	}
	switch c.Oracle.OnFailure {
	case "", "hold", "abort":
	default:
		return fmt.Errorf("oracle.on_failure must be 'hold' or 'abort'")
	}
	if c.Risk.MaxPositionPct < 0 || c.Risk.MaxGrossPct < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.ValuesFile == "" {
			return fmt.Errorf("journal trades_file and values_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital:    10000,
			MarginRequirement: 1.0,
			Fee:               0.001,
		},
		Backtest: BacktestConfig{
			Symbols:  []string{"BTCUSDT"},
			Interval: string(market.D1),
			Start:    "2024-01-01",
			End:      "2024-06-30",
			DataDir:  "data",
		},
		Oracle: OracleConfig{
			Name:       "momentum",
			SizePct:    0.25,
			FastPeriod: 5,
			SlowPeriod: 20,
			Retries:    3,
			OnFailure:  "hold",
		},
		Risk: RiskConfig{
			MaxPositionPct: 0.40,
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}
