package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradeforge/papersim/market"
	"github.com/tradeforge/papersim/risk"
)

// Config is the complete simulation core configuration. Validation failures
// are fatal at startup; nothing else in the core returns a configuration
// error.
type Config struct {
	Account     AccountConfig      `yaml:"account"`
	Rules       RulesConfig        `yaml:"rules"`
	Scheduler   SchedulerConfig    `yaml:"scheduler"`
	Journal     JournalConfig      `yaml:"journal"`
	Feed        FeedConfig         `yaml:"feed"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// AccountConfig seeds fresh paper accounts.
type AccountConfig struct {
	SeedBalance float64 `yaml:"seed_balance"`
}

// RulesConfig carries the risk-rule thresholds.
type RulesConfig struct {
	MaxRiskPercent  float64 `yaml:"max_risk_percent"`
	MinRewardRisk   float64 `yaml:"min_reward_risk"`
	MaxTradesPerDay int     `yaml:"max_trades_per_day"`
	LossStreakLen   int     `yaml:"loss_streak_len"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// SchedulerConfig sets the two background task intervals.
type SchedulerConfig struct {
	TickInterval    string `yaml:"tick_interval"`    // e.g. "500ms"
	MonitorInterval string `yaml:"monitor_interval"` // e.g. "1s"
}

type JournalConfig struct {
	DBPath string `yaml:"db_path"`
}

// FeedConfig points at an optional external tick-subscription endpoint. An
// empty URL disables the feed; the synthetic generator runs regardless.
type FeedConfig struct {
	URL     string   `yaml:"url,omitempty"`
	Symbols []string `yaml:"symbols,omitempty"`
}

type InstrumentConfig struct {
	Symbol     string  `yaml:"symbol"`
	Name       string  `yaml:"name"`
	Category   string  `yaml:"category"`
	BasePrice  float64 `yaml:"base_price"`
	Volatility float64 `yaml:"volatility"`
	Spread     float64 `yaml:"spread"`
}

// LoadFromFile loads and validates a YAML config.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the rule thresholds and instrument list.
func (c *Config) Validate() error {
	if c.Account.SeedBalance <= 0 {
		return fmt.Errorf("account.seed_balance must be positive")
	}
	if c.Rules.MaxRiskPercent <= 0 || c.Rules.MaxRiskPercent > 100 {
		return fmt.Errorf("rules.max_risk_percent must be in (0, 100]")
	}
	if c.Rules.MinRewardRisk < 0 {
		return fmt.Errorf("rules.min_reward_risk must not be negative")
	}
	if c.Rules.MaxTradesPerDay <= 0 {
		return fmt.Errorf("rules.max_trades_per_day must be positive")
	}
	if c.Rules.LossStreakLen <= 0 {
		return fmt.Errorf("rules.loss_streak_len must be positive")
	}
	if c.Rules.CooldownMinutes <= 0 {
		return fmt.Errorf("rules.cooldown_minutes must be positive")
	}
	if _, err := c.TickInterval(); err != nil {
		return fmt.Errorf("scheduler.tick_interval: %w", err)
	}
	if _, err := c.MonitorInterval(); err != nil {
		return fmt.Errorf("scheduler.monitor_interval: %w", err)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	seen := map[string]bool{}
	for i, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instruments[%d]: symbol is required", i)
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("instruments[%d]: duplicate symbol %q", i, inst.Symbol)
		}
		seen[inst.Symbol] = true
		if inst.BasePrice <= 0 {
			return fmt.Errorf("instrument %s: base_price must be positive", inst.Symbol)
		}
		if inst.Volatility <= 0 {
			return fmt.Errorf("instrument %s: volatility must be positive", inst.Symbol)
		}
		if inst.Spread < 0 {
			return fmt.Errorf("instrument %s: spread must not be negative", inst.Symbol)
		}
	}
	return nil
}

func (c *Config) TickInterval() (time.Duration, error) {
	if c.Scheduler.TickInterval == "" {
		return 500 * time.Millisecond, nil
	}
	return time.ParseDuration(c.Scheduler.TickInterval)
}

func (c *Config) MonitorInterval() (time.Duration, error) {
	if c.Scheduler.MonitorInterval == "" {
		return time.Second, nil
	}
	return time.ParseDuration(c.Scheduler.MonitorInterval)
}

// Policy maps the rule thresholds onto the validator's policy.
func (c *Config) Policy() risk.Policy {
	return risk.Policy{
		StartBalance:    c.Account.SeedBalance,
		MaxRiskPct:      c.Rules.MaxRiskPercent,
		MinRR:           c.Rules.MinRewardRisk,
		MaxTradesPerDay: c.Rules.MaxTradesPerDay,
		LossStreakLen:   c.Rules.LossStreakLen,
		Cooldown:        time.Duration(c.Rules.CooldownMinutes) * time.Minute,
	}
}

// MarketInstruments maps the configured instruments onto the market model.
func (c *Config) MarketInstruments() []market.Instrument {
	out := make([]market.Instrument, len(c.Instruments))
	for i, inst := range c.Instruments {
		out[i] = market.Instrument{
			Symbol:     inst.Symbol,
			Name:       inst.Name,
			Category:   inst.Category,
			BasePrice:  inst.BasePrice,
			Volatility: inst.Volatility,
			Spread:     inst.Spread,
		}
	}
	return out
}

// Default returns a runnable configuration with a small forex set.
func Default() *Config {
	return &Config{
		Account: AccountConfig{SeedBalance: 10000},
		Rules: RulesConfig{
			MaxRiskPercent:  2.0,
			MinRewardRisk:   1.0,
			MaxTradesPerDay: 10,
			LossStreakLen:   3,
			CooldownMinutes: 30,
		},
		Scheduler: SchedulerConfig{
			TickInterval:    "500ms",
			MonitorInterval: "1s",
		},
		Journal: JournalConfig{DBPath: "./papersim.sqlite"},
		Instruments: []InstrumentConfig{
			{Symbol: "EURUSD", Name: "Euro / US Dollar", Category: "forex",
				BasePrice: 1.0850, Volatility: 0.0002, Spread: 0.0002},
			{Symbol: "GBPUSD", Name: "Pound / US Dollar", Category: "forex",
				BasePrice: 1.2650, Volatility: 0.00025, Spread: 0.0003},
			{Symbol: "USDJPY", Name: "US Dollar / Yen", Category: "forex",
				BasePrice: 149.50, Volatility: 0.0002, Spread: 0.02},
			{Symbol: "XAUUSD", Name: "Gold", Category: "metals",
				BasePrice: 2350.0, Volatility: 0.0004, Spread: 0.35},
			{Symbol: "BTCUSD", Name: "Bitcoin", Category: "crypto",
				BasePrice: 64000.0, Volatility: 0.0008, Spread: 12.0},
		},
	}
}
