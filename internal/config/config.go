// Package config provides configuration management for the analysis CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Provider  ProviderConfig  `mapstructure:"provider"`
	Data      DataConfig      `mapstructure:"data"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Narrate   NarrateConfig   `mapstructure:"narrate"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ProviderConfig selects and configures the market-data source.
type ProviderConfig struct {
	Name string     `mapstructure:"name"` // kite, yahoo, file
	Kite KiteConfig `mapstructure:"kite"`
	File FileConfig `mapstructure:"file"`
}

// KiteConfig holds Kite Connect credentials.
type KiteConfig struct {
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
}

// FileConfig points the CSV provider at a directory of SYMBOL.csv files.
type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

// DataConfig holds local storage settings.
type DataConfig struct {
	Dir            string `mapstructure:"dir"`
	DBPath         string `mapstructure:"db_path"`
	FreshnessHours int    `mapstructure:"freshness_hours"`
}

// AnalysisConfig tunes engine windows.
type AnalysisConfig struct {
	DefaultBars         int `mapstructure:"default_bars"`
	FibLookback         int `mapstructure:"fib_lookback"`
	ConsolidationWindow int `mapstructure:"consolidation_window"`
	Workers             int `mapstructure:"workers"`
}

// ScoringConfig carries custom weight tables keyed by variant name.
// Tables are validated against the signal registry when registered, not
// here; config only checks shape.
type ScoringConfig struct {
	Tables map[string]WeightTable `mapstructure:"tables"`
}

// WeightTable mirrors the scorer's table shape for TOML loading.
type WeightTable struct {
	Clamp bool         `mapstructure:"clamp"`
	Rules []WeightRule `mapstructure:"rules"`
}

// WeightRule is one signal-to-weight binding.
type WeightRule struct {
	Signal string `mapstructure:"signal"`
	Weight int    `mapstructure:"weight"`
}

// ScreeningConfig holds screening defaults.
type ScreeningConfig struct {
	Universe    string `mapstructure:"universe"`
	Variant     string `mapstructure:"variant"`
	MinScore    int    `mapstructure:"min_score"`
	Limit       int    `mapstructure:"limit"`
	Concurrency int    `mapstructure:"concurrency"`
}

// WatchConfig holds scheduled-screening defaults.
type WatchConfig struct {
	Cron       string `mapstructure:"cron"`
	AlertScore int    `mapstructure:"alert_score"`
}

// NarrateConfig configures the optional LLM narrator.
type NarrateConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig holds log sink settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the configuration directory, honoring the
// VOLFLOW_CONFIG_DIR override.
func DefaultConfigDir() string {
	if dir := os.Getenv("VOLFLOW_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/volflow"
	}
	return filepath.Join(home, ".config", "volflow")
}

// DefaultDataDir returns the default local data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/volflow"
	}
	return filepath.Join(home, ".local", "share", "volflow")
}

// Load reads config.toml from the directory, merging defaults, file values
// and environment overrides. A missing file is not an error; defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Data.DBPath == "" {
		cfg.Data.DBPath = filepath.Join(cfg.Data.Dir, "volflow.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "volflow.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", "yahoo")
	v.SetDefault("data.dir", DefaultDataDir())
	v.SetDefault("data.freshness_hours", 18)
	v.SetDefault("analysis.default_bars", 120)
	v.SetDefault("analysis.fib_lookback", 20)
	v.SetDefault("analysis.consolidation_window", 20)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("screening.universe", "default")
	v.SetDefault("screening.variant", "accumulation")
	v.SetDefault("screening.min_score", 50)
	v.SetDefault("screening.limit", 20)
	v.SetDefault("screening.concurrency", 4)
	v.SetDefault("watch.cron", "0 */15 * * * *")
	v.SetDefault("watch.alert_score", 70)
	v.SetDefault("narrate.model", "gpt-4o-mini")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age_days", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Provider.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Provider.Kite.AccessToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Narrate.APIKey = v
	}
}

// Validate checks value ranges. Weight tables are shape-checked here and
// signal-checked by the scorer on registration.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "", "kite", "yahoo", "file":
	default:
		return fmt.Errorf("invalid provider name: %s (must be kite, yahoo or file)", c.Provider.Name)
	}

	if c.Analysis.DefaultBars < 30 {
		return fmt.Errorf("analysis.default_bars must be at least 30, got %d", c.Analysis.DefaultBars)
	}
	if c.Analysis.FibLookback < 2 {
		return fmt.Errorf("analysis.fib_lookback must be at least 2, got %d", c.Analysis.FibLookback)
	}
	if c.Analysis.ConsolidationWindow < 2 {
		return fmt.Errorf("analysis.consolidation_window must be at least 2, got %d", c.Analysis.ConsolidationWindow)
	}

	if c.Screening.MinScore < 0 || c.Screening.MinScore > 100 {
		return fmt.Errorf("screening.min_score must be between 0 and 100, got %d", c.Screening.MinScore)
	}
	if c.Screening.Concurrency < 0 {
		return fmt.Errorf("screening.concurrency must be non-negative, got %d", c.Screening.Concurrency)
	}

	if c.Watch.AlertScore < 0 || c.Watch.AlertScore > 100 {
		return fmt.Errorf("watch.alert_score must be between 0 and 100, got %d", c.Watch.AlertScore)
	}

	if c.Data.FreshnessHours < 0 {
		return fmt.Errorf("data.freshness_hours must be non-negative, got %d", c.Data.FreshnessHours)
	}

	for name, table := range c.Scoring.Tables {
		if len(table.Rules) == 0 {
			return fmt.Errorf("scoring table %q has no rules", name)
		}
		for i, rule := range table.Rules {
			if rule.Signal == "" {
				return fmt.Errorf("scoring table %q rule %d has an empty signal", name, i)
			}
			if rule.Weight <= 0 {
				return fmt.Errorf("scoring table %q rule %d has non-positive weight %d", name, i, rule.Weight)
			}
		}
	}

	return nil
}

// KiteConfigured reports whether Kite credentials are present.
func (c *Config) KiteConfigured() bool {
	return c.Provider.Kite.APIKey != "" && c.Provider.Kite.AccessToken != ""
}

// NarrateConfigured reports whether the narrator has an API key.
func (c *Config) NarrateConfigured() bool {
	return c.Narrate.APIKey != ""
}
