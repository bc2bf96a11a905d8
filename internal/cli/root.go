// Package cli implements the volflow command tree.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"volflow/internal/analysis"
	"volflow/internal/analysis/scoring"
	"volflow/internal/config"
	"volflow/internal/logging"
	"volflow/internal/models"
	"volflow/internal/provider"
	"volflow/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-02"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Store     store.DataStore
	Analyzer  *analysis.Analyzer
	Screener  *analysis.Screener
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, configDir string, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		Logger:    logger,
	}

	app.Analyzer = analysis.NewAnalyzer(cfg.Analysis.Workers)
	app.Analyzer.Indicators().SetFibLookback(cfg.Analysis.FibLookback)
	app.Analyzer.Structure().SetConsolidationWindow(cfg.Analysis.ConsolidationWindow)

	// Custom weight tables from config become screening variants. A bad
	// table is skipped, not fatal; the built-ins keep working.
	for name, table := range cfg.Scoring.Tables {
		rules := make([]scoring.WeightRule, len(table.Rules))
		for i, r := range table.Rules {
			rules[i] = scoring.WeightRule{Signal: r.Signal, Weight: r.Weight}
		}
		err := app.Analyzer.Scorer().Register(scoring.WeightTable{
			Name:  name,
			Clamp: table.Clamp,
			Rules: rules,
		})
		if err != nil {
			logger.Warn().Err(err).Str("table", name).Msg("Skipping scoring table from config")
		}
	}

	app.Screener = analysis.NewScreener(app.Analyzer, cfg.Screening.Concurrency)

	dataStore, err := store.NewSQLiteStore(cfg.Data.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, history and caching unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Data.DBPath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "volflow",
		Short: "volflow - volume-flow analysis for daily OHLCV series",
		Long: `volflow reads daily price and volume series and reports where the volume
is flowing: OBV, A/D line and VPT trends, consolidation structure, Wyckoff
phase, weighted setup scores and a concrete trade plan.

Use 'volflow analyze SYMBOL' for a single-symbol report or 'volflow screen'
to rank a universe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/volflow)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("provider", "", "market data provider override (kite, yahoo, file)")

	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newScreenCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newDataCmd(app))
	rootCmd.AddCommand(newUniverseCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// seriesProvider builds the configured market-data source, layered under
// the bar cache unless skipCache is set or caching is disabled.
func (a *App) seriesProvider(cmd *cobra.Command, skipCache bool) (provider.SeriesProvider, error) {
	name, _ := cmd.Flags().GetString("provider")
	if name == "" {
		name = a.Config.Provider.Name
	}

	var (
		inner provider.SeriesProvider
		err   error
	)
	switch name {
	case "", "yahoo":
		inner = provider.NewYahooProvider()
	case "kite":
		inner, err = provider.NewKiteProvider(provider.KiteConfig{
			APIKey:      a.Config.Provider.Kite.APIKey,
			AccessToken: a.Config.Provider.Kite.AccessToken,
		})
	case "file":
		inner, err = provider.NewFileProvider(a.Config.Provider.File.Dir)
	default:
		return nil, fmt.Errorf("unknown provider %q (must be kite, yahoo or file)", name)
	}
	if err != nil {
		return nil, err
	}

	if skipCache || a.Store == nil || a.Config.Data.FreshnessHours <= 0 {
		return inner, nil
	}
	freshness := time.Duration(a.Config.Data.FreshnessHours) * time.Hour
	return provider.NewCachedProvider(inner, a.Store, freshness, a.Logger), nil
}

// barProvider adapts a series provider to the screener's fetch callback,
// logging every fetch with its duration.
func (a *App) barProvider(p provider.SeriesProvider, bars int) analysis.BarProvider {
	return func(ctx context.Context, symbol string) ([]models.Bar, error) {
		start := time.Now()
		series, err := p.Daily(ctx, symbol, bars)
		logging.LogFetch(a.Logger, p.Name(), symbol, len(series), time.Since(start), err)
		return series, err
	}
}

// defaultBars resolves a bars flag value against the configured default.
func (a *App) defaultBars(bars int) int {
	if bars > 0 {
		return bars
	}
	return a.Config.Analysis.DefaultBars
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("volflow v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View, validate and bootstrap the configuration file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir := app.ConfigDir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a starter config.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path, err := config.WriteTemplate(app.ConfigDir)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Success("Wrote %s", path)
			output.Println("Edit this file to change settings.")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Provider")
	output.Printf("  Name:            %s\n", cfg.Provider.Name)
	output.Printf("  Kite configured: %v\n", cfg.KiteConfigured())
	output.Printf("  File dir:        %s\n", cfg.Provider.File.Dir)
	output.Println()

	output.Bold("Data")
	output.Printf("  Directory:       %s\n", cfg.Data.Dir)
	output.Printf("  Database:        %s\n", cfg.Data.DBPath)
	output.Printf("  Freshness:       %dh\n", cfg.Data.FreshnessHours)
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Default bars:    %d\n", cfg.Analysis.DefaultBars)
	output.Printf("  Fib lookback:    %d\n", cfg.Analysis.FibLookback)
	output.Printf("  Consol. window:  %d\n", cfg.Analysis.ConsolidationWindow)
	output.Printf("  Workers:         %d\n", cfg.Analysis.Workers)
	output.Println()

	output.Bold("Screening")
	output.Printf("  Universe:        %s\n", cfg.Screening.Universe)
	output.Printf("  Variant:         %s\n", cfg.Screening.Variant)
	output.Printf("  Min score:       %d\n", cfg.Screening.MinScore)
	output.Printf("  Limit:           %d\n", cfg.Screening.Limit)
	output.Printf("  Concurrency:     %d\n", cfg.Screening.Concurrency)
	output.Println()

	output.Bold("Watch")
	output.Printf("  Cron:            %s\n", cfg.Watch.Cron)
	output.Printf("  Alert score:     %d\n", cfg.Watch.AlertScore)
	output.Println()

	output.Bold("Narrate")
	output.Printf("  Model:           %s\n", cfg.Narrate.Model)
	output.Printf("  Configured:      %v\n", cfg.NarrateConfigured())
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  Console:         %v\n", cfg.Logging.Console)
	output.Printf("  File:            %v (%s)\n", cfg.Logging.File, cfg.Logging.FilePath)

	if len(cfg.Scoring.Tables) > 0 {
		output.Println()
		output.Bold("Custom scoring tables")
		for name, table := range cfg.Scoring.Tables {
			output.Printf("  %s: %d rules, clamp=%v\n", name, len(table.Rules), table.Clamp)
		}
	}

	return nil
}
