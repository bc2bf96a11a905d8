// Package cli implements the volflow command tree.
package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"volflow/internal/logging"
)

func newDataCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage the local bar cache and analysis history",
	}

	cmd.AddCommand(newDataSyncCmd(app))
	cmd.AddCommand(newDataShowCmd(app))
	cmd.AddCommand(newDataFreshnessCmd(app))
	cmd.AddCommand(newDataHistoryCmd(app))
	cmd.AddCommand(newDataRunsCmd(app))
	return cmd
}

func newDataSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync SYMBOL [SYMBOL...]",
		Short: "Fetch fresh bars and store them locally",
		Long: `Fetch the daily series for each symbol straight from the provider,
bypassing the cache, and store the bars locally.`,
		Example: `  volflow data sync RELIANCE
  volflow data sync INFY TCS --bars 250`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			p, err := app.seriesProvider(cmd, true)
			if err != nil {
				return err
			}

			bars, _ := cmd.Flags().GetInt("bars")
			count := app.defaultBars(bars)

			type syncResult struct {
				Symbol string `json:"symbol"`
				Bars   int    `json:"bars"`
				Error  string `json:"error,omitempty"`
			}
			results := make([]syncResult, 0, len(args))
			failures := 0

			for _, arg := range args {
				symbol := strings.ToUpper(arg)
				start := time.Now()
				series, err := p.Daily(ctx, symbol, count)
				logging.LogFetch(app.Logger, p.Name(), symbol, len(series), time.Since(start), err)
				if err == nil {
					err = app.Store.SaveBars(ctx, symbol, series)
				}
				if err != nil {
					failures++
					results = append(results, syncResult{Symbol: symbol, Error: err.Error()})
					if !output.IsJSON() {
						output.Error("%s: %v", symbol, err)
					}
					continue
				}
				if err := app.Store.SetLastSync(symbol, time.Now()); err != nil {
					app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to record sync time")
				}
				results = append(results, syncResult{Symbol: symbol, Bars: len(series)})
				if !output.IsJSON() {
					output.Success("%s: %d bars", symbol, len(series))
				}
			}

			if output.IsJSON() {
				if err := output.JSON(results); err != nil {
					return err
				}
			}
			if failures == len(args) {
				return fmt.Errorf("all %d syncs failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().IntP("bars", "b", 0, "bars to fetch (default: analysis.default_bars)")
	return cmd
}

func newDataShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show SYMBOL",
		Short:   "Show stored bars for a symbol",
		Example: `  volflow data show RELIANCE --bars 20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			symbol := strings.ToUpper(args[0])
			bars, _ := cmd.Flags().GetInt("bars")

			series, err := app.Store.GetBars(ctx, symbol, bars)
			if err != nil {
				return err
			}
			if len(series) == 0 {
				return fmt.Errorf("no stored bars for %s, run 'volflow data sync %s' first", symbol, symbol)
			}

			if output.IsJSON() {
				return output.JSON(series)
			}

			output.Bold("%s  %d bars", symbol, len(series))
			table := NewTable(output, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
			for _, bar := range series {
				table.AddRow(
					bar.Timestamp.Format("2006-01-02"),
					fmt.Sprintf("%.2f", bar.Open),
					fmt.Sprintf("%.2f", bar.High),
					fmt.Sprintf("%.2f", bar.Low),
					fmt.Sprintf("%.2f", bar.Close),
					fmt.Sprintf("%d", bar.Volume),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntP("bars", "b", 10, "number of most recent bars to show, 0 for all")
	return cmd
}

func newDataFreshnessCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "freshness SYMBOL [SYMBOL...]",
		Short:   "Show how current the stored bars are",
		Example: `  volflow data freshness RELIANCE INFY`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			type freshness struct {
				Symbol   string    `json:"symbol"`
				LastBar  time.Time `json:"last_bar"`
				LastSync time.Time `json:"last_sync"`
			}
			rows := make([]freshness, 0, len(args))
			for _, arg := range args {
				symbol := strings.ToUpper(arg)
				lastBar, err := app.Store.BarsFreshness(ctx, symbol)
				if err != nil {
					return err
				}
				rows = append(rows, freshness{
					Symbol:   symbol,
					LastBar:  lastBar,
					LastSync: app.Store.GetLastSync(symbol),
				})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			table := NewTable(output, "SYMBOL", "LAST BAR", "LAST SYNC", "AGE")
			for _, row := range rows {
				lastBar, lastSync, age := "never", "never", "-"
				if !row.LastBar.IsZero() {
					lastBar = row.LastBar.Format("2006-01-02")
				}
				if !row.LastSync.IsZero() {
					lastSync = row.LastSync.Format("2006-01-02 15:04")
					age = time.Since(row.LastSync).Round(time.Minute).String()
				}
				table.AddRow(row.Symbol, lastBar, lastSync, age)
			}
			table.Render()
			return nil
		},
	}
}

func newDataHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history SYMBOL",
		Short:   "Show saved analysis snapshots for a symbol",
		Example: `  volflow data history RELIANCE --limit 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			symbol := strings.ToUpper(args[0])
			limit, _ := cmd.Flags().GetInt("limit")

			snapshots, err := app.Store.GetSnapshots(ctx, symbol, limit)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				return fmt.Errorf("no snapshots for %s, analyze with --save first", symbol)
			}

			if output.IsJSON() {
				return output.JSON(snapshots)
			}

			output.Bold("%s  %d snapshots, newest first", symbol, len(snapshots))
			table := NewTable(output, "AS OF", "SAVED", "ACTION", "SCORES")
			for _, snap := range snapshots {
				table.AddRow(
					snap.AsOf.Format("2006-01-02"),
					snap.SavedAt.Format("2006-01-02 15:04"),
					output.Action(snap.Action),
					scoreSummary(snap.Scores),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "number of snapshots to show, 0 for all")
	return cmd
}

func newDataRunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Short:   "Show saved screen runs",
		Example: `  volflow data runs --universe tech --limit 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			universe, _ := cmd.Flags().GetString("universe")
			limit, _ := cmd.Flags().GetInt("limit")

			runs, err := app.Store.GetScreenRuns(ctx, universe, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return fmt.Errorf("no saved screen runs, screen with --save first")
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}

			table := NewTable(output, "RAN AT", "UNIVERSE", "VARIANT", "SCANNED", "SKIPPED", "MATCHED")
			for _, run := range runs {
				table.AddRow(
					run.RanAt.Format("2006-01-02 15:04"),
					run.Universe,
					run.Variant,
					fmt.Sprintf("%d", run.Scanned),
					fmt.Sprintf("%d", run.Skipped),
					fmt.Sprintf("%d", run.Matched),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("universe", "", "only runs for this universe")
	cmd.Flags().Int("limit", 10, "number of runs to show, 0 for all")
	return cmd
}

// scoreSummary renders a variant-to-score map compactly in variant order.
func scoreSummary(scores map[string]int) string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, scores[name]))
	}
	return strings.Join(parts, " ")
}
