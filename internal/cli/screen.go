// Package cli implements the volflow command tree.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"volflow/internal/analysis"
	apperrors "volflow/internal/errors"
	"volflow/internal/logging"
	"volflow/internal/models"
	"volflow/pkg/utils"
)

func newScreenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen a universe and rank symbols by score",
		Long: `Run the analyzer across a watchlist or an explicit symbol list and rank
the results by their score under one variant. Symbols that cannot be
fetched or have too little history are skipped, not fatal.`,
		Example: `  volflow screen
  volflow screen --universe tech --variant breakout --min-score 60
  volflow screen --symbols RELIANCE,INFY,TCS --limit 5 --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			universe, _ := cmd.Flags().GetString("universe")
			symbolsCSV, _ := cmd.Flags().GetString("symbols")
			variant, _ := cmd.Flags().GetString("variant")
			minScore, _ := cmd.Flags().GetInt("min-score")
			limit, _ := cmd.Flags().GetInt("limit")
			bars, _ := cmd.Flags().GetInt("bars")
			save, _ := cmd.Flags().GetBool("save")

			if universe == "" {
				universe = app.Config.Screening.Universe
			}
			if symbolsCSV != "" && !cmd.Flags().Changed("universe") {
				universe = "adhoc"
			}
			if variant == "" {
				variant = app.Config.Screening.Variant
			}
			if minScore < 0 {
				minScore = app.Config.Screening.MinScore
			}
			if limit < 0 {
				limit = app.Config.Screening.Limit
			}

			symbols, err := resolveUniverse(ctx, app, universe, symbolsCSV)
			if err != nil {
				return err
			}

			p, err := app.seriesProvider(cmd, false)
			if err != nil {
				return err
			}

			req := analysis.ScanRequest{
				Universe: universe,
				Symbols:  symbols,
				Variant:  variant,
				MinScore: minScore,
				Limit:    limit,
			}
			report, err := app.Screener.Scan(ctx, req, app.barProvider(p, app.defaultBars(bars)))
			if err != nil {
				return err
			}
			report.RanAt = time.Now()

			logging.LogScreenRun(app.Logger, report.Universe, report.Variant,
				report.Scanned, report.Skipped, len(report.Results))

			if save {
				if app.Store == nil {
					app.Logger.Warn().Msg("Store unavailable, screen run not saved")
				} else if err := app.Store.SaveScreenRun(ctx, report); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to save screen run")
				}
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			renderScreen(output, report)
			return nil
		},
	}

	cmd.Flags().StringP("universe", "u", "", "named watchlist to screen (default: screening.universe)")
	cmd.Flags().String("symbols", "", "comma-separated symbols, bypasses the watchlist")
	cmd.Flags().String("variant", "", "scoring table (default: screening.variant)")
	cmd.Flags().Int("min-score", -1, "minimum score to include (default: screening.min_score)")
	cmd.Flags().Int("limit", -1, "maximum results, 0 for all (default: screening.limit)")
	cmd.Flags().IntP("bars", "b", 0, "bars per symbol (default: analysis.default_bars)")
	cmd.Flags().Bool("save", false, "persist the run")
	return cmd
}

// resolveUniverse returns the explicit symbol list when one is given, else
// the named watchlist from the store.
func resolveUniverse(ctx context.Context, app *App, universe, symbolsCSV string) ([]string, error) {
	if symbolsCSV != "" {
		var symbols []string
		for _, s := range strings.Split(symbolsCSV, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		if len(symbols) == 0 {
			return nil, fmt.Errorf("no symbols in %q", symbolsCSV)
		}
		return symbols, nil
	}

	if app.Store == nil {
		return nil, fmt.Errorf("store unavailable; pass --symbols instead")
	}
	symbols, err := app.Store.GetWatchlist(ctx, universe)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrUniverseNotFound,
			"watchlist %q is empty, add symbols with 'volflow universe add'", universe)
	}
	return symbols, nil
}

// renderScreen prints a ranked result table.
func renderScreen(output *Output, report *models.ScreenReport) {
	output.Bold("Screen %s  variant=%s  min score %d", report.Universe, report.Variant, report.MinScore)
	output.Printf("  Scanned %d, skipped %d, matched %d\n",
		report.Scanned, report.Skipped, len(report.Results))
	output.Println()

	if len(report.Results) == 0 {
		output.Println("No symbols cleared the bar.")
		return
	}

	table := NewTable(output, "#", "SYMBOL", "SCORE", "ACTION", "CLOSE", "RSI", "PHASE")
	for i, res := range report.Results {
		var action, lastClose, rsi, phase string
		if res.Report != nil {
			action = output.Action(res.Report.Recommendation.Action)
			lastClose = utils.FormatPrice(res.Report.LastClose)
			rsi = fmt.Sprintf("%.1f", res.Report.Indicators.RSI14)
			phase = string(res.Report.Phase.Phase)
		}
		table.AddRow(
			fmt.Sprintf("%d", i+1),
			res.Symbol,
			output.ScoreText(res.Score),
			action,
			lastClose,
			rsi,
			phase,
		)
	}
	table.Render()
}
