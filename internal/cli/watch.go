// Package cli implements the volflow command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"volflow/internal/models"
	"volflow/internal/watch"
)

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Screen a watchlist on a schedule and alert on strong setups",
		Long: `Run the screener against a watchlist on a cron schedule. Every run is
persisted, and results at or above the alert score are raised as alerts.
Runs until interrupted; use --once for a single immediate run.`,
		Example: `  volflow watch
  volflow watch --universe tech --cron "0 0 */4 * * *" --alert-score 75
  volflow watch --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Store == nil {
				return fmt.Errorf("watch needs the store for watchlists and run history")
			}

			universe, _ := cmd.Flags().GetString("universe")
			cronSpec, _ := cmd.Flags().GetString("cron")
			variant, _ := cmd.Flags().GetString("variant")
			minScore, _ := cmd.Flags().GetInt("min-score")
			limit, _ := cmd.Flags().GetInt("limit")
			alertScore, _ := cmd.Flags().GetInt("alert-score")
			bars, _ := cmd.Flags().GetInt("bars")
			once, _ := cmd.Flags().GetBool("once")

			if universe == "" {
				universe = app.Config.Screening.Universe
			}
			if cronSpec == "" {
				cronSpec = app.Config.Watch.Cron
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
			if alertScore < 0 {
				alertScore = app.Config.Watch.AlertScore
			}

			p, err := app.seriesProvider(cmd, false)
			if err != nil {
				return err
			}

			onAlert := func(result models.ScreenResult, report *models.ScreenReport) {
				if output.IsJSON() {
					return // alerts go to the log in JSON mode
				}
				action := models.ActionHold
				if result.Report != nil {
					action = result.Report.Recommendation.Action
				}
				output.Warning("ALERT %s scored %d on %s, plan says %s",
					result.Symbol, result.Score, report.Variant, action)
			}

			w := watch.NewWatcher(app.Screener, app.barProvider(p, app.defaultBars(bars)),
				app.Store, app.Logger, watch.Options{
					Spec:       cronSpec,
					Universe:   universe,
					Variant:    variant,
					MinScore:   minScore,
					Limit:      limit,
					AlertScore: alertScore,
				}, onAlert)

			if once {
				report, err := w.RunNow(ctx)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(report)
				}
				renderScreen(output, report)
				return nil
			}

			if err := w.Start(); err != nil {
				return err
			}
			if !output.IsJSON() {
				output.Info("Watching %q on schedule %q, alerting at score %d. Ctrl-C to stop.",
					universe, cronSpec, alertScore)
			}
			<-ctx.Done()
			w.Stop()
			if !output.IsJSON() {
				output.Println()
				output.Println("Stopped.")
			}
			return nil
		},
	}

	cmd.Flags().StringP("universe", "u", "", "named watchlist to watch (default: screening.universe)")
	cmd.Flags().String("cron", "", "cron schedule with seconds field (default: watch.cron)")
	cmd.Flags().String("variant", "", "scoring table (default: screening.variant)")
	cmd.Flags().Int("min-score", -1, "minimum score to include (default: screening.min_score)")
	cmd.Flags().Int("limit", -1, "maximum results, 0 for all (default: screening.limit)")
	cmd.Flags().Int("alert-score", -1, "score at or above which to alert (default: watch.alert_score)")
	cmd.Flags().IntP("bars", "b", 0, "bars per symbol (default: analysis.default_bars)")
	cmd.Flags().Bool("once", false, "run a single screen immediately and exit")
	return cmd
}
