// Package cli implements the volflow command tree.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"volflow/internal/logging"
	"volflow/internal/models"
	"volflow/internal/narrate"
	"volflow/pkg/utils"
)

// analyzeTimeout bounds one fetch-and-analyze cycle.
const analyzeTimeout = 60 * time.Second

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Full volume-flow analysis for one symbol",
		Long: `Fetch the daily series for a symbol and report on it:
- OBV, A/D line and VPT values with their trends
- consolidation structure and Wyckoff phase
- weighted setup scores per variant
- a concrete trade plan with entry, stop and targets`,
		Example: `  volflow analyze RELIANCE
  volflow analyze INFY --bars 250 --save
  volflow analyze TCS --variant breakout --narrate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			bars, _ := cmd.Flags().GetInt("bars")
			variant, _ := cmd.Flags().GetString("variant")
			narrateFlag, _ := cmd.Flags().GetBool("narrate")
			save, _ := cmd.Flags().GetBool("save")

			p, err := app.seriesProvider(cmd, false)
			if err != nil {
				return err
			}

			count := app.defaultBars(bars)
			start := time.Now()
			series, err := p.Daily(ctx, symbol, count)
			logging.LogFetch(app.Logger, p.Name(), symbol, len(series), time.Since(start), err)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", symbol, err)
			}

			report, err := app.Analyzer.Analyze(ctx, symbol, series)
			if err != nil {
				return err
			}

			if variant != "" {
				if _, ok := report.Scores[variant]; !ok {
					return fmt.Errorf("unknown variant %q (have: %s)",
						variant, strings.Join(app.Analyzer.Scorer().Tables(), ", "))
				}
			}

			if save {
				if app.Store == nil {
					app.Logger.Warn().Msg("Store unavailable, snapshot not saved")
				} else if err := app.Store.SaveSnapshot(ctx, report); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to save snapshot")
				}
			}

			var narrative string
			if narrateFlag {
				narrative, err = summarize(ctx, app, report)
				if err != nil {
					app.Logger.Warn().Err(err).Msg("Narration unavailable")
					if !output.IsJSON() {
						output.Warning("Narration unavailable: %v", err)
					}
				}
			}

			if output.IsJSON() {
				if narrative != "" {
					return output.JSON(struct {
						*models.AnalysisReport
						Narrative string `json:"narrative"`
					}{report, narrative})
				}
				return output.JSON(report)
			}

			renderAnalysis(output, report, variant)
			if narrative != "" {
				output.Println()
				output.Bold("Narrative")
				output.Printf("  %s\n", narrative)
			}
			return nil
		},
	}

	cmd.Flags().IntP("bars", "b", 0, "bars to analyze (default: analysis.default_bars)")
	cmd.Flags().String("variant", "", "expand reasoning for one scoring variant")
	cmd.Flags().Bool("narrate", false, "append an LLM narrative summary")
	cmd.Flags().Bool("save", false, "persist the report as a snapshot")
	return cmd
}

// summarize runs the configured narrator over a finished report.
func summarize(ctx context.Context, app *App, report *models.AnalysisReport) (string, error) {
	n, err := narrate.NewOpenAINarrator(app.Config.Narrate.APIKey, app.Config.Narrate.Model)
	if err != nil {
		return "", err
	}
	return n.Summarize(ctx, report)
}

// renderAnalysis prints the human-readable report. When focus names a
// variant, only that variant's reasoning is expanded.
func renderAnalysis(output *Output, report *models.AnalysisReport, focus string) {
	output.Bold("%s  %s  %d bars", report.Symbol, report.AsOf.Format("02 Jan 2006"), report.Bars)
	output.Printf("  Last close: %s\n", utils.FormatPrice(report.LastClose))
	output.Println()

	ind := report.Indicators
	output.Bold("Volume Flow")
	output.Printf("  OBV:        %s  %s\n", utils.FormatCompact(ind.OBV), output.TrendText(ind.OBVTrend))
	output.Printf("  A/D line:   %s  %s (strength %.2f)\n",
		utils.FormatCompact(ind.ADLine), output.FlowText(ind.ADTrend), ind.ADStrength)
	output.Printf("  VPT:        %s  %s\n", utils.FormatCompact(ind.VPT), output.TrendText(ind.VPTTrend))
	if report.VolumeProfile.HighVolumeAtLows {
		output.Printf("  Volume concentrated at the lows (%.1fx highs)\n", report.VolumeProfile.VolumeRatio)
	}
	output.Println()

	output.Bold("Price")
	output.Printf("  SMA 20:     %s (%s)\n", utils.FormatPrice(ind.SMA20), utils.FormatPercent(report.Signals.PriceVsSMA20))
	output.Printf("  SMA 50:     %s\n", utils.FormatPrice(ind.SMA50))
	output.Printf("  RSI 14:     %s\n", rsiText(output, ind.RSI14))
	output.Printf("  Volatility: %.2f%%\n", ind.Volatility)
	output.Println()

	output.Bold("Structure")
	if report.Consolidation.IsConsolidating {
		output.Printf("  Consolidating for %d bars, range %.1f%% (%s - %s)\n",
			report.Consolidation.DurationBars,
			report.Consolidation.RangeTightnessPct,
			utils.FormatPrice(report.Consolidation.SupportLevel),
			utils.FormatPrice(report.Consolidation.ResistanceLevel))
	} else {
		output.Printf("  Not consolidating\n")
	}
	output.Printf("  Phase:      %s (confidence %d%%)\n", report.Phase.Phase, report.Phase.Confidence)
	for _, ch := range report.Phase.Characteristics {
		output.Dim("    - %s", ch)
	}
	output.Println()

	output.Bold("Fibonacci")
	output.Printf("  Swing:      %s - %s\n",
		utils.FormatPrice(ind.Fib.SwingLow), utils.FormatPrice(ind.Fib.SwingHigh))
	output.Printf("  Support:    %s\n", fibLine(ind.Fib.Support))
	output.Printf("  Resistance: %s\n", fibLine(ind.Fib.Resistance))
	output.Println()

	output.Bold("Scores")
	for _, name := range sortedVariants(report.Scores) {
		score := report.Scores[name]
		output.Printf("  %-14s %s\n", name+":", output.ScoreText(score.Value))
		if focus == "" || focus == name {
			for _, reason := range score.Reasoning {
				output.Dim("    - %s", reason)
			}
		}
	}
	output.Println()

	rec := report.Recommendation
	output.Bold("Plan")
	output.Printf("  Action:     %s (%s confidence)\n",
		output.Action(rec.Action), strings.ToLower(string(rec.Confidence)))
	if rec.Strategy != "" {
		output.Printf("  Strategy:   %s\n", rec.Strategy)
	}
	if rec.Action != models.ActionHold {
		output.Printf("  Entry:      %s\n", utils.FormatPrice(rec.EntryPrice))
		output.Printf("  Stop:       %s\n", utils.FormatPrice(rec.StopLoss))
		output.Printf("  Targets:    %s / %s\n",
			utils.FormatPrice(rec.TakeProfit1), utils.FormatPrice(rec.TakeProfit2))
		output.Printf("  R/R:        1:%.2f\n", rec.RiskRewardRatio)
		output.Printf("  Max hold:   %d days\n", rec.MaxHoldingDays)
	}
	for _, reason := range rec.Reasoning {
		output.Dim("  - %s", reason)
	}
}

// rsiText colors the RSI reading at the conventional 30/70 bands.
func rsiText(output *Output, rsi float64) string {
	text := fmt.Sprintf("%.1f", rsi)
	switch {
	case rsi >= 70:
		return output.Red(text + " overbought")
	case rsi <= 30:
		return output.Green(text + " oversold")
	default:
		return text
	}
}

// fibLine renders a ratio-to-price map on one line in ratio order.
func fibLine(levels map[float64]float64) string {
	parts := make([]string, 0, len(levels))
	for _, r := range models.FibRatios {
		if price, ok := levels[r]; ok {
			parts = append(parts, fmt.Sprintf("%.3f %s", r, utils.FormatPrice(price)))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "  ")
}

func sortedVariants(scores map[string]models.Score) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
