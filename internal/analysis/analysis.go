// Package analysis runs the full pipeline over an OHLCV series: indicator
// snapshot, structure classification, signal derivation, score tables and
// the trade recommendation, assembled into one report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"volflow/internal/analysis/indicators"
	"volflow/internal/analysis/recommend"
	"volflow/internal/analysis/scoring"
	"volflow/internal/analysis/structure"
	"volflow/internal/models"
)

// MinAnalysisBars is the minimum series length for a full report. It covers
// the longest window any stage needs, so the stages below never reject a
// series the analyzer accepted.
const MinAnalysisBars = 30

// Thresholds for deriving boolean signals from the continuous metrics.
const (
	oversoldRSI       = 30.0
	overboughtRSI     = 70.0
	volumeSpikeRatio  = 2.0
	breakoutProximity = 0.97
	supportProximity  = 0.02
	volumeWindow      = 20
)

// ErrInsufficientData reports a series too short for a full analysis.
var ErrInsufficientData = errors.New("insufficient data for analysis")

// Analyzer ties the computation stages together. It holds no per-series
// state, so one instance serves concurrent callers.
type Analyzer struct {
	indicators *indicators.Engine
	structure  *structure.Classifier
	scorer     *scoring.Scorer
	recommend  *recommend.Engine
}

// NewAnalyzer builds an analyzer with default stage configuration. The
// workers count bounds indicator parallelism per series.
func NewAnalyzer(workers int) *Analyzer {
	return &Analyzer{
		indicators: indicators.NewEngine(workers),
		structure:  structure.NewClassifier(),
		scorer:     scoring.NewScorer(),
		recommend:  recommend.NewEngine(),
	}
}

// Scorer exposes the score table registry so callers can register custom
// weight tables before analyzing.
func (a *Analyzer) Scorer() *scoring.Scorer {
	return a.scorer
}

// Indicators exposes the indicator engine for window tuning.
func (a *Analyzer) Indicators() *indicators.Engine {
	return a.indicators
}

// Structure exposes the structure classifier for window tuning.
func (a *Analyzer) Structure() *structure.Classifier {
	return a.structure
}

// Analyze produces the full report for one symbol. The bars must be
// chronologically ascending; AsOf echoes the last bar's timestamp.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, bars []models.Bar) (*models.AnalysisReport, error) {
	if len(bars) < MinAnalysisBars {
		return nil, fmt.Errorf("%w: %s needs %d bars, got %d",
			ErrInsufficientData, symbol, MinAnalysisBars, len(bars))
	}

	summary, err := a.indicators.Snapshot(ctx, bars)
	if err != nil {
		return nil, fmt.Errorf("indicator snapshot for %s: %w", symbol, err)
	}

	st, err := a.structure.Classify(bars)
	if err != nil {
		return nil, fmt.Errorf("structure classification for %s: %w", symbol, err)
	}

	signals := deriveSignals(bars, summary, st)
	lastBar := bars[len(bars)-1]

	return &models.AnalysisReport{
		Symbol:         symbol,
		AsOf:           lastBar.Timestamp,
		Bars:           len(bars),
		LastClose:      lastBar.Close,
		Indicators:     summary,
		Consolidation:  st.Consolidation,
		Phase:          st.Phase,
		VolumeProfile:  st.Profile,
		Signals:        signals,
		Scores:         a.scorer.ScoreAll(signals),
		Recommendation: a.recommend.Recommend(signals, lastBar.Close, summary.Fib),
	}, nil
}

// deriveSignals reduces indicator and structure output to the named signals
// the score tables and the decision table consume.
func deriveSignals(bars []models.Bar, summary models.IndicatorSummary, st structure.Structure) models.SignalSet {
	obv := indicators.NewOBV()
	// OBV needs a single bar and the series is length-gated upstream, so
	// the error path is unreachable here.
	obvValues, _ := obv.Calculate(bars)

	lastClose := bars[len(bars)-1].Close
	ratio := relativeVolume(bars)

	return models.SignalSet{
		OBVRising:           summary.OBVTrend == models.TrendRising,
		VolumeDivergence:    obv.BullishDivergence(bars, obvValues),
		PriceConsolidation:  st.Consolidation.IsConsolidating,
		SmartMoneyFlow:      summary.ADTrend == models.FlowAccumulation,
		WyckoffAccumulation: st.Phase.Phase == models.PhaseAccumulation,
		HighVolumeAtSupport: st.Profile.HighVolumeAtLows,
		Oversold:            summary.RSI14 < oversoldRSI,
		Overbought:          summary.RSI14 > overboughtRSI,
		VolumeSpike:         ratio > volumeSpikeRatio,
		BreakoutCandidate:   st.Consolidation.IsConsolidating && lastClose >= st.Consolidation.ResistanceLevel*breakoutProximity,
		NearSupport:         nearLevel(lastClose, st.Consolidation.SupportLevel) || nearLevel(lastClose, summary.Fib.Support[0.618]),
		RSI:                 summary.RSI14,
		PriceVsSMA20:        indicators.NewSMA(20).PriceVsSMA(bars),
		VolumeRatio:         ratio,
		Volatility:          summary.Volatility,
		DailyChangePct:      indicators.DailyChange(bars),
	}
}

// relativeVolume compares the last bar's volume to the average of the
// preceding window, 0 when there is no history to compare against.
func relativeVolume(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	prior := bars[:len(bars)-1]
	if len(prior) > volumeWindow {
		prior = prior[len(prior)-volumeWindow:]
	}
	var total float64
	for _, b := range prior {
		total += float64(b.Volume)
	}
	avg := total / float64(len(prior))
	if avg == 0 {
		return 0
	}
	return float64(bars[len(bars)-1].Volume) / avg
}

// nearLevel reports whether price sits within 2% of the level.
func nearLevel(price, level float64) bool {
	if level <= 0 {
		return false
	}
	return math.Abs(price-level)/level <= supportProximity
}
