package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Trend classifies the direction of a cumulative indicator series.
type Trend string

const (
	TrendRising  Trend = "RISING"
	TrendFalling Trend = "FALLING"
	TrendNeutral Trend = "NEUTRAL"
)

// FlowTrend classifies the accumulation/distribution line direction.
type FlowTrend string

const (
	FlowAccumulation FlowTrend = "ACCUMULATION"
	FlowDistribution FlowTrend = "DISTRIBUTION"
	FlowNeutral      FlowTrend = "NEUTRAL"
)

// Phase is a Wyckoff-style market structure label.
type Phase string

const (
	PhaseAccumulation Phase = "ACCUMULATION"
	PhaseMarkup       Phase = "MARKUP"
	PhaseDistribution Phase = "DISTRIBUTION"
	PhaseMarkdown     Phase = "MARKDOWN"
	PhaseUnknown      Phase = "UNKNOWN"
)

// Action is the recommended trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Confidence is a qualitative confidence label for a recommendation.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// FibLevels holds Fibonacci retracement levels derived from a swing range.
// Support and Resistance map each ratio to a price.
type FibLevels struct {
	SwingHigh  float64
	SwingLow   float64
	Support    map[float64]float64
	Resistance map[float64]float64
}

// FibRatios are the retracement ratios the engine computes, in ascending order.
var FibRatios = []float64{0.236, 0.382, 0.500, 0.618, 0.786}

// fibLevelsJSON mirrors FibLevels with string ratio keys; JSON objects
// cannot key on floats.
type fibLevelsJSON struct {
	SwingHigh  float64            `json:"swing_high"`
	SwingLow   float64            `json:"swing_low"`
	Support    map[string]float64 `json:"support"`
	Resistance map[string]float64 `json:"resistance"`
}

func ratioKey(r float64) string {
	return strconv.FormatFloat(r, 'f', 3, 64)
}

// MarshalJSON encodes the ratio maps with fixed three-decimal string keys.
func (f FibLevels) MarshalJSON() ([]byte, error) {
	out := fibLevelsJSON{
		SwingHigh:  f.SwingHigh,
		SwingLow:   f.SwingLow,
		Support:    make(map[string]float64, len(f.Support)),
		Resistance: make(map[string]float64, len(f.Resistance)),
	}
	for r, v := range f.Support {
		out.Support[ratioKey(r)] = v
	}
	for r, v := range f.Resistance {
		out.Resistance[ratioKey(r)] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the float-keyed ratio maps.
func (f *FibLevels) UnmarshalJSON(data []byte) error {
	var in fibLevelsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.SwingHigh = in.SwingHigh
	f.SwingLow = in.SwingLow
	f.Support = make(map[float64]float64, len(in.Support))
	f.Resistance = make(map[float64]float64, len(in.Resistance))
	for k, v := range in.Support {
		r, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("bad fib ratio key %q: %w", k, err)
		}
		f.Support[r] = v
	}
	for k, v := range in.Resistance {
		r, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("bad fib ratio key %q: %w", k, err)
		}
		f.Resistance[r] = v
	}
	return nil
}

// IndicatorSummary carries the current value and trend of each derived
// indicator for one series snapshot.
type IndicatorSummary struct {
	OBV        float64   `json:"obv"`
	OBVTrend   Trend     `json:"obv_trend"`
	ADLine     float64   `json:"ad_line"`
	ADTrend    FlowTrend `json:"ad_trend"`
	ADStrength float64   `json:"ad_strength"`
	VPT        float64   `json:"vpt"`
	VPTTrend   Trend     `json:"vpt_trend"`
	SMA20      float64   `json:"sma_20"`
	SMA50      float64   `json:"sma_50"`
	RSI14      float64   `json:"rsi_14"`
	Volatility float64   `json:"volatility"`
	Fib        FibLevels `json:"fib"`
}

// Consolidation describes a bounded low-range trading period.
type Consolidation struct {
	IsConsolidating   bool    `json:"is_consolidating"`
	RangeTightnessPct float64 `json:"range_tightness_pct"`
	DurationBars      int     `json:"duration_bars"`
	SupportLevel      float64 `json:"support_level"`
	ResistanceLevel   float64 `json:"resistance_level"`
}

// PhaseResult is the outcome of the accumulation-phase heuristic.
type PhaseResult struct {
	Phase           Phase    `json:"phase"`
	Confidence      int      `json:"confidence"`
	Characteristics []string `json:"characteristics,omitempty"`
}

// VolumeProfile describes where volume concentrated across the price range.
type VolumeProfile struct {
	HighVolumeAtLows bool    `json:"high_volume_at_lows"`
	AvgVolumeAtLows  float64 `json:"avg_volume_at_lows"`
	AvgVolumeAtHighs float64 `json:"avg_volume_at_highs"`
	VolumeRatio      float64 `json:"volume_ratio"`
}

// SignalSet holds the named boolean signals plus the continuous metrics the
// scorer and recommender consume.
type SignalSet struct {
	OBVRising           bool `json:"obv_rising"`
	VolumeDivergence    bool `json:"volume_divergence"`
	PriceConsolidation  bool `json:"price_consolidation"`
	SmartMoneyFlow      bool `json:"smart_money_flow"`
	WyckoffAccumulation bool `json:"wyckoff_accumulation"`
	HighVolumeAtSupport bool `json:"high_volume_at_support"`
	Oversold            bool `json:"oversold"`
	Overbought          bool `json:"overbought"`
	VolumeSpike         bool `json:"volume_spike"`
	BreakoutCandidate   bool `json:"breakout_candidate"`
	NearSupport         bool `json:"near_support"`

	RSI            float64 `json:"rsi"`
	PriceVsSMA20   float64 `json:"price_vs_sma20"`
	VolumeRatio    float64 `json:"volume_ratio"`
	Volatility     float64 `json:"volatility"`
	DailyChangePct float64 `json:"daily_change_pct"`
}

// Score is a bounded composite score with ordered reasoning strings.
type Score struct {
	Value     int      `json:"value"`
	Reasoning []string `json:"reasoning,omitempty"`
}

// Recommendation is a concrete trade plan produced by the decision table.
type Recommendation struct {
	Action          Action     `json:"action"`
	EntryPrice      float64    `json:"entry_price"`
	StopLoss        float64    `json:"stop_loss"`
	TakeProfit1     float64    `json:"take_profit_1"`
	TakeProfit2     float64    `json:"take_profit_2"`
	RiskRewardRatio float64    `json:"risk_reward_ratio"`
	MaxHoldingDays  int        `json:"max_holding_days"`
	Confidence      Confidence `json:"confidence"`
	Strategy        string     `json:"strategy"`
	Reasoning       []string   `json:"reasoning,omitempty"`
}

// AnalysisReport is the full output of one analysis call: indicator
// summaries, structure descriptors, signals, scores per variant, and the
// trade plan. Plain data, safe to serialize and to share across goroutines.
// AsOf echoes the timestamp of the last input bar, never the wall clock.
type AnalysisReport struct {
	Symbol         string           `json:"symbol"`
	AsOf           time.Time        `json:"as_of"`
	Bars           int              `json:"bars"`
	LastClose      float64          `json:"last_close"`
	Indicators     IndicatorSummary `json:"indicators"`
	Consolidation  Consolidation    `json:"consolidation"`
	Phase          PhaseResult      `json:"phase"`
	VolumeProfile  VolumeProfile    `json:"volume_profile"`
	Signals        SignalSet        `json:"signals"`
	Scores         map[string]Score `json:"scores"`
	Recommendation Recommendation   `json:"recommendation"`
}

// ScreenResult is one instrument's outcome within a screen run.
type ScreenResult struct {
	Symbol string          `json:"symbol"`
	Score  int             `json:"score"`
	Report *AnalysisReport `json:"report,omitempty"`
}

// ScreenReport is the outcome of a full screening run. RanAt is supplied by
// the orchestrator, not the engine.
type ScreenReport struct {
	RanAt    time.Time      `json:"ran_at"`
	Universe string         `json:"universe"`
	Variant  string         `json:"variant"`
	MinScore int            `json:"min_score"`
	Limit    int            `json:"limit"`
	Scanned  int            `json:"scanned"`
	Skipped  int            `json:"skipped"`
	Results  []ScreenResult `json:"results"`
}
