package scoring

import (
	"fmt"

	"volflow/internal/models"
)

// Built-in weight table names.
const (
	TableAccumulation = "accumulation"
	TableBreakout     = "breakout"
)

// WeightRule binds a named signal predicate to its score contribution.
// Rules are plain data so new tables can be loaded from configuration.
type WeightRule struct {
	Signal string
	Weight int
}

// WeightTable is an ordered list of weight rules evaluated additively.
// When Clamp is set the summed value is bounded to [0, 100]; unclamped
// tables may exceed 100 and callers own that interpretation.
type WeightTable struct {
	Name  string
	Clamp bool
	Rules []WeightRule
}

// predicate tests one named signal and narrates why it matched.
type predicate struct {
	test   func(models.SignalSet) bool
	reason func(models.SignalSet) string
}

func staticReason(text string) func(models.SignalSet) string {
	return func(models.SignalSet) string { return text }
}

// predicates is the registry of signal names weight tables may reference.
var predicates = map[string]predicate{
	"obv_rising": {
		test:   func(s models.SignalSet) bool { return s.OBVRising },
		reason: staticReason("OBV trending higher"),
	},
	"smart_money_flow": {
		test:   func(s models.SignalSet) bool { return s.SmartMoneyFlow },
		reason: staticReason("A/D line shows accumulation"),
	},
	"consolidating": {
		test:   func(s models.SignalSet) bool { return s.PriceConsolidation },
		reason: staticReason("price consolidating in a tight range"),
	},
	"wyckoff_accumulation": {
		test:   func(s models.SignalSet) bool { return s.WyckoffAccumulation },
		reason: staticReason("Wyckoff accumulation characteristics present"),
	},
	"high_volume_at_lows": {
		test:   func(s models.SignalSet) bool { return s.HighVolumeAtSupport },
		reason: staticReason("volume concentrated at the lows"),
	},
	"volume_divergence": {
		test:   func(s models.SignalSet) bool { return s.VolumeDivergence },
		reason: staticReason("bullish OBV divergence against price"),
	},
	"oversold": {
		test: func(s models.SignalSet) bool { return s.Oversold },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("RSI oversold at %.1f", s.RSI)
		},
	},
	"overbought": {
		test: func(s models.SignalSet) bool { return s.Overbought },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("RSI overbought at %.1f", s.RSI)
		},
	},
	"volume_spike": {
		test: func(s models.SignalSet) bool { return s.VolumeSpike },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("volume at %.1fx its 20 bar average", s.VolumeRatio)
		},
	},
	"volume_elevated": {
		test: func(s models.SignalSet) bool { return s.VolumeRatio > 1.3 && s.VolumeRatio <= 2 },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("volume running %.1fx above average", s.VolumeRatio)
		},
	},
	"volatility_compressed": {
		test: func(s models.SignalSet) bool { return s.Volatility > 0 && s.Volatility < 2 },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("volatility compressed to %.1f%%", s.Volatility)
		},
	},
	"breakout_candidate": {
		test:   func(s models.SignalSet) bool { return s.BreakoutCandidate },
		reason: staticReason("price pressing the top of its range"),
	},
	"near_support": {
		test:   func(s models.SignalSet) bool { return s.NearSupport },
		reason: staticReason("price sitting on support"),
	},
	"rsi_momentum": {
		test: func(s models.SignalSet) bool { return s.RSI >= 55 && s.RSI <= 75 },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("RSI in the momentum zone at %.1f", s.RSI)
		},
	},
	"near_sma20": {
		test: func(s models.SignalSet) bool { return s.PriceVsSMA20 > -3 && s.PriceVsSMA20 < 3 },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("price within %.1f%% of its 20 day average", s.PriceVsSMA20)
		},
	},
	"strong_daily_move": {
		test: func(s models.SignalSet) bool { return s.DailyChangePct > 3 || s.DailyChangePct < -3 },
		reason: func(s models.SignalSet) string {
			return fmt.Sprintf("daily move of %.1f%%", s.DailyChangePct)
		},
	},
}

// AccumulationTable scores quiet-accumulation setups. Raw weights sum to
// 115; the table clamps, so 100 is the ceiling.
func AccumulationTable() WeightTable {
	return WeightTable{
		Name:  TableAccumulation,
		Clamp: true,
		Rules: []WeightRule{
			{Signal: "obv_rising", Weight: 25},
			{Signal: "smart_money_flow", Weight: 20},
			{Signal: "consolidating", Weight: 20},
			{Signal: "wyckoff_accumulation", Weight: 25},
			{Signal: "high_volume_at_lows", Weight: 15},
			{Signal: "volume_divergence", Weight: 10},
		},
	}
}

// BreakoutTable scores momentum setups: volume expansion out of compressed
// volatility near the range top.
func BreakoutTable() WeightTable {
	return WeightTable{
		Name:  TableBreakout,
		Clamp: true,
		Rules: []WeightRule{
			{Signal: "volume_spike", Weight: 25},
			{Signal: "volume_elevated", Weight: 10},
			{Signal: "volatility_compressed", Weight: 20},
			{Signal: "breakout_candidate", Weight: 20},
			{Signal: "rsi_momentum", Weight: 15},
			{Signal: "near_sma20", Weight: 10},
			{Signal: "strong_daily_move", Weight: 10},
		},
	}
}

// SignalNames returns the registered predicate names, for config validation
// messages.
func SignalNames() []string {
	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	return names
}
