// Package recommend converts analysis signals into concrete trade plans
// through a fixed-priority decision table.
package recommend

import (
	"fmt"
	"math"

	"volflow/internal/models"
)

// Strategy labels emitted by the decision table.
const (
	StrategyOversoldBounce     = "Oversold Bounce"
	StrategyOverboughtReversal = "Overbought Reversal"
	StrategyVolumeBreakout     = "Volume Breakout"
	StrategySupportBounce      = "Support Bounce"
	StrategyHold               = "Hold"
)

// Engine maps a signal set to a trade plan. The table is evaluated top
// down and the first matching row wins; each call is a one-shot
// classification with no state carried between calls.
type Engine struct{}

// NewEngine creates a recommendation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Recommend evaluates the decision table against the signals. Price levels
// derive from the Fibonacci retracement map; when a level is missing the
// plan falls back to percentage offsets from the last close.
func (e *Engine) Recommend(signals models.SignalSet, lastClose float64, fib models.FibLevels) models.Recommendation {
	var rec models.Recommendation

	switch {
	case signals.Oversold && signals.PriceVsSMA20 > -10:
		rec = e.oversoldBounce(signals, lastClose, fib)
	case signals.Overbought && signals.PriceVsSMA20 < 10:
		rec = e.overboughtReversal(signals, lastClose, fib)
	case signals.BreakoutCandidate && signals.VolumeRatio > 2:
		rec = e.volumeBreakout(signals, lastClose, fib)
	case signals.NearSupport && signals.RSI < 40:
		rec = e.supportBounce(signals, lastClose, fib)
	default:
		rec = e.hold(lastClose)
	}

	rec.RiskRewardRatio = riskReward(rec.EntryPrice, rec.StopLoss, rec.TakeProfit1)
	rec.Confidence = confidence(rec.RiskRewardRatio, signals.VolumeRatio, signals.PriceVsSMA20)
	return rec
}

// oversoldBounce buys a washed-out pullback: entry pulled toward the 61.8%
// support, stop near the 78.6% support but never more than 5% below the
// close, targets at the 38.2% and 61.8% resistances capped at +8%/+15%.
func (e *Engine) oversoldBounce(signals models.SignalSet, lastClose float64, fib models.FibLevels) models.Recommendation {
	entry := (lastClose + level(fib.Support, 0.618, lastClose*0.98)) / 2
	stop := math.Max(level(fib.Support, 0.786, lastClose*0.95), lastClose*0.95)
	tp1 := math.Min(level(fib.Resistance, 0.382, lastClose*1.08), lastClose*1.08)
	tp2 := math.Min(level(fib.Resistance, 0.618, lastClose*1.15), lastClose*1.15)

	return models.Recommendation{
		Action:         models.ActionBuy,
		EntryPrice:     entry,
		StopLoss:       stop,
		TakeProfit1:    tp1,
		TakeProfit2:    tp2,
		MaxHoldingDays: holdingDays(signals.Volatility, 3, 7),
		Strategy:       StrategyOversoldBounce,
		Reasoning: []string{
			fmt.Sprintf("RSI washed out at %.1f", signals.RSI),
			fmt.Sprintf("price %.1f%% from its 20 day average", signals.PriceVsSMA20),
			"targets at the 38.2% and 61.8% retracement levels",
		},
	}
}

// overboughtReversal is the sell-side mirror of the oversold bounce, built
// on the resistance levels with targets capped at -8%/-15%.
func (e *Engine) overboughtReversal(signals models.SignalSet, lastClose float64, fib models.FibLevels) models.Recommendation {
	entry := (lastClose + level(fib.Resistance, 0.618, lastClose*1.02)) / 2
	stop := math.Min(level(fib.Resistance, 0.786, lastClose*1.05), lastClose*1.05)
	tp1 := math.Max(level(fib.Support, 0.382, lastClose*0.92), lastClose*0.92)
	tp2 := math.Max(level(fib.Support, 0.618, lastClose*0.85), lastClose*0.85)

	return models.Recommendation{
		Action:         models.ActionSell,
		EntryPrice:     entry,
		StopLoss:       stop,
		TakeProfit1:    tp1,
		TakeProfit2:    tp2,
		MaxHoldingDays: holdingDays(signals.Volatility, 3, 7),
		Strategy:       StrategyOverboughtReversal,
		Reasoning: []string{
			fmt.Sprintf("RSI stretched at %.1f", signals.RSI),
			fmt.Sprintf("price %.1f%% from its 20 day average", signals.PriceVsSMA20),
			"targets at the 38.2% and 61.8% retracement levels below",
		},
	}
}

// volumeBreakout chases a confirmed range break: entry at a 0.5% premium,
// stop near the 50% support floored at 4% below the close, fixed +10%/+18%
// targets and a short holding window.
func (e *Engine) volumeBreakout(signals models.SignalSet, lastClose float64, fib models.FibLevels) models.Recommendation {
	entry := lastClose * 1.005
	stop := math.Max(level(fib.Support, 0.500, lastClose*0.96), lastClose*0.96)

	return models.Recommendation{
		Action:         models.ActionBuy,
		EntryPrice:     entry,
		StopLoss:       stop,
		TakeProfit1:    lastClose * 1.10,
		TakeProfit2:    lastClose * 1.18,
		MaxHoldingDays: holdingDays(signals.Volatility, 2, 5),
		Strategy:       StrategyVolumeBreakout,
		Reasoning: []string{
			fmt.Sprintf("volume at %.1fx its 20 bar average", signals.VolumeRatio),
			"price clearing the top of its range",
			"fixed targets at +10% and +18%",
		},
	}
}

// supportBounce buys a tested level: entry half a percent under the 61.8%
// support, stop at the 78.6% support, targets at the 38.2% and 61.8%
// resistances. The entry offset matters: the 38.2% resistance and the
// 61.8% support are the same price, so an entry exactly on the level would
// leave the first target with nothing to pay.
func (e *Engine) supportBounce(signals models.SignalSet, lastClose float64, fib models.FibLevels) models.Recommendation {
	return models.Recommendation{
		Action:         models.ActionBuy,
		EntryPrice:     level(fib.Support, 0.618, lastClose*0.99) * 0.995,
		StopLoss:       level(fib.Support, 0.786, lastClose*0.95),
		TakeProfit1:    level(fib.Resistance, 0.382, lastClose*1.05),
		TakeProfit2:    level(fib.Resistance, 0.618, lastClose*1.10),
		MaxHoldingDays: 10,
		Strategy:       StrategySupportBounce,
		Reasoning: []string{
			"price sitting on a retracement support",
			fmt.Sprintf("RSI at %.1f with room to recover", signals.RSI),
		},
	}
}

// hold is the fall-through row: every price level pins to the last close so
// the plan carries no risk and no reward.
func (e *Engine) hold(lastClose float64) models.Recommendation {
	return models.Recommendation{
		Action:         models.ActionHold,
		EntryPrice:     lastClose,
		StopLoss:       lastClose,
		TakeProfit1:    lastClose,
		TakeProfit2:    lastClose,
		MaxHoldingDays: 0,
		Strategy:       StrategyHold,
		Reasoning:      []string{"no actionable setup"},
	}
}

// level reads a retracement price, falling back when the ratio is missing
// or degenerate.
func level(levels map[float64]float64, ratio, fallback float64) float64 {
	if v, ok := levels[ratio]; ok && v > 0 {
		return v
	}
	return fallback
}

// riskReward is |tp1-entry| / |entry-stop|, defined as 0 when the stop sits
// on the entry.
func riskReward(entry, stop, tp1 float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(tp1-entry) / risk
}

// confidence grades the plan from its geometry and the tape behind it.
func confidence(riskReward, volumeRatio, priceVsSMA20 float64) models.Confidence {
	switch {
	case riskReward > 2 && volumeRatio > 1.5 && math.Abs(priceVsSMA20) < 5:
		return models.ConfidenceHigh
	case riskReward > 1.5 && volumeRatio > 1.2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// holdingDays picks the shorter window when volatility runs above 4%.
func holdingDays(volatility float64, fast, slow int) int {
	if volatility > 4 {
		return fast
	}
	return slow
}
