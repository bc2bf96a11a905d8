package indicators

import (
	"volflow/internal/models"
)

// DefaultFibLookback is the swing window used when no lookback is configured.
const DefaultFibLookback = 20

// FibonacciRetracement derives support and resistance levels from the swing
// range of a lookback window.
type FibonacciRetracement struct {
	lookback int
}

// NewFibonacciRetracement creates a Fibonacci retracement calculator. A
// non-positive lookback falls back to DefaultFibLookback.
func NewFibonacciRetracement(lookback int) *FibonacciRetracement {
	if lookback <= 0 {
		lookback = DefaultFibLookback
	}
	return &FibonacciRetracement{lookback: lookback}
}

func (f *FibonacciRetracement) Name() string {
	return "FibonacciRetracement"
}

func (f *FibonacciRetracement) Period() int {
	return f.lookback
}

// Levels finds the swing high/low over the lookback window and maps each
// retracement ratio r to support (swingHigh - range*r) and resistance
// (swingLow + range*r).
func (f *FibonacciRetracement) Levels(bars []models.Bar) (models.FibLevels, error) {
	if len(bars) < f.lookback {
		return models.FibLevels{}, ErrInsufficientData
	}

	window := bars[len(bars)-f.lookback:]
	swingHigh := highest(highPrices(window))
	swingLow := lowest(lowPrices(window))
	return f.LevelsFromSwing(swingHigh, swingLow), nil
}

// LevelsFromSwing computes the ratio maps for known swing points.
func (f *FibonacciRetracement) LevelsFromSwing(swingHigh, swingLow float64) models.FibLevels {
	diff := swingHigh - swingLow
	levels := models.FibLevels{
		SwingHigh:  swingHigh,
		SwingLow:   swingLow,
		Support:    make(map[float64]float64, len(models.FibRatios)),
		Resistance: make(map[float64]float64, len(models.FibRatios)),
	}
	for _, r := range models.FibRatios {
		levels.Support[r] = swingHigh - diff*r
		levels.Resistance[r] = swingLow + diff*r
	}
	return levels
}
