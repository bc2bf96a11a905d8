package structure

import (
	"fmt"

	"volflow/internal/models"
)

// DefaultConsolidationWindow is the range-detection lookback in bars.
const DefaultConsolidationWindow = 20

// ConsolidationDetector finds bounded low-range trading periods.
type ConsolidationDetector struct {
	window       int
	maxTightness float64 // percent of the window low
	bandLower    float64
	bandUpper    float64
}

// NewConsolidationDetector creates a range detector. A non-positive window
// falls back to DefaultConsolidationWindow.
func NewConsolidationDetector(window int) *ConsolidationDetector {
	if window <= 0 {
		window = DefaultConsolidationWindow
	}
	return &ConsolidationDetector{
		window:       window,
		maxTightness: 15.0,
		bandLower:    0.95,
		bandUpper:    1.05,
	}
}

// Detect measures the trading range over the last window bars. The range is
// consolidating when it spans less than maxTightness percent of the window
// low. DurationBars counts backward from the latest bar for as long as each
// close stays inside the range band; the count may run past the window.
func (d *ConsolidationDetector) Detect(bars []models.Bar) (models.Consolidation, error) {
	if len(bars) < d.window {
		return models.Consolidation{}, fmt.Errorf("%w: need %d bars, got %d", ErrInsufficientData, d.window, len(bars))
	}

	recent := bars[len(bars)-d.window:]
	high := windowHigh(recent)
	low := windowLow(recent)

	tightness := 0.0
	if low != 0 {
		tightness = (high - low) / low * 100
	}

	lowerBound := low * d.bandLower
	upperBound := high * d.bandUpper
	duration := 0
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close < lowerBound || bars[i].Close > upperBound {
			break
		}
		duration++
	}

	return models.Consolidation{
		IsConsolidating:   tightness < d.maxTightness,
		RangeTightnessPct: tightness,
		DurationBars:      duration,
		SupportLevel:      low,
		ResistanceLevel:   high,
	}, nil
}
