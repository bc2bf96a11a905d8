// Package structure classifies market structure over OHLCV series: trading
// ranges, accumulation behavior, and volume distribution.
package structure

import (
	"errors"
	"fmt"

	"volflow/internal/models"
)

// MinBars is the minimum series length for a full structure classification.
// The spring check inside the phase heuristic reads a 30 bar base.
const MinBars = 30

// ErrInsufficientData indicates the series is shorter than a detector's
// window.
var ErrInsufficientData = errors.New("insufficient data for structure classification")

// Structure bundles the classifications for one series snapshot.
type Structure struct {
	Consolidation models.Consolidation
	Phase         models.PhaseResult
	Profile       models.VolumeProfile
}

// Classifier runs all structure detectors over a series.
type Classifier struct {
	consolidation *ConsolidationDetector
	phase         *PhaseClassifier
	profile       *VolumeProfiler
}

// NewClassifier creates a classifier with default detector windows.
func NewClassifier() *Classifier {
	return &Classifier{
		consolidation: NewConsolidationDetector(0),
		phase:         NewPhaseClassifier(),
		profile:       NewVolumeProfiler(0),
	}
}

// SetConsolidationWindow changes the range-detection lookback.
func (c *Classifier) SetConsolidationWindow(window int) {
	c.consolidation = NewConsolidationDetector(window)
}

// Classify detects the trading range, scores the accumulation heuristic and
// measures the volume profile in one pass. The result is a fresh value
// object per call; the classifier holds no per-series state.
func (c *Classifier) Classify(bars []models.Bar) (Structure, error) {
	if len(bars) < MinBars {
		return Structure{}, fmt.Errorf("%w: need %d bars, got %d", ErrInsufficientData, MinBars, len(bars))
	}

	cons, err := c.consolidation.Detect(bars)
	if err != nil {
		return Structure{}, err
	}
	phase, err := c.phase.Classify(bars)
	if err != nil {
		return Structure{}, err
	}
	profile, err := c.profile.Profile(bars)
	if err != nil {
		return Structure{}, err
	}

	return Structure{
		Consolidation: cons,
		Phase:         phase,
		Profile:       profile,
	}, nil
}

func meanVolume(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var total float64
	for _, b := range bars {
		total += float64(b.Volume)
	}
	return total / float64(len(bars))
}

func windowHigh(bars []models.Bar) float64 {
	high := bars[0].High
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

func windowLow(bars []models.Bar) float64 {
	low := bars[0].Low
	for _, b := range bars[1:] {
		if b.Low < low {
			low = b.Low
		}
	}
	return low
}
