package structure

import (
	"fmt"
	"sort"

	"volflow/internal/models"
)

// DefaultProfileWindow is the volume-profile lookback in bars.
const DefaultProfileWindow = 30

// VolumeProfiler measures where volume concentrated across the price range.
type VolumeProfiler struct {
	window    int
	skewRatio float64
}

// NewVolumeProfiler creates a profiler. A non-positive window falls back to
// DefaultProfileWindow.
func NewVolumeProfiler(window int) *VolumeProfiler {
	if window <= 0 {
		window = DefaultProfileWindow
	}
	return &VolumeProfiler{
		window:    window,
		skewRatio: 1.2,
	}
}

// Profile splits the window's closes into price quartiles and compares mean
// volume in the bottom quartile against the top one. An empty top bucket
// uses a denominator of 1 so the ratio stays defined. Volume concentrating
// at the lows beyond skewRatio reads as accumulation-style absorption.
func (p *VolumeProfiler) Profile(bars []models.Bar) (models.VolumeProfile, error) {
	if len(bars) < p.window {
		return models.VolumeProfile{}, fmt.Errorf("%w: need %d bars, got %d", ErrInsufficientData, p.window, len(bars))
	}

	window := bars[len(bars)-p.window:]

	closes := make([]float64, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}
	sort.Float64s(closes)
	p25 := closes[len(closes)/4]
	p75 := closes[len(closes)*3/4]

	var lowVolume, highVolume float64
	var lowCount, highCount int
	for _, b := range window {
		if b.Close <= p25 {
			lowVolume += float64(b.Volume)
			lowCount++
		}
		if b.Close >= p75 {
			highVolume += float64(b.Volume)
			highCount++
		}
	}

	avgAtLows := 0.0
	if lowCount > 0 {
		avgAtLows = lowVolume / float64(lowCount)
	}
	avgAtHighs := 1.0
	if highCount > 0 {
		avgAtHighs = highVolume / float64(highCount)
	}

	ratio := 0.0
	if avgAtHighs != 0 {
		ratio = avgAtLows / avgAtHighs
	}

	return models.VolumeProfile{
		HighVolumeAtLows: ratio > p.skewRatio,
		AvgVolumeAtLows:  avgAtLows,
		AvgVolumeAtHighs: avgAtHighs,
		VolumeRatio:      ratio,
	}, nil
}
