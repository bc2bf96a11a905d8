// Package models provides domain models shared by the analysis engine and
// the layers around it.
package models

import (
	"fmt"
	"math"
	"time"
)

// Bar represents OHLCV data for one trading period.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Series is an ordered, chronologically ascending sequence of bars for one
// instrument. The engine consumes it read-only.
type Series = []Bar

// ValidateSeries checks the engine input contract: finite prices,
// high >= low, non-negative volume, and strictly ascending timestamps.
// Providers run this before handing a series to the engine; the engine
// itself only enforces length requirements.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if !finite(b.Open) || !finite(b.High) || !finite(b.Low) || !finite(b.Close) {
			return fmt.Errorf("bar %d: non-finite price", i)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.4f below low %.4f", i, b.High, b.Low)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d: negative volume %d", i, b.Volume)
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("bar %d: timestamp %s not after previous bar", i, b.Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
