package indicators

import (
	"fmt"

	"volflow/internal/models"
)

// SMA calculates a Simple Moving Average over closes.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

// Calculate returns the SMA series aligned with the input bars; values
// before index period-1 are 0.
func (s *SMA) Calculate(bars []models.Bar) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < s.period {
		return nil, ErrInsufficientData
	}

	result := make([]float64, len(bars))
	closes := closePrices(bars)

	for i := s.period - 1; i < len(bars); i++ {
		result[i] = mean(closes[i-s.period+1 : i+1])
	}

	return result, nil
}

// Value returns the mean of the last period closes. With fewer bars than the
// period it falls back to the last close; this degenerate behavior is part
// of the contract, not an error.
func (s *SMA) Value(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	if s.period <= 0 || len(bars) < s.period {
		return bars[len(bars)-1].Close
	}
	closes := closePrices(bars[len(bars)-s.period:])
	return mean(closes)
}

// PriceVsSMA returns how far the last close sits from the SMA value, as a
// percentage of the SMA. Zero SMA yields 0.
func (s *SMA) PriceVsSMA(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return pctChange(s.Value(bars), bars[len(bars)-1].Close)
}
