package indicators

import (
	"volflow/internal/models"
)

// ReturnsVolatility measures the dispersion of daily percentage returns.
type ReturnsVolatility struct{}

// NewReturnsVolatility creates a new returns-volatility indicator.
func NewReturnsVolatility() *ReturnsVolatility {
	return &ReturnsVolatility{}
}

func (r *ReturnsVolatility) Name() string {
	return "ReturnsVolatility"
}

func (r *ReturnsVolatility) Period() int {
	return 2
}

// Value returns the standard deviation of the daily percentage returns,
// expressed in percent. A bar following a zero close contributes a 0 return.
func (r *ReturnsVolatility) Value(bars []models.Bar) (float64, error) {
	if len(bars) < 2 {
		return 0, ErrInsufficientData
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		returns = append(returns, pctChange(bars[i-1].Close, bars[i].Close))
	}

	return stdDev(returns), nil
}

// DailyChange returns the percentage change of the last close against the
// one before it. Fewer than 2 bars yield 0.
func DailyChange(bars []models.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	n := len(bars)
	return pctChange(bars[n-2].Close, bars[n-1].Close)
}
