package indicators

import (
	"volflow/internal/models"
)

// Window sizes for trend and divergence classification.
const (
	trendWindow      = 10
	DivergenceWindow = 20
)

// OBV calculates On-Balance Volume.
type OBV struct{}

// NewOBV creates a new OBV indicator.
func NewOBV() *OBV {
	return &OBV{}
}

func (o *OBV) Name() string {
	return "OBV"
}

func (o *OBV) Period() int {
	return 1
}

func (o *OBV) Calculate(bars []models.Bar) ([]float64, error) {
	if len(bars) == 0 {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)
	result[0] = float64(bars[0].Volume)

	for i := 1; i < n; i++ {
		if bars[i].Close > bars[i-1].Close {
			result[i] = result[i-1] + float64(bars[i].Volume)
		} else if bars[i].Close < bars[i-1].Close {
			result[i] = result[i-1] - float64(bars[i].Volume)
		} else {
			result[i] = result[i-1]
		}
	}

	return result, nil
}

// Trend classifies the OBV direction by comparing the mean of the last 10
// values against the mean of the prior 10. Changes above +5% read RISING,
// below -5% FALLING, anything else (including series shorter than 20)
// NEUTRAL.
func (o *OBV) Trend(values []float64) models.Trend {
	recent, prior, ok := splitWindowMeans(values, trendWindow)
	if !ok {
		return models.TrendNeutral
	}
	switch change := pctChange(prior, recent); {
	case change > 5:
		return models.TrendRising
	case change < -5:
		return models.TrendFalling
	default:
		return models.TrendNeutral
	}
}

// BullishDivergence reports whether price fell more than 2% over the last
// 20 bars while OBV rose more than 2% over the same window. Only the
// bullish direction is detected; the bearish mirror is intentionally not a
// signal this engine emits. Series shorter than the window never diverge.
func (o *OBV) BullishDivergence(bars []models.Bar, values []float64) bool {
	if len(bars) < DivergenceWindow || len(values) < DivergenceWindow {
		return false
	}
	pn, vn := len(bars), len(values)
	priceChange := pctChange(bars[pn-DivergenceWindow].Close, bars[pn-1].Close)
	obvChange := pctChange(values[vn-DivergenceWindow], values[vn-1])
	return priceChange < -2 && obvChange > 2
}

// ADLine calculates the Accumulation/Distribution line: the running sum of
// close-location value times volume.
type ADLine struct{}

// NewADLine creates a new A/D Line indicator.
func NewADLine() *ADLine {
	return &ADLine{}
}

func (a *ADLine) Name() string {
	return "ADLine"
}

func (a *ADLine) Period() int {
	return 1
}

func (a *ADLine) Calculate(bars []models.Bar) ([]float64, error) {
	if len(bars) == 0 {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)

	var cumAD float64
	for i := 0; i < n; i++ {
		// CLV is 0 when high == low, so flat bars contribute nothing.
		hl := bars[i].High - bars[i].Low
		if hl != 0 {
			clv := ((bars[i].Close - bars[i].Low) - (bars[i].High - bars[i].Close)) / hl
			cumAD += clv * float64(bars[i].Volume)
		}
		result[i] = cumAD
	}

	return result, nil
}

// Trend classifies the A/D direction over the last 10 vs prior 10 values.
// Changes above +3% read ACCUMULATION, below -3% DISTRIBUTION, else NEUTRAL.
// Strength is the magnitude of the relative change times 100.
func (a *ADLine) Trend(values []float64) (models.FlowTrend, float64) {
	recent, prior, ok := splitWindowMeans(values, trendWindow)
	if !ok {
		return models.FlowNeutral, 0
	}
	change := pctChange(prior, recent) / 100
	strength := abs(change) * 100
	switch {
	case change > 0.03:
		return models.FlowAccumulation, strength
	case change < -0.03:
		return models.FlowDistribution, strength
	default:
		return models.FlowNeutral, strength
	}
}

// VPT calculates the Volume-Price Trend: cumulative volume weighted by the
// percentage price return of each bar.
type VPT struct{}

// NewVPT creates a new VPT indicator.
func NewVPT() *VPT {
	return &VPT{}
}

func (v *VPT) Name() string {
	return "VPT"
}

func (v *VPT) Period() int {
	return 1
}

func (v *VPT) Calculate(bars []models.Bar) ([]float64, error) {
	if len(bars) == 0 {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)
	result[0] = 0

	for i := 1; i < n; i++ {
		contribution := 0.0
		if bars[i-1].Close != 0 {
			contribution = float64(bars[i].Volume) * (bars[i].Close - bars[i-1].Close) / bars[i-1].Close
		}
		result[i] = result[i-1] + contribution
	}

	return result, nil
}

// Trend is the sign of the VPT slope over the last 5 points. Fewer than 5
// points read NEUTRAL.
func (v *VPT) Trend(values []float64) models.Trend {
	const slopeWindow = 5
	if len(values) < slopeWindow {
		return models.TrendNeutral
	}
	n := len(values)
	slope := values[n-1] - values[n-slopeWindow]
	switch {
	case slope > 0:
		return models.TrendRising
	case slope < 0:
		return models.TrendFalling
	default:
		return models.TrendNeutral
	}
}
