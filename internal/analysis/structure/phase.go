package structure

import (
	"fmt"

	"volflow/internal/models"
)

// PhaseClassifier scores accumulation behavior over the recent window.
//
// Only the accumulation phase is ever emitted; markup, distribution and
// markdown exist in the phase enum for callers but no rule here produces
// them. Callers treat UNKNOWN as "no phase detected".
type PhaseClassifier struct {
	window       int // scoring window
	springRecent int // bars the spring low may come from
	springBase   int // bars defining the base low
}

// Weights of the four independent phase checks. Each check is additive and
// non-exclusive; together they cap the confidence at 100.
const (
	weightDownDaysLowVolume = 30
	weightUpDaysHighVolume  = 20
	weightStablePriceVolume = 25
	weightSpring            = 25

	accumulationFloor = 40
)

// NewPhaseClassifier creates a classifier with the default windows.
func NewPhaseClassifier() *PhaseClassifier {
	return &PhaseClassifier{
		window:       20,
		springRecent: 5,
		springBase:   30,
	}
}

// Classify runs the four accumulation checks over the series and maps the
// summed weight to a phase. A confidence of accumulationFloor or more reads
// ACCUMULATION, anything below UNKNOWN.
func (p *PhaseClassifier) Classify(bars []models.Bar) (models.PhaseResult, error) {
	if len(bars) < p.springBase {
		return models.PhaseResult{}, fmt.Errorf("%w: need %d bars, got %d", ErrInsufficientData, p.springBase, len(bars))
	}

	score := 0
	var characteristics []string

	// Check 1 and 2: volume behavior on down versus up days across the
	// window, each bar compared against the day before it.
	downOnLowVolume := 0
	upOnHighVolume := 0
	start := len(bars) - p.window
	for i := start; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		if cur.Close < prev.Close && cur.Volume < prev.Volume {
			downOnLowVolume++
		}
		if cur.Close > prev.Close && cur.Volume > prev.Volume {
			upOnHighVolume++
		}
	}
	if float64(downOnLowVolume)/float64(p.window) > 0.30 {
		score += weightDownDaysLowVolume
		characteristics = append(characteristics, "down days on declining volume")
	}
	if float64(upOnHighVolume)/float64(p.window) > 0.20 {
		score += weightUpDaysHighVolume
		characteristics = append(characteristics, "up days on rising volume")
	}

	// Check 3: price holds within 5% over ten bars while the mean volume of
	// the last ten expands more than 1.1x over the prior ten.
	window := bars[len(bars)-p.window:]
	half := p.window / 2
	anchor := window[half].Close
	if anchor != 0 {
		priceDrift := (window[len(window)-1].Close - anchor) / anchor
		if priceDrift < 0 {
			priceDrift = -priceDrift
		}
		priorVolume := meanVolume(window[:half])
		recentVolume := meanVolume(window[half:])
		if priceDrift < 0.05 && priorVolume > 0 && recentVolume/priorVolume > 1.1 {
			score += weightStablePriceVolume
			characteristics = append(characteristics, "stable price on expanding volume")
		}
	}

	// Check 4: spring. The recent low tests the base low within 2% and the
	// latest close recovers to more than 5% above it.
	base := bars[len(bars)-p.springBase:]
	baseLow := windowLow(base)
	recentLow := windowLow(bars[len(bars)-p.springRecent:])
	lastClose := bars[len(bars)-1].Close
	if recentLow <= baseLow*1.02 && lastClose > baseLow*1.05 {
		score += weightSpring
		characteristics = append(characteristics, "spring recovered above the base low")
	}

	phase := models.PhaseUnknown
	if score >= accumulationFloor {
		phase = models.PhaseAccumulation
	}

	return models.PhaseResult{
		Phase:           phase,
		Confidence:      score,
		Characteristics: characteristics,
	}, nil
}
