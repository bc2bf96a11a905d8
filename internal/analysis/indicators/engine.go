// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"context"
	"fmt"
	"sync"

	"volflow/internal/models"
)

// Indicator defines the interface for series-aligned technical indicators.
type Indicator interface {
	Name() string
	Calculate(bars []models.Bar) ([]float64, error)
	Period() int
}

// SnapshotMinBars is the minimum series length for a full indicator
// snapshot: RSI(14) plus the 10-vs-10 trend windows.
const SnapshotMinBars = 20

// Engine provides parallel indicator calculation using a worker pool. The
// engine holds no per-series state; a single instance is safe for
// concurrent use across instruments.
type Engine struct {
	workers    int
	indicators map[string]Indicator
	fib        *FibonacciRetracement
	mu         sync.RWMutex
}

// NewEngine creates an engine with the default indicator set registered.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	e := &Engine{
		workers:    workers,
		indicators: make(map[string]Indicator),
		fib:        NewFibonacciRetracement(DefaultFibLookback),
	}
	for _, ind := range []Indicator{
		NewOBV(),
		NewADLine(),
		NewVPT(),
		NewRSI(14),
		NewSMA(20),
		NewSMA(50),
	} {
		e.Register(ind)
	}
	return e
}

// Register adds or replaces an indicator.
func (e *Engine) Register(ind Indicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicators[ind.Name()] = ind
}

// SetFibLookback changes the swing window for retracement levels.
func (e *Engine) SetFibLookback(lookback int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fib = NewFibonacciRetracement(lookback)
}

// CalculateAll calculates all registered indicators in parallel. Indicators
// the series is too short for are skipped; callers check presence in the
// result map.
func (e *Engine) CalculateAll(ctx context.Context, bars []models.Bar) (map[string][]float64, error) {
	e.mu.RLock()
	indicators := make([]Indicator, 0, len(e.indicators))
	for _, ind := range e.indicators {
		indicators = append(indicators, ind)
	}
	e.mu.RUnlock()

	results := make(map[string][]float64)
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan Indicator, len(indicators))

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ind := range work {
				select {
				case <-ctx.Done():
					return
				default:
					values, err := ind.Calculate(bars)
					if err == nil {
						mu.Lock()
						results[ind.Name()] = values
						mu.Unlock()
					}
				}
			}
		}()
	}

	for _, ind := range indicators {
		work <- ind
	}
	close(work)

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Calculate calculates a specific indicator by name.
func (e *Engine) Calculate(ctx context.Context, name string, bars []models.Bar) ([]float64, error) {
	e.mu.RLock()
	ind, ok := e.indicators[name]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("indicator %s not found", name)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return ind.Calculate(bars)
	}
}

// ListIndicators returns the names of all registered indicators.
func (e *Engine) ListIndicators() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.indicators))
	for name := range e.indicators {
		names = append(names, name)
	}
	return names
}

// Snapshot computes every indicator over the series and reduces each to its
// current value plus trend classification. The result is a fresh value
// object; nothing is cached between calls.
func (e *Engine) Snapshot(ctx context.Context, bars []models.Bar) (models.IndicatorSummary, error) {
	if len(bars) < SnapshotMinBars {
		return models.IndicatorSummary{}, fmt.Errorf("%w: snapshot needs %d bars, got %d",
			ErrInsufficientData, SnapshotMinBars, len(bars))
	}

	series, err := e.CalculateAll(ctx, bars)
	if err != nil {
		return models.IndicatorSummary{}, err
	}

	obv := NewOBV()
	ad := NewADLine()
	vpt := NewVPT()

	obvSeries := series["OBV"]
	adSeries := series["ADLine"]
	vptSeries := series["VPT"]
	rsiSeries := series["RSI_14"]

	adTrend, adStrength := ad.Trend(adSeries)

	volatility, err := NewReturnsVolatility().Value(bars)
	if err != nil {
		return models.IndicatorSummary{}, err
	}

	e.mu.RLock()
	fib := e.fib
	e.mu.RUnlock()
	fibLevels, err := fib.Levels(bars)
	if err != nil {
		return models.IndicatorSummary{}, err
	}

	return models.IndicatorSummary{
		OBV:        last(obvSeries),
		OBVTrend:   obv.Trend(obvSeries),
		ADLine:     last(adSeries),
		ADTrend:    adTrend,
		ADStrength: adStrength,
		VPT:        last(vptSeries),
		VPTTrend:   vpt.Trend(vptSeries),
		SMA20:      NewSMA(20).Value(bars),
		SMA50:      NewSMA(50).Value(bars),
		RSI14:      last(rsiSeries),
		Volatility: volatility,
		Fib:        fibLevels,
	}, nil
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
