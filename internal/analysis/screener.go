package analysis

import (
	"context"
	"sort"
	"sync"

	"volflow/internal/analysis/scoring"
	"volflow/internal/models"
)

// DefaultScreenConcurrency bounds parallel symbol scans when the caller
// does not choose a worker count.
const DefaultScreenConcurrency = 4

// BarProvider supplies the daily series for one symbol.
type BarProvider func(ctx context.Context, symbol string) ([]models.Bar, error)

// ScanRequest names the universe to screen and how to rank it.
type ScanRequest struct {
	Universe string
	Symbols  []string
	Variant  string
	MinScore int
	Limit    int
}

// Screener runs the analyzer across a universe of symbols concurrently and
// ranks the survivors by score.
type Screener struct {
	analyzer    *Analyzer
	concurrency int
}

// NewScreener creates a screener on top of an analyzer.
func NewScreener(analyzer *Analyzer, concurrency int) *Screener {
	if concurrency <= 0 {
		concurrency = DefaultScreenConcurrency
	}
	return &Screener{analyzer: analyzer, concurrency: concurrency}
}

type scanOutcome struct {
	symbol string
	report *models.AnalysisReport
	err    error
}

// Scan analyzes every symbol in the request and keeps those whose score
// under the requested variant clears MinScore, sorted best first with ties
// broken by symbol. Symbols whose series cannot be fetched or are too short
// count as skipped rather than failing the run. RanAt is left for the
// caller to stamp.
func (s *Screener) Scan(ctx context.Context, req ScanRequest, provider BarProvider) (*models.ScreenReport, error) {
	if req.Variant == "" {
		req.Variant = scoring.TableAccumulation
	}
	if !s.knownVariant(req.Variant) {
		return nil, scoring.ErrUnknownTable
	}

	report := &models.ScreenReport{
		Universe: req.Universe,
		Variant:  req.Variant,
		MinScore: req.MinScore,
		Limit:    req.Limit,
		Results:  []models.ScreenResult{},
	}
	if len(req.Symbols) == 0 {
		return report, nil
	}

	workChan := make(chan string, len(req.Symbols))
	outcomes := make(chan scanOutcome, len(req.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcomes <- s.scanSymbol(ctx, symbol, provider)
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for _, symbol := range req.Symbols {
			select {
			case <-ctx.Done():
				return
			case workChan <- symbol:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		if outcome.err != nil {
			report.Skipped++
			continue
		}
		report.Scanned++
		score := outcome.report.Scores[req.Variant]
		if score.Value < req.MinScore {
			continue
		}
		report.Results = append(report.Results, models.ScreenResult{
			Symbol: outcome.symbol,
			Score:  score.Value,
			Report: outcome.report,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		if report.Results[i].Score != report.Results[j].Score {
			return report.Results[i].Score > report.Results[j].Score
		}
		return report.Results[i].Symbol < report.Results[j].Symbol
	})
	if req.Limit > 0 && len(report.Results) > req.Limit {
		report.Results = report.Results[:req.Limit]
	}

	return report, nil
}

func (s *Screener) scanSymbol(ctx context.Context, symbol string, provider BarProvider) scanOutcome {
	bars, err := provider(ctx, symbol)
	if err != nil {
		return scanOutcome{symbol: symbol, err: err}
	}

	report, err := s.analyzer.Analyze(ctx, symbol, bars)
	if err != nil {
		return scanOutcome{symbol: symbol, err: err}
	}
	return scanOutcome{symbol: symbol, report: report}
}

func (s *Screener) knownVariant(variant string) bool {
	for _, name := range s.analyzer.Scorer().Tables() {
		if name == variant {
			return true
		}
	}
	return false
}
