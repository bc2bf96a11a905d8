// Package watch screens a watchlist on a schedule and raises alerts for
// high-scoring symbols.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"volflow/internal/analysis"
	apperrors "volflow/internal/errors"
	"volflow/internal/logging"
	"volflow/internal/models"
	"volflow/internal/store"
	"volflow/pkg/utils"
)

// runTimeout bounds a single scheduled screening pass.
const runTimeout = 5 * time.Minute

// Options configure the watcher.
type Options struct {
	Spec       string // cron expression, seconds field included
	Universe   string // named watchlist to screen
	Variant    string // scoring table
	MinScore   int
	Limit      int
	AlertScore int // results at or above raise alerts
}

// AlertFunc receives every result whose score clears the alert threshold.
type AlertFunc func(result models.ScreenResult, report *models.ScreenReport)

// Watcher runs the screening pipeline on a cron schedule against a named
// watchlist, persisting snapshots and screen runs as it goes.
type Watcher struct {
	cron     *cron.Cron
	screener *analysis.Screener
	provider analysis.BarProvider
	store    store.DataStore
	logger   zerolog.Logger
	opts     Options
	onAlert  AlertFunc

	mu      sync.Mutex
	started bool
}

// NewWatcher wires a watcher. onAlert may be nil, in which case alerts only
// reach the log.
func NewWatcher(screener *analysis.Screener, provider analysis.BarProvider, st store.DataStore, logger zerolog.Logger, opts Options, onAlert AlertFunc) *Watcher {
	return &Watcher{
		cron:     cron.New(cron.WithSeconds()),
		screener: screener,
		provider: provider,
		store:    st,
		logger:   logging.WithUniverse(logger, opts.Universe),
		opts:     opts,
		onAlert:  onAlert,
	}
}

// Start registers the cron entry and starts the scheduler.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	if _, err := w.cron.AddFunc(w.opts.Spec, w.runScheduled); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	w.cron.Start()
	w.started = true
	w.logger.Info().Str("spec", w.opts.Spec).Str("variant", w.opts.Variant).Msg("watcher started")
	return nil
}

// Stop halts the scheduler and waits for any in-flight run to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	<-w.cron.Stop().Done()
	w.started = false
	w.logger.Info().Msg("watcher stopped")
}

func (w *Watcher) runScheduled() {
	if !utils.IsTradingDay(time.Now()) {
		w.logger.Debug().Msg("skipping scheduled screen, market closed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := w.RunNow(ctx); err != nil {
		w.logger.Error().Err(err).Msg("scheduled screen failed")
	}
}

// RunNow executes one screening pass immediately: fetch the watchlist, scan
// it, persist the run and its snapshots, and raise alerts.
func (w *Watcher) RunNow(ctx context.Context) (*models.ScreenReport, error) {
	symbols, err := w.store.GetWatchlist(ctx, w.opts.Universe)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrUniverseNotFound, "watchlist %q is empty", w.opts.Universe)
	}

	report, err := w.screener.Scan(ctx, analysis.ScanRequest{
		Universe: w.opts.Universe,
		Symbols:  symbols,
		Variant:  w.opts.Variant,
		MinScore: w.opts.MinScore,
		Limit:    w.opts.Limit,
	}, w.provider)
	if err != nil {
		return nil, err
	}
	report.RanAt = time.Now()

	if err := w.store.SaveScreenRun(ctx, report); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist screen run")
	}
	for _, result := range report.Results {
		if result.Report == nil {
			continue
		}
		if err := w.store.SaveSnapshot(ctx, result.Report); err != nil {
			w.logger.Error().Err(err).Str("symbol", result.Symbol).Msg("failed to persist snapshot")
		}
	}

	for _, result := range report.Results {
		if result.Score < w.opts.AlertScore {
			continue
		}
		action := ""
		if result.Report != nil {
			action = string(result.Report.Recommendation.Action)
		}
		logging.LogAlert(w.logger, result.Symbol, report.Variant, result.Score, action)
		if w.onAlert != nil {
			w.onAlert(result, report)
		}
	}

	logging.LogScreenRun(w.logger, report.Universe, report.Variant, report.Scanned, report.Skipped, len(report.Results))
	return report, nil
}
