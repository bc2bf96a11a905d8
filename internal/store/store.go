// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"volflow/internal/models"
)

// SnapshotRecord is one persisted analysis result. Scores holds the score
// value per variant so history queries can avoid decoding the full report.
type SnapshotRecord struct {
	ID      int64                  `json:"id"`
	Symbol  string                 `json:"symbol"`
	AsOf    time.Time              `json:"as_of"`
	SavedAt time.Time              `json:"saved_at"`
	Action  models.Action          `json:"action"`
	Scores  map[string]int         `json:"scores"`
	Report  *models.AnalysisReport `json:"report,omitempty"`
}

// ScreenRunRecord is one persisted screening run with its full result set.
type ScreenRunRecord struct {
	ID       int64                `json:"id"`
	RanAt    time.Time            `json:"ran_at"`
	Universe string               `json:"universe"`
	Variant  string               `json:"variant"`
	Scanned  int                  `json:"scanned"`
	Skipped  int                  `json:"skipped"`
	Matched  int                  `json:"matched"`
	Report   *models.ScreenReport `json:"report,omitempty"`
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Bars
	SaveBars(ctx context.Context, symbol string, bars []models.Bar) error
	GetBars(ctx context.Context, symbol string, limit int) ([]models.Bar, error)
	BarsFreshness(ctx context.Context, symbol string) (time.Time, error)

	// Analysis snapshots
	SaveSnapshot(ctx context.Context, report *models.AnalysisReport) error
	GetSnapshots(ctx context.Context, symbol string, limit int) ([]SnapshotRecord, error)

	// Screen runs
	SaveScreenRun(ctx context.Context, report *models.ScreenReport) error
	GetScreenRuns(ctx context.Context, universe string, limit int) ([]ScreenRunRecord, error)

	// Watchlists
	AddToWatchlist(ctx context.Context, symbol, listName string) error
	RemoveFromWatchlist(ctx context.Context, symbol, listName string) error
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
	GetAllWatchlists(ctx context.Context) (map[string][]string, error)

	// Sync tracking
	GetLastSync(symbol string) time.Time
	SetLastSync(symbol string, t time.Time) error

	// Lifecycle
	Close() error
}
