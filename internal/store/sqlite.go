// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"volflow/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Bars table for historical OHLCV data
	CREATE TABLE IF NOT EXISTS bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_bars_symbol_time ON bars(symbol, timestamp);

	-- Analysis snapshots with per-variant scores and the full report as JSON
	CREATE TABLE IF NOT EXISTS analysis_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		as_of DATETIME NOT NULL,
		action TEXT NOT NULL,
		scores TEXT NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON analysis_snapshots(symbol, as_of);

	-- Screening runs with run metadata and the result set as JSON
	CREATE TABLE IF NOT EXISTS screen_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ran_at DATETIME NOT NULL,
		universe TEXT NOT NULL,
		variant TEXT NOT NULL,
		scanned INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_screen_runs_universe ON screen_runs(universe, ran_at);

	-- Named symbol lists
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		list_name TEXT NOT NULL DEFAULT 'default',
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, list_name)
	);

	-- Sync status tracking
	CREATE TABLE IF NOT EXISTS sync_status (
		symbol TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveBars persists bars for a symbol, replacing rows that share a timestamp.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	return tx.Commit()
}

// GetBars returns the most recent bars for a symbol in ascending timestamp
// order. A non-positive limit returns the full history.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, limit int) ([]models.Bar, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY timestamp DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows arrive newest first; the engine wants chronological order.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return bars, nil
}

// BarsFreshness returns the timestamp of the newest stored bar for a symbol,
// or the zero time when none exist.
func (s *SQLiteStore) BarsFreshness(ctx context.Context, symbol string) (time.Time, error) {
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM bars WHERE symbol = ?
	`, symbol).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query bar freshness: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}

// SaveSnapshot persists one analysis report with its per-variant scores.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, report *models.AnalysisReport) error {
	if report == nil {
		return fmt.Errorf("nil analysis report")
	}

	scores := make(map[string]int, len(report.Scores))
	for variant, sc := range report.Scores {
		scores[variant] = sc.Value
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_snapshots (symbol, as_of, action, scores, report)
		VALUES (?, ?, ?, ?, ?)
	`, report.Symbol, report.AsOf, string(report.Recommendation.Action), string(scoresJSON), string(reportJSON))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns stored snapshots for a symbol, newest first. A
// non-positive limit returns all of them.
func (s *SQLiteStore) GetSnapshots(ctx context.Context, symbol string, limit int) ([]SnapshotRecord, error) {
	query := `
		SELECT id, symbol, as_of, created_at, action, scores, report
		FROM analysis_snapshots
		WHERE symbol = ?
		ORDER BY as_of DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var (
			rec        SnapshotRecord
			action     string
			scoresJSON string
			reportJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.AsOf, &rec.SavedAt, &action, &scoresJSON, &reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		rec.Action = models.Action(action)
		if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}
		var report models.AnalysisReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		rec.Report = &report
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveScreenRun persists one screening run with its full result set.
func (s *SQLiteStore) SaveScreenRun(ctx context.Context, report *models.ScreenReport) error {
	if report == nil {
		return fmt.Errorf("nil screen report")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal screen report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO screen_runs (ran_at, universe, variant, scanned, skipped, matched, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.RanAt, report.Universe, report.Variant, report.Scanned, report.Skipped, len(report.Results), string(reportJSON))
	if err != nil {
		return fmt.Errorf("failed to insert screen run: %w", err)
	}
	return nil
}

// GetScreenRuns returns stored screening runs, newest first. An empty
// universe matches every run; a non-positive limit returns all of them.
func (s *SQLiteStore) GetScreenRuns(ctx context.Context, universe string, limit int) ([]ScreenRunRecord, error) {
	query := `
		SELECT id, ran_at, universe, variant, scanned, skipped, matched, report
		FROM screen_runs
	`
	args := []interface{}{}
	if universe != "" {
		query += " WHERE universe = ?"
		args = append(args, universe)
	}
	query += " ORDER BY ran_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screen runs: %w", err)
	}
	defer rows.Close()

	var records []ScreenRunRecord
	for rows.Next() {
		var (
			rec        ScreenRunRecord
			reportJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.RanAt, &rec.Universe, &rec.Variant, &rec.Scanned, &rec.Skipped, &rec.Matched, &reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan screen run: %w", err)
		}
		var report models.ScreenReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal screen report: %w", err)
		}
		rec.Report = &report
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AddToWatchlist adds a symbol to a named list. Adding an existing symbol is
// a no-op.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol, listName string) error {
	if listName == "" {
		listName = "default"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol, list_name) VALUES (?, ?)
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from a named list.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol, listName string) error {
	if listName == "" {
		listName = "default"
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ? AND list_name = ?
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// GetWatchlist returns the symbols in a named list in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, listName string) ([]string, error) {
	if listName == "" {
		listName = "default"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist WHERE list_name = ? ORDER BY added_at, id
	`, listName)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// GetAllWatchlists returns every named list with its symbols.
func (s *SQLiteStore) GetAllWatchlists(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, symbol FROM watchlist ORDER BY list_name, added_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	lists := make(map[string][]string)
	for rows.Next() {
		var listName, symbol string
		if err := rows.Scan(&listName, &symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		lists[listName] = append(lists[listName], symbol)
	}
	return lists, rows.Err()
}

// GetLastSync returns the recorded last sync time for a symbol, consulting
// an in-memory cache before the database. Returns the zero time when the
// symbol has never synced.
func (s *SQLiteStore) GetLastSync(symbol string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[symbol]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var last sql.NullTime
	err := s.db.QueryRow(`SELECT last_sync FROM sync_status WHERE symbol = ?`, symbol).Scan(&last)
	if err != nil || !last.Valid {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[symbol] = last.Time
	s.mu.Unlock()

	return last.Time
}

// SetLastSync records the last sync time for a symbol.
func (s *SQLiteStore) SetLastSync(symbol string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (symbol, last_sync) VALUES (?, ?)
	`, symbol, t)
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[symbol] = t
	s.mu.Unlock()

	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
