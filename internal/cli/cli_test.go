package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"volflow/internal/config"
	"volflow/internal/models"
	"volflow/internal/store"
)

// testConfig wires the command tree to a CSV directory and a temp database.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Provider: config.ProviderConfig{
			Name: "file",
			File: config.FileConfig{Dir: t.TempDir()},
		},
		Data: config.DataConfig{
			DBPath:         filepath.Join(t.TempDir(), "volflow.db"),
			FreshnessHours: 0, // no cache layer, reads hit the CSVs directly
		},
		Analysis: config.AnalysisConfig{
			DefaultBars:         60,
			FibLookback:         20,
			ConsolidationWindow: 20,
			Workers:             2,
		},
		Screening: config.ScreeningConfig{
			Universe:    "default",
			Variant:     "accumulation",
			MinScore:    0,
			Limit:       0,
			Concurrency: 2,
		},
		Watch: config.WatchConfig{
			Cron:       "0 0 0 1 1 *",
			AlertScore: 70,
		},
		Narrate: config.NarrateConfig{Model: "gpt-4o-mini"},
	}
}

// writeFlatCSV writes a flat daily series: close 100, high 101, low 99,
// volume 1000 with the last bar's volume overridden. With lastVol 3000 the
// series scores 55 on the breakout table, without the spike it scores 30.
func writeFlatCSV(t *testing.T, dir, symbol string, n int, lastVol int64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		vol := int64(1000)
		if i == n-1 {
			vol = lastVol
		}
		fmt.Fprintf(&b, "%s,100,101,99,100,%d\n", base.AddDate(0, 0, i).Format("2006-01-02"), vol)
	}
	if err := os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
}

// runCommand executes one CLI invocation against a fresh command tree and
// returns what it printed.
func runCommand(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg, "", zerolog.Nop())
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCommand(t, cfg, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "volflow v"+Version) {
		t.Errorf("version output %q", out)
	}

	out, err = runCommand(t, cfg, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["version"] != Version {
		t.Errorf("version = %q", info["version"])
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.Tables = map[string]config.WeightTable{
		"momentum": {
			Clamp: true,
			Rules: []config.WeightRule{{Signal: "volume_spike", Weight: 60}},
		},
	}
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	out, err := runCommand(t, cfg, "analyze", "ACME", "--json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var report models.AnalysisReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Symbol != "ACME" {
		t.Errorf("symbol = %q", report.Symbol)
	}
	if report.Bars != 60 {
		t.Errorf("bars = %d", report.Bars)
	}
	if report.LastClose != 100 {
		t.Errorf("last close = %.2f", report.LastClose)
	}
	if got := report.Scores["breakout"].Value; got != 55 {
		t.Errorf("breakout score = %d, want 55", got)
	}
	if got := report.Scores["momentum"].Value; got != 60 {
		t.Errorf("momentum score = %d, want 60 (config table not registered?)", got)
	}
	if !report.Signals.VolumeSpike {
		t.Error("volume spike signal missing")
	}
	if !report.Signals.Overbought {
		t.Error("flat series pins RSI to 100, expected overbought")
	}
}

func TestAnalyzeCommandHuman(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	out, err := runCommand(t, cfg, "analyze", "ACME")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"ACME", "Volume Flow", "Structure", "Fibonacci", "Scores", "Plan"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeLowercasesAndUnknowns(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	// Lowercase argument resolves to the uppercase CSV.
	if _, err := runCommand(t, cfg, "analyze", "acme", "--json"); err != nil {
		t.Fatalf("lowercase analyze: %v", err)
	}

	if _, err := runCommand(t, cfg, "analyze", "MISSING"); err == nil {
		t.Fatal("expected error for unknown symbol")
	}

	_, err := runCommand(t, cfg, "analyze", "ACME", "--variant", "nope")
	if err == nil || !strings.Contains(err.Error(), "unknown variant") {
		t.Fatalf("expected unknown variant error, got %v", err)
	}
}

func TestAnalyzeNarrateWithoutKeyStillReports(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	out, err := runCommand(t, cfg, "analyze", "ACME", "--narrate")
	if err != nil {
		t.Fatalf("analyze --narrate: %v", err)
	}
	if !strings.Contains(out, "Narration unavailable") {
		t.Errorf("expected narration warning:\n%s", out)
	}
	if !strings.Contains(out, "Plan") {
		t.Errorf("report should still render:\n%s", out)
	}
}

func TestAnalyzeSaveThenHistory(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	if _, err := runCommand(t, cfg, "analyze", "ACME", "--save", "--json"); err != nil {
		t.Fatalf("analyze --save: %v", err)
	}

	out, err := runCommand(t, cfg, "data", "history", "ACME", "--json")
	if err != nil {
		t.Fatalf("data history: %v", err)
	}
	var snapshots []store.SnapshotRecord
	if err := json.Unmarshal([]byte(out), &snapshots); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snapshots))
	}
	if snapshots[0].Symbol != "ACME" {
		t.Errorf("symbol = %q", snapshots[0].Symbol)
	}
	if snapshots[0].Scores["breakout"] != 55 {
		t.Errorf("stored breakout score = %d", snapshots[0].Scores["breakout"])
	}
}

func TestScreenCommandWithSymbols(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)
	writeFlatCSV(t, cfg.Provider.File.Dir, "QUIET", 60, 1000)

	out, err := runCommand(t, cfg, "screen",
		"--symbols", "ACME,QUIET",
		"--variant", "breakout",
		"--min-score", "50",
		"--save", "--json")
	if err != nil {
		t.Fatalf("screen: %v", err)
	}

	var report models.ScreenReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Universe != "adhoc" {
		t.Errorf("universe = %q, want adhoc for explicit symbols", report.Universe)
	}
	if report.Scanned != 2 {
		t.Errorf("scanned = %d", report.Scanned)
	}
	if len(report.Results) != 1 || report.Results[0].Symbol != "ACME" {
		t.Fatalf("results = %+v, want only ACME above 50", report.Results)
	}
	if report.RanAt.IsZero() {
		t.Error("RanAt not stamped")
	}

	// The saved run is readable back through data runs.
	out, err = runCommand(t, cfg, "data", "runs", "--json")
	if err != nil {
		t.Fatalf("data runs: %v", err)
	}
	var runs []store.ScreenRunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Matched != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestScreenUsesWatchlist(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	if _, err := runCommand(t, cfg, "universe", "add", "default", "ACME"); err != nil {
		t.Fatalf("universe add: %v", err)
	}

	out, err := runCommand(t, cfg, "screen", "--variant", "breakout", "--json")
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	var report models.ScreenReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Universe != "default" || report.Scanned != 1 {
		t.Errorf("universe=%q scanned=%d", report.Universe, report.Scanned)
	}
}

func TestScreenEmptyWatchlist(t *testing.T) {
	cfg := testConfig(t)
	_, err := runCommand(t, cfg, "screen", "--universe", "ghost")
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected empty watchlist error, got %v", err)
	}
}

func TestUniverseLifecycle(t *testing.T) {
	cfg := testConfig(t)

	if _, err := runCommand(t, cfg, "universe", "add", "tech", "infy", "TCS"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := runCommand(t, cfg, "universe", "show", "tech")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "INFY") || !strings.Contains(out, "TCS") {
		t.Errorf("show output %q", out)
	}

	out, err = runCommand(t, cfg, "universe", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var lists map[string][]string
	if err := json.Unmarshal([]byte(out), &lists); err != nil {
		t.Fatalf("decode lists: %v", err)
	}
	if len(lists["tech"]) != 2 {
		t.Errorf("tech = %v", lists["tech"])
	}

	if _, err := runCommand(t, cfg, "universe", "remove", "tech", "INFY", "TCS"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := runCommand(t, cfg, "universe", "show", "tech"); err == nil {
		t.Fatal("expected empty watchlist error after removal")
	}
}

func TestDataSyncShowFreshness(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	out, err := runCommand(t, cfg, "data", "sync", "ACME")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "ACME: 60 bars") {
		t.Errorf("sync output %q", out)
	}

	out, err = runCommand(t, cfg, "data", "show", "ACME", "--bars", "5", "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var bars []models.Bar
	if err := json.Unmarshal([]byte(out), &bars); err != nil {
		t.Fatalf("decode bars: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("bars = %d, want 5", len(bars))
	}
	if bars[4].Volume != 3000 {
		t.Errorf("newest bar volume = %d, want the spike", bars[4].Volume)
	}

	out, err = runCommand(t, cfg, "data", "freshness", "ACME", "--json")
	if err != nil {
		t.Fatalf("freshness: %v", err)
	}
	var rows []struct {
		Symbol   string    `json:"symbol"`
		LastBar  time.Time `json:"last_bar"`
		LastSync time.Time `json:"last_sync"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode freshness: %v", err)
	}
	if len(rows) != 1 || rows[0].LastBar.IsZero() || rows[0].LastSync.IsZero() {
		t.Errorf("freshness rows = %+v", rows)
	}
}

func TestDataSyncUnknownSymbolFails(t *testing.T) {
	cfg := testConfig(t)
	if _, err := runCommand(t, cfg, "data", "sync", "MISSING"); err == nil {
		t.Fatal("expected error when every sync fails")
	}
}

func TestWatchOnce(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	if _, err := runCommand(t, cfg, "universe", "add", "default", "ACME"); err != nil {
		t.Fatalf("universe add: %v", err)
	}

	out, err := runCommand(t, cfg, "watch", "--once",
		"--variant", "breakout", "--alert-score", "50", "--json")
	if err != nil {
		t.Fatalf("watch --once: %v", err)
	}
	var report models.ScreenReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Scanned != 1 || len(report.Results) != 1 {
		t.Fatalf("report = %+v", report)
	}

	// The run persisted both the screen record and a snapshot per result.
	out, err = runCommand(t, cfg, "data", "runs", "--json")
	if err != nil {
		t.Fatalf("data runs: %v", err)
	}
	var runs []store.ScreenRunRecord
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}

	out, err = runCommand(t, cfg, "data", "history", "ACME", "--json")
	if err != nil {
		t.Fatalf("data history: %v", err)
	}
	var snapshots []store.SnapshotRecord
	if err := json.Unmarshal([]byte(out), &snapshots); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("snapshots = %d, want 1", len(snapshots))
	}
}

func TestConfigCommands(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCommand(t, cfg, "config", "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "valid") {
		t.Errorf("validate output %q", out)
	}

	out, err = runCommand(t, cfg, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Provider") || !strings.Contains(out, "file") {
		t.Errorf("show output %q", out)
	}
}

func TestConfigInitWritesTemplate(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	root := NewRootCmd(cfg, dir, zerolog.Nop())
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init"})
	if err := root.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("config.toml not written: %v", err)
	}

	// A second init refuses to overwrite.
	root = NewRootCmd(cfg, dir, zerolog.Nop())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "init"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error on existing config.toml")
	}
}

func TestUnknownProviderFlag(t *testing.T) {
	cfg := testConfig(t)
	writeFlatCSV(t, cfg.Provider.File.Dir, "ACME", 60, 3000)

	_, err := runCommand(t, cfg, "analyze", "ACME", "--provider", "bloomberg")
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}
