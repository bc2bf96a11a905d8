package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider.Name != "yahoo" {
		t.Errorf("Provider.Name = %q, want yahoo default", cfg.Provider.Name)
	}
	if cfg.Analysis.DefaultBars != 120 {
		t.Errorf("Analysis.DefaultBars = %d, want 120", cfg.Analysis.DefaultBars)
	}
	if cfg.Screening.MinScore != 50 {
		t.Errorf("Screening.MinScore = %d, want 50", cfg.Screening.MinScore)
	}
	if cfg.Data.DBPath == "" {
		t.Error("Data.DBPath should resolve to a default path")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
[provider]
name = "kite"

[provider.kite]
api_key = "file-key"

[screening]
min_score = 65

[scoring.tables.momentum]
clamp = true
rules = [
  { signal = "volume_spike", weight = 40 },
  { signal = "rsi_momentum", weight = 60 },
]
`)
	t.Setenv("KITE_ACCESS_TOKEN", "env-token")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider.Name != "kite" {
		t.Errorf("Provider.Name = %q, want kite", cfg.Provider.Name)
	}
	if cfg.Provider.Kite.APIKey != "file-key" {
		t.Errorf("Kite.APIKey = %q, want file value", cfg.Provider.Kite.APIKey)
	}
	if cfg.Provider.Kite.AccessToken != "env-token" {
		t.Errorf("Kite.AccessToken = %q, want env override", cfg.Provider.Kite.AccessToken)
	}
	if !cfg.KiteConfigured() {
		t.Error("KiteConfigured should be true with key and token present")
	}
	if cfg.Screening.MinScore != 65 {
		t.Errorf("Screening.MinScore = %d, want 65", cfg.Screening.MinScore)
	}

	table, ok := cfg.Scoring.Tables["momentum"]
	if !ok {
		t.Fatal("custom table missing")
	}
	if len(table.Rules) != 2 || table.Rules[0].Signal != "volume_spike" || table.Rules[0].Weight != 40 {
		t.Errorf("table rules parsed wrong: %+v", table.Rules)
	}
	if !table.Clamp {
		t.Error("table clamp flag lost")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad provider", "[provider]\nname = \"bloomberg\"\n", "invalid provider"},
		{"short history", "[analysis]\ndefault_bars = 10\n", "default_bars"},
		{"score ceiling", "[screening]\nmin_score = 150\n", "min_score"},
		{"empty table", "[scoring.tables.x]\nrules = []\n", "no rules"},
		{"zero weight", "[scoring.tables.x]\nrules = [ { signal = \"oversold\", weight = 0 } ]\n", "weight"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteTemplate(dir)
	if err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("template written to %s, want inside %s", path, dir)
	}

	// The template must load cleanly.
	if _, err := Load(dir); err != nil {
		t.Errorf("template does not load: %v", err)
	}

	// A second write must refuse to clobber.
	if _, err := WriteTemplate(dir); err == nil {
		t.Error("expected an error overwriting an existing config")
	}
}
