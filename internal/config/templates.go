package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# volflow configuration

[provider]
# Market-data source: "kite", "yahoo" or "file"
name = "yahoo"

[provider.kite]
# Kite Connect credentials (env: KITE_API_KEY, KITE_ACCESS_TOKEN)
api_key = ""
access_token = ""

[provider.file]
# Directory of SYMBOL.csv files (header: date,open,high,low,close,volume)
dir = ""

[data]
# Local data directory; the SQLite database lives here by default
# dir = "~/.local/share/volflow"
# db_path = ""
# Cached bars older than this are refetched
freshness_hours = 18

[analysis]
# Bars requested per analysis
default_bars = 120
# Swing window for Fibonacci levels
fib_lookback = 20
# Window for consolidation detection
consolidation_window = 20
# Indicator workers per series
workers = 4

[screening]
universe = "default"
variant = "accumulation"
min_score = 50
limit = 20
concurrency = 4

[watch]
# Six-field cron expression (seconds first)
cron = "0 */15 * * * *"
# Print an alert when a score reaches this level
alert_score = 70

[narrate]
# LLM narration for reports (env: OPENAI_API_KEY)
model = "gpt-4o-mini"
api_key = ""

[logging]
# Level: debug, info, warn, error
level = "info"
console = true
file = true
max_size_mb = 100
max_backups = 7
max_age_days = 30

# Custom weight tables become screening variants. Signals must exist in the
# registry; unknown names are rejected at startup.
#
# [scoring.tables.momentum]
# clamp = true
# rules = [
#   { signal = "volume_spike", weight = 40 },
#   { signal = "rsi_momentum", weight = 35 },
#   { signal = "strong_daily_move", weight = 25 },
# ]
`

// WriteTemplate writes a commented config.toml into the directory. It
// refuses to overwrite an existing file.
func WriteTemplate(configDir string) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
