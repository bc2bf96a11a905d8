package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "volflow/internal/errors"
	"volflow/internal/models"
)

// FileProvider reads daily bars from a directory of CSV files, one
// SYMBOL.csv per instrument with a date,open,high,low,close,volume header.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider reading from dir.
func NewFileProvider(dir string) (*FileProvider, error) {
	if dir == "" {
		return nil, apperrors.ErrNotConfigured
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperrors.NewProviderError("file", "", "data directory not accessible", err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewProviderError("file", "", dir+" is not a directory", nil)
	}
	return &FileProvider{dir: dir}, nil
}

func (p *FileProvider) Name() string { return "file" }

// csvBar is the on-disk row format.
type csvBar struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// Daily reads the CSV for a symbol and returns its most recent bars.
func (p *FileProvider) Daily(ctx context.Context, symbol string, bars int) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "no data file for %s", symbol)
		}
		return nil, apperrors.NewProviderError("file", symbol, "open failed", err)
	}
	defer f.Close()

	var rows []csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, apperrors.NewDataError("csv", symbol, "parse failed", err)
	}

	out := make([]models.Bar, 0, len(rows))
	for i, row := range rows {
		ts, err := parseDate(row.Date)
		if err != nil {
			return nil, apperrors.NewDataError("csv", symbol, fmt.Sprintf("row %d: bad date %q", i+1, row.Date), err)
		}
		out = append(out, models.Bar{
			Timestamp: ts,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if bars > 0 && len(out) > bars {
		out = out[len(out)-bars:]
	}
	return validateSeries(p.Name(), symbol, out)
}

// parseDate accepts plain dates and RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
