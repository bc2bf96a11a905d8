// Package provider supplies daily OHLCV series from market data sources.
//
// Every provider returns chronologically ascending, validated series and
// honors context cancellation on network calls.
package provider

import (
	"context"

	apperrors "volflow/internal/errors"
	"volflow/internal/models"
)

// SeriesProvider fetches daily bars for one instrument.
type SeriesProvider interface {
	// Name identifies the provider in logs and error messages.
	Name() string
	// Daily returns up to bars daily bars for symbol, oldest first.
	// bars must be positive.
	Daily(ctx context.Context, symbol string, bars int) ([]models.Bar, error)
}

// validateSeries enforces the engine input contract on provider output.
func validateSeries(name, symbol string, bars []models.Bar) ([]models.Bar, error) {
	if err := models.ValidateSeries(bars); err != nil {
		return nil, apperrors.NewDataError("series", symbol, name+": "+err.Error(), apperrors.ErrMalformedSeries)
	}
	return bars, nil
}
