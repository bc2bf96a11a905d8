package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"volflow/internal/models"
	"volflow/internal/store"
)

// CachedProvider serves bars from the store when the last sync for a symbol
// is recent enough, and otherwise fetches through the wrapped provider and
// backfills the store. When the upstream fails it falls back to whatever
// bars the store holds.
type CachedProvider struct {
	inner     SeriesProvider
	store     store.DataStore
	freshness time.Duration
	logger    zerolog.Logger
}

// NewCachedProvider wraps inner with a read-through bar cache. A
// non-positive freshness disables cache reads, so every call refetches.
func NewCachedProvider(inner SeriesProvider, st store.DataStore, freshness time.Duration, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:     inner,
		store:     st,
		freshness: freshness,
		logger:    logger,
	}
}

// Name reports the wrapped provider's name; the cache is transparent.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Daily returns the most recent daily bars for a symbol, preferring the
// local store over the network.
func (p *CachedProvider) Daily(ctx context.Context, symbol string, bars int) ([]models.Bar, error) {
	if cached := p.cachedBars(ctx, symbol, bars); cached != nil {
		p.logger.Debug().Str("symbol", symbol).Int("bars", len(cached)).Msg("serving bars from cache")
		return cached, nil
	}

	fetched, err := p.inner.Daily(ctx, symbol, bars)
	if err != nil {
		// Stale bars beat no bars when the upstream is down.
		if stale, serr := p.store.GetBars(ctx, symbol, bars); serr == nil && len(stale) > 0 {
			p.logger.Warn().Err(err).Str("symbol", symbol).Msg("fetch failed, serving stale bars")
			return stale, nil
		}
		return nil, err
	}

	if err := p.store.SaveBars(ctx, symbol, fetched); err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to cache bars")
	} else if err := p.store.SetLastSync(symbol, time.Now()); err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to record sync time")
	}

	return fetched, nil
}

// cachedBars returns stored bars when they are fresh and plentiful enough,
// or nil when the cache cannot serve the request.
func (p *CachedProvider) cachedBars(ctx context.Context, symbol string, bars int) []models.Bar {
	if p.freshness <= 0 {
		return nil
	}
	lastSync := p.store.GetLastSync(symbol)
	if lastSync.IsZero() || time.Since(lastSync) > p.freshness {
		return nil
	}
	stored, err := p.store.GetBars(ctx, symbol, bars)
	if err != nil || len(stored) < bars {
		return nil
	}
	return stored
}
