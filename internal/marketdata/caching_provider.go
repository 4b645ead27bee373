package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CachingProvider serves price history from the local cache, syncing from
// the remote provider at most once per symbol per calendar day. When the
// remote fetch fails but cached bars exist, the cache is served instead so
// a flaky provider degrades to stale data rather than no data.
type CachingProvider struct {
	remote Provider
	repo   *HistoryRepository
	log    zerolog.Logger
	now    func() time.Time
}

// NewCachingProvider creates a caching provider over a remote provider
func NewCachingProvider(remote Provider, repo *HistoryRepository, log zerolog.Logger) *CachingProvider {
	return &CachingProvider{
		remote: remote,
		repo:   repo,
		log:    log.With().Str("component", "caching_provider").Logger(),
		now:    time.Now,
	}
}

// History implements Provider. Only daily frequency is cached; other
// frequencies pass straight through to the remote provider.
func (p *CachingProvider) History(ctx context.Context, symbol string, end time.Time, count int, freq Frequency) ([]Bar, error) {
	if freq != FrequencyDaily {
		return p.remote.History(ctx, symbol, end, count, freq)
	}

	if p.needsSync(symbol, end) {
		bars, err := p.remote.History(ctx, symbol, end, count, freq)
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Remote fetch failed, falling back to cache")
			cached, cacheErr := p.repo.GetBars(symbol, end, count)
			if cacheErr != nil || len(cached) == 0 {
				return nil, err
			}
			return cached, nil
		}

		if err := p.repo.UpsertBars(symbol, bars); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache bars")
		} else if err := p.repo.SetLastSynced(symbol, p.now()); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to record sync state")
		}
	}

	return p.repo.GetBars(symbol, end, count)
}

// needsSync reports whether the symbol should be refetched: it was never
// synced, or the last sync day is older than the requested end day
// (capped at today, so each symbol syncs at most once per calendar day).
func (p *CachingProvider) needsSync(symbol string, end time.Time) bool {
	synced, err := p.repo.LastSynced(symbol)
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read sync state, refetching")
		return true
	}
	if synced.IsZero() {
		return true
	}

	endDay := toUTCMidnight(end)
	today := toUTCMidnight(p.now())
	if endDay.After(today) {
		endDay = today
	}
	return toUTCMidnight(synced).Before(endDay)
}
