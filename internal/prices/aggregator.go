package prices

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sonic-alerts/internal/fetcher"
	"sonic-alerts/internal/storage"
)

// QuoteRecorder is the slice of the store the aggregator writes through.
type QuoteRecorder interface {
	InsertQuote(ctx context.Context, quote storage.PriceQuote) error
	IncrementSourceCounter(ctx context.Context, sourceName string, now time.Time) error
}

// Aggregator fans a refresh out to every enabled price source, merges
// the results, and appends them to the quote history.
type Aggregator struct {
	sources []fetcher.Source
	store   QuoteRecorder
	assets  []string
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs an Aggregator over the given enabled sources.
func New(sources []fetcher.Source, store QuoteRecorder, assets []string, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		sources: sources,
		store:   store,
		assets:  assets,
		logger:  logger.With().Str("component", "price_aggregator").Logger(),
		now:     time.Now,
	}
}

type fetchResult struct {
	source string
	prices map[string]decimal.Decimal
	err    error
}

// RefreshOnce runs one aggregation cycle. All sources are queried
// concurrently and joined unconditionally; one source failing never
// cancels the others or the cycle. A successful fetch (even an empty
// one) bumps that source's counter; a failed fetch leaves it untouched.
func (a *Aggregator) RefreshOnce(ctx context.Context) error {
	if len(a.sources) == 0 {
		a.logger.Warn().Msg("no price sources enabled, skipping refresh")
		return nil
	}

	results := make(chan fetchResult, len(a.sources))
	var wg sync.WaitGroup
	for _, src := range a.sources {
		wg.Add(1)
		go func(src fetcher.Source) {
			defer wg.Done()
			prices, err := src.FetchCurrent(ctx, a.assets)
			results <- fetchResult{source: src.Name(), prices: prices, err: err}
		}(src)
	}
	wg.Wait()
	close(results)

	now := a.now().UTC()
	stored := 0
	failed := 0
	for res := range results {
		if res.err != nil {
			failed++
			a.logger.Error().Err(res.err).Str("source", res.source).Msg("price fetch failed")
			continue
		}

		for sym, price := range res.prices {
			quote := storage.PriceQuote{
				Asset:     sym,
				Price:     price,
				Source:    res.source,
				FetchedAt: now,
			}
			if err := a.store.InsertQuote(ctx, quote); err != nil {
				a.logger.Error().Err(err).Str("source", res.source).Str("asset", sym).Msg("failed to store quote")
				continue
			}
			stored++
		}

		if err := a.store.IncrementSourceCounter(ctx, res.source, now); err != nil {
			a.logger.Error().Err(err).Str("source", res.source).Msg("failed to increment source counter")
		}
	}

	a.logger.Info().Int("sources", len(a.sources)).Int("failed_sources", failed).Int("quotes", stored).Msg("price refresh completed")
	return nil
}
