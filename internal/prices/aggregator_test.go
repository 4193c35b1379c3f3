package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sonic-alerts/internal/fetcher"
	"sonic-alerts/internal/storage"
)

type staticSource struct {
	name   string
	prices map[string]decimal.Decimal
	err    error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.prices, nil
}

type recordingStore struct {
	quotes    []storage.PriceQuote
	counters  map[string]int
	insertErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{counters: make(map[string]int)}
}

func (r *recordingStore) InsertQuote(ctx context.Context, quote storage.PriceQuote) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.quotes = append(r.quotes, quote)
	return nil
}

func (r *recordingStore) IncrementSourceCounter(ctx context.Context, sourceName string, now time.Time) error {
	r.counters[sourceName]++
	return nil
}

func TestRefreshOncePartialFailure(t *testing.T) {
	ok := &staticSource{name: "A", prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(100)}}
	broken := &staticSource{name: "B", err: errors.New("rate limited")}
	store := newRecordingStore()

	agg := New([]fetcher.Source{ok, broken}, store, []string{"BTC"}, zerolog.Nop())

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("partial failure must not fail the refresh: %v", err)
	}

	if len(store.quotes) != 1 {
		t.Fatalf("expected one stored quote, got %d", len(store.quotes))
	}
	quote := store.quotes[0]
	if quote.Asset != "BTC" || quote.Source != "A" || !quote.Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if store.counters["A"] != 1 {
		t.Fatalf("successful source should increment its counter, got %d", store.counters["A"])
	}
	if store.counters["B"] != 0 {
		t.Fatalf("failed source counter must stay untouched, got %d", store.counters["B"])
	}
}

func TestRefreshOnceEmptyFetchStillCounts(t *testing.T) {
	empty := &staticSource{name: "A", prices: map[string]decimal.Decimal{}}
	store := newRecordingStore()

	agg := New([]fetcher.Source{empty}, store, []string{"BTC"}, zerolog.Nop())
	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce failed: %v", err)
	}

	if len(store.quotes) != 0 {
		t.Fatalf("no quotes expected, got %d", len(store.quotes))
	}
	if store.counters["A"] != 1 {
		t.Fatal("a successful fetch with zero symbols still counts as a report")
	}
}

func TestRefreshOnceNoSources(t *testing.T) {
	store := newRecordingStore()
	agg := New(nil, store, []string{"BTC"}, zerolog.Nop())

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh with no sources should be a no-op: %v", err)
	}
	if len(store.quotes) != 0 || len(store.counters) != 0 {
		t.Fatal("no-op refresh must not write anything")
	}
}

func TestRefreshOnceInsertFailureDoesNotAbort(t *testing.T) {
	src := &staticSource{name: "A", prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(100)}}
	store := newRecordingStore()
	store.insertErr = errors.New("write failed")

	agg := New([]fetcher.Source{src}, store, []string{"BTC"}, zerolog.Nop())
	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("insert failures are logged, not raised: %v", err)
	}
	if store.counters["A"] != 1 {
		t.Fatal("counter should still reflect the successful fetch")
	}
}

func TestRefreshOnceTimestampsQuotes(t *testing.T) {
	src := &staticSource{name: "A", prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3000)}}
	store := newRecordingStore()

	agg := New([]fetcher.Source{src}, store, []string{"ETH"}, zerolog.Nop())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce failed: %v", err)
	}
	if len(store.quotes) != 1 || !store.quotes[0].FetchedAt.Equal(fixed) {
		t.Fatalf("quote should carry the cycle timestamp, got %+v", store.quotes)
	}
}
