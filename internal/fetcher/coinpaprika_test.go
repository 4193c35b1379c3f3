package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestCoinPaprikaFetchCurrent(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/tickers/btc-bitcoin":
			w.Write([]byte(`{"symbol":"BTC","quotes":{"USD":{"price":64050.75}}}`))
		case "/v1/tickers/eth-ethereum":
			w.Write([]byte(`{"symbol":"ETH","quotes":{"USD":{"price":3298.01}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	paprika := NewCoinPaprika(CoinPaprikaOptions{BaseURL: server.URL, Currency: "usd"}, zerolog.Nop())
	prices, err := paprika.FetchCurrent(context.Background(), []string{"btc", "ETH"})
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("expected one request per asset, got %v", paths)
	}
	if got := prices["BTC"].String(); got != "64050.75" {
		t.Fatalf("BTC price = %s, want 64050.75", got)
	}
	if got := prices["ETH"].String(); got != "3298.01" {
		t.Fatalf("ETH price = %s, want 3298.01", got)
	}
}

func TestCoinPaprikaMissingQuoteCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTC","quotes":{"EUR":{"price":59000}}}`))
	}))
	defer server.Close()

	paprika := NewCoinPaprika(CoinPaprikaOptions{BaseURL: server.URL, Currency: "USD"}, zerolog.Nop())
	if _, err := paprika.FetchCurrent(context.Background(), []string{"BTC"}); err == nil {
		t.Fatal("response without the requested currency should surface as an error")
	}
}

func TestCoinPaprikaTickerFailureAbortsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	paprika := NewCoinPaprika(CoinPaprikaOptions{BaseURL: server.URL}, zerolog.Nop())
	if _, err := paprika.FetchCurrent(context.Background(), []string{"BTC"}); err == nil {
		t.Fatal("upstream failure should surface as an error")
	}
}
