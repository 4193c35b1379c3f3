package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestBinanceFetchCurrent(t *testing.T) {
	var gotPath, gotSymbols string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSymbols = r.URL.Query().Get("symbols")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"BTCUSDT","price":"64200.10000000"},{"symbol":"ETHUSDT","price":"3305.50000000"}]`))
	}))
	defer server.Close()

	binance := NewBinance(BinanceOptions{BaseURL: server.URL}, zerolog.Nop())
	prices, err := binance.FetchCurrent(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}

	if gotPath != "/api/v3/ticker/price" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotSymbols != `["BTCUSDT","ETHUSDT"]` {
		t.Fatalf("unexpected symbols parameter %q", gotSymbols)
	}

	if got := prices["BTC"].String(); got != "64200.1" {
		t.Fatalf("BTC price = %s, want 64200.1", got)
	}
	if got := prices["ETH"].String(); got != "3305.5" {
		t.Fatalf("ETH price = %s, want 3305.5", got)
	}
}

func TestBinanceEmptySymbols(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	binance := NewBinance(BinanceOptions{BaseURL: server.URL}, zerolog.Nop())
	prices, err := binance.FetchCurrent(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}
	if len(prices) != 0 || requests != 0 {
		t.Fatal("empty symbol list should short-circuit without a request")
	}
}

func TestBinanceBadPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT","price":"not-a-number"}]`))
	}))
	defer server.Close()

	binance := NewBinance(BinanceOptions{BaseURL: server.URL}, zerolog.Nop())
	if _, err := binance.FetchCurrent(context.Background(), []string{"BTC"}); err == nil {
		t.Fatal("unparseable price should surface as an error")
	}
}
