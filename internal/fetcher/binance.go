package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const binanceQuoteAsset = "USDT"

// BinanceOptions parameterise the Binance adapter.
type BinanceOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Binance fetches spot ticker prices from the Binance public API.
// Binance quotes against USDT regardless of the configured fiat currency.
type Binance struct {
	opts    BinanceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBinance constructs a Binance adapter.
func NewBinance(opts BinanceOptions, logger zerolog.Logger) *Binance {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}

	return &Binance{
		opts:    opts,
		logger:  logger.With().Str("component", "binance_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the source in quotes and counters.
func (b *Binance) Name() string { return "Binance" }

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchCurrent resolves current prices for the given canonical symbols.
func (b *Binance) FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	pairs := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		pairs = append(pairs, `"`+strings.ToUpper(sym)+binanceQuoteAsset+`"`)
	}

	query := url.Values{}
	query.Set("symbols", "["+strings.Join(pairs, ",")+"]")

	endpoint := b.baseURL + "/api/v3/ticker/price?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var tickers []binanceTicker
	if err := json.Unmarshal(payload, &tickers); err != nil {
		return nil, fmt.Errorf("decode binance response: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		sym := strings.TrimSuffix(ticker.Symbol, binanceQuoteAsset)
		if sym == ticker.Symbol {
			b.logger.Warn().Str("pair", ticker.Symbol).Msg("unexpected binance pair in response, skipping")
			continue
		}
		price, convErr := decimal.NewFromString(ticker.Price)
		if convErr != nil {
			return nil, fmt.Errorf("parse binance price for %s: %w", sym, convErr)
		}
		prices[sym] = price
	}

	return prices, nil
}

var _ Source = (*Binance)(nil)
