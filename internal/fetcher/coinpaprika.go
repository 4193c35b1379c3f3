package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var coinPaprikaIDs = map[string]string{
	"BTC":  "btc-bitcoin",
	"ETH":  "eth-ethereum",
	"SOL":  "sol-solana",
	"ADA":  "ada-cardano",
	"DOGE": "doge-dogecoin",
}

// CoinPaprikaOptions parameterise the CoinPaprika adapter.
type CoinPaprikaOptions struct {
	BaseURL  string
	Currency string
	Timeout  time.Duration
}

// CoinPaprika fetches ticker prices from the CoinPaprika API, one
// request per asset.
type CoinPaprika struct {
	opts    CoinPaprikaOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinPaprika constructs a CoinPaprika adapter.
func NewCoinPaprika(opts CoinPaprikaOptions, logger zerolog.Logger) *CoinPaprika {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coinpaprika.com"
	}

	return &CoinPaprika{
		opts:    opts,
		logger:  logger.With().Str("component", "coinpaprika_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the source in quotes and counters.
func (c *CoinPaprika) Name() string { return "CoinPaprika" }

type paprikaTicker struct {
	Symbol string `json:"symbol"`
	Quotes map[string]struct {
		Price json.Number `json:"price"`
	} `json:"quotes"`
}

// FetchCurrent resolves current prices for the given canonical symbols.
func (c *CoinPaprika) FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	currency := strings.ToUpper(c.opts.Currency)
	if currency == "" {
		currency = "USD"
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		canonical := strings.ToUpper(sym)
		id, ok := coinPaprikaIDs[canonical]
		if !ok {
			c.logger.Warn().Str("symbol", sym).Msg("no coinpaprika id for symbol, skipping")
			continue
		}

		price, err := c.fetchTicker(ctx, id, currency)
		if err != nil {
			return nil, fmt.Errorf("fetch %s ticker: %w", id, err)
		}
		prices[canonical] = price
	}

	return prices, nil
}

func (c *CoinPaprika) fetchTicker(ctx context.Context, id, currency string) (decimal.Decimal, error) {
	endpoint := c.baseURL + "/v1/tickers/" + id + "?quotes=" + currency
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("coinpaprika status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var ticker paprikaTicker
	if err := json.Unmarshal(payload, &ticker); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode coinpaprika response: %w", err)
	}

	quote, ok := ticker.Quotes[currency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("coinpaprika response missing %s quote", currency)
	}

	price, err := decimal.NewFromString(quote.Price.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse coinpaprika price: %w", err)
	}
	return price, nil
}

var _ Source = (*CoinPaprika)(nil)
