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

var coinGeckoSlugs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
}

// CoinGeckoOptions parameterise the CoinGecko adapter.
type CoinGeckoOptions struct {
	BaseURL  string
	Currency string
	Timeout  time.Duration
}

// CoinGecko fetches spot prices from the CoinGecko simple price API.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a CoinGecko adapter.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com"
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the source in quotes and counters.
func (c *CoinGecko) Name() string { return "CoinGecko" }

// FetchCurrent resolves current prices for the given canonical symbols.
func (c *CoinGecko) FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	slugs := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		slug, ok := coinGeckoSlugs[strings.ToUpper(sym)]
		if !ok {
			c.logger.Warn().Str("symbol", sym).Msg("no coingecko slug for symbol, skipping")
			continue
		}
		slugs = append(slugs, slug)
	}
	if len(slugs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	currency := strings.ToLower(c.opts.Currency)
	if currency == "" {
		currency = "usd"
	}

	query := url.Values{}
	query.Set("ids", strings.Join(slugs, ","))
	query.Set("vs_currencies", currency)

	endpoint := c.baseURL + "/api/v3/simple/price?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var body map[string]map[string]json.Number
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode coingecko response: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(body))
	for slug, quotes := range body {
		sym := symbolForSlug(slug)
		if sym == "" {
			continue
		}
		raw, ok := quotes[currency]
		if !ok {
			continue
		}
		price, convErr := decimal.NewFromString(raw.String())
		if convErr != nil {
			return nil, fmt.Errorf("parse coingecko price for %s: %w", sym, convErr)
		}
		prices[sym] = price
	}

	return prices, nil
}

func symbolForSlug(slug string) string {
	for sym, candidate := range coinGeckoSlugs {
		if strings.EqualFold(candidate, slug) {
			return sym
		}
	}
	return ""
}

var _ Source = (*CoinGecko)(nil)
