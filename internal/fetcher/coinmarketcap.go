package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CoinMarketCapOptions parameterise the CoinMarketCap adapter.
type CoinMarketCapOptions struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
}

// CoinMarketCap fetches latest quotes from the CoinMarketCap Pro API.
// CMC keys quotes by the canonical ticker symbol, so no translation
// table is needed for this provider.
type CoinMarketCap struct {
	opts    CoinMarketCapOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinMarketCap constructs a CoinMarketCap adapter.
func NewCoinMarketCap(opts CoinMarketCapOptions, logger zerolog.Logger) *CoinMarketCap {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com"
	}

	return &CoinMarketCap{
		opts:    opts,
		logger:  logger.With().Str("component", "cmc_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the source in quotes and counters.
func (c *CoinMarketCap) Name() string { return "CoinMarketCap" }

type cmcResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string]struct {
		Quote map[string]struct {
			Price json.Number `json:"price"`
		} `json:"quote"`
	} `json:"data"`
}

// FetchCurrent resolves current prices for the given canonical symbols.
func (c *CoinMarketCap) FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if c.opts.APIKey == "" {
		return nil, errors.New("coinmarketcap api key not configured")
	}
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	currency := strings.ToUpper(c.opts.Currency)
	if currency == "" {
		currency = "USD"
	}

	upper := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		upper = append(upper, strings.ToUpper(sym))
	}

	query := url.Values{}
	query.Set("symbol", strings.Join(upper, ","))
	query.Set("convert", currency)

	endpoint := c.baseURL + "/v1/cryptocurrency/quotes/latest?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.opts.APIKey)

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
		return nil, fmt.Errorf("coinmarketcap status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var body cmcResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode coinmarketcap response: %w", err)
	}
	if body.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("coinmarketcap error %d: %s", body.Status.ErrorCode, body.Status.ErrorMessage)
	}

	prices := make(map[string]decimal.Decimal, len(body.Data))
	for sym, entry := range body.Data {
		quote, ok := entry.Quote[currency]
		if !ok {
			continue
		}
		price, convErr := decimal.NewFromString(quote.Price.String())
		if convErr != nil {
			return nil, fmt.Errorf("parse coinmarketcap price for %s: %w", sym, convErr)
		}
		prices[strings.ToUpper(sym)] = price
	}

	return prices, nil
}

var _ Source = (*CoinMarketCap)(nil)
