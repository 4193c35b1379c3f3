package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const aggregatorV3ABIJSON = `[{"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}]`

var aggregatorV3ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABIJSON))
	if err != nil {
		panic("failed to parse AggregatorV3 ABI: " + err.Error())
	}
	aggregatorV3ABI = parsed
}

// ChainlinkOptions parameterise the on-chain price feed adapter.
type ChainlinkOptions struct {
	RPCURL  string
	Feeds   map[string]string
	Timeout time.Duration
}

// Chainlink reads prices from on-chain AggregatorV3 feed contracts.
// The symbol translation table here maps canonical symbols to feed
// contract addresses.
type Chainlink struct {
	opts      ChainlinkOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex

	decimalsMux  sync.Mutex
	feedDecimals map[common.Address]int32
}

// NewChainlink builds a new on-chain feed adapter.
func NewChainlink(opts ChainlinkOptions, logger zerolog.Logger) *Chainlink {
	return &Chainlink{
		opts:         opts,
		logger:       logger.With().Str("component", "chainlink_fetcher").Logger(),
		feedDecimals: make(map[common.Address]int32),
	}
}

// Name identifies the source in quotes and counters.
func (c *Chainlink) Name() string { return "Chainlink" }

// FetchCurrent resolves current prices for the given canonical symbols.
func (c *Chainlink) FetchCurrent(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if c.opts.RPCURL == "" {
		return nil, errors.New("chainlink rpc url not configured")
	}

	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		canonical := strings.ToUpper(sym)
		feed, ok := c.opts.Feeds[canonical]
		if !ok {
			c.logger.Warn().Str("symbol", sym).Msg("no chainlink feed for symbol, skipping")
			continue
		}

		price, readErr := c.readFeed(ctx, client, common.HexToAddress(feed))
		if readErr != nil {
			return nil, fmt.Errorf("read %s feed: %w", canonical, readErr)
		}
		prices[canonical] = price
	}

	return prices, nil
}

func (c *Chainlink) readFeed(ctx context.Context, client *ethclient.Client, addr common.Address) (decimal.Decimal, error) {
	exp, err := c.feedExponent(ctx, client, addr)
	if err != nil {
		return decimal.Decimal{}, err
	}

	payload, err := aggregatorV3ABI.Pack("latestRoundData")
	if err != nil {
		return decimal.Decimal{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	outputs, err := aggregatorV3ABI.Unpack("latestRoundData", res)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(outputs) != 5 {
		return decimal.Decimal{}, errors.New("unexpected latestRoundData response")
	}

	answer, ok := outputs[1].(*big.Int)
	if !ok {
		return decimal.Decimal{}, errors.New("failed to decode latestRoundData answer")
	}
	if answer.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("feed returned non-positive answer %s", answer)
	}

	return decimal.NewFromBigInt(answer, -exp), nil
}

func (c *Chainlink) feedExponent(ctx context.Context, client *ethclient.Client, addr common.Address) (int32, error) {
	c.decimalsMux.Lock()
	cached, ok := c.feedDecimals[addr]
	c.decimalsMux.Unlock()
	if ok {
		return cached, nil
	}

	payload, err := aggregatorV3ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return 0, err
	}

	outputs, err := aggregatorV3ABI.Unpack("decimals", res)
	if err != nil {
		return 0, err
	}
	if len(outputs) != 1 {
		return 0, errors.New("unexpected decimals response")
	}

	dec, ok := outputs[0].(uint8)
	if !ok {
		return 0, errors.New("failed to decode feed decimals")
	}

	exp := int32(dec)
	c.decimalsMux.Lock()
	c.feedDecimals[addr] = exp
	c.decimalsMux.Unlock()
	return exp, nil
}

func (c *Chainlink) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

var _ Source = (*Chainlink)(nil)
