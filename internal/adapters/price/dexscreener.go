// Package price implements the price-aggregator HTTP collaborator against the
// DexScreener API.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/retry"
)

// wethAddress anchors the ETH/USD lookup; DexScreener has no native-currency
// endpoint, so the deepest WETH pair's USD price stands in for it.
const wethAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

// Pair is the subset of a DexScreener pair entry the bot uses.
type Pair struct {
	PairAddress string  `json:"pairAddress"`
	ChainID     string  `json:"chainId"`
	PriceUSD    string  `json:"priceUsd"`
	PriceNative string  `json:"priceNative"`
	FDV         float64 `json:"fdv"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

// Client fetches pair data by token address.
type Client struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
}

// New builds a client with the shared retry policy.
func New(baseURL string, policy retry.Policy) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		policy:  policy,
	}
}

// TokenPair returns the first pair listed for the token, or nil when the
// aggregator knows nothing about it. Exhausted retries also return nil: price
// data is enrichment, and callers treat absence as a valid outcome.
func (c *Client) TokenPair(ctx context.Context, tokenAddress string) (*Pair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, tokenAddress)

	var result struct {
		Pairs []Pair `json:"pairs"`
	}
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("dexscreener api returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if len(result.Pairs) == 0 {
		return nil, nil
	}
	return &result.Pairs[0], nil
}

// EthUSD returns the current USD price of ETH.
func (c *Client) EthUSD(ctx context.Context) (float64, error) {
	pair, err := c.TokenPair(ctx, wethAddress)
	if err != nil {
		return 0, err
	}
	if pair == nil {
		return 0, fmt.Errorf("no WETH pair available")
	}
	price, err := strconv.ParseFloat(pair.PriceUSD, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q: %w", pair.PriceUSD, err)
	}
	return price, nil
}
