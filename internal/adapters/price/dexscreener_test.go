package price

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/retry"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, retry.Policy{MaxAttempts: 2, Interval: time.Millisecond})
}

func TestTokenPair(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/latest/dex/tokens/0xtoken"))
		fmt.Fprint(w, `{"pairs":[
			{"pairAddress":"0xpair","chainId":"ethereum","priceUsd":"0.0042","priceNative":"0.0000012","fdv":420000,"liquidity":{"usd":125000}},
			{"pairAddress":"0xother","chainId":"ethereum","priceUsd":"0.0041","priceNative":"0.0000011","fdv":0,"liquidity":{"usd":10}}]}`)
	})

	pair, err := c.TokenPair(context.Background(), "0xtoken")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "0xpair", pair.PairAddress)
	assert.Equal(t, "0.0042", pair.PriceUSD)
	assert.Equal(t, float64(125000), pair.Liquidity.USD)
}

func TestTokenPairUnknownToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":null}`)
	})

	pair, err := c.TokenPair(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestTokenPairExhaustedRetriesDegradeToNil(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	pair, err := c.TokenPair(context.Background(), "0xtoken")
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestEthUSD(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, wethAddress)
		fmt.Fprint(w, `{"pairs":[{"pairAddress":"0xweth","priceUsd":"2150.55"}]}`)
	})

	price, err := c.EthUSD(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2150.55, price, 0.001)
}

func TestEthUSDNoPair(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[]}`)
	})

	_, err := c.EthUSD(context.Background())
	require.Error(t, err)
}

func TestEthUSDBadPrice(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs":[{"pairAddress":"0xweth","priceUsd":"n/a"}]}`)
	})

	_, err := c.EthUSD(context.Background())
	require.Error(t, err)
}
