package honeypot

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/retry"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 1, retry.Policy{MaxAttempts: 2, Interval: time.Millisecond})
}

func TestProbe(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/IsHoneypot", r.URL.Path)
		assert.Equal(t, "0xtoken", r.URL.Query().Get("address"))
		assert.Equal(t, "0xpair", r.URL.Query().Get("pair"))
		assert.Equal(t, "1", r.URL.Query().Get("chainID"))
		fmt.Fprint(w, `{"simulationResult":{
			"buyGas":"120000","sellGas":"140000",
			"estimatedBuy":"1000","exactBuy":"900",
			"estimatedSell":"1000","exactSell":"950"}}`)
	})

	probe, err := c.Probe(context.Background(), "0xtoken", "0xpair")
	require.NoError(t, err)
	assert.Equal(t, uint64(120000), probe.BuyGas)
	assert.Equal(t, uint64(140000), probe.SellGas)
	assert.Equal(t, big.NewInt(1000), probe.EstimatedBuy)
	assert.Equal(t, big.NewInt(900), probe.ExactBuy)
	assert.Equal(t, big.NewInt(950), probe.ExactSell)
}

func TestProbeMissingPair(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.Probe(context.Background(), "0xtoken", "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProbeIncompleteSimulation(t *testing.T) {
	// An empty amount means the simulation did not complete; the prober must
	// error so the cache can mark the token a honeypot.
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"simulationResult":{
			"buyGas":"0","sellGas":"0",
			"estimatedBuy":"1000","exactBuy":"",
			"estimatedSell":"","exactSell":""}}`)
	})

	_, err := c.Probe(context.Background(), "0xtoken", "0xpair")
	var uerr *domain.UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "honeypot", uerr.Source)
}

func TestProbeUpstreamFailure(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Probe(context.Background(), "0xtoken", "0xpair")
	var uerr *domain.UpstreamError
	require.ErrorAs(t, err, &uerr)
}
