// Package honeypot implements the honeypot-check HTTP collaborator. The
// service simulates an exact buy and sell for a token/pair and reports both
// the quoted and the realized amounts; the spread is the effective tax.
package honeypot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/retry"
)

// Client queries the simulation API.
type Client struct {
	baseURL string
	chainID int64
	http    *http.Client
	policy  retry.Policy
}

// New builds a client for the given chain.
func New(baseURL string, chainID int64, policy retry.Policy) *Client {
	return &Client{
		baseURL: baseURL,
		chainID: chainID,
		http:    &http.Client{Timeout: 15 * time.Second},
		policy:  policy,
	}
}

type simulationResponse struct {
	Simulation struct {
		BuyGas        string `json:"buyGas"`
		SellGas       string `json:"sellGas"`
		EstimatedBuy  string `json:"estimatedBuy"`
		ExactBuy      string `json:"exactBuy"`
		EstimatedSell string `json:"estimatedSell"`
		ExactSell     string `json:"exactSell"`
	} `json:"simulationResult"`
}

// Probe runs the simulated round trip. Transport failures, bad payloads and
// incomplete simulations are all errors; the caller treats any of them as a
// honeypot verdict.
func (c *Client) Probe(ctx context.Context, token, pair string) (*domain.HoneypotProbe, error) {
	if token == "" || pair == "" {
		return nil, &domain.ValidationError{Token: token, Field: "pair", Reason: "missing token or pair address"}
	}

	params := url.Values{}
	params.Set("address", token)
	params.Set("pair", pair)
	params.Set("chainID", strconv.FormatInt(c.chainID, 10))
	endpoint := c.baseURL + "/v2/IsHoneypot?" + params.Encode()

	var body simulationResponse
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
			return fmt.Errorf("honeypot api returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return nil, &domain.UpstreamError{Source: "honeypot", Token: token, Err: err}
	}

	probe := &domain.HoneypotProbe{}
	sim := body.Simulation
	probe.BuyGas, _ = strconv.ParseUint(sim.BuyGas, 10, 64)
	probe.SellGas, _ = strconv.ParseUint(sim.SellGas, 10, 64)

	for _, field := range []struct {
		raw string
		dst **big.Int
	}{
		{sim.EstimatedBuy, &probe.EstimatedBuy},
		{sim.ExactBuy, &probe.ExactBuy},
		{sim.EstimatedSell, &probe.EstimatedSell},
		{sim.ExactSell, &probe.ExactSell},
	} {
		v, ok := new(big.Int).SetString(field.raw, 10)
		if !ok {
			return nil, &domain.UpstreamError{Source: "honeypot", Token: token,
				Err: fmt.Errorf("bad simulation amount %q", field.raw)}
		}
		*field.dst = v
	}
	return probe, nil
}
