// Package explorer implements the chain-explorer HTTP collaborator against an
// Etherscan-style API. Requests are throttled and retried with the shared
// bounded policy.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/retry"
)

// holderPageSize is the fixed page size of the holder-list endpoint.
const holderPageSize = 10

// Client talks to the explorer API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	log     *logrus.Entry
}

// New builds a client. The free-tier request limit is 5 per second, enforced
// locally so bursts of token lookups do not trip the API.
func New(baseURL, apiKey string, policy retry.Policy, log *logrus.Entry) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		policy:  policy,
		log:     log,
	}
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "?" + params.Encode()

	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
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
			return fmt.Errorf("explorer api returned status %d", resp.StatusCode)
		}

		var body apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return err
		}
		if body.Status != "1" {
			return fmt.Errorf("explorer api error: %s", body.Message)
		}
		return json.Unmarshal(body.Result, out)
	})
}

// IsVerified reports whether the contract's source is verified. The ABI
// endpoint errors for unverified contracts; that is a negative answer, not a
// failure.
func (c *Client) IsVerified(ctx context.Context, address string) (bool, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getabi")
	params.Set("address", address)

	var abiText string
	if err := c.call(ctx, params, &abiText); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return abiText != "", nil
}

// ContractCreation looks up the deployer and creation transaction.
func (c *Client) ContractCreation(ctx context.Context, address string) (*domain.ContractCreation, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getcontractcreation")
	params.Set("contractaddresses", address)

	var result []struct {
		ContractAddress string `json:"contractAddress"`
		ContractCreator string `json:"contractCreator"`
		TxHash          string `json:"txHash"`
	}
	if err := c.call(ctx, params, &result); err != nil {
		return nil, &domain.UpstreamError{Source: "explorer", Token: address, Err: err}
	}
	if len(result) == 0 {
		return nil, &domain.UpstreamError{Source: "explorer", Token: address,
			Err: fmt.Errorf("no creation record")}
	}
	return &domain.ContractCreation{
		ContractAddress: result[0].ContractAddress,
		CreatorAddress:  result[0].ContractCreator,
		TxHash:          result[0].TxHash,
	}, nil
}

// TokenHolders fetches one page of the holder list. Failures return an empty
// list: the holder list is display enrichment, never load-bearing.
func (c *Client) TokenHolders(ctx context.Context, address string, page, pageSize int) ([]domain.TokenHolder, error) {
	if pageSize <= 0 {
		pageSize = holderPageSize
	}
	params := url.Values{}
	params.Set("module", "token")
	params.Set("action", "tokenholderlist")
	params.Set("contractaddress", address)
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(pageSize))

	var result []struct {
		TokenHolderAddress  string `json:"TokenHolderAddress"`
		TokenHolderQuantity string `json:"TokenHolderQuantity"`
	}
	if err := c.call(ctx, params, &result); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.WithField("token", address).WithError(err).Warn("holder list fetch failed")
		return nil, nil
	}

	holders := make([]domain.TokenHolder, 0, len(result))
	for _, h := range result {
		holders = append(holders, domain.TokenHolder{
			Address:  h.TokenHolderAddress,
			Quantity: h.TokenHolderQuantity,
		})
	}
	return holders, nil
}
