// Package chain implements the on-chain collaborators on top of go-ethereum:
// the node client, ERC-20 handles, Uniswap pair reads, the swap-contract
// trading account, and the liquidity-locker contracts.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// receiptPollInterval paces the confirmation wait loop.
const receiptPollInterval = 2 * time.Second

// Client wraps an Ethereum node connection and tracks the chain head.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	log     *logrus.Entry

	head   atomic.Uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Dial connects to the RPC endpoint and starts the head tracker.
func Dial(ctx context.Context, rpcEndpoint string, chainID int64, pollInterval time.Duration, log *logrus.Entry) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	c := &Client{
		eth:     eth,
		chainID: big.NewInt(chainID),
		log:     log,
		done:    make(chan struct{}),
	}

	if head, err := eth.BlockNumber(ctx); err == nil {
		c.head.Store(head)
	} else {
		log.WithError(err).Warn("initial block height fetch failed")
	}

	trackCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.trackHead(trackCtx, pollInterval)

	return c, nil
}

// Close stops the head tracker and releases the RPC connection.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.eth.Close()
}

// Eth exposes the underlying client for the other adapters in this package.
func (c *Client) Eth() *ethclient.Client { return c.eth }

// ChainID returns the configured chain ID.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Client) trackHead(ctx context.Context, interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head, err := c.eth.BlockNumber(ctx)
			if err != nil {
				c.log.WithError(err).Debug("block height poll failed")
				continue
			}
			c.head.Store(head)
		}
	}
}

// CurrentBlock returns the last observed chain head.
func (c *Client) CurrentBlock() uint64 { return c.head.Load() }

// Code fetches the deployed bytecode at an address.
func (c *Client) Code(ctx context.Context, address string) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch code at %s: %w", address, err)
	}
	return code, nil
}

// NativeBalance returns the ETH balance of an address in wei.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance of %s: %w", address, err)
	}
	return bal, nil
}

// TransactionCount returns the confirmed nonce of an address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	count, err := c.eth.NonceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transaction count of %s: %w", address, err)
	}
	return count, nil
}

// TransactionBlock resolves the block a mined transaction landed in.
func (c *Client) TransactionBlock(ctx context.Context, txHash string) (uint64, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch receipt for %s: %w", txHash, err)
	}
	return receipt.BlockNumber.Uint64(), nil
}

// WaitMined polls for the transaction receipt until ctx expires. The returned
// confirmation count is relative to the head at the time the receipt appears.
func (c *Client) WaitMined(ctx context.Context, txHash string) (*domain.Receipt, error) {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := c.eth.TransactionReceipt(ctx, hash)
			if err != nil {
				// Receipt not available yet, keep polling.
				continue
			}
			return c.receiptToDomain(ctx, receipt), nil
		}
	}
}

func (c *Client) receiptToDomain(ctx context.Context, receipt *types.Receipt) *domain.Receipt {
	out := &domain.Receipt{
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		head = c.head.Load()
	}
	if head >= out.BlockNumber {
		out.Confirmations = head - out.BlockNumber + 1
	}
	return out
}
