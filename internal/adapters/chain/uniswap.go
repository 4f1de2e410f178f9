package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const factoryABIJSON = `[
	{"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"view","type":"function"}
]`

var factoryABI = mustParseABI(factoryABIJSON)

// Uniswap resolves pair addresses through the factory and reads the WETH
// reserve of a pair.
type Uniswap struct {
	client  *Client
	factory common.Address
	weth    common.Address
}

// NewUniswap binds the factory and WETH addresses.
func NewUniswap(client *Client, factoryAddress, wethAddress string) *Uniswap {
	return &Uniswap{
		client:  client,
		factory: common.HexToAddress(factoryAddress),
		weth:    common.HexToAddress(wethAddress),
	}
}

// PairFor resolves the token/WETH pair address. A zero address from the
// factory means no pair exists.
func (u *Uniswap) PairFor(ctx context.Context, token string) (string, error) {
	data, err := factoryABI.Pack("getPair", common.HexToAddress(token), u.weth)
	if err != nil {
		return "", fmt.Errorf("failed to pack getPair call: %w", err)
	}
	result, err := u.client.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &u.factory,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call getPair: %w", err)
	}

	var pair common.Address
	if err := factoryABI.UnpackIntoInterface(&pair, "getPair", result); err != nil {
		return "", fmt.Errorf("failed to unpack getPair result: %w", err)
	}
	if pair == (common.Address{}) {
		return "", fmt.Errorf("no pair found for token %s", token)
	}
	return pair.Hex(), nil
}

// NativeLiquidity is the WETH balance held by the pair, in wei.
func (u *Uniswap) NativeLiquidity(ctx context.Context, pair string) (*big.Int, error) {
	weth := &ERC20{client: u.client, address: u.weth}
	liquidity, err := weth.BalanceOf(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("failed to read WETH reserve of pair %s: %w", pair, err)
	}
	return liquidity, nil
}
