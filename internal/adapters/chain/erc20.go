package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

const erc20ABIJSON = `[
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// maxWalletMethods are the candidate getter names probed, in order, for a
// token's max-wallet cap. First successful call wins; exhausting the list
// means the contract does not expose one.
var maxWalletMethods = []string{
	"_maxWalletSize",
	"maxWalletAmount",
	"_maxWalletToken",
	"maxWallet",
	"_maxTxAmount",
	"maxTxAmount",
}

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI literal: %v", err))
	}
	return parsed
}

// ERC20 is a bound handle over a deployed token contract.
type ERC20 struct {
	client  *Client
	address common.Address
}

// Binder constructs ERC20 handles against one node client.
type Binder struct {
	client *Client
}

// NewBinder returns a ContractBinder backed by the node client.
func NewBinder(client *Client) *Binder {
	return &Binder{client: client}
}

// Bind validates the address and returns a contract handle.
func (b *Binder) Bind(tokenAddress string) (domain.TokenContract, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, &domain.ValidationError{Token: tokenAddress, Field: "address", Reason: "not a hex address"}
	}
	return &ERC20{client: b.client, address: common.HexToAddress(tokenAddress)}, nil
}

// Address returns the checksummed contract address.
func (t *ERC20) Address() string { return t.address.Hex() }

func (t *ERC20) call(ctx context.Context, parsed abi.ABI, method string, out interface{}, args ...interface{}) error {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	result, err := t.client.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &t.address,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if err := parsed.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return nil
}

// Symbol reads the token symbol.
func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	var symbol string
	if err := t.call(ctx, erc20ABI, "symbol", &symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

// Decimals reads the token decimals.
func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	var decimals uint8
	if err := t.call(ctx, erc20ABI, "decimals", &decimals); err != nil {
		return 0, err
	}
	return decimals, nil
}

// TotalSupply reads the total supply in base units.
func (t *ERC20) TotalSupply(ctx context.Context) (*big.Int, error) {
	var supply *big.Int
	if err := t.call(ctx, erc20ABI, "totalSupply", &supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// BalanceOf reads an owner's balance in base units.
func (t *ERC20) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	var balance *big.Int
	if err := t.call(ctx, erc20ABI, "balanceOf", &balance, common.HexToAddress(owner)); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance reads the allowance granted by owner to spender.
func (t *ERC20) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	var allowance *big.Int
	if err := t.call(ctx, erc20ABI, "allowance", &allowance,
		common.HexToAddress(owner), common.HexToAddress(spender)); err != nil {
		return nil, err
	}
	return allowance, nil
}

// MaxWalletLimit probes the candidate max-wallet getters in order. A contract
// without any of them returns (nil, false, nil).
func (t *ERC20) MaxWalletLimit(ctx context.Context) (*big.Int, bool, error) {
	for _, method := range maxWalletMethods {
		getter, err := abi.JSON(strings.NewReader(fmt.Sprintf(
			`[{"inputs":[],"name":"%s","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`,
			method)))
		if err != nil {
			return nil, false, fmt.Errorf("failed to parse %s ABI: %w", method, err)
		}

		var limit *big.Int
		if err := t.call(ctx, getter, method, &limit); err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			// Method not present on this contract, try the next candidate.
			continue
		}
		return limit, true, nil
	}
	return nil, false, nil
}
