package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const teamFinanceABIJSON = `[
	{"inputs":[{"name":"token","type":"address"}],"name":"getTotalTokenBalance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const unicryptABIJSON = `[
	{"inputs":[{"name":"token","type":"address"}],"name":"getNumLocksForToken","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"token","type":"address"},{"name":"index","type":"uint256"}],"name":"tokenLocks","outputs":[{"name":"lockDate","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"initialAmount","type":"uint256"},{"name":"unlockDate","type":"uint256"},{"name":"lockID","type":"uint256"},{"name":"owner","type":"address"}],"stateMutability":"view","type":"function"}
]`

var (
	teamFinanceABI = mustParseABI(teamFinanceABIJSON)
	unicryptABI    = mustParseABI(unicryptABIJSON)
)

// TeamFinanceLocker reads locked pair tokens from the Team Finance vault.
type TeamFinanceLocker struct {
	client  *Client
	address common.Address
}

// NewTeamFinanceLocker binds the vault address.
func NewTeamFinanceLocker(client *Client, address string) *TeamFinanceLocker {
	return &TeamFinanceLocker{client: client, address: common.HexToAddress(address)}
}

func (l *TeamFinanceLocker) Name() string { return "teamfinance" }

// LockedAmount returns the vault's total locked balance of the pair token.
func (l *TeamFinanceLocker) LockedAmount(ctx context.Context, pair string) (*big.Int, error) {
	data, err := teamFinanceABI.Pack("getTotalTokenBalance", common.HexToAddress(pair))
	if err != nil {
		return nil, fmt.Errorf("failed to pack getTotalTokenBalance call: %w", err)
	}
	result, err := l.client.eth.CallContract(ctx, ethereum.CallMsg{To: &l.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getTotalTokenBalance: %w", err)
	}
	var amount *big.Int
	if err := teamFinanceABI.UnpackIntoInterface(&amount, "getTotalTokenBalance", result); err != nil {
		return nil, fmt.Errorf("failed to unpack getTotalTokenBalance result: %w", err)
	}
	return amount, nil
}

// UnicryptLocker walks the Unicrypt lock list for a pair and sums the locked
// amounts.
type UnicryptLocker struct {
	client  *Client
	address common.Address
}

// NewUnicryptLocker binds the locker address.
func NewUnicryptLocker(client *Client, address string) *UnicryptLocker {
	return &UnicryptLocker{client: client, address: common.HexToAddress(address)}
}

func (l *UnicryptLocker) Name() string { return "unicrypt" }

// LockedAmount sums the amount field of every lock registered for the pair.
func (l *UnicryptLocker) LockedAmount(ctx context.Context, pair string) (*big.Int, error) {
	pairAddr := common.HexToAddress(pair)

	data, err := unicryptABI.Pack("getNumLocksForToken", pairAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getNumLocksForToken call: %w", err)
	}
	result, err := l.client.eth.CallContract(ctx, ethereum.CallMsg{To: &l.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getNumLocksForToken: %w", err)
	}
	var numLocks *big.Int
	if err := unicryptABI.UnpackIntoInterface(&numLocks, "getNumLocksForToken", result); err != nil {
		return nil, fmt.Errorf("failed to unpack getNumLocksForToken result: %w", err)
	}

	total := new(big.Int)
	for i := int64(0); i < numLocks.Int64(); i++ {
		amount, err := l.lockAmountAt(ctx, pairAddr, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		total.Add(total, amount)
	}
	return total, nil
}

func (l *UnicryptLocker) lockAmountAt(ctx context.Context, pair common.Address, index *big.Int) (*big.Int, error) {
	data, err := unicryptABI.Pack("tokenLocks", pair, index)
	if err != nil {
		return nil, fmt.Errorf("failed to pack tokenLocks call: %w", err)
	}
	result, err := l.client.eth.CallContract(ctx, ethereum.CallMsg{To: &l.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call tokenLocks(%s): %w", index, err)
	}
	fields, err := unicryptABI.Unpack("tokenLocks", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack tokenLocks result: %w", err)
	}
	amount, ok := fields[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected tokenLocks amount type %T", fields[1])
	}
	return amount, nil
}
