package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const swapABIJSON = `[
	{"inputs":[{"name":"token","type":"address"},{"name":"pair","type":"address"},{"name":"inviteCode","type":"string"}],"name":"SwapEthToToken","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"amount","type":"uint256"},{"name":"token","type":"address"},{"name":"pair","type":"address"},{"name":"inviteCode","type":"string"}],"name":"SwapTokenToEth","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"discordId","type":"string"}],"name":"getReferralCode","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var swapABI = mustParseABI(swapABIJSON)

// unlimitedAllowance is 2^256 - 1, the approval amount used so a wallet only
// ever pays for one approval per token.
var unlimitedAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Account is a trading wallet bound to the swap contract. It signs and
// submits; key material is handed in by the caller and never persisted here.
type Account struct {
	client       *Client
	key          *ecdsa.PrivateKey
	address      common.Address
	swapContract common.Address
	priorityFee  *big.Int
	approveGas   uint64
}

// NewAccount derives the wallet address from the private key and binds it to
// the swap contract. priorityFee is the per-user EIP-1559 tip; approveGas
// caps approval transactions.
func NewAccount(client *Client, privateKeyHex, swapContract string, priorityFee *big.Int, approveGas uint64) (*Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &Account{
		client:       client,
		key:          key,
		address:      crypto.PubkeyToAddress(*publicKey),
		swapContract: common.HexToAddress(swapContract),
		priorityFee:  priorityFee,
		approveGas:   approveGas,
	}, nil
}

// Address returns the wallet address.
func (a *Account) Address() string { return a.address.Hex() }

// NativeBalance returns the wallet's ETH balance in wei.
func (a *Account) NativeBalance(ctx context.Context) (*big.Int, error) {
	return a.client.NativeBalance(ctx, a.address.Hex())
}

// TokenBalance returns the wallet's balance of a token in base units.
func (a *Account) TokenBalance(ctx context.Context, token string) (*big.Int, error) {
	erc20 := &ERC20{client: a.client, address: common.HexToAddress(token)}
	return erc20.BalanceOf(ctx, a.address.Hex())
}

// Allowance returns the token allowance granted to the swap contract.
func (a *Account) Allowance(ctx context.Context, token string) (*big.Int, error) {
	erc20 := &ERC20{client: a.client, address: common.HexToAddress(token)}
	return erc20.Allowance(ctx, a.address.Hex(), a.swapContract.Hex())
}

// Approve grants the swap contract an unlimited allowance on the token and
// returns the transaction hash. The caller waits for confirmation.
func (a *Account) Approve(ctx context.Context, token string) (string, error) {
	data, err := erc20ABI.Pack("approve", a.swapContract, unlimitedAllowance)
	if err != nil {
		return "", fmt.Errorf("failed to pack approve call: %w", err)
	}
	to := common.HexToAddress(token)
	return a.signAndSend(ctx, to, nil, data, a.approveGas)
}

// EstimateSwapGas simulates the swap call and returns the node's estimate.
// The simulation also validates that the swap would not revert.
func (a *Account) EstimateSwapGas(ctx context.Context, selling bool, token, pair, inviteCode string, amount *big.Int) (uint64, error) {
	data, value, err := a.packSwap(selling, token, pair, inviteCode, amount)
	if err != nil {
		return 0, err
	}
	gas, err := a.client.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  a.address,
		To:    &a.swapContract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return 0, fmt.Errorf("swap would revert: %w", err)
	}
	return gas, nil
}

// SubmitSwap signs and sends the swap transaction and returns its hash.
func (a *Account) SubmitSwap(ctx context.Context, selling bool, token, pair, inviteCode string, amount *big.Int, gasLimit uint64) (string, error) {
	data, value, err := a.packSwap(selling, token, pair, inviteCode, amount)
	if err != nil {
		return "", err
	}
	return a.signAndSend(ctx, a.swapContract, value, data, gasLimit)
}

func (a *Account) packSwap(selling bool, token, pair, inviteCode string, amount *big.Int) ([]byte, *big.Int, error) {
	tokenAddr := common.HexToAddress(token)
	pairAddr := common.HexToAddress(pair)
	if selling {
		data, err := swapABI.Pack("SwapTokenToEth", amount, tokenAddr, pairAddr, inviteCode)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to pack SwapTokenToEth call: %w", err)
		}
		return data, nil, nil
	}
	data, err := swapABI.Pack("SwapEthToToken", tokenAddr, pairAddr, inviteCode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack SwapEthToToken call: %w", err)
	}
	return data, amount, nil
}

// signAndSend builds a dynamic-fee transaction with the account's priority
// fee, signs it, and submits it. Fee cap is twice the current base fee plus
// the tip.
func (a *Account) signAndSend(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (string, error) {
	nonce, err := a.client.eth.PendingNonceAt(ctx, a.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	header, err := a.client.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get chain head: %w", err)
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), a.priorityFee)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   a.client.chainID,
		Nonce:     nonce,
		GasTipCap: a.priorityFee,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signer := types.LatestSignerForChainID(a.client.chainID)
	signed, err := types.SignTx(tx, signer, a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := a.client.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}
