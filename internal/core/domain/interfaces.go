package domain

import (
	"context"
	"math/big"
)

// TokenContract is a bound handle over a deployed ERC-20 token.
type TokenContract interface {
	Address() string
	Symbol(ctx context.Context) (string, error)
	Decimals(ctx context.Context) (uint8, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)

	// MaxWalletLimit probes an ordered list of candidate getter names for the
	// contract's max-wallet cap. The bool is false when no candidate method
	// exists; that is not an error.
	MaxWalletLimit(ctx context.Context) (*big.Int, bool, error)
}

// ContractBinder constructs token contract handles.
type ContractBinder interface {
	Bind(tokenAddress string) (TokenContract, error)
}

// ChainReader exposes the node reads the cache and scorer need.
type ChainReader interface {
	// CurrentBlock is the tracked chain head, 0 before the first observation.
	CurrentBlock() uint64
	Code(ctx context.Context, address string) ([]byte, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	TransactionCount(ctx context.Context, address string) (uint64, error)
	// TransactionBlock resolves the block a transaction was mined in.
	TransactionBlock(ctx context.Context, txHash string) (uint64, error)
}

// DexReader resolves DEX pair state for a token.
type DexReader interface {
	PairFor(ctx context.Context, token string) (string, error)
	// NativeLiquidity is the WETH reserve held by the pair.
	NativeLiquidity(ctx context.Context, pair string) (*big.Int, error)
}

// HoneypotProber simulates an exact buy/sell round trip for a token.
type HoneypotProber interface {
	Probe(ctx context.Context, token, pair string) (*HoneypotProbe, error)
}

// Explorer is the chain-explorer HTTP collaborator.
type Explorer interface {
	IsVerified(ctx context.Context, address string) (bool, error)
	ContractCreation(ctx context.Context, address string) (*ContractCreation, error)
	TokenHolders(ctx context.Context, address string, page, pageSize int) ([]TokenHolder, error)
}

// PriceOracle converts the native currency to USD.
type PriceOracle interface {
	EthUSD(ctx context.Context) (float64, error)
}

// LiquidityLocker is one independent locker source. Failures contribute zero
// to the aggregate, never abort it.
type LiquidityLocker interface {
	Name() string
	LockedAmount(ctx context.Context, pair string) (*big.Int, error)
}

// TokenStore persists token records. Writes are best-effort.
type TokenStore interface {
	Upsert(ctx context.Context, rec *TokenRecord) error
	Find(ctx context.Context, address string) (*TokenRecord, error)
}

// TradeLedger is the append-only trade history.
type TradeLedger interface {
	Append(ctx context.Context, rec *TradeRecord) error
	// TradesFor returns the user's trades for a token in chronological order.
	TradesFor(ctx context.Context, discordUserID, tokenAddress string) ([]TradeRecord, error)
	FindByTx(ctx context.Context, txHash string) (*TradeRecord, error)
}

// SniperStore persists per-user auto-buy settings.
type SniperStore interface {
	Upsert(ctx context.Context, discordUserID string, s *AutoBuySettings) error
	Fetch(ctx context.Context, discordUserID string) (*AutoBuySettings, error)
	FetchAll(ctx context.Context) (map[string]*AutoBuySettings, error)
	Remove(ctx context.Context, discordUserID string) error
}

// ReferralResolver resolves the inviter's on-chain referral code for a user.
type ReferralResolver interface {
	InviterCode(ctx context.Context, discordUserID string) (string, error)
}

// AccountDirectory reads the accounts collection maintained by the
// presentation layer.
type AccountDirectory interface {
	// Inviter returns the inviter's user ID and that inviter's stored invite
	// code. Both are empty when the user has no inviter; the code alone is
	// empty when the inviter never registered one.
	Inviter(ctx context.Context, discordUserID string) (inviterID, inviteCode string, err error)
}

// ReferralCodeReader reads a user's invite code from the swap contract.
type ReferralCodeReader interface {
	ReferralCode(ctx context.Context, discordUserID string) (string, error)
}

// Notifier delivers progress and results to the presentation layer. All
// methods are best-effort and must not block the pipeline on failure.
type Notifier interface {
	Stage(ctx context.Context, discordUserID string, stage Stage, detail string)
	TradeExecuted(ctx context.Context, rec *TradeRecord)
	PnLComputed(ctx context.Context, rec *TradeRecord, report *PnLReport)
}

// TradingAccount is a wallet bound to the swap contract. Key custody lives
// outside the core; the account only signs and submits.
type TradingAccount interface {
	Address() string
	NativeBalance(ctx context.Context) (*big.Int, error)
	TokenBalance(ctx context.Context, token string) (*big.Int, error)
	// Allowance is the token allowance granted to the swap contract.
	Allowance(ctx context.Context, token string) (*big.Int, error)
	// Approve grants the swap contract an unlimited (2^256-1) allowance and
	// returns the approval transaction hash.
	Approve(ctx context.Context, token string) (string, error)
	EstimateSwapGas(ctx context.Context, selling bool, token, pair, inviteCode string, amount *big.Int) (uint64, error)
	SubmitSwap(ctx context.Context, selling bool, token, pair, inviteCode string, amount *big.Int, gasLimit uint64) (string, error)
}

// TxWaiter blocks until a transaction is mined.
type TxWaiter interface {
	WaitMined(ctx context.Context, txHash string) (*Receipt, error)
}
