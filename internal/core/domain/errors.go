package domain

import (
	"fmt"
	"math/big"
)

// Stage labels the trade pipeline step an error surfaced from.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageAmount    Stage = "amount"
	StageBalance   Stage = "balance"
	StageLiquidity Stage = "liquidity"
	StageAllowance Stage = "allowance"
	StageReferral  Stage = "referral"
	StageGas       Stage = "gas"
	StageSubmit    Stage = "submit"
	StageConfirm   Stage = "confirm"
	StageResult    Stage = "result"
	StagePersist   Stage = "persist"
)

// ValidationError reports malformed input: a bad address, an unparseable or
// non-positive amount. Surfaced immediately, never retried.
type ValidationError struct {
	Token  string
	Wallet string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for token %s: %s", e.Field, e.Token, e.Reason)
}

// InsufficientFundsError aborts the pipeline when the wallet cannot cover the
// resolved trade amount.
type InsufficientFundsError struct {
	Token  string
	Wallet string
	Need   *big.Int
	Have   *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("wallet %s has insufficient balance for token %s: need %s, have %s",
		e.Wallet, e.Token, e.Need, e.Have)
}

// LiquidityError aborts the pipeline when the trade amount exceeds the
// matching side of the pool.
type LiquidityError struct {
	Token     string
	Pair      string
	Selling   bool
	Amount    *big.Int
	Available *big.Int
}

func (e *LiquidityError) Error() string {
	side := "native"
	if e.Selling {
		side = "token"
	}
	return fmt.Sprintf("pair %s has insufficient %s-side liquidity for token %s: amount %s, available %s",
		e.Pair, side, e.Token, e.Amount, e.Available)
}

// UpstreamError wraps a failed RPC or HTTP fetch. Transient at the call site
// (retried with bounded attempts); fatal only for mandatory token metadata.
type UpstreamError struct {
	Source string
	Token  string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s lookup for token %s failed: %v", e.Source, e.Token, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ChainError reports a failed or unconfirmed transaction. Resubmission is a
// new pipeline run, never automatic.
type ChainError struct {
	Stage  Stage
	Token  string
	Wallet string
	TxHash string
	Err    error
}

func (e *ChainError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("stage %s failed for token %s, wallet %s, tx %s: %v",
			e.Stage, e.Token, e.Wallet, e.TxHash, e.Err)
	}
	return fmt.Sprintf("stage %s failed for token %s, wallet %s: %v", e.Stage, e.Token, e.Wallet, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }
