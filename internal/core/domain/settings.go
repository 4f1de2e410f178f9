package domain

import "math/big"

// AutoBuySettings are a user's sniper gates. They only filter candidate
// tokens before a trade is attempted; the core components never mutate them.
type AutoBuySettings struct {
	Sniping bool

	RequireVerified      bool
	RequireHoneypotCheck bool
	RequireLiquidityLock bool
	AllowPrevContracts   bool

	// BuyAmount is the wei spent when a candidate passes every gate.
	BuyAmount        *big.Int
	MinimumLiquidity *big.Int
	MaximumBuyTax    float64
	MaximumSellTax   float64
	// MinimumLockedLiquidity is checked only when RequireLiquidityLock is set.
	MinimumLockedLiquidity *big.Int
	TopHolderThreshold     int
}

// TradeDefaults are per-user trade parameters with process-wide fallbacks.
type TradeDefaults struct {
	GasLimit uint64
	// PriorityFee is the EIP-1559 max priority fee in wei.
	PriorityFee *big.Int
}
