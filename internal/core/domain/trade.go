package domain

import (
	"math/big"
	"time"
)

// TradeMode distinguishes buys from sells in the ledger.
type TradeMode string

const (
	TradeModeBuy  TradeMode = "BUY"
	TradeModeSell TradeMode = "SELL"
)

// TradeSort records how a trade was initiated.
type TradeSort string

const (
	TradeSortManual     TradeSort = "MANUAL"
	TradeSortLimitOrder TradeSort = "LIMIT_ORDER"
	TradeSortSnipe      TradeSort = "SNIPE"
)

// TradeRecord is one confirmed transaction in the append-only trade ledger.
// Records are never mutated after creation.
type TradeRecord struct {
	DiscordUserID string
	WalletAddress string
	Mode          TradeMode
	TokenAddress  string
	// TradeAmount is what went in: wei of ETH for a buy, base units of the
	// token for a sell.
	TradeAmount   *big.Int
	TxHash        string
	TradePrice    *big.Int
	ExecutedAt    time.Time
	TokenSymbol   string
	TokenDecimals uint8
	// TradeResult is the net counter-asset delta actually received: token base
	// units for a buy, wei for a sell.
	TradeResult *big.Int
	Sort        TradeSort
}

// TradeRequest is a user-initiated pipeline invocation.
type TradeRequest struct {
	DiscordUserID string
	TokenAddress  string
	// Amount is wei of ETH for a buy. For a sell it is the percentage of the
	// current token balance, as a decimal string with up to two decimals
	// ("25", "12.5", "100").
	Amount   string
	GasLimit uint64
	Selling  bool
	Sort     TradeSort
}

// Receipt is the confirmation result of a submitted transaction.
type Receipt struct {
	Status        uint64
	Confirmations uint64
	BlockNumber   uint64
	GasUsed       uint64
}

// PnLReport is the realized profit-and-loss of a sale against the caller's
// recorded cost basis.
type PnLReport struct {
	// Amount is signed wei: proceeds minus cost basis.
	Amount *big.Int
	// Percent is rounded. +Inf when no cost basis exists (tokens sold were
	// never bought through the bot).
	Percent   float64
	CostBasis *big.Int
	// MatchedTokens is the bought quantity the sale was matched against.
	MatchedTokens *big.Int
}
