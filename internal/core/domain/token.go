package domain

import "math/big"

// TokenRecord is the cached view of a tradeable token. It is owned by the
// token cache and mutated only through its update path; everything else reads
// a copy.
type TokenRecord struct {
	Address  string
	Pair     string
	Symbol   string
	Decimals uint8

	TotalSupply    *big.Int
	EthLiquidity   *big.Int
	TokenLiquidity *big.Int
	// Price is wei of ETH per whole token: ethLiquidity * 10^decimals / tokenLiquidity.
	// Nil until the first successful on-chain refresh.
	Price *big.Int

	Verified bool
	Honeypot bool
	// Taxes are percentages rounded to two decimals. Valid only when TaxKnown
	// is set; a failed honeypot probe leaves them unset and marks Honeypot.
	BuyTax   float64
	SellTax  float64
	TaxKnown bool

	// SecurityScore is 0..4. Scored is false until the first scoring pass, and
	// stays false when the bytecode veto fires.
	SecurityScore int
	Scored        bool

	// Creator data is resolved at most once and kept for the record's lifetime.
	CreatorAddress  string
	CreationBlock   uint64
	CreatorResolved bool

	DeployerBalance *big.Int
	DeployerTxCount uint64
	LockedLiquidity *big.Int
	Holders         []TokenHolder

	// Display enrichment, "N/A" when the oracle is unavailable.
	MarketCap    string
	LiquidityUSD string

	LastOnchainUpdateBlock uint64
	// Unix milliseconds of the last successful third-party enrichment.
	LastThirdPartyUpdateAt int64

	// Contract is the bound handle used for on-chain reads. Not persisted.
	Contract TokenContract
}

// TokenHolder is one entry of the explorer's holder list.
type TokenHolder struct {
	Address  string
	Quantity string
}

// ContractCreation is the explorer's contract-creation lookup result.
type ContractCreation struct {
	ContractAddress string
	CreatorAddress  string
	TxHash          string
}

// HoneypotProbe holds the result of a simulated round-trip trade. Estimated
// amounts come from quoting the pool, exact amounts from simulating the swap;
// the spread between them is the effective tax.
type HoneypotProbe struct {
	BuyGas  uint64
	SellGas uint64

	EstimatedBuy  *big.Int
	ExactBuy      *big.Int
	EstimatedSell *big.Int
	ExactSell     *big.Int
}

// Clone returns a copy safe to hand outside the cache. Big integers are
// shared: callers must treat them as read-only.
func (r *TokenRecord) Clone() *TokenRecord {
	c := *r
	c.Holders = append([]TokenHolder(nil), r.Holders...)
	return &c
}
