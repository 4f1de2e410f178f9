package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

const holderPage = 1

// TokenCacheConfig holds the staleness windows.
type TokenCacheConfig struct {
	// OnchainStalenessBlocks triggers a liquidity/price/honeypot refresh once
	// the record is this many blocks behind the chain head.
	OnchainStalenessBlocks uint64
	// ThirdPartyStaleness triggers explorer/locker/score enrichment.
	ThirdPartyStaleness time.Duration
	// HolderPageSize is the explorer holder-list page size.
	HolderPageSize int
}

// TokenCache owns the per-token record map. Records are created lazily on
// first reference and refreshed in place; updates for the same address are
// serialized on a per-key mutex so concurrent callers never race a refresh.
type TokenCache struct {
	binder   domain.ContractBinder
	chain    domain.ChainReader
	dex      domain.DexReader
	prober   domain.HoneypotProber
	explorer domain.Explorer
	oracle   domain.PriceOracle
	locks    *LockAggregator
	scorer   *SecurityScorer
	store    domain.TokenStore
	cfg      TokenCacheConfig
	log      *logrus.Entry

	mu      sync.Mutex
	entries map[string]*tokenEntry

	// closeMu makes the closed check and the WaitGroup add atomic against
	// Close, so no persist can start once Close begins waiting.
	closeMu   sync.Mutex
	persistWG sync.WaitGroup
	closed    chan struct{}
}

type tokenEntry struct {
	mu  sync.Mutex
	rec *domain.TokenRecord
}

func NewTokenCache(
	binder domain.ContractBinder,
	chain domain.ChainReader,
	dex domain.DexReader,
	prober domain.HoneypotProber,
	explorer domain.Explorer,
	oracle domain.PriceOracle,
	locks *LockAggregator,
	scorer *SecurityScorer,
	store domain.TokenStore,
	cfg TokenCacheConfig,
	log *logrus.Entry,
) *TokenCache {
	if cfg.OnchainStalenessBlocks == 0 {
		cfg.OnchainStalenessBlocks = 5
	}
	if cfg.ThirdPartyStaleness == 0 {
		cfg.ThirdPartyStaleness = time.Minute
	}
	if cfg.HolderPageSize == 0 {
		cfg.HolderPageSize = 10
	}
	return &TokenCache{
		binder:   binder,
		chain:    chain,
		dex:      dex,
		prober:   prober,
		explorer: explorer,
		oracle:   oracle,
		locks:    locks,
		scorer:   scorer,
		store:    store,
		cfg:      cfg,
		log:      log,
		entries:  make(map[string]*tokenEntry),
		closed:   make(chan struct{}),
	}
}

// Close waits for in-flight background persistence writes. Safe to call more
// than once.
func (c *TokenCache) Close() {
	c.closeMu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.closeMu.Unlock()
	c.persistWG.Wait()
}

// Update refreshes the record for tokenAddress per the staleness policy and
// returns a copy. Base metadata resolution is the only hard failure;
// enrichment failures keep the previous values.
func (c *TokenCache) Update(ctx context.Context, tokenAddress string) (*domain.TokenRecord, error) {
	entry := c.entry(tokenAddress)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.rec == nil {
		rec, err := c.seed(ctx, tokenAddress)
		if err != nil {
			return nil, err
		}
		entry.rec = rec
	} else if entry.rec.Contract == nil {
		contract, err := c.binder.Bind(tokenAddress)
		if err != nil {
			return nil, err
		}
		entry.rec.Contract = contract
	}
	rec := entry.rec

	if c.chain.CurrentBlock()-rec.LastOnchainUpdateBlock > c.cfg.OnchainStalenessBlocks {
		if err := c.refreshOnchain(ctx, rec); err != nil {
			c.log.WithError(err).WithField("token", tokenAddress).Warn("on-chain refresh failed, keeping previous values")
		}
	}

	if err := c.refreshThirdParty(ctx, rec); err != nil {
		c.log.WithError(err).WithField("token", tokenAddress).Warn("enrichment failed, keeping previous values")
	}

	c.persist(rec.Clone())
	return rec.Clone(), nil
}

// Find returns the cached record without refreshing, nil when unseen.
func (c *TokenCache) Find(tokenAddress string) *domain.TokenRecord {
	c.mu.Lock()
	entry, ok := c.entries[tokenAddress]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.rec == nil {
		return nil
	}
	return entry.rec.Clone()
}

func (c *TokenCache) entry(tokenAddress string) *tokenEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tokenAddress]
	if !ok {
		e = &tokenEntry{}
		c.entries[tokenAddress] = e
	}
	return e
}

// seed resolves the immutable base metadata. Every step here is mandatory.
func (c *TokenCache) seed(ctx context.Context, tokenAddress string) (*domain.TokenRecord, error) {
	contract, err := c.binder.Bind(tokenAddress)
	if err != nil {
		return nil, err
	}

	pair, err := c.dex.PairFor(ctx, tokenAddress)
	if err != nil {
		return nil, &domain.UpstreamError{Source: "dex", Token: tokenAddress, Err: err}
	}
	symbol, err := contract.Symbol(ctx)
	if err != nil {
		return nil, &domain.UpstreamError{Source: "token contract", Token: tokenAddress, Err: fmt.Errorf("failed to read symbol: %w", err)}
	}
	decimals, err := contract.Decimals(ctx)
	if err != nil {
		return nil, &domain.UpstreamError{Source: "token contract", Token: tokenAddress, Err: fmt.Errorf("failed to read decimals: %w", err)}
	}
	totalSupply, err := contract.TotalSupply(ctx)
	if err != nil {
		return nil, &domain.UpstreamError{Source: "token contract", Token: tokenAddress, Err: fmt.Errorf("failed to read total supply: %w", err)}
	}

	return &domain.TokenRecord{
		Address:     tokenAddress,
		Pair:        pair,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: totalSupply,
		Contract:    contract,
	}, nil
}

// refreshOnchain refetches pool reserves, recomputes the price, and probes
// for honeypot behavior. A failed probe marks the token a honeypot and
// leaves the taxes unknown.
func (c *TokenCache) refreshOnchain(ctx context.Context, rec *domain.TokenRecord) error {
	ethLiq, err := c.dex.NativeLiquidity(ctx, rec.Pair)
	if err != nil {
		return fmt.Errorf("failed to read pair liquidity: %w", err)
	}
	tokenLiq, err := rec.Contract.BalanceOf(ctx, rec.Pair)
	if err != nil {
		return fmt.Errorf("failed to read token-side liquidity: %w", err)
	}
	if tokenLiq.Sign() <= 0 {
		return fmt.Errorf("pair %s holds no tokens", rec.Pair)
	}

	rec.EthLiquidity = ethLiq
	rec.TokenLiquidity = tokenLiq

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(rec.Decimals)), nil)
	price := new(big.Int).Mul(ethLiq, multiplier)
	rec.Price = price.Div(price, tokenLiq)
	rec.LastOnchainUpdateBlock = c.chain.CurrentBlock()

	probe, err := c.prober.Probe(ctx, rec.Address, rec.Pair)
	if err != nil {
		c.log.WithError(err).WithField("token", rec.Address).Warn("honeypot probe failed, marking honeypot")
		rec.Honeypot = true
		rec.TaxKnown = false
		return nil
	}

	buyTax, err := taxPercent(probe.EstimatedBuy, probe.ExactBuy)
	if err != nil {
		rec.Honeypot = true
		rec.TaxKnown = false
		return nil
	}
	sellTax, err := taxPercent(probe.EstimatedSell, probe.ExactSell)
	if err != nil {
		rec.Honeypot = true
		rec.TaxKnown = false
		return nil
	}

	rec.Honeypot = false
	rec.BuyTax = buyTax
	rec.SellTax = sellTax
	rec.TaxKnown = true
	return nil
}

// taxPercent is (estimated - exact) * 100 / estimated in integer percent.
func taxPercent(estimated, exact *big.Int) (float64, error) {
	if estimated == nil || exact == nil || estimated.Sign() <= 0 {
		return 0, fmt.Errorf("probe returned no estimate")
	}
	diff := new(big.Int).Sub(estimated, exact)
	diff.Mul(diff, big.NewInt(100))
	diff.Quo(diff, estimated)
	return float64(diff.Int64()), nil
}

// refreshThirdParty runs explorer/locker/score/market-cap enrichment when the
// wall-clock window has lapsed. The first failure abandons the whole cycle;
// the record keeps its previous enrichment values.
func (c *TokenCache) refreshThirdParty(ctx context.Context, rec *domain.TokenRecord) error {
	if !rec.CreatorResolved {
		creation, err := c.explorer.ContractCreation(ctx, rec.Address)
		if err != nil {
			return err
		}
		block, err := c.chain.TransactionBlock(ctx, creation.TxHash)
		if err != nil {
			return fmt.Errorf("failed to resolve creation block: %w", err)
		}
		verified, err := c.explorer.IsVerified(ctx, rec.Address)
		if err != nil {
			return err
		}
		rec.CreatorAddress = creation.CreatorAddress
		rec.CreationBlock = block
		rec.Verified = verified
		rec.CreatorResolved = true
	}

	if time.Now().UnixMilli()-rec.LastThirdPartyUpdateAt <= c.cfg.ThirdPartyStaleness.Milliseconds() {
		return nil
	}

	holders, err := c.explorer.TokenHolders(ctx, rec.Address, holderPage, c.cfg.HolderPageSize)
	if err != nil {
		return err
	}
	deployerBalance, err := c.chain.NativeBalance(ctx, rec.CreatorAddress)
	if err != nil {
		return fmt.Errorf("failed to read deployer balance: %w", err)
	}
	deployerTxCount, err := c.chain.TransactionCount(ctx, rec.CreatorAddress)
	if err != nil {
		return fmt.Errorf("failed to read deployer tx count: %w", err)
	}

	locked := c.locks.Sum(ctx, rec.Pair)

	score, ok, err := c.scorer.Score(ctx, rec.Contract, rec.EthLiquidity, rec.Verified)
	if err != nil {
		return err
	}

	rec.Holders = holders
	rec.DeployerBalance = deployerBalance
	rec.DeployerTxCount = deployerTxCount
	rec.LockedLiquidity = locked
	rec.SecurityScore = score
	rec.Scored = ok

	c.refreshValuation(ctx, rec)

	rec.LastThirdPartyUpdateAt = time.Now().UnixMilli()
	return nil
}

// refreshValuation formats the market cap and USD liquidity for display. An
// unavailable oracle degrades to ETH denomination or "N/A".
func (c *TokenCache) refreshValuation(ctx context.Context, rec *domain.TokenRecord) {
	ethUSD, err := c.oracle.EthUSD(ctx)
	if err != nil {
		c.log.WithError(err).Warn("eth/usd oracle unavailable")
		ethUSD = 0
	}

	if rec.Price != nil && rec.TotalSupply != nil {
		supplyWhole := unitsToFloat(rec.TotalSupply, rec.Decimals)
		priceEth := unitsToFloat(rec.Price, 18)
		marketCapEth := priceEth * supplyWhole
		switch {
		case ethUSD > 0:
			rec.MarketCap = fmt.Sprintf("%.2fK USD", marketCapEth*ethUSD/1000)
		case marketCapEth > 0:
			rec.MarketCap = fmt.Sprintf("%.3f ETH", marketCapEth)
		default:
			rec.MarketCap = "N/A"
		}
	}

	if rec.EthLiquidity != nil && ethUSD > 0 {
		liqEth := unitsToFloat(rec.EthLiquidity, 18)
		rec.LiquidityUSD = fmt.Sprintf("%.2fK USD", liqEth*ethUSD/1000)
	} else {
		rec.LiquidityUSD = "N/A"
	}
}

// persist upserts the record in the background. Store failures are logged,
// never surfaced.
func (c *TokenCache) persist(rec *domain.TokenRecord) {
	c.closeMu.Lock()
	select {
	case <-c.closed:
		c.closeMu.Unlock()
		return
	default:
	}
	c.persistWG.Add(1)
	c.closeMu.Unlock()
	go func() {
		defer c.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.store.Upsert(ctx, rec); err != nil {
			c.log.WithError(err).WithField("token", rec.Address).Warn("failed to persist token record")
		}
	}()
}

func unitsToFloat(v *big.Int, decimals uint8) float64 {
	f := new(big.Float).SetInt(v)
	unit := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, unit).Float64()
	return out
}
