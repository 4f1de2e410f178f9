package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

type cacheFixture struct {
	binder   *fakeBinder
	chain    *fakeChain
	dex      *fakeDex
	prober   *fakeProber
	explorer *fakeExplorer
	oracle   *fakeOracle
	store    *fakeTokenStore
	cache    *TokenCache
}

func newCacheFixture() *cacheFixture {
	contract := &fakeContract{
		address:     "0xtoken",
		symbol:      "PEPE",
		decimals:    18,
		totalSupply: ether(1000),
		balances:    map[string]*big.Int{"0xpair": ether(500)},
	}
	f := &cacheFixture{
		binder: &fakeBinder{contract: contract},
		chain: &fakeChain{
			block:    100,
			code:     bytecodeWith(),
			balances: map[string]*big.Int{"0xcreator": ether(3)},
			txCounts: map[string]uint64{"0xcreator": 7},
			txBlocks: map[string]uint64{"0xcreatetx": 42},
		},
		dex:    &fakeDex{pair: "0xpair", liquidity: ether(10)},
		prober: &fakeProber{probe: &domain.HoneypotProbe{EstimatedBuy: wei(100), ExactBuy: wei(90), EstimatedSell: wei(100), ExactSell: wei(95)}},
		explorer: &fakeExplorer{
			verified: true,
			creation: &domain.ContractCreation{ContractAddress: "0xtoken", CreatorAddress: "0xcreator", TxHash: "0xcreatetx"},
			holders:  []domain.TokenHolder{{Address: "0xwhale", Quantity: "100"}},
		},
		oracle: &fakeOracle{usd: 2000},
		store:  &fakeTokenStore{},
	}
	scorer := NewSecurityScorer(f.chain, testLog())
	locks := NewLockAggregator(testLog(), &fakeLocker{name: "teamfinance", amount: wei(1000)})
	f.cache = NewTokenCache(f.binder, f.chain, f.dex, f.prober, f.explorer, f.oracle, locks, scorer, f.store,
		TokenCacheConfig{OnchainStalenessBlocks: 5, ThirdPartyStaleness: time.Minute}, testLog())
	return f
}

func TestUpdateSeedsNewRecord(t *testing.T) {
	f := newCacheFixture()

	rec, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.Equal(t, "PEPE", rec.Symbol)
	assert.Equal(t, "0xpair", rec.Pair)
	assert.Equal(t, uint8(18), rec.Decimals)
	assert.Equal(t, ether(1000), rec.TotalSupply)

	// price = 10 ETH * 10^18 / 500 tokens = 0.02 ETH per whole token
	want := new(big.Int).Div(new(big.Int).Mul(ether(10), ether(1)), ether(500))
	assert.Equal(t, want, rec.Price)
	assert.Equal(t, uint64(100), rec.LastOnchainUpdateBlock)
}

func TestUpdateWithinStalenessWindowKeepsPrice(t *testing.T) {
	f := newCacheFixture()

	first, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	// Liquidity moved but the head did not: the cached price must hold.
	f.dex.liquidity = ether(99)
	f.chain.block = 103

	second, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, 1, f.dex.liqCalls)
	assert.Equal(t, 1, f.prober.calls)
}

func TestUpdateRefreshesPastStalenessWindow(t *testing.T) {
	f := newCacheFixture()

	_, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	f.chain.block = 106
	_, err = f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.Equal(t, 2, f.dex.liqCalls)
}

func TestUpdateComputesTaxes(t *testing.T) {
	f := newCacheFixture()

	rec, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.False(t, rec.Honeypot)
	assert.True(t, rec.TaxKnown)
	assert.Equal(t, 10.0, rec.BuyTax)
	assert.Equal(t, 5.0, rec.SellTax)
}

func TestUpdateProbeFailureMarksHoneypot(t *testing.T) {
	f := newCacheFixture()
	f.prober.err = errors.New("simulation reverted")

	rec, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.True(t, rec.Honeypot)
	assert.False(t, rec.TaxKnown)
	assert.NotNil(t, rec.Price)
}

func TestUpdateFailsOnMissingPair(t *testing.T) {
	f := newCacheFixture()
	f.dex.pairErr = errors.New("no pair for token")

	_, err := f.cache.Update(context.Background(), "0xnopair")
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestUpdateFailsOnBadMetadata(t *testing.T) {
	f := newCacheFixture()
	f.binder.contract.symbolErr = errors.New("execution reverted")

	_, err := f.cache.Update(context.Background(), "0xbroken")
	require.Error(t, err)
}

func TestUpdateEnrichmentFailureDegrades(t *testing.T) {
	f := newCacheFixture()
	f.explorer.creationErr = errors.New("etherscan 502")

	rec, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.False(t, rec.CreatorResolved)
	assert.False(t, rec.Scored)
	assert.NotNil(t, rec.Price)
}

func TestUpdateEnrichment(t *testing.T) {
	f := newCacheFixture()

	rec, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.Equal(t, "0xcreator", rec.CreatorAddress)
	assert.Equal(t, uint64(42), rec.CreationBlock)
	assert.True(t, rec.Verified)
	assert.Equal(t, uint64(7), rec.DeployerTxCount)
	assert.Equal(t, wei(1000), rec.LockedLiquidity)
	assert.True(t, rec.Scored)
	// clean bytecode, 10 ETH liquidity, verified, no max-wallet getter
	assert.Equal(t, 3, rec.SecurityScore)
	assert.Len(t, rec.Holders, 1)
	assert.Contains(t, rec.MarketCap, "USD")
}

func TestUpdateCreatorResolvedOnce(t *testing.T) {
	f := newCacheFixture()

	_, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)
	_, err = f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)

	assert.Equal(t, 1, f.explorer.creationCalls)
}

func TestUpdatePersistsInBackground(t *testing.T) {
	f := newCacheFixture()

	_, err := f.cache.Update(context.Background(), "0xtoken")
	require.NoError(t, err)
	f.cache.Close()

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Equal(t, 1, f.store.upserts)
}

func TestCloseDropsLatePersists(t *testing.T) {
	f := newCacheFixture()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.cache.Update(context.Background(), "0xtoken")
		}()
	}
	f.cache.Close()

	f.store.mu.Lock()
	settled := f.store.upserts
	f.store.mu.Unlock()

	// Updates still in flight when Close returned must drop their persist
	// instead of starting one; a second Close stays a no-op.
	wg.Wait()
	f.cache.Close()

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Equal(t, settled, f.store.upserts)
}

func TestFindReturnsNilForUnseen(t *testing.T) {
	f := newCacheFixture()
	assert.Nil(t, f.cache.Find("0xunseen"))
}

func TestConcurrentUpdatesSerializePerKey(t *testing.T) {
	f := newCacheFixture()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = f.cache.Update(context.Background(), "0xtoken")
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	// All eight updates land inside one staleness window: one upstream fetch.
	assert.Equal(t, 1, f.dex.liqCalls)
	assert.Equal(t, 1, f.prober.calls)
}
