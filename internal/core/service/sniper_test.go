package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

func passingRecord() *domain.TokenRecord {
	return &domain.TokenRecord{
		Address:         "0xtoken",
		Pair:            "0xpair",
		Verified:        true,
		Honeypot:        false,
		BuyTax:          2,
		SellTax:         3,
		TaxKnown:        true,
		EthLiquidity:    ether(10),
		LockedLiquidity: ether(5),
		DeployerTxCount: 1,
	}
}

func openSettings() *domain.AutoBuySettings {
	return &domain.AutoBuySettings{
		Sniping:            true,
		AllowPrevContracts: true,
		BuyAmount:          ether(1),
	}
}

func TestEvaluateGates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rec *domain.TokenRecord, s *domain.AutoBuySettings)
		pass   bool
	}{
		{"open settings pass everything", func(*domain.TokenRecord, *domain.AutoBuySettings) {}, true},
		{"unverified rejected", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireVerified = true
			rec.Verified = false
		}, false},
		{"honeypot rejected", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireHoneypotCheck = true
			rec.Honeypot = true
		}, false},
		{"unknown taxes rejected", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireHoneypotCheck = true
			rec.TaxKnown = false
		}, false},
		{"buy tax above ceiling", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireHoneypotCheck = true
			s.MaximumBuyTax = 5
			s.MaximumSellTax = 5
			rec.BuyTax = 7
		}, false},
		{"taxes within ceilings", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireHoneypotCheck = true
			s.MaximumBuyTax = 5
			s.MaximumSellTax = 5
		}, true},
		{"liquidity below minimum", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.MinimumLiquidity = ether(50)
		}, false},
		{"lock required but absent", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireLiquidityLock = true
			rec.LockedLiquidity = new(big.Int)
		}, false},
		{"locked below minimum", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireLiquidityLock = true
			s.MinimumLockedLiquidity = ether(100)
		}, false},
		{"lock satisfied", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.RequireLiquidityLock = true
			s.MinimumLockedLiquidity = ether(1)
		}, true},
		{"active deployer rejected", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.AllowPrevContracts = false
			rec.DeployerTxCount = 12
		}, false},
		{"fresh deployer allowed", func(rec *domain.TokenRecord, s *domain.AutoBuySettings) {
			s.AllowPrevContracts = false
			rec.DeployerTxCount = 1
		}, true},
	}

	sniper := NewSniper(newFakeSniperStore(), nil, nil, testLog())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := passingRecord()
			settings := openSettings()
			tt.mutate(rec, settings)

			pass, reason := sniper.Evaluate(rec, settings)
			assert.Equal(t, tt.pass, pass, "reason: %s", reason)
			if !tt.pass {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestArmPersistsAndRegisters(t *testing.T) {
	store := newFakeSniperStore()
	sniper := NewSniper(store, nil, nil, testLog())
	account := &fakeAccount{address: "0xwallet"}

	err := sniper.Arm(context.Background(), "u1", account, openSettings())
	require.NoError(t, err)

	saved, err := sniper.Settings(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Sniping)

	require.NoError(t, sniper.Disarm(context.Background(), "u1"))
	saved, err = sniper.Settings(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestPersistedReturnsAllStoredSettings(t *testing.T) {
	store := newFakeSniperStore()
	sniper := NewSniper(store, nil, nil, testLog())

	require.NoError(t, sniper.Arm(context.Background(), "u1", &fakeAccount{address: "0xa"}, openSettings()))
	require.NoError(t, sniper.Arm(context.Background(), "u2", &fakeAccount{address: "0xb"}, openSettings()))

	persisted, err := sniper.Persisted(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.True(t, persisted["u1"].Sniping)
	assert.True(t, persisted["u2"].Sniping)
}

func TestArmRejectsZeroBuyAmount(t *testing.T) {
	sniper := NewSniper(newFakeSniperStore(), nil, nil, testLog())
	settings := openSettings()
	settings.BuyAmount = new(big.Int)

	err := sniper.Arm(context.Background(), "u1", &fakeAccount{address: "0xwallet"}, settings)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestHandleNewTokenFiresSnipeBuy(t *testing.T) {
	orchFx := newOrchFixture()
	orchFx.account.tokens["0xtoken"] = new(big.Int)
	orchFx.account.tokenAfter = ether(40)

	sniper := NewSniper(newFakeSniperStore(), orchFx.cacheFx.cache, orchFx.orch, testLog())
	require.NoError(t, sniper.Arm(context.Background(), "u1", orchFx.account, openSettings()))

	sniper.HandleNewToken(context.Background(), "0xtoken")

	require.Len(t, orchFx.ledger.appended, 1)
	rec := orchFx.ledger.appended[0]
	assert.Equal(t, domain.TradeSortSnipe, rec.Sort)
	assert.Equal(t, domain.TradeModeBuy, rec.Mode)
	assert.Equal(t, ether(1), rec.TradeAmount)
}

func TestHandleNewTokenSkipsFailingGates(t *testing.T) {
	orchFx := newOrchFixture()
	sniper := NewSniper(newFakeSniperStore(), orchFx.cacheFx.cache, orchFx.orch, testLog())

	settings := openSettings()
	settings.RequireVerified = true
	orchFx.cacheFx.explorer.verified = false
	require.NoError(t, sniper.Arm(context.Background(), "u1", orchFx.account, settings))

	sniper.HandleNewToken(context.Background(), "0xtoken")

	assert.Empty(t, orchFx.ledger.appended)
	assert.Zero(t, orchFx.account.submitCalls)
}
