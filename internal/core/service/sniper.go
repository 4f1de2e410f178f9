package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// Sniper keeps the registry of users auto-buying new tokens. Settings are
// persisted through the SniperStore; the trading account itself is attached
// at arm time because key custody lives outside the core.
type Sniper struct {
	store domain.SniperStore
	cache *TokenCache
	orch  *TradeOrchestrator
	log   *logrus.Entry

	mu    sync.Mutex
	armed map[string]*armedSniper
}

type armedSniper struct {
	account  domain.TradingAccount
	settings *domain.AutoBuySettings
}

func NewSniper(store domain.SniperStore, cache *TokenCache, orch *TradeOrchestrator, log *logrus.Entry) *Sniper {
	return &Sniper{
		store: store,
		cache: cache,
		orch:  orch,
		log:   log,
		armed: make(map[string]*armedSniper),
	}
}

// Settings returns the persisted gates for a user, nil when none exist.
func (s *Sniper) Settings(ctx context.Context, discordUserID string) (*domain.AutoBuySettings, error) {
	return s.store.Fetch(ctx, discordUserID)
}

// Persisted returns every user's stored settings, keyed by Discord ID. The
// bootstrap uses it to rearm the snipers it holds wallets for.
func (s *Sniper) Persisted(ctx context.Context) (map[string]*domain.AutoBuySettings, error) {
	return s.store.FetchAll(ctx)
}

// Arm persists the settings and registers the user as an active sniper.
func (s *Sniper) Arm(ctx context.Context, discordUserID string, account domain.TradingAccount, settings *domain.AutoBuySettings) error {
	if settings.BuyAmount == nil || settings.BuyAmount.Sign() <= 0 {
		return &domain.ValidationError{Wallet: account.Address(), Field: "buyAmount", Reason: "sniping requires a positive buy amount"}
	}
	settings.Sniping = true
	if err := s.store.Upsert(ctx, discordUserID, settings); err != nil {
		return fmt.Errorf("failed to persist sniper settings: %w", err)
	}
	s.mu.Lock()
	s.armed[discordUserID] = &armedSniper{account: account, settings: settings}
	s.mu.Unlock()
	return nil
}

// Disarm stops sniping for the user and removes the persisted settings.
func (s *Sniper) Disarm(ctx context.Context, discordUserID string) error {
	s.mu.Lock()
	delete(s.armed, discordUserID)
	s.mu.Unlock()
	if err := s.store.Remove(ctx, discordUserID); err != nil {
		return fmt.Errorf("failed to remove sniper settings: %w", err)
	}
	return nil
}

// Evaluate reports whether a candidate token passes the user's gates. The
// returned reason names the first failing gate.
func (s *Sniper) Evaluate(rec *domain.TokenRecord, settings *domain.AutoBuySettings) (bool, string) {
	if settings.RequireVerified && !rec.Verified {
		return false, "contract not verified"
	}

	if settings.RequireHoneypotCheck {
		if rec.Honeypot {
			return false, "honeypot"
		}
		if !rec.TaxKnown {
			return false, "taxes unknown"
		}
		if rec.BuyTax > settings.MaximumBuyTax {
			return false, fmt.Sprintf("buy tax %.2f%% above limit", rec.BuyTax)
		}
		if rec.SellTax > settings.MaximumSellTax {
			return false, fmt.Sprintf("sell tax %.2f%% above limit", rec.SellTax)
		}
	}

	if settings.MinimumLiquidity != nil && settings.MinimumLiquidity.Sign() > 0 {
		if rec.EthLiquidity == nil || rec.EthLiquidity.Cmp(settings.MinimumLiquidity) < 0 {
			return false, "liquidity below minimum"
		}
	}

	if settings.RequireLiquidityLock {
		if rec.LockedLiquidity == nil || rec.LockedLiquidity.Sign() <= 0 {
			return false, "liquidity not locked"
		}
		if settings.MinimumLockedLiquidity != nil && rec.LockedLiquidity.Cmp(settings.MinimumLockedLiquidity) < 0 {
			return false, "locked liquidity below minimum"
		}
	}

	// The deployment transaction itself accounts for one nonce; anything
	// beyond that means the deployer was active before this token.
	if !settings.AllowPrevContracts && rec.DeployerTxCount > 1 {
		return false, "deployer has prior activity"
	}

	return true, ""
}

// HandleNewToken evaluates a freshly seen token against every armed sniper
// and fires a SNIPE buy for each one that passes. Per-sniper failures are
// logged; one user's failed buy never blocks another's.
func (s *Sniper) HandleNewToken(ctx context.Context, tokenAddress string) {
	rec, err := s.cache.Update(ctx, tokenAddress)
	if err != nil {
		s.log.WithError(err).WithField("token", tokenAddress).Warn("sniper candidate resolution failed")
		return
	}

	s.mu.Lock()
	snipers := make(map[string]*armedSniper, len(s.armed))
	for id, sn := range s.armed {
		snipers[id] = sn
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for userID, sn := range snipers {
		pass, reason := s.Evaluate(rec, sn.settings)
		if !pass {
			s.log.WithFields(logrus.Fields{
				"user":   userID,
				"token":  tokenAddress,
				"reason": reason,
			}).Debug("sniper gate rejected token")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			req := domain.TradeRequest{
				DiscordUserID: userID,
				TokenAddress:  tokenAddress,
				Amount:        sn.settings.BuyAmount.String(),
				GasLimit:      defaultSnipeGasLimit,
				Selling:       false,
				Sort:          domain.TradeSortSnipe,
			}
			if _, err := s.orch.Execute(ctx, sn.account, req); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"user":  userID,
					"token": tokenAddress,
				}).Warn("snipe buy failed")
			}
		}()
	}
	wg.Wait()
}

const defaultSnipeGasLimit = 1_000_000
