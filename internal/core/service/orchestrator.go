package service

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// gasMargin is added to every swap gas estimate before capping at the
// caller's limit.
const gasMargin = 100_000

// TradeOrchestrator runs the buy/sell pipeline: resolve, amount, balance,
// liquidity, allowance, referral, gas, submit, confirm, result, persist.
// Each stage's failure aborts all later stages with a stage-labeled error.
// Submissions for one wallet are serialized so nonces stay ordered.
type TradeOrchestrator struct {
	cache    *TokenCache
	pnl      *PnLEngine
	referral domain.ReferralResolver
	ledger   domain.TradeLedger
	waiter   domain.TxWaiter
	notify   domain.Notifier
	log      *logrus.Entry

	defaults       domain.TradeDefaults
	confirmTimeout time.Duration

	mu      sync.Mutex
	wallets map[string]*sync.Mutex
}

func NewTradeOrchestrator(
	cache *TokenCache,
	pnl *PnLEngine,
	referral domain.ReferralResolver,
	ledger domain.TradeLedger,
	waiter domain.TxWaiter,
	notify domain.Notifier,
	defaults domain.TradeDefaults,
	confirmTimeout time.Duration,
	log *logrus.Entry,
) *TradeOrchestrator {
	if defaults.GasLimit == 0 {
		defaults.GasLimit = 1_000_000
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 5 * time.Minute
	}
	return &TradeOrchestrator{
		cache:          cache,
		pnl:            pnl,
		referral:       referral,
		ledger:         ledger,
		waiter:         waiter,
		notify:         notify,
		log:            log,
		defaults:       defaults,
		confirmTimeout: confirmTimeout,
		wallets:        make(map[string]*sync.Mutex),
	}
}

// Execute runs the full pipeline for one trade and returns the swap
// transaction hash.
func (o *TradeOrchestrator) Execute(ctx context.Context, account domain.TradingAccount, req domain.TradeRequest) (string, error) {
	wallet := account.Address()
	walletMu := o.walletLock(wallet)
	walletMu.Lock()
	defer walletMu.Unlock()

	log := o.log.WithFields(logrus.Fields{
		"user":   req.DiscordUserID,
		"wallet": wallet,
		"token":  req.TokenAddress,
	})

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageResolve, "resolving token...")
	rec, err := o.cache.Update(ctx, req.TokenAddress)
	if err != nil {
		return "", err
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageAmount, "resolving trade amount...")
	amount, balance, oldAmount, err := o.resolveAmount(ctx, account, rec, req)
	if err != nil {
		return "", err
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageBalance, "checking balance...")
	if balance.Sign() <= 0 || balance.Cmp(amount) < 0 {
		return "", &domain.InsufficientFundsError{Token: rec.Address, Wallet: wallet, Need: amount, Have: balance}
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageLiquidity, "checking liquidity...")
	if err := checkLiquidity(rec, amount, req.Selling); err != nil {
		return "", err
	}

	if req.Selling {
		o.notify.Stage(ctx, req.DiscordUserID, domain.StageAllowance, "checking allowance...")
		if err := o.ensureAllowance(ctx, account, rec.Address, amount); err != nil {
			return "", err
		}
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageReferral, "resolving invite code...")
	inviteCode, err := o.referral.InviterCode(ctx, req.DiscordUserID)
	if err != nil {
		return "", &domain.UpstreamError{Source: "accounts", Token: rec.Address, Err: err}
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageGas, "estimating gas fee...")
	gasLimit, err := o.resolveGasLimit(ctx, account, rec, inviteCode, amount, req)
	if err != nil {
		return "", err
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageSubmit,
		fmt.Sprintf("sending transaction for %s (amount %s, gas %d)...", rec.Symbol, amount, gasLimit))
	txHash, err := account.SubmitSwap(ctx, req.Selling, rec.Address, rec.Pair, inviteCode, amount, gasLimit)
	if err != nil {
		return "", &domain.ChainError{Stage: domain.StageSubmit, Token: rec.Address, Wallet: wallet, Err: err}
	}
	log = log.WithField("tx", txHash)

	o.notify.Stage(ctx, req.DiscordUserID, domain.StageConfirm, "waiting for confirmation: "+txHash)
	receipt, err := o.waitConfirmed(ctx, txHash)
	if err != nil {
		return "", &domain.ChainError{Stage: domain.StageConfirm, Token: rec.Address, Wallet: wallet, TxHash: txHash, Err: err}
	}
	log.WithField("block", receipt.BlockNumber).Info("trade confirmed")

	result := o.tradeResult(ctx, account, rec, req.Selling, oldAmount)

	trade := &domain.TradeRecord{
		DiscordUserID: req.DiscordUserID,
		WalletAddress: wallet,
		Mode:          tradeMode(req.Selling),
		TokenAddress:  rec.Address,
		TradeAmount:   amount,
		TxHash:        txHash,
		TradePrice:    rec.Price,
		ExecutedAt:    time.Now(),
		TokenSymbol:   rec.Symbol,
		TokenDecimals: rec.Decimals,
		TradeResult:   result,
		Sort:          req.Sort,
	}

	o.notify.Stage(ctx, req.DiscordUserID, domain.StagePersist, "recording trade...")
	if err := o.ledger.Append(ctx, trade); err != nil {
		log.WithError(err).Error("failed to record trade, ledger entry lost")
	}
	o.notify.TradeExecuted(ctx, trade)

	if req.Selling {
		report, err := o.pnl.RealizedPnL(ctx, req.DiscordUserID, rec.Address, result, amount, rec.Decimals, txHash)
		if err != nil {
			log.WithError(err).Warn("pnl computation failed")
		} else {
			o.notify.PnLComputed(ctx, trade, report)
		}
	}

	return txHash, nil
}

// resolveAmount turns the request into base units and snapshots the wallet's
// pre-trade counter-asset balance for the later result delta.
func (o *TradeOrchestrator) resolveAmount(ctx context.Context, account domain.TradingAccount, rec *domain.TokenRecord, req domain.TradeRequest) (amount, balance, oldAmount *big.Int, err error) {
	wallet := account.Address()
	if req.Selling {
		balance, err = account.TokenBalance(ctx, rec.Address)
		if err != nil {
			return nil, nil, nil, &domain.ChainError{Stage: domain.StageAmount, Token: rec.Address, Wallet: wallet, Err: err}
		}
		ppm, perr := percentToPPM(req.Amount)
		if perr != nil {
			return nil, nil, nil, &domain.ValidationError{Token: rec.Address, Wallet: wallet, Field: "percent", Reason: perr.Error()}
		}
		amount = new(big.Int).Mul(balance, big.NewInt(ppm))
		amount.Div(amount, big.NewInt(1_000_000))
		oldAmount, err = account.NativeBalance(ctx)
	} else {
		var ok bool
		amount, ok = new(big.Int).SetString(req.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return nil, nil, nil, &domain.ValidationError{Token: rec.Address, Wallet: wallet, Field: "amount", Reason: fmt.Sprintf("not a positive wei amount: %q", req.Amount)}
		}
		balance, err = account.NativeBalance(ctx)
		if err != nil {
			return nil, nil, nil, &domain.ChainError{Stage: domain.StageAmount, Token: rec.Address, Wallet: wallet, Err: err}
		}
		oldAmount, err = account.TokenBalance(ctx, rec.Address)
	}
	if err != nil {
		return nil, nil, nil, &domain.ChainError{Stage: domain.StageAmount, Token: rec.Address, Wallet: wallet, Err: err}
	}
	if amount.Sign() <= 0 {
		return nil, nil, nil, &domain.ValidationError{Token: rec.Address, Wallet: wallet, Field: "amount", Reason: "resolved amount is zero"}
	}
	return amount, balance, oldAmount, nil
}

func checkLiquidity(rec *domain.TokenRecord, amount *big.Int, selling bool) error {
	available := rec.EthLiquidity
	if selling {
		available = rec.TokenLiquidity
	}
	if available == nil {
		available = new(big.Int)
	}
	if amount.Cmp(available) > 0 {
		return &domain.LiquidityError{Token: rec.Address, Pair: rec.Pair, Selling: selling, Amount: amount, Available: available}
	}
	return nil
}

// ensureAllowance grants the swap contract an unlimited allowance when the
// current one cannot cover the sale, blocking until the approval confirms.
func (o *TradeOrchestrator) ensureAllowance(ctx context.Context, account domain.TradingAccount, token string, amount *big.Int) error {
	wallet := account.Address()
	allowance, err := account.Allowance(ctx, token)
	if err != nil {
		return &domain.ChainError{Stage: domain.StageAllowance, Token: token, Wallet: wallet, Err: err}
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	txHash, err := account.Approve(ctx, token)
	if err != nil {
		return &domain.ChainError{Stage: domain.StageAllowance, Token: token, Wallet: wallet, Err: err}
	}
	if _, err := o.waitConfirmed(ctx, txHash); err != nil {
		return &domain.ChainError{Stage: domain.StageAllowance, Token: token, Wallet: wallet, TxHash: txHash, Err: err}
	}
	return nil
}

func (o *TradeOrchestrator) resolveGasLimit(ctx context.Context, account domain.TradingAccount, rec *domain.TokenRecord, inviteCode string, amount *big.Int, req domain.TradeRequest) (uint64, error) {
	limit := req.GasLimit
	if limit == 0 {
		limit = o.defaults.GasLimit
	}
	estimate, err := account.EstimateSwapGas(ctx, req.Selling, rec.Address, rec.Pair, inviteCode, amount)
	if err != nil {
		return 0, &domain.ChainError{Stage: domain.StageGas, Token: rec.Address, Wallet: account.Address(), Err: err}
	}
	padded := estimate + gasMargin
	if padded < limit {
		return padded, nil
	}
	return limit, nil
}

// waitConfirmed blocks until the transaction is mined, bounded by the
// configured deadline, and requires success status with at least one
// confirmation.
func (o *TradeOrchestrator) waitConfirmed(ctx context.Context, txHash string) (*domain.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, o.confirmTimeout)
	defer cancel()

	receipt, err := o.waiter.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != 1 {
		return nil, fmt.Errorf("transaction failed with status %d", receipt.Status)
	}
	if receipt.Confirmations == 0 {
		return nil, fmt.Errorf("transaction could not be confirmed in time")
	}
	return receipt, nil
}

// tradeResult is the counter-asset delta actually received. A failed read
// records zero rather than failing a trade that already confirmed.
func (o *TradeOrchestrator) tradeResult(ctx context.Context, account domain.TradingAccount, rec *domain.TokenRecord, selling bool, oldAmount *big.Int) *big.Int {
	var current *big.Int
	var err error
	if selling {
		current, err = account.NativeBalance(ctx)
	} else {
		current, err = account.TokenBalance(ctx, rec.Address)
	}
	if err != nil {
		o.log.WithError(err).WithField("token", rec.Address).Warn("failed to read post-trade balance")
		return new(big.Int)
	}
	return new(big.Int).Sub(current, oldAmount)
}

func (o *TradeOrchestrator) walletLock(wallet string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	mu, ok := o.wallets[wallet]
	if !ok {
		mu = &sync.Mutex{}
		o.wallets[wallet] = mu
	}
	return mu
}

func tradeMode(selling bool) domain.TradeMode {
	if selling {
		return domain.TradeModeSell
	}
	return domain.TradeModeBuy
}

// percentToPPM parses a percentage with up to two decimals ("12.5") into
// parts-per-million of the balance (12.5% -> 125000).
func percentToPPM(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("empty percentage")
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("at most two decimal places allowed: %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a percentage: %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("not a percentage: %q", s)
	}

	ppm := w*10_000 + f*100
	if ppm <= 0 || ppm > 1_000_000 {
		return 0, fmt.Errorf("percentage out of range (0, 100]: %q", s)
	}
	return ppm, nil
}
