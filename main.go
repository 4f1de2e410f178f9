package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/adapters/chain"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/adapters/explorer"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/adapters/honeypot"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/adapters/notify"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/adapters/price"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/adapters/store"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/config"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/service"
	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/retry"
	"github.com/ksankkaaii/discord-bot-on-ethereum/pkg/version"
)

const approveGasLimit = 100_000

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatal(err)
	}

	logger := newLogger(cfg.Log)
	log := logger.WithField("component", "bootstrap")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoURI := cfg.Storage.MongoURI
	if mongoURI == "" {
		mongoURI = "mongodb://127.0.0.1:27017"
	}
	db, err := store.Connect(ctx, mongoURI, cfg.Storage.Database)
	if err != nil {
		log.Fatal(err)
	}

	client, err := chain.Dial(ctx, cfg.Chain.RPCEndpoint, cfg.Chain.ChainID,
		time.Duration(cfg.Chain.BlockPollSeconds)*time.Second, logger.WithField("component", "chain"))
	if err != nil {
		log.Fatal(err)
	}

	policy := retry.Policy{MaxAttempts: cfg.Upstream.FetchMaxAttempts, Interval: cfg.FetchBackoff()}
	binder := chain.NewBinder(client)
	uniswap := chain.NewUniswap(client, cfg.Chain.FactoryAddress, cfg.Chain.WETHAddress)
	scanner := explorer.New(cfg.Upstream.ExplorerBaseURL, cfg.Upstream.ExplorerAPIKey, policy, logger.WithField("component", "explorer"))
	oracle := price.New(cfg.Upstream.PriceBaseURL, policy)
	prober := honeypot.New(cfg.Upstream.HoneypotBaseURL, cfg.Chain.ChainID, policy)

	var lockerSources []domain.LiquidityLocker
	if cfg.Chain.TeamFinance != "" {
		lockerSources = append(lockerSources, chain.NewTeamFinanceLocker(client, cfg.Chain.TeamFinance))
	}
	if cfg.Chain.Unicrypt != "" {
		lockerSources = append(lockerSources, chain.NewUnicryptLocker(client, cfg.Chain.Unicrypt))
	}
	lockers := service.NewLockAggregator(logger.WithField("component", "lockers"), lockerSources...)
	scorer := service.NewSecurityScorer(client, logger.WithField("component", "security"))

	cache := service.NewTokenCache(binder, client, uniswap, prober, scanner, oracle, lockers, scorer, db.Tokens(),
		service.TokenCacheConfig{
			OnchainStalenessBlocks: cfg.Cache.OnchainStalenessBlocks,
			ThirdPartyStaleness:    time.Duration(cfg.Cache.ThirdPartyStalenessMS) * time.Millisecond,
		}, logger.WithField("component", "tokencache"))

	sinks := notify.Fanout{notify.NewLogNotifier(logger)}
	if cfg.Storage.RedisAddr != "" {
		bus, err := notify.NewRedisNotifier(ctx, cfg.Storage.RedisAddr, cfg.Notify.RedisChannel, logger)
		if err != nil {
			log.WithError(err).Warn("redis notifier unavailable, continuing without it")
		} else {
			defer bus.Close()
			sinks = append(sinks, bus)
		}
	}
	if cfg.Notify.GatewayURL != "" {
		gateway := notify.NewGatewayNotifier(cfg.Notify.GatewayURL, cfg.Notify.JWTSecret, logger)
		defer gateway.Close()
		sinks = append(sinks, gateway)
	}

	referral := service.NewReferralService(db.Accounts(), chain.NewSwapReader(client, cfg.Chain.SwapContract),
		logger.WithField("component", "referral"))
	defaults := domain.TradeDefaults{GasLimit: cfg.Trade.DefaultGasLimit, PriorityFee: cfg.DefaultPriorityFee()}

	pnl := service.NewPnLEngine(db.Trades(), logger.WithField("component", "pnl"))
	orchestrator := service.NewTradeOrchestrator(cache, pnl, referral, db.Trades(), client, sinks,
		defaults, cfg.ConfirmTimeout(), logger.WithField("component", "trade"))
	sniper := service.NewSniper(db.Snipers(), cache, orchestrator, logger.WithField("component", "sniper"))

	// A single operator wallet can resume sniping across restarts. Multi-user
	// arming happens through the presentation layer at runtime.
	if key := os.Getenv("PRIVATE_KEY"); key != "" {
		rearmOperator(ctx, log, cfg, defaults, client, sniper)
	}

	watcher := chain.NewPairWatcher(client, cfg.Chain.FactoryAddress, cfg.Chain.WETHAddress, logger.WithField("component", "pairs"))
	go watcher.Run(ctx, time.Duration(cfg.Chain.BlockPollSeconds)*time.Second, sniper.HandleNewToken)

	log.WithFields(logrus.Fields{
		"version":  version.String(),
		"chain_id": cfg.Chain.ChainID,
		"database": cfg.Storage.Database,
	}).Info("trade core running")

	<-ctx.Done()
	log.Info("shutting down")

	cache.Close()
	client.Close()
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Close(closeCtx); err != nil {
		log.WithError(err).Warn("mongo disconnect failed")
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// rearmOperator restores the operator's persisted sniper settings so a
// restart does not silently stop an armed sniper. Other users' settings
// survive in the store but stay disarmed until their wallets reattach
// through the presentation layer.
func rearmOperator(ctx context.Context, log *logrus.Entry, cfg *config.Config, defaults domain.TradeDefaults, client *chain.Client, sniper *service.Sniper) {
	operatorID := os.Getenv("OPERATOR_DISCORD_ID")
	if operatorID == "" {
		log.Warn("PRIVATE_KEY set but OPERATOR_DISCORD_ID missing, skipping sniper rearm")
		return
	}

	account, err := chain.NewAccount(client, os.Getenv("PRIVATE_KEY"), cfg.Chain.SwapContract,
		defaults.PriorityFee, approveGasLimit)
	if err != nil {
		log.WithError(err).Warn("operator wallet rejected, skipping sniper rearm")
		return
	}

	persisted, err := sniper.Persisted(ctx)
	if err != nil {
		log.WithError(err).Warn("sniper settings fetch failed")
		return
	}
	log.WithField("stored", len(persisted)).Debug("persisted sniper settings loaded")
	settings := persisted[operatorID]
	if settings == nil || !settings.Sniping {
		return
	}
	if err := sniper.Arm(ctx, operatorID, account, settings); err != nil {
		log.WithError(err).Warn("sniper rearm failed")
		return
	}
	log.WithField("user", operatorID).Info("operator sniper rearmed")
}
