// Package config loads the bot configuration from an optional YAML file with
// environment-variable overrides. A .env file is honored when present.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration.
type Config struct {
	Chain    ChainConfig    `yaml:"chain"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Trade    TradeConfig    `yaml:"trade"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

// ChainConfig covers the RPC endpoint and the contracts the bot talks to.
type ChainConfig struct {
	RPCEndpoint    string `yaml:"rpc_endpoint"`
	ChainID        int64  `yaml:"chain_id"`
	SwapContract   string `yaml:"swap_contract"`
	FactoryAddress string `yaml:"factory_address"`
	WETHAddress    string `yaml:"weth_address"`
	TeamFinance    string `yaml:"team_finance_address"`
	Unicrypt       string `yaml:"unicrypt_address"`
	// BlockPollSeconds controls the chain-head tracker.
	BlockPollSeconds int `yaml:"block_poll_seconds"`
}

// UpstreamConfig covers the HTTP data providers and the shared retry policy.
type UpstreamConfig struct {
	ExplorerBaseURL string `yaml:"explorer_base_url"`
	ExplorerAPIKey  string `yaml:"explorer_api_key"`
	PriceBaseURL    string `yaml:"price_base_url"`
	HoneypotBaseURL string `yaml:"honeypot_base_url"`

	FetchMaxAttempts int `yaml:"fetch_max_attempts"`
	FetchBackoffMS   int `yaml:"fetch_backoff_ms"`
}

// CacheConfig holds the staleness windows of the token cache.
type CacheConfig struct {
	OnchainStalenessBlocks uint64 `yaml:"onchain_staleness_blocks"`
	ThirdPartyStalenessMS  int64  `yaml:"third_party_staleness_ms"`
}

// TradeConfig holds pipeline defaults.
type TradeConfig struct {
	DefaultGasLimit       uint64 `yaml:"default_gas_limit"`
	DefaultPriorityFeeWei string `yaml:"default_priority_fee_wei"`
	ConfirmTimeoutSeconds int    `yaml:"confirm_timeout_seconds"`
}

// StorageConfig points at the document store and the session cache.
type StorageConfig struct {
	MongoURI  string `yaml:"mongo_uri"`
	Database  string `yaml:"database"`
	RedisAddr string `yaml:"redis_addr"`
}

// NotifyConfig points at the presentation gateway.
type NotifyConfig struct {
	GatewayURL   string `yaml:"gateway_url"`
	JWTSecret    string `yaml:"jwt_secret"`
	RedisChannel string `yaml:"redis_channel"`
}

// LogConfig controls log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file at path (skipped when path is empty or missing),
// applies env overrides, and fills defaults. A .env file is loaded first when
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %q: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if cfg.Chain.RPCEndpoint == "" {
		return nil, fmt.Errorf("config: RPC_ENDPOINT is required")
	}
	return &cfg, nil
}

// FetchBackoff returns the retry interval as a duration.
func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.Upstream.FetchBackoffMS) * time.Millisecond
}

// ConfirmTimeout returns the confirmation-wait deadline.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Trade.ConfirmTimeoutSeconds) * time.Second
}

// DefaultPriorityFee parses the configured priority fee, falling back to
// 1 gwei on a bad value.
func (c *Config) DefaultPriorityFee() *big.Int {
	if fee, ok := new(big.Int).SetString(c.Trade.DefaultPriorityFeeWei, 10); ok && fee.Sign() > 0 {
		return fee
	}
	return big.NewInt(1_000_000_000)
}

func applyEnvOverrides(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Chain.RPCEndpoint, "RPC_ENDPOINT")
	set(&cfg.Chain.SwapContract, "SWAP_CONTRACT")
	set(&cfg.Chain.FactoryAddress, "FACTORY_ADDRESS")
	set(&cfg.Chain.WETHAddress, "WETH_ADDRESS")
	set(&cfg.Chain.TeamFinance, "TEAM_FINANCE_ADDRESS")
	set(&cfg.Chain.Unicrypt, "UNICRYPT_ADDRESS")
	set(&cfg.Upstream.ExplorerBaseURL, "EXPLORER_BASE_URL")
	set(&cfg.Upstream.ExplorerAPIKey, "EXPLORER_API_KEY")
	set(&cfg.Upstream.PriceBaseURL, "PRICE_BASE_URL")
	set(&cfg.Upstream.HoneypotBaseURL, "HONEYPOT_BASE_URL")
	set(&cfg.Storage.MongoURI, "MONGO_URI")
	set(&cfg.Storage.Database, "MONGO_DATABASE")
	set(&cfg.Storage.RedisAddr, "REDIS_ADDR")
	set(&cfg.Notify.GatewayURL, "GATEWAY_URL")
	set(&cfg.Notify.JWTSecret, "GATEWAY_JWT_SECRET")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = id
		}
	}
	if v := os.Getenv("FETCH_TRY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upstream.FetchMaxAttempts = n
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Chain.ChainID == 0 {
		cfg.Chain.ChainID = 1
	}
	if cfg.Chain.BlockPollSeconds <= 0 {
		cfg.Chain.BlockPollSeconds = 6
	}
	if cfg.Upstream.ExplorerBaseURL == "" {
		cfg.Upstream.ExplorerBaseURL = "https://api.etherscan.io/api"
	}
	if cfg.Upstream.PriceBaseURL == "" {
		cfg.Upstream.PriceBaseURL = "https://api.dexscreener.com"
	}
	if cfg.Upstream.HoneypotBaseURL == "" {
		cfg.Upstream.HoneypotBaseURL = "https://api.honeypot.is"
	}
	if cfg.Upstream.FetchMaxAttempts <= 0 {
		cfg.Upstream.FetchMaxAttempts = 3
	}
	if cfg.Upstream.FetchBackoffMS <= 0 {
		cfg.Upstream.FetchBackoffMS = 100
	}
	if cfg.Cache.OnchainStalenessBlocks == 0 {
		cfg.Cache.OnchainStalenessBlocks = 5
	}
	if cfg.Cache.ThirdPartyStalenessMS == 0 {
		cfg.Cache.ThirdPartyStalenessMS = 60_000
	}
	if cfg.Trade.DefaultGasLimit == 0 {
		cfg.Trade.DefaultGasLimit = 1_000_000
	}
	if cfg.Trade.ConfirmTimeoutSeconds <= 0 {
		cfg.Trade.ConfirmTimeoutSeconds = 300
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = "asapbot"
	}
	if cfg.Notify.RedisChannel == "" {
		cfg.Notify.RedisChannel = "bot:events"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
