package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresRPCEndpoint(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "http://localhost:8545")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.Chain.ChainID)
	assert.Equal(t, uint64(5), cfg.Cache.OnchainStalenessBlocks)
	assert.Equal(t, int64(60_000), cfg.Cache.ThirdPartyStalenessMS)
	assert.Equal(t, 3, cfg.Upstream.FetchMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.FetchBackoff())
	assert.Equal(t, uint64(1_000_000), cfg.Trade.DefaultGasLimit)
	assert.Equal(t, 5*time.Minute, cfg.ConfirmTimeout())
	assert.Equal(t, "asapbot", cfg.Storage.Database)
	assert.Equal(t, "bot:events", cfg.Notify.RedisChannel)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "http://localhost:8545")
	t.Setenv("CHAIN_ID", "5")
	t.Setenv("FETCH_TRY_COUNT", "7")
	t.Setenv("MONGO_DATABASE", "testbot")
	t.Setenv("SWAP_CONTRACT", "0xswap")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(5), cfg.Chain.ChainID)
	assert.Equal(t, 7, cfg.Upstream.FetchMaxAttempts)
	assert.Equal(t, "testbot", cfg.Storage.Database)
	assert.Equal(t, "0xswap", cfg.Chain.SwapContract)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "http://localhost:8545")

	path := filepath.Join(t.TempDir(), "bot.yaml")
	data := []byte("cache:\n  onchain_staleness_blocks: 12\ntrade:\n  confirm_timeout_seconds: 30\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(12), cfg.Cache.OnchainStalenessBlocks)
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout())
}

func TestLoadMissingYAMLFileIsSkipped(t *testing.T) {
	t.Setenv("RPC_ENDPOINT", "http://localhost:8545")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.Cache.OnchainStalenessBlocks)
}

func TestDefaultPriorityFee(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, big.NewInt(1_000_000_000), cfg.DefaultPriorityFee())

	cfg.Trade.DefaultPriorityFeeWei = "2000000000"
	assert.Equal(t, big.NewInt(2_000_000_000), cfg.DefaultPriorityFee())

	cfg.Trade.DefaultPriorityFeeWei = "garbage"
	assert.Equal(t, big.NewInt(1_000_000_000), cfg.DefaultPriorityFee())
}
