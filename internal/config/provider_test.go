package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dir := t.TempDir()
		v := SetupViper(dir, nil)

		cfg, err := Provider(v)
		require.NoError(t, err)

		assert.Equal(t, dir, cfg.DataDir)
		assert.Equal(t, 5*time.Minute, cfg.Timeout)
		assert.Equal(t, uint64(2), cfg.SponsorshipNonceThreshold)
		assert.Equal(t, 1, cfg.EntropyVersion)
		assert.Equal(t, "bicoaasnap02", cfg.EntropySalt)
		assert.Equal(t, config.StoreDriverFile, cfg.StoreDriver)
		assert.False(t, cfg.AsyncRequests)
		assert.Equal(t, filepath.Join(dir, "chains.toml"), cfg.ChainsFile)
		assert.Contains(t, cfg.Chains, domain.ChainIDMumbai)
	})

	t.Run("environment overrides", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("AAKEYRING_SPONSORSHIP_NONCE_THRESHOLD", "5")
		t.Setenv("AAKEYRING_ASYNC_REQUESTS", "true")
		t.Setenv("AAKEYRING_ENTROPY_SALT", "other-salt")

		cfg, err := Provider(SetupViper(dir, nil))
		require.NoError(t, err)

		assert.Equal(t, uint64(5), cfg.SponsorshipNonceThreshold)
		assert.True(t, cfg.AsyncRequests)
		assert.Equal(t, "other-salt", cfg.EntropySalt)
	})

	t.Run("postgres requires a dsn", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("AAKEYRING_STORE_DRIVER", "postgres")

		_, err := Provider(SetupViper(dir, nil))
		assert.ErrorContains(t, err, "postgres_dsn")
	})

	t.Run("unknown store driver", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("AAKEYRING_STORE_DRIVER", "redis")

		_, err := Provider(SetupViper(dir, nil))
		assert.ErrorContains(t, err, "unknown store driver")
	})
}

func TestLoadChains(t *testing.T) {
	t.Run("missing file yields builtins", func(t *testing.T) {
		chains, err := LoadChains(filepath.Join(t.TempDir(), "chains.toml"))
		require.NoError(t, err)
		assert.Len(t, chains, len(domain.BuiltinChains()))
	})

	t.Run("file overlays and adds chains", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "chains.toml")
		t.Setenv("TEST_BUNDLER_KEY", "secret")
		content := `
[chains.80001]
bundler_url = "https://bundler.example.com/${TEST_BUNDLER_KEY}"

[chains.31337]
name = "anvil"
entry_point = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
factory = "0x1111111111111111111111111111111111111111"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		chains, err := LoadChains(path)
		require.NoError(t, err)

		mumbai := chains[domain.ChainIDMumbai]
		assert.Equal(t, "https://bundler.example.com/secret", mumbai.BundlerURL)
		assert.Equal(t, domain.PreferredFeeToken, mumbai.FeeToken)

		anvil, ok := chains[31337]
		require.True(t, ok)
		assert.Equal(t, "anvil", anvil.Name)
		assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), anvil.Factory)
	})

	t.Run("invalid chain id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chains.toml")
		require.NoError(t, os.WriteFile(path, []byte("[chains.mainnet]\nname = \"x\"\n"), 0644))

		_, err := LoadChains(path)
		assert.ErrorContains(t, err, "invalid chain id")
	})
}
