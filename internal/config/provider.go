package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the keyring reads
const EnvPrefix = "AAKEYRING"

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	dataDir := v.GetString("data_dir")
	if dataDir == "" {
		var err error
		dataDir, err = DefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
	}

	cfg := &config.RuntimeConfig{
		DataDir:                   dataDir,
		RPCURL:                    v.GetString("rpc_url"),
		Debug:                     v.GetBool("debug"),
		NonInteractive:            v.GetBool("non_interactive"),
		AutoApprove:               v.GetBool("yes"),
		JSON:                      v.GetBool("json"),
		Timeout:                   v.GetDuration("timeout"),
		AsyncRequests:             v.GetBool("async_requests"),
		SponsorshipNonceThreshold: v.GetUint64("sponsorship_nonce_threshold"),
		ReceiptPollInterval:       v.GetDuration("receipt_poll_interval"),
		EntropyVersion:            v.GetInt("entropy.version"),
		EntropySalt:               v.GetString("entropy.salt"),
		StoreDriver:               config.StoreDriver(strings.ToLower(v.GetString("store.driver"))),
		PostgresDSN:               v.GetString("store.postgres_dsn"),
		ListenAddr:                v.GetString("listen_addr"),
		ChainsFile:                v.GetString("chains_file"),
	}

	switch cfg.StoreDriver {
	case config.StoreDriverFile:
	case config.StoreDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("store.postgres_dsn is required when store.driver is postgres")
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.ChainsFile == "" {
		cfg.ChainsFile = filepath.Join(dataDir, "chains.toml")
	}
	chains, err := LoadChains(cfg.ChainsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load chains: %w", err)
	}
	cfg.Chains = chains

	return cfg, nil
}

// DefaultDataDir returns ~/.aakeyring
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".aakeyring"), nil
}

// SetupViper creates and configures a viper instance
func SetupViper(dataDir string, cmd *cobra.Command) *viper.Viper {
	LoadEnvFiles(dataDir)

	v := viper.New()

	// Set up config file
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dataDir)

	// Set up environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("rpc_url", "https://rpc-mumbai.maticvigil.com")
	v.SetDefault("timeout", "5m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("yes", false)
	v.SetDefault("async_requests", false)
	v.SetDefault("sponsorship_nonce_threshold", 2)
	v.SetDefault("receipt_poll_interval", "2s")
	v.SetDefault("entropy.version", 1)
	v.SetDefault("entropy.salt", "bicoaasnap02")
	v.SetDefault("store.driver", string(config.StoreDriverFile))
	v.SetDefault("listen_addr", "127.0.0.1:8545")

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if !f.Changed {
				return
			}
			v.Set(flagKey(f.Name), f.Value.String())
		})
	}

	return v
}

// flagKey maps a flag name to its viper key (non-interactive -> non_interactive)
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
