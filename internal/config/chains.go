package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/samber/lo"
)

// chainsFile is the on-disk shape of chains.toml:
//
//	[chains.11155111]
//	bundler_url = "https://bundler.example.com/${BUNDLER_KEY}"
type chainsFile struct {
	Chains map[string]domain.ChainDefaults `toml:"chains"`
}

// LoadEnvFiles loads .env files from the data directory and the working directory.
// Variables already set in the environment win.
func LoadEnvFiles(dataDir string) {
	envFiles := []string{
		filepath.Join(dataDir, ".env"),
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

// LoadChains returns the built-in chain table with entries from path layered on top.
// A missing file is not an error. Zero-valued fields in the file keep the built-in value.
func LoadChains(path string) (map[uint64]domain.ChainDefaults, error) {
	chains := domain.BuiltinChains()

	if _, err := os.Stat(path); err == nil {
		var raw chainsFile
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for key, entry := range raw.Chains {
			chainID, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid chain id %q in %s", key, path)
			}
			chains[chainID] = overlayDefaults(chains[chainID], entry)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	for id, c := range chains {
		c.BundlerURL = os.ExpandEnv(c.BundlerURL)
		c.PaymasterURL = os.ExpandEnv(c.PaymasterURL)
		chains[id] = c
	}
	return chains, nil
}

func overlayDefaults(base, over domain.ChainDefaults) domain.ChainDefaults {
	base.Name = lo.CoalesceOrEmpty(over.Name, base.Name)
	base.EntryPoint = lo.CoalesceOrEmpty(over.EntryPoint, base.EntryPoint)
	base.Factory = lo.CoalesceOrEmpty(over.Factory, base.Factory)
	base.Implementation = lo.CoalesceOrEmpty(over.Implementation, base.Implementation)
	base.OwnershipModule = lo.CoalesceOrEmpty(over.OwnershipModule, base.OwnershipModule)
	base.FallbackHandler = lo.CoalesceOrEmpty(over.FallbackHandler, base.FallbackHandler)
	base.SponsorshipPaymaster = lo.CoalesceOrEmpty(over.SponsorshipPaymaster, base.SponsorshipPaymaster)
	base.TokenPaymaster = lo.CoalesceOrEmpty(over.TokenPaymaster, base.TokenPaymaster)
	base.FeeToken = lo.CoalesceOrEmpty(over.FeeToken, base.FeeToken)
	base.BundlerURL = lo.CoalesceOrEmpty(over.BundlerURL, base.BundlerURL)
	base.PaymasterURL = lo.CoalesceOrEmpty(over.PaymasterURL, base.PaymasterURL)
	return base
}
