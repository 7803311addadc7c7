package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

var endpointPattern = regexp.MustCompile(`^(https?://)?[\w.-]+(:\d{2,6})?(/[/\w .-]*)?$`)

// ResolvedChain is every setting the pipeline needs for one chain
type ResolvedChain struct {
	ChainID              uint64
	EntryPoint           common.Address
	Account              erc4337.SmartAccount
	BundlerURL           string
	PaymasterURL         string
	FeeToken             common.Address
	SponsorshipPaymaster common.Address
	TokenPaymaster       common.Address

	// Local verifying paymaster, set when both custom fields are configured
	CustomPaymasterKey     string
	CustomPaymasterAddress common.Address
}

// ChainRegistry resolves per-chain settings from stored overrides and built-in defaults
type ChainRegistry struct {
	state    *KeyringState
	chains   ChainReader
	defaults map[uint64]domain.ChainDefaults
}

// NewChainRegistry creates a new ChainRegistry use case
func NewChainRegistry(state *KeyringState, chains ChainReader, cfg *config.RuntimeConfig) *ChainRegistry {
	defaults := cfg.Chains
	if defaults == nil {
		defaults = domain.BuiltinChains()
	}
	return &ChainRegistry{
		state:    state,
		chains:   chains,
		defaults: defaults,
	}
}

// ActiveChainID returns the id of the chain the reader is connected to
func (r *ChainRegistry) ActiveChainID(ctx context.Context) (uint64, error) {
	chainID, err := r.chains.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return chainID, nil
}

// SetConfig merges partial into the active chain's overrides and returns the result
func (r *ChainRegistry) SetConfig(ctx context.Context, partial domain.ChainConfig) (*domain.ChainConfig, error) {
	if err := ValidateChainConfig(partial); err != nil {
		return nil, err
	}
	chainID, err := r.ActiveChainID(ctx)
	if err != nil {
		return nil, err
	}
	return r.SetChainConfig(ctx, chainID, partial)
}

// SetChainConfig merges partial into the overrides stored for chainID
func (r *ChainRegistry) SetChainConfig(ctx context.Context, chainID uint64, partial domain.ChainConfig) (*domain.ChainConfig, error) {
	if err := ValidateChainConfig(partial); err != nil {
		return nil, err
	}

	var merged domain.ChainConfig
	err := r.state.Update(ctx, func(state *domain.KeyringState) error {
		merged = state.Config[chainID].Merge(partial)
		state.Config[chainID] = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// Overrides returns the stored overrides for every chain
func (r *ChainRegistry) Overrides(ctx context.Context) (map[uint64]domain.ChainConfig, error) {
	state, err := r.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]domain.ChainConfig, len(state.Config))
	for id, c := range state.Config {
		out[id] = c
	}
	return out, nil
}

// Defaults returns the built-in table
func (r *ChainRegistry) Defaults() map[uint64]domain.ChainDefaults {
	return r.defaults
}

// IsSupported reports whether chainID has built-in defaults or stored overrides
func (r *ChainRegistry) IsSupported(ctx context.Context, chainID uint64) (bool, error) {
	if _, ok := r.defaults[chainID]; ok {
		return true, nil
	}
	state, err := r.state.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	_, ok := state.Config[chainID]
	return ok, nil
}

// Resolve returns override ?? default for field. Unsupported chains fail with
// UnsupportedChainError, supported chains missing the value with ErrConfig.
func (r *ChainRegistry) Resolve(ctx context.Context, chainID uint64, field domain.ChainField) (string, error) {
	state, err := r.state.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	override, hasOverride := state.Config[chainID]
	if v := override.Lookup(field); v != "" {
		return v, nil
	}
	defaults, hasDefaults := r.defaults[chainID]
	if v := defaults.Lookup(field); v != "" {
		return v, nil
	}
	if !hasOverride && !hasDefaults {
		return "", &domain.UnsupportedChainError{ChainID: chainID}
	}
	if v := deterministicDeployments.Lookup(field); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: no %s configured for chain %d", domain.ErrConfig, field, chainID)
}

// deterministicDeployments covers contracts deployed at the same address on
// every chain, used for chains known only through overrides
var deterministicDeployments = func() domain.ChainDefaults {
	d := domain.BuiltinChains()[domain.ChainIDSepolia]
	return domain.ChainDefaults{
		Implementation:       d.Implementation,
		OwnershipModule:      d.OwnershipModule,
		FallbackHandler:      d.FallbackHandler,
		SponsorshipPaymaster: d.SponsorshipPaymaster,
		TokenPaymaster:       d.TokenPaymaster,
		FeeToken:             d.FeeToken,
	}
}()

// ResolveChain resolves every pipeline setting for chainID. The entry point and
// factory are required; endpoints are left empty when unset.
func (r *ChainRegistry) ResolveChain(ctx context.Context, chainID uint64) (*ResolvedChain, error) {
	supported, err := r.IsSupported(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, &domain.UnsupportedChainError{ChainID: chainID}
	}

	required := func(field domain.ChainField) (common.Address, error) {
		v, err := r.Resolve(ctx, chainID, field)
		if err != nil {
			return common.Address{}, err
		}
		return common.HexToAddress(v), nil
	}
	optional := func(field domain.ChainField) (string, error) {
		v, err := r.Resolve(ctx, chainID, field)
		if errors.Is(err, domain.ErrConfig) {
			return "", nil
		}
		return v, err
	}

	chain := &ResolvedChain{ChainID: chainID}
	if chain.EntryPoint, err = required(domain.FieldEntryPoint); err != nil {
		return nil, err
	}
	if chain.Account.Factory, err = required(domain.FieldFactory); err != nil {
		return nil, err
	}
	if chain.Account.Implementation, err = required(domain.FieldImplementation); err != nil {
		return nil, err
	}
	if chain.Account.OwnershipModule, err = required(domain.FieldOwnershipModule); err != nil {
		return nil, err
	}
	if chain.Account.FallbackHandler, err = required(domain.FieldFallbackHandler); err != nil {
		return nil, err
	}
	if chain.FeeToken, err = required(domain.FieldFeeToken); err != nil {
		return nil, err
	}
	if chain.SponsorshipPaymaster, err = required(domain.FieldPaymaster); err != nil {
		return nil, err
	}
	if chain.TokenPaymaster, err = required(domain.FieldTokenPaymaster); err != nil {
		return nil, err
	}
	if chain.BundlerURL, err = optional(domain.FieldBundlerURL); err != nil {
		return nil, err
	}
	if chain.PaymasterURL, err = optional(domain.FieldPaymasterURL); err != nil {
		return nil, err
	}

	state, err := r.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if override := state.Config[chainID]; override.HasCustomPaymaster() {
		chain.CustomPaymasterKey = override.CustomVerifyingPaymasterPK
		chain.CustomPaymasterAddress = common.HexToAddress(override.CustomVerifyingPaymasterAddress)
	}

	return chain, nil
}

// ValidateChainConfig checks every present field of cfg
func ValidateChainConfig(cfg domain.ChainConfig) error {
	addresses := []struct {
		field string
		value string
	}{
		{"simpleAccountFactory", cfg.SimpleAccountFactory},
		{"entryPoint", cfg.EntryPoint},
		{"customVerifyingPaymasterAddress", cfg.CustomVerifyingPaymasterAddress},
		{"feeToken", cfg.FeeToken},
	}
	for _, a := range addresses {
		if a.value != "" && !IsChecksummedAddress(a.value) {
			return domain.NewValidationError(a.field, "%q is not a valid address", a.value)
		}
	}

	endpoints := []struct {
		field string
		value string
	}{
		{"bundlerUrl", cfg.BundlerURL},
		{"paymasterUrl", cfg.PaymasterURL},
	}
	for _, e := range endpoints {
		if e.value != "" && !endpointPattern.MatchString(e.value) {
			return domain.NewValidationError(e.field, "%q is not a valid URL", e.value)
		}
	}

	if cfg.CustomVerifyingPaymasterPK != "" {
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.CustomVerifyingPaymasterPK, "0x")); err != nil {
			return domain.NewValidationError("customVerifyingPaymasterPK", "not a valid private key")
		}
	}
	return nil
}

// IsChecksummedAddress accepts 0x-prefixed addresses that are all lower case,
// all upper case, or carry a correct EIP-55 checksum
func IsChecksummedAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}
