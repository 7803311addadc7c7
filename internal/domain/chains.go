package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

// ChainConfig holds per-chain overrides. Empty fields fall back to ChainDefaults.
type ChainConfig struct {
	SimpleAccountFactory            string `json:"simpleAccountFactory,omitempty" toml:"simple_account_factory" yaml:"simpleAccountFactory,omitempty"`
	EntryPoint                      string `json:"entryPoint,omitempty" toml:"entry_point" yaml:"entryPoint,omitempty"`
	BundlerURL                      string `json:"bundlerUrl,omitempty" toml:"bundler_url" yaml:"bundlerUrl,omitempty"`
	CustomVerifyingPaymasterPK      string `json:"customVerifyingPaymasterPK,omitempty" toml:"custom_verifying_paymaster_pk" yaml:"customVerifyingPaymasterPK,omitempty"`
	CustomVerifyingPaymasterAddress string `json:"customVerifyingPaymasterAddress,omitempty" toml:"custom_verifying_paymaster_address" yaml:"customVerifyingPaymasterAddress,omitempty"`
	PaymasterURL                    string `json:"paymasterUrl,omitempty" toml:"paymaster_url" yaml:"paymasterUrl,omitempty"`
	FeeToken                        string `json:"feeToken,omitempty" toml:"fee_token" yaml:"feeToken,omitempty"`
}

// Merge returns c with every non-empty field of partial applied on top
func (c ChainConfig) Merge(partial ChainConfig) ChainConfig {
	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&c.SimpleAccountFactory, partial.SimpleAccountFactory)
	merge(&c.EntryPoint, partial.EntryPoint)
	merge(&c.BundlerURL, partial.BundlerURL)
	merge(&c.CustomVerifyingPaymasterPK, partial.CustomVerifyingPaymasterPK)
	merge(&c.CustomVerifyingPaymasterAddress, partial.CustomVerifyingPaymasterAddress)
	merge(&c.PaymasterURL, partial.PaymasterURL)
	merge(&c.FeeToken, partial.FeeToken)
	return c
}

// HasCustomPaymaster reports whether a local verifying paymaster is configured
func (c ChainConfig) HasCustomPaymaster() bool {
	return c.CustomVerifyingPaymasterPK != "" && c.CustomVerifyingPaymasterAddress != ""
}

// ChainField names a resolvable chain setting
type ChainField string

const (
	FieldFactory         ChainField = "simpleAccountFactory"
	FieldEntryPoint      ChainField = "entryPoint"
	FieldBundlerURL      ChainField = "bundlerUrl"
	FieldPaymasterURL    ChainField = "paymasterUrl"
	FieldFeeToken        ChainField = "feeToken"
	FieldImplementation  ChainField = "implementation"
	FieldOwnershipModule ChainField = "ecdsaModule"
	FieldFallbackHandler ChainField = "fallbackHandler"
	FieldPaymaster       ChainField = "sponsorshipPaymaster"
	FieldTokenPaymaster  ChainField = "tokenPaymaster"
)

// ChainDefaults is the built-in deployment table for one chain
type ChainDefaults struct {
	Name                 string         `toml:"name"`
	EntryPoint           common.Address `toml:"entry_point"`
	Factory              common.Address `toml:"factory"`
	Implementation       common.Address `toml:"implementation"`
	OwnershipModule      common.Address `toml:"ecdsa_module"`
	FallbackHandler      common.Address `toml:"fallback_handler"`
	SponsorshipPaymaster common.Address `toml:"sponsorship_paymaster"`
	TokenPaymaster       common.Address `toml:"token_paymaster"`
	FeeToken             common.Address `toml:"fee_token"`
	BundlerURL           string         `toml:"bundler_url"`
	PaymasterURL         string         `toml:"paymaster_url"`
}

// Lookup returns the default value of field, or "" when the table has none
func (d ChainDefaults) Lookup(field ChainField) string {
	addr := func(a common.Address) string {
		if a == (common.Address{}) {
			return ""
		}
		return a.Hex()
	}
	switch field {
	case FieldFactory:
		return addr(d.Factory)
	case FieldEntryPoint:
		return addr(d.EntryPoint)
	case FieldBundlerURL:
		return d.BundlerURL
	case FieldPaymasterURL:
		return d.PaymasterURL
	case FieldFeeToken:
		return addr(d.FeeToken)
	case FieldImplementation:
		return addr(d.Implementation)
	case FieldOwnershipModule:
		return addr(d.OwnershipModule)
	case FieldFallbackHandler:
		return addr(d.FallbackHandler)
	case FieldPaymaster:
		return addr(d.SponsorshipPaymaster)
	case FieldTokenPaymaster:
		return addr(d.TokenPaymaster)
	}
	return ""
}

// Lookup returns the override value of field, or ""
func (c ChainConfig) Lookup(field ChainField) string {
	switch field {
	case FieldFactory:
		return c.SimpleAccountFactory
	case FieldEntryPoint:
		return c.EntryPoint
	case FieldBundlerURL:
		return c.BundlerURL
	case FieldPaymasterURL:
		return c.PaymasterURL
	case FieldFeeToken:
		return c.FeeToken
	}
	return ""
}

// Well-known chains
const (
	ChainIDPolygon uint64 = 137
	ChainIDMumbai  uint64 = 80001
	ChainIDSepolia uint64 = 11155111
)

var (
	defaultFactory              = common.HexToAddress("0x000000a56Aaca3e9a4C479ea6b6CD0DbcB6634F5")
	defaultImplementation       = common.HexToAddress("0x0000002512019Dafb59528B82CB92D3c5D2423aC")
	defaultOwnershipModule      = common.HexToAddress("0x0000001c5b32F37F5beA87BDD5374eB2aC54eA8e")
	defaultFallbackHandler      = common.HexToAddress("0x0bBa6d96BD616BedC6BFaa341742FD43c60b83C1")
	defaultSponsorshipPaymaster = common.HexToAddress("0x00000f79B7FaF42EEBAdbA19aCc07cD08Af44789")
	defaultTokenPaymaster       = common.HexToAddress("0x00000f7365cA6C59A2C93719ad53d567ed49c14C")

	// PreferredFeeToken is the USDC deployment the ERC-20 paymaster charges by default
	PreferredFeeToken = common.HexToAddress("0xdA5289fCAAF71d52a80A254da614a192b693e977")
)

func biconomyDefaults(name, bundlerURL, paymasterURL string) ChainDefaults {
	return ChainDefaults{
		Name:                 name,
		EntryPoint:           erc4337.EntryPointV06,
		Factory:              defaultFactory,
		Implementation:       defaultImplementation,
		OwnershipModule:      defaultOwnershipModule,
		FallbackHandler:      defaultFallbackHandler,
		SponsorshipPaymaster: defaultSponsorshipPaymaster,
		TokenPaymaster:       defaultTokenPaymaster,
		FeeToken:             PreferredFeeToken,
		BundlerURL:           bundlerURL,
		PaymasterURL:         paymasterURL,
	}
}

// BuiltinChains returns the hard-coded per-chain defaults.
// ${BICONOMY_BUNDLER_KEY} and ${BICONOMY_PAYMASTER_KEY} are expanded from the environment.
func BuiltinChains() map[uint64]ChainDefaults {
	return map[uint64]ChainDefaults{
		ChainIDSepolia: biconomyDefaults("sepolia",
			"https://bundler.biconomy.io/api/v2/11155111/${BICONOMY_BUNDLER_KEY}",
			"https://paymaster.biconomy.io/api/v1/11155111/${BICONOMY_PAYMASTER_KEY}"),
		ChainIDPolygon: biconomyDefaults("polygon",
			"https://bundler.biconomy.io/api/v2/137/${BICONOMY_BUNDLER_KEY}",
			"https://paymaster.biconomy.io/api/v1/137/${BICONOMY_PAYMASTER_KEY}"),
		ChainIDMumbai: biconomyDefaults("mumbai",
			"https://bundler.biconomy.io/api/v2/80001/${BICONOMY_BUNDLER_KEY}",
			"https://paymaster.biconomy.io/api/v1/80001/${BICONOMY_PAYMASTER_KEY}"),
	}
}
