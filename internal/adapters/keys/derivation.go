package keys

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/tyler-smith/go-bip39"
)

// BasePath is the derivation path prefix; the wallet index is appended
const BasePath = "m/44'/60'/0'/0/%d"

// DeriverAdapter implements KeyDeriver with BIP-39 mnemonics and BIP-32 paths
type DeriverAdapter struct{}

// NewDeriverAdapter creates a new DeriverAdapter
func NewDeriverAdapter() *DeriverAdapter {
	return &DeriverAdapter{}
}

// FromPrivateKey parses a hex encoded secp256k1 secret
func (d *DeriverAdapter) FromPrivateKey(hexKey string) (*usecase.DerivedKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, domain.NewValidationError("privateKey", "invalid private key")
	}
	return derived(key), nil
}

// FromSeed treats seed as mnemonic entropy and derives m/44'/60'/0'/0/index
func (d *DeriverAdapter) FromSeed(seed []byte, index uint32) (*usecase.DerivedKey, error) {
	mnemonic, err := bip39.NewMnemonic(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build mnemonic from entropy: %w", err)
	}
	return FromMnemonic(mnemonic, index)
}

// FromMnemonic derives the key at index from a BIP-39 phrase with no passphrase
func FromMnemonic(mnemonic string, index uint32) (*usecase.DerivedKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	path, err := accounts.ParseDerivationPath(fmt.Sprintf(BasePath, index))
	if err != nil {
		return nil, err
	}

	child := master
	for _, n := range path {
		child, err = child.Derive(n)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", path, err)
		}
	}

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	key, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, err
	}
	return derived(key), nil
}

func derived(key *ecdsa.PrivateKey) *usecase.DerivedKey {
	return &usecase.DerivedKey{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

var _ usecase.KeyDeriver = (*DeriverAdapter)(nil)
