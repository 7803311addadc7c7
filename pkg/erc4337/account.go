package erc4337

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const factoryABIJSON = `[
	{"type":"function","name":"deployCounterFactualAccount","stateMutability":"nonpayable",
	 "inputs":[{"name":"moduleSetupContract","type":"address"},{"name":"moduleSetupData","type":"bytes"},{"name":"index","type":"uint256"}],
	 "outputs":[{"name":"proxy","type":"address"}]},
	{"type":"function","name":"getAddressForCounterFactualAccount","stateMutability":"view",
	 "inputs":[{"name":"moduleSetupContract","type":"address"},{"name":"moduleSetupData","type":"bytes"},{"name":"index","type":"uint256"}],
	 "outputs":[{"name":"_account","type":"address"}]}
]`

const accountABIJSON = `[
	{"type":"function","name":"execute_ncC","stateMutability":"nonpayable",
	 "inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],
	 "outputs":[]}
]`

const ownershipModuleABIJSON = `[
	{"type":"function","name":"initForSmartAccount","stateMutability":"nonpayable",
	 "inputs":[{"name":"eoaOwner","type":"address"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

const entryPointABIJSON = `[
	{"type":"function","name":"getNonce","stateMutability":"view",
	 "inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],
	 "outputs":[{"name":"nonce","type":"uint256"}]}
]`

var (
	factoryABI         = mustABI(factoryABIJSON)
	accountABI         = mustABI(accountABIJSON)
	ownershipModuleABI = mustABI(ownershipModuleABIJSON)
	entryPointABI      = mustABI(entryPointABIJSON)
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// SmartAccount describes how the account factory deploys an ECDSA-owned smart account
type SmartAccount struct {
	Factory         common.Address
	Implementation  common.Address
	OwnershipModule common.Address
	FallbackHandler common.Address
}

// ModuleSetupData is the ownership module call that registers owner on the new account
func (a SmartAccount) ModuleSetupData(owner common.Address) ([]byte, error) {
	return ownershipModuleABI.Pack("initForSmartAccount", owner)
}

// EncodeGetAddress encodes the factory view call returning the address that
// deployCounterFactualAccount creates for owner at index
func (a SmartAccount) EncodeGetAddress(owner common.Address, index common.Hash) ([]byte, error) {
	setup, err := a.ModuleSetupData(owner)
	if err != nil {
		return nil, err
	}
	call, err := factoryABI.Pack("getAddressForCounterFactualAccount", a.OwnershipModule, setup, new(big.Int).SetBytes(index[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to encode address query: %w", err)
	}
	return call, nil
}

// DecodeAddress decodes the return data of getAddressForCounterFactualAccount
func DecodeAddress(data []byte) (common.Address, error) {
	out, err := factoryABI.Unpack("getAddressForCounterFactualAccount", data)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", out[0])
	}
	return addr, nil
}

// InitCode returns factory ++ deployCounterFactualAccount(module, setupData, index)
func (a SmartAccount) InitCode(owner common.Address, index common.Hash) ([]byte, error) {
	setup, err := a.ModuleSetupData(owner)
	if err != nil {
		return nil, err
	}
	call, err := factoryABI.Pack("deployCounterFactualAccount", a.OwnershipModule, setup, new(big.Int).SetBytes(index[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to encode factory call: %w", err)
	}
	return append(a.Factory.Bytes(), call...), nil
}

// EncodeExecute encodes a single call executed by the smart account
func EncodeExecute(to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	if data == nil {
		data = []byte{}
	}
	return accountABI.Pack("execute_ncC", to, value, data)
}

// EncodeGetNonce encodes EntryPoint.getNonce(sender, key)
func EncodeGetNonce(sender common.Address, key *big.Int) ([]byte, error) {
	if key == nil {
		key = new(big.Int)
	}
	return entryPointABI.Pack("getNonce", sender, key)
}

// DecodeGetNonce decodes the return data of EntryPoint.getNonce
func DecodeGetNonce(data []byte) (*big.Int, error) {
	out, err := entryPointABI.Unpack("getNonce", data)
	if err != nil {
		return nil, err
	}
	nonce, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected nonce type %T", out[0])
	}
	return nonce, nil
}
