package domain

import (
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountMethod is a signing capability an account can expose
type AccountMethod string

const (
	MethodPrepareUserOperation AccountMethod = "eth_prepareUserOperation"
	MethodPatchUserOperation   AccountMethod = "eth_patchUserOperation"
	MethodSignUserOperation    AccountMethod = "eth_signUserOperation"

	// EOA signing schemes a contract account can't honour
	MethodSignTransaction AccountMethod = "eth_signTransaction"
	MethodSign            AccountMethod = "eth_sign"
	MethodPersonalSign    AccountMethod = "personal_sign"
	MethodSignTypedDataV1 AccountMethod = "eth_signTypedData_v1"
	MethodSignTypedDataV3 AccountMethod = "eth_signTypedData_v3"
	MethodSignTypedDataV4 AccountMethod = "eth_signTypedData_v4"
)

// AccountTypeERC4337 is the only account type the keyring creates
const AccountTypeERC4337 = "eip155:erc4337"

// Option keys recognised by CreateAccount
const (
	OptionPrivateKey = "privateKey"
	OptionSalt       = "salt"
)

// DefaultAccountMethods is the capability set every new account gets
var DefaultAccountMethods = []AccountMethod{
	MethodPrepareUserOperation,
	MethodPatchUserOperation,
	MethodSignUserOperation,
}

// RequiresEOASignature reports whether the method needs raw ECDSA recovery of
// the account address, which a module-verified smart account can't satisfy
func (m AccountMethod) RequiresEOASignature() bool {
	switch m {
	case MethodSignTransaction, MethodSign, MethodPersonalSign,
		MethodSignTypedDataV1, MethodSignTypedDataV3, MethodSignTypedDataV4:
		return true
	}
	return false
}

// AccountOptions are free-form creation options echoed back to the host
type AccountOptions map[string]any

// Account is the host-visible projection of a wallet
type Account struct {
	ID      string          `json:"id"`
	Address common.Address  `json:"address"`
	Options AccountOptions  `json:"options"`
	Methods []AccountMethod `json:"methods"`
	Type    string          `json:"type"`
}

// Clone returns a copy that shares no slices or maps with a
func (a Account) Clone() Account {
	a.Options = maps.Clone(a.Options)
	a.Methods = slices.Clone(a.Methods)
	return a
}

// Wallet is the keyring's record for one smart account and its owner key
type Wallet struct {
	Account    Account         `json:"account"`
	Owner      common.Address  `json:"admin"`
	PrivateKey string          `json:"privateKey"`
	Chains     map[uint64]bool `json:"chains"`
	Salt       common.Hash     `json:"salt"`
	// Index is the factory deployment index the address was derived at
	Index      common.Hash     `json:"index"`
	InitCode   hexutil.Bytes   `json:"initCode"`
}

// Clone returns a deep copy of w
func (w *Wallet) Clone() *Wallet {
	cp := *w
	cp.Account = w.Account.Clone()
	cp.Chains = maps.Clone(w.Chains)
	cp.InitCode = common.CopyBytes(w.InitCode)
	return &cp
}
