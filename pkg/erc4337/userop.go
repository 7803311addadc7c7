package erc4337

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// EntryPointV06 is the canonical EntryPoint v0.6 deployment, identical on every chain
var EntryPointV06 = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

// UserOperation is an EntryPoint v0.6 user operation in its JSON-RPC encoding
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

var (
	addressType = mustType("address")
	uint256Type = mustType("uint256")
	uint48Type  = mustType("uint48")
	bytes32Type = mustType("bytes32")
	bytesType   = mustType("bytes")

	userOpPackArgs = abi.Arguments{
		{Name: "sender", Type: addressType},
		{Name: "nonce", Type: uint256Type},
		{Name: "initCodeHash", Type: bytes32Type},
		{Name: "callDataHash", Type: bytes32Type},
		{Name: "callGasLimit", Type: uint256Type},
		{Name: "verificationGasLimit", Type: uint256Type},
		{Name: "preVerificationGas", Type: uint256Type},
		{Name: "maxFeePerGas", Type: uint256Type},
		{Name: "maxPriorityFeePerGas", Type: uint256Type},
		{Name: "paymasterAndDataHash", Type: bytes32Type},
	}

	userOpHashArgs = abi.Arguments{
		{Name: "userOpHash", Type: bytes32Type},
		{Name: "entryPoint", Type: addressType},
		{Name: "chainId", Type: uint256Type},
	}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Copy returns a deep copy of the operation
func (op *UserOperation) Copy() *UserOperation {
	cp := &UserOperation{
		Sender:               op.Sender,
		Nonce:                copyBig(op.Nonce),
		InitCode:             common.CopyBytes(op.InitCode),
		CallData:             common.CopyBytes(op.CallData),
		CallGasLimit:         copyBig(op.CallGasLimit),
		VerificationGasLimit: copyBig(op.VerificationGasLimit),
		PreVerificationGas:   copyBig(op.PreVerificationGas),
		MaxFeePerGas:         copyBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: copyBig(op.MaxPriorityFeePerGas),
		PaymasterAndData:     common.CopyBytes(op.PaymasterAndData),
		Signature:            common.CopyBytes(op.Signature),
	}
	return cp
}

// NonceValue returns the nonce as a big.Int, zero when unset
func (op *UserOperation) NonceValue() *big.Int {
	return BigValue(op.Nonce)
}

// Pack encodes every field except the signature, with dynamic fields replaced by their hashes
func (op *UserOperation) Pack() ([]byte, error) {
	return userOpPackArgs.Pack(
		op.Sender,
		BigValue(op.Nonce),
		[32]byte(crypto.Keccak256Hash(op.InitCode)),
		[32]byte(crypto.Keccak256Hash(op.CallData)),
		BigValue(op.CallGasLimit),
		BigValue(op.VerificationGasLimit),
		BigValue(op.PreVerificationGas),
		BigValue(op.MaxFeePerGas),
		BigValue(op.MaxPriorityFeePerGas),
		[32]byte(crypto.Keccak256Hash(op.PaymasterAndData)),
	)
}

// Hash computes the userOpHash the entry point signs over:
// keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainId))
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := op.Pack()
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := userOpHashArgs.Pack([32]byte(crypto.Keccak256Hash(packed)), entryPoint, chainID)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// BigValue dereferences a hexutil.Big, treating nil as zero
func BigValue(v *hexutil.Big) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v.ToInt())
}

// NewBig wraps a big.Int for JSON encoding
func NewBig(v *big.Int) *hexutil.Big {
	if v == nil {
		v = new(big.Int)
	}
	return (*hexutil.Big)(new(big.Int).Set(v))
}

func copyBig(v *hexutil.Big) *hexutil.Big {
	if v == nil {
		return nil
	}
	return NewBig(v.ToInt())
}
