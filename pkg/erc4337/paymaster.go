package erc4337

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PaymasterMode selects how an operation's gas is paid
type PaymasterMode string

const (
	// PaymasterModeSponsored charges the paymaster's deposit, nothing to the user
	PaymasterModeSponsored PaymasterMode = "SPONSORED"
	// PaymasterModeERC20 charges the user in an ERC-20 fee token
	PaymasterModeERC20 PaymasterMode = "ERC20"
)

// Lengths of the paymaster payloads that follow the 20 byte paymaster address
const (
	// abi.encode(uint48 validUntil, uint48 validAfter) ++ signature
	sponsoredPayloadLength = 64 + crypto.SignatureLength
	// priceSource ++ validUntil ++ validAfter ++ feeToken ++ oracle ++ exchangeRate ++ markup ++ signature
	erc20PayloadLength = 1 + 6 + 6 + 20 + 20 + 32 + 4 + crypto.SignatureLength
)

var verifyingPaymasterHashArgs = abi.Arguments{
	{Name: "sender", Type: addressType},
	{Name: "nonce", Type: uint256Type},
	{Name: "initCodeHash", Type: bytes32Type},
	{Name: "callDataHash", Type: bytes32Type},
	{Name: "callGasLimit", Type: uint256Type},
	{Name: "verificationGasLimit", Type: uint256Type},
	{Name: "preVerificationGas", Type: uint256Type},
	{Name: "maxFeePerGas", Type: uint256Type},
	{Name: "maxPriorityFeePerGas", Type: uint256Type},
	{Name: "chainId", Type: uint256Type},
	{Name: "paymaster", Type: addressType},
	{Name: "validUntil", Type: uint48Type},
	{Name: "validAfter", Type: uint48Type},
}

var validityArgs = abi.Arguments{
	{Name: "validUntil", Type: uint48Type},
	{Name: "validAfter", Type: uint48Type},
}

// DummyPaymasterAndData returns a placeholder of the size the given mode produces.
// Non-zero filler keeps preVerificationGas estimates on the safe side.
func DummyPaymasterAndData(mode PaymasterMode, paymaster common.Address) []byte {
	n := sponsoredPayloadLength
	if mode == PaymasterModeERC20 {
		n = erc20PayloadLength
	}
	return append(paymaster.Bytes(), bytes.Repeat([]byte{0x01}, n)...)
}

// VerifyingPaymasterHash is the digest a v0.6 VerifyingPaymaster signer approves
func VerifyingPaymasterHash(op *UserOperation, chainID *big.Int, paymaster common.Address, validUntil, validAfter uint64) (common.Hash, error) {
	encoded, err := verifyingPaymasterHashArgs.Pack(
		op.Sender,
		BigValue(op.Nonce),
		[32]byte(crypto.Keccak256Hash(op.InitCode)),
		[32]byte(crypto.Keccak256Hash(op.CallData)),
		BigValue(op.CallGasLimit),
		BigValue(op.VerificationGasLimit),
		BigValue(op.PreVerificationGas),
		BigValue(op.MaxFeePerGas),
		BigValue(op.MaxPriorityFeePerGas),
		chainID,
		paymaster,
		new(big.Int).SetUint64(validUntil),
		new(big.Int).SetUint64(validAfter),
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// SignVerifyingPaymaster produces paymasterAndData for a VerifyingPaymaster:
// paymaster ++ abi.encode(validUntil, validAfter) ++ signature
func SignVerifyingPaymaster(op *UserOperation, chainID *big.Int, paymaster common.Address, validUntil, validAfter uint64, key *ecdsa.PrivateKey) ([]byte, error) {
	hash, err := VerifyingPaymasterHash(op, chainID, paymaster, validUntil, validAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to hash operation for paymaster: %w", err)
	}
	sig, err := SignHash(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign paymaster hash: %w", err)
	}
	validity, err := validityArgs.Pack(new(big.Int).SetUint64(validUntil), new(big.Int).SetUint64(validAfter))
	if err != nil {
		return nil, err
	}
	out := append(paymaster.Bytes(), validity...)
	return append(out, sig...), nil
}
