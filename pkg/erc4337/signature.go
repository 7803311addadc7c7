package erc4337

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// dummyECDSASignature is a well-formed 65 byte signature used for gas estimation
const dummyECDSASignature = "0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c"

var moduleSignatureArgs = abi.Arguments{
	{Name: "signature", Type: bytesType},
	{Name: "module", Type: addressType},
}

// EncodeModuleSignature wraps an ECDSA signature for validation by the given module:
// abi.encode(bytes signature, address module)
func EncodeModuleSignature(signature []byte, module common.Address) ([]byte, error) {
	return moduleSignatureArgs.Pack(signature, module)
}

// DecodeModuleSignature is the inverse of EncodeModuleSignature
func DecodeModuleSignature(data []byte) ([]byte, common.Address, error) {
	out, err := moduleSignatureArgs.Unpack(data)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to decode module signature: %w", err)
	}
	sig, ok := out[0].([]byte)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("unexpected signature type %T", out[0])
	}
	module, ok := out[1].(common.Address)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("unexpected module type %T", out[1])
	}
	return sig, module, nil
}

// DummySignature returns the module-wrapped placeholder signature
func DummySignature(module common.Address) ([]byte, error) {
	return EncodeModuleSignature(common.FromHex(dummyECDSASignature), module)
}

// SignHash signs a 32 byte hash as an EIP-191 personal message with v in {27, 28}
func SignHash(hash common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverHashSigner returns the address that produced sig via SignHash
func RecoverHashSigner(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
