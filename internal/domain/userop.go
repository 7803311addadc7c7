package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

// UserOperation is the v0.6 user operation exchanged with the host
type UserOperation = erc4337.UserOperation

// BaseTransaction is a single call the smart account should execute
type BaseTransaction struct {
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

// BaseUserOperation is the prepared skeleton returned to the host for gas estimation
type BaseUserOperation struct {
	Nonce                 *hexutil.Big  `json:"nonce"`
	InitCode              hexutil.Bytes `json:"initCode"`
	CallData              hexutil.Bytes `json:"callData"`
	DummySignature        hexutil.Bytes `json:"dummySignature"`
	DummyPaymasterAndData hexutil.Bytes `json:"dummyPaymasterAndData"`
	BundlerURL            string        `json:"bundlerUrl"`
}

// UserOperationPatch carries the fee-payment fields resolved by the patch phase
type UserOperationPatch struct {
	PaymasterAndData hexutil.Bytes `json:"paymasterAndData"`
}

// GasEstimate is the bundler's answer to eth_estimateUserOperationGas.
// Fee fields are optional; some bundlers only return limits.
type GasEstimate struct {
	CallGasLimit         *hexutil.Big `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas,omitempty"`
}

// UserOperationReceipt is the subset of eth_getUserOperationReceipt the keyring reads
type UserOperationReceipt struct {
	UserOpHash common.Hash `json:"userOpHash"`
	Success    bool        `json:"success"`
	Receipt    struct {
		TransactionHash common.Hash `json:"transactionHash"`
	} `json:"receipt"`
}

// TransactionPayload is the direct-send request body
type TransactionPayload struct {
	AccountAddress common.Address `json:"accountAddress"`
	To             common.Address `json:"to"`
	Value          *hexutil.Big   `json:"value"`
	Data           hexutil.Bytes  `json:"data"`
}

// TransactionResponse is returned once a direct send is included on chain
type TransactionResponse struct {
	UserOpHash      common.Hash `json:"userOpHash"`
	TransactionHash common.Hash `json:"transactionHash"`
}
