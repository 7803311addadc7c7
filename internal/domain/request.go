package domain

import (
	"bytes"
	"encoding/json"
)

// Administrative methods dispatched by the keyring itself
const (
	MethodSetConfig       = "snap.internal.setConfig"
	MethodSendTransaction = "snap.account.sendTransaction"
)

// RPCRequest is the JSON-RPC method and raw params carried by a keyring request
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// KeyringRequest is a request submitted against one account
type KeyringRequest struct {
	ID      string     `json:"id"`
	Scope   string     `json:"scope"`
	Account string     `json:"account"`
	Request RPCRequest `json:"request"`
}

// Clone returns a copy with its own params buffer
func (r *KeyringRequest) Clone() *KeyringRequest {
	cp := *r
	cp.Request.Params = bytes.Clone(r.Request.Params)
	return &cp
}

// SubmitRequestResponse reports whether the request was executed or queued
type SubmitRequestResponse struct {
	Pending bool `json:"pending"`
	Result  any  `json:"result"`
}

// Call is a request whose params have been decoded and shape-checked
type Call interface {
	Method() string
}

type PrepareUserOperationCall struct {
	Transactions []BaseTransaction
}

func (PrepareUserOperationCall) Method() string { return string(MethodPrepareUserOperation) }

type PatchUserOperationCall struct {
	Operation *UserOperation
}

func (PatchUserOperationCall) Method() string { return string(MethodPatchUserOperation) }

type SignUserOperationCall struct {
	Operation *UserOperation
}

func (SignUserOperationCall) Method() string { return string(MethodSignUserOperation) }

type SetConfigCall struct {
	Config ChainConfig
}

func (SetConfigCall) Method() string { return MethodSetConfig }

type SendTransactionCall struct {
	Transaction TransactionPayload
}

func (SendTransactionCall) Method() string { return MethodSendTransaction }

// ParseRequest decodes req into its typed call. Malformed params fail with a
// ValidationError and unknown methods with an UnsupportedMethodError.
func ParseRequest(req RPCRequest) (Call, error) {
	switch req.Method {
	case MethodSetConfig:
		var params []ChainConfig
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		if len(params) != 1 {
			return nil, NewValidationError("params", "expected exactly one chain config, got %d", len(params))
		}
		return SetConfigCall{Config: params[0]}, nil

	case MethodSendTransaction:
		var params []TransactionPayload
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		if len(params) != 1 {
			return nil, NewValidationError("params", "expected exactly one transaction, got %d", len(params))
		}
		return SendTransactionCall{Transaction: params[0]}, nil

	case string(MethodPrepareUserOperation):
		var params []BaseTransaction
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return PrepareUserOperationCall{Transactions: params}, nil

	case string(MethodPatchUserOperation), string(MethodSignUserOperation):
		var params []*UserOperation
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		if len(params) != 1 || params[0] == nil {
			return nil, NewValidationError("params", "expected exactly one user operation, got %d", len(params))
		}
		if req.Method == string(MethodPatchUserOperation) {
			return PatchUserOperationCall{Operation: params[0]}, nil
		}
		return SignUserOperationCall{Operation: params[0]}, nil
	}

	return nil, &UnsupportedMethodError{Method: req.Method}
}

func decodeParams(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewValidationError("params", "%v", err)
	}
	return nil
}
