package jsonrpc

import (
	"errors"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

// Error codes returned to RPC callers
const (
	CodeInvalidParams    = -32602
	CodeMethodNotFound   = -32601
	CodeInternal         = -32603
	CodeNotFound         = -32001
	CodeConflict         = -32002
	CodeCollision        = -32003
	CodeUnsupportedChain = -32004
	CodeConfig           = -32005
	CodeUserRejected     = 4001
)

// codedError carries a JSON-RPC error code; the rpc package type-asserts it
type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string  { return e.err.Error() }
func (e *codedError) ErrorCode() int { return e.code }
func (e *codedError) Unwrap() error  { return e.err }

var codes = []struct {
	target error
	code   int
}{
	{domain.ErrValidation, CodeInvalidParams},
	{domain.ErrUnsupportedMethod, CodeMethodNotFound},
	{domain.ErrNotFound, CodeNotFound},
	{domain.ErrConflict, CodeConflict},
	{domain.ErrCollision, CodeCollision},
	{domain.ErrUnsupportedChain, CodeUnsupportedChain},
	{domain.ErrConfig, CodeConfig},
	{domain.ErrSigningDenied, CodeUserRejected},
}

// toRPCError maps keyring errors to JSON-RPC codes
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return &codedError{err: err, code: c.code}
		}
	}
	return &codedError{err: err, code: CodeInternal}
}
