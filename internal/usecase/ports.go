package usecase

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

// StateStore persists the whole keyring state as one blob.
// Load returns nil data when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// EntropySource yields a seed that is stable for this installation
type EntropySource interface {
	GetSeed(ctx context.Context, version int, salt string) ([]byte, error)
}

// DerivedKey is an owner key with its address
type DerivedKey struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// KeyDeriver turns explicit secrets or seeds into owner keys
type KeyDeriver interface {
	// FromPrivateKey parses a hex secret, with or without 0x
	FromPrivateKey(hexKey string) (*DerivedKey, error)
	// FromSeed derives m/44'/60'/0'/0/<index> from seed
	FromSeed(seed []byte, index uint32) (*DerivedKey, error)
}

// ApprovalService asks a human to confirm an action. It may block.
type ApprovalService interface {
	Confirm(ctx context.Context, title, description, detail string) (bool, error)
}

// Notifier shows a message to the user
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// AccountSelector lets a human pick one account
type AccountSelector interface {
	SelectAccount(ctx context.Context, accounts []domain.Account, prompt string) (*domain.Account, error)
}

// ChainReader reads the active chain
type ChainReader interface {
	ChainID(ctx context.Context) (uint64, error)
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)
	EntryPointNonce(ctx context.Context, entryPoint, sender common.Address) (*big.Int, error)
	// CallContract runs a read-only call against the latest block
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SuggestFees(ctx context.Context) (maxFee *big.Int, maxPriorityFee *big.Int, err error)
}

// BundlerClient talks to an ERC-4337 bundler at endpoint
type BundlerClient interface {
	EstimateUserOperationGas(ctx context.Context, endpoint string, op *domain.UserOperation, entryPoint common.Address) (*domain.GasEstimate, error)
	SendUserOperation(ctx context.Context, endpoint string, op *domain.UserOperation, entryPoint common.Address) (common.Hash, error)
	// GetUserOperationReceipt returns nil while the operation is not yet included
	GetUserOperationReceipt(ctx context.Context, endpoint string, userOpHash common.Hash) (*domain.UserOperationReceipt, error)
}

// PaymasterClient resolves paymasterAndData from a remote paymaster at endpoint
type PaymasterClient interface {
	Sponsor(ctx context.Context, endpoint string, op *domain.UserOperation) ([]byte, error)
	QuoteERC20Fee(ctx context.Context, endpoint string, op *domain.UserOperation, token common.Address) ([]byte, error)
}

// EventSink receives keyring lifecycle events
type EventSink interface {
	Emit(ctx context.Context, kind domain.KeyringEvent, payload any) error
}

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage   string
	Message string
	Spinner bool
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
