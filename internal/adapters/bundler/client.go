package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// ClientAdapter implements BundlerClient over the eth_ user operation RPC namespace
type ClientAdapter struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewClientAdapter creates a new bundler client
func NewClientAdapter(log *slog.Logger) *ClientAdapter {
	return &ClientAdapter{
		log:     log,
		clients: make(map[string]*rpc.Client),
	}
}

// client returns a cached connection to endpoint
func (c *ClientAdapter) client(ctx context.Context, endpoint string) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[endpoint]; ok {
		return client, nil
	}
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bundler: %w", err)
	}
	c.clients[endpoint] = client
	return client, nil
}

// EstimateUserOperationGas calls eth_estimateUserOperationGas
func (c *ClientAdapter) EstimateUserOperationGas(ctx context.Context, endpoint string, op *domain.UserOperation, entryPoint common.Address) (*domain.GasEstimate, error) {
	client, err := c.client(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var estimate domain.GasEstimate
	if err := client.CallContext(ctx, &estimate, "eth_estimateUserOperationGas", op, entryPoint); err != nil {
		return nil, fmt.Errorf("eth_estimateUserOperationGas: %w", err)
	}
	if estimate.CallGasLimit == nil || estimate.VerificationGasLimit == nil || estimate.PreVerificationGas == nil {
		return nil, fmt.Errorf("eth_estimateUserOperationGas: incomplete estimate")
	}
	c.log.Debug("gas estimated",
		"callGasLimit", estimate.CallGasLimit,
		"verificationGasLimit", estimate.VerificationGasLimit,
		"preVerificationGas", estimate.PreVerificationGas)
	return &estimate, nil
}

// SendUserOperation calls eth_sendUserOperation and returns the user operation hash
func (c *ClientAdapter) SendUserOperation(ctx context.Context, endpoint string, op *domain.UserOperation, entryPoint common.Address) (common.Hash, error) {
	client, err := c.client(ctx, endpoint)
	if err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := client.CallContext(ctx, &hash, "eth_sendUserOperation", op, entryPoint); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendUserOperation: %w", err)
	}
	c.log.Debug("user operation sent", "userOpHash", hash.Hex(), "sender", op.Sender.Hex())
	return hash, nil
}

// GetUserOperationReceipt calls eth_getUserOperationReceipt. A null result means
// the operation is still pending.
func (c *ClientAdapter) GetUserOperationReceipt(ctx context.Context, endpoint string, userOpHash common.Hash) (*domain.UserOperationReceipt, error) {
	client, err := c.client(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var receipt *domain.UserOperationReceipt
	if err := client.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", userOpHash); err != nil {
		return nil, fmt.Errorf("eth_getUserOperationReceipt: %w", err)
	}
	return receipt, nil
}

// Close closes every cached connection
func (c *ClientAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for endpoint, client := range c.clients {
		client.Close()
		delete(c.clients, endpoint)
	}
}

var _ usecase.BundlerClient = (*ClientAdapter)(nil)
