package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

const callTimeout = 10 * time.Second

// ReaderAdapter implements ChainReader using ethclient. The connection is
// opened on first use so commands that never touch the chain don't need one.
type ReaderAdapter struct {
	rpcURL string

	once    sync.Once
	client  *ethclient.Client
	dialErr error

	mu      sync.Mutex
	chainID uint64
}

// NewReaderAdapter creates a new blockchain reader adapter
func NewReaderAdapter(cfg *config.RuntimeConfig) *ReaderAdapter {
	return &ReaderAdapter{rpcURL: cfg.RPCURL}
}

// NewReaderFromClient wraps an existing client
func NewReaderFromClient(client *ethclient.Client) *ReaderAdapter {
	r := &ReaderAdapter{client: client}
	r.once.Do(func() {})
	return r
}

func (r *ReaderAdapter) connect(ctx context.Context) (*ethclient.Client, error) {
	r.once.Do(func() {
		if r.rpcURL == "" {
			r.dialErr = fmt.Errorf("no RPC URL configured")
			return
		}
		r.client, r.dialErr = ethclient.DialContext(ctx, r.rpcURL)
		if r.dialErr != nil {
			r.dialErr = fmt.Errorf("failed to connect to RPC: %w", r.dialErr)
		}
	})
	return r.client, r.dialErr
}

// ChainID returns the connected chain's id, cached after the first call
func (r *ReaderAdapter) ChainID(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	cached := r.chainID
	r.mu.Unlock()
	if cached != 0 {
		return cached, nil
	}

	client, err := r.connect(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}

	r.mu.Lock()
	r.chainID = id.Uint64()
	r.mu.Unlock()
	return id.Uint64(), nil
}

// CodeAt returns the code deployed at address in the latest block
func (r *ReaderAdapter) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	code, err := client.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check code: %w", err)
	}
	return code, nil
}

// CallContract runs a read-only call to to in the latest block
func (r *ReaderAdapter) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// EntryPointNonce reads the sender's key-0 nonce from the entry point
func (r *ReaderAdapter) EntryPointNonce(ctx context.Context, entryPoint, sender common.Address) (*big.Int, error) {
	data, err := erc4337.EncodeGetNonce(sender, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	out, err := r.CallContract(ctx, entryPoint, data)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	return erc4337.DecodeGetNonce(out)
}

// SuggestFees returns maxFeePerGas = 2 * baseFee + tip and the suggested tip
func (r *ReaderAdapter) SuggestFees(ctx context.Context) (*big.Int, *big.Int, error) {
	client, err := r.connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest tip: %w", err)
	}
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	if head.BaseFee == nil {
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		return gasPrice, gasPrice, nil
	}

	maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return maxFee, tip, nil
}

// Close releases the connection
func (r *ReaderAdapter) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// Ensure the adapter implements the interface
var _ usecase.ChainReader = (*ReaderAdapter)(nil)
