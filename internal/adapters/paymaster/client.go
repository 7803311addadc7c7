package paymaster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

// ServiceData is the second parameter of pm_sponsorUserOperation
type ServiceData struct {
	Mode               erc4337.PaymasterMode `json:"mode"`
	CalculateGasLimits bool                  `json:"calculateGasLimits"`
	TokenInfo          *TokenInfo            `json:"tokenInfo,omitempty"`
	SponsorshipInfo    *SponsorshipInfo      `json:"sponsorshipInfo,omitempty"`
}

// TokenInfo selects the ERC-20 the user pays fees in
type TokenInfo struct {
	FeeTokenAddress common.Address `json:"feeTokenAddress"`
}

// SponsorshipInfo carries optional sponsorship policy hints
type SponsorshipInfo struct {
	WebhookData map[string]any `json:"webhookData,omitempty"`
}

// SponsorResult is the paymaster's answer
type SponsorResult struct {
	PaymasterAndData hexutil.Bytes `json:"paymasterAndData"`
}

// ClientAdapter implements PaymasterClient against a token paymaster service
type ClientAdapter struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewClientAdapter creates a new paymaster client
func NewClientAdapter(log *slog.Logger) *ClientAdapter {
	return &ClientAdapter{
		log:     log,
		clients: make(map[string]*rpc.Client),
	}
}

func (c *ClientAdapter) client(ctx context.Context, endpoint string) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[endpoint]; ok {
		return client, nil
	}
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to paymaster: %w", err)
	}
	c.clients[endpoint] = client
	return client, nil
}

// Sponsor asks the paymaster to cover the operation entirely
func (c *ClientAdapter) Sponsor(ctx context.Context, endpoint string, op *domain.UserOperation) ([]byte, error) {
	return c.sponsor(ctx, endpoint, op, ServiceData{
		Mode:            erc4337.PaymasterModeSponsored,
		SponsorshipInfo: &SponsorshipInfo{},
	})
}

// QuoteERC20Fee asks the paymaster for data that charges the account in token
func (c *ClientAdapter) QuoteERC20Fee(ctx context.Context, endpoint string, op *domain.UserOperation, token common.Address) ([]byte, error) {
	return c.sponsor(ctx, endpoint, op, ServiceData{
		Mode:      erc4337.PaymasterModeERC20,
		TokenInfo: &TokenInfo{FeeTokenAddress: token},
	})
}

func (c *ClientAdapter) sponsor(ctx context.Context, endpoint string, op *domain.UserOperation, data ServiceData) ([]byte, error) {
	client, err := c.client(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var result SponsorResult
	if err := client.CallContext(ctx, &result, "pm_sponsorUserOperation", op, data); err != nil {
		return nil, fmt.Errorf("pm_sponsorUserOperation (%s): %w", data.Mode, err)
	}
	if len(result.PaymasterAndData) < common.AddressLength {
		return nil, fmt.Errorf("pm_sponsorUserOperation (%s): paymasterAndData too short", data.Mode)
	}
	c.log.Debug("paymaster data received",
		"mode", data.Mode,
		"paymaster", common.BytesToAddress(result.PaymasterAndData[:common.AddressLength]).Hex())
	return result.PaymasterAndData, nil
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

var _ usecase.PaymasterClient = (*ClientAdapter)(nil)
