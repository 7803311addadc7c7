package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

// sponsorshipValidity is how long a locally signed sponsorship stays valid
const sponsorshipValidity = time.Hour

// PaymasterResult is the outcome of resolving fee-payment data. A failed
// lookup is a value, not an error, so each caller decides how to degrade.
type PaymasterResult struct {
	Mode erc4337.PaymasterMode
	Data []byte
	Err  error
}

// OrEmpty returns the paymaster data, or empty data if the lookup failed
func (r PaymasterResult) OrEmpty() hexutil.Bytes {
	if r.Err != nil {
		return hexutil.Bytes{}
	}
	return r.Data
}

// UserOpPipeline builds, patches and signs user operations. It only reads
// keyring state, so every phase can be retried on its own.
type UserOpPipeline struct {
	wallets   *WalletStore
	registry  *ChainRegistry
	chains    ChainReader
	keys      KeyDeriver
	paymaster PaymasterClient
	threshold *big.Int
	log       *slog.Logger
	now       func() time.Time
}

// NewUserOpPipeline creates a new UserOpPipeline use case
func NewUserOpPipeline(
	wallets *WalletStore,
	registry *ChainRegistry,
	chains ChainReader,
	keys KeyDeriver,
	paymaster PaymasterClient,
	cfg *config.RuntimeConfig,
	log *slog.Logger,
) *UserOpPipeline {
	return &UserOpPipeline{
		wallets:   wallets,
		registry:  registry,
		chains:    chains,
		keys:      keys,
		paymaster: paymaster,
		threshold: new(big.Int).SetUint64(cfg.SponsorshipNonceThreshold),
		log:       log,
		now:       time.Now,
	}
}

// activeChain resolves the connected chain, failing if it isn't supported
func (p *UserOpPipeline) activeChain(ctx context.Context) (*ResolvedChain, error) {
	chainID, err := p.registry.ActiveChainID(ctx)
	if err != nil {
		return nil, err
	}
	return p.registry.ResolveChain(ctx, chainID)
}

// Prepare builds the operation skeleton for exactly one call
func (p *UserOpPipeline) Prepare(ctx context.Context, accountID string, transactions []domain.BaseTransaction) (*domain.BaseUserOperation, error) {
	if len(transactions) != 1 {
		return nil, domain.NewValidationError("transactions", "exactly one transaction is supported per operation, got %d", len(transactions))
	}

	wallet, err := p.wallets.wallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	chain, err := p.activeChain(ctx)
	if err != nil {
		return nil, err
	}
	if chain.BundlerURL == "" {
		return nil, fmt.Errorf("%w: no bundler URL for chain %d", domain.ErrConfig, chain.ChainID)
	}

	op, err := p.buildSkeleton(ctx, wallet, chain, transactions[0])
	if err != nil {
		return nil, err
	}

	mode := p.paymasterMode(op.NonceValue())
	return &domain.BaseUserOperation{
		Nonce:                 op.Nonce,
		InitCode:              op.InitCode,
		CallData:              op.CallData,
		DummySignature:        op.Signature,
		DummyPaymasterAndData: erc4337.DummyPaymasterAndData(mode, chain.paymasterFor(mode)),
		BundlerURL:            chain.BundlerURL,
	}, nil
}

// buildSkeleton returns an operation with sender, nonce, init code, call data
// and a dummy signature. Gas fields are zero.
func (p *UserOpPipeline) buildSkeleton(ctx context.Context, wallet *domain.Wallet, chain *ResolvedChain, tx domain.BaseTransaction) (*domain.UserOperation, error) {
	sender := wallet.Account.Address

	nonce, err := p.chains.EntryPointNonce(ctx, chain.EntryPoint, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	code, err := p.chains.CodeAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to check deployment of %s: %w", sender.Hex(), err)
	}
	initCode := []byte{}
	if len(code) == 0 {
		initCode, err = chain.Account.InitCode(wallet.Owner, wallet.Index)
		if err != nil {
			return nil, fmt.Errorf("failed to build init code: %w", err)
		}
	}

	callData, err := erc4337.EncodeExecute(tx.To, erc4337.BigValue(tx.Value), tx.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call data: %w", err)
	}

	dummySignature, err := erc4337.DummySignature(chain.Account.OwnershipModule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dummy signature: %w", err)
	}

	return &domain.UserOperation{
		Sender:               sender,
		Nonce:                erc4337.NewBig(nonce),
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         erc4337.NewBig(nil),
		VerificationGasLimit: erc4337.NewBig(nil),
		PreVerificationGas:   erc4337.NewBig(nil),
		MaxFeePerGas:         erc4337.NewBig(nil),
		MaxPriorityFeePerGas: erc4337.NewBig(nil),
		PaymasterAndData:     hexutil.Bytes{},
		Signature:            dummySignature,
	}, nil
}

// Patch resolves paymasterAndData for an estimated operation. Paymaster
// failures degrade to empty data so the caller can proceed unsponsored.
func (p *UserOpPipeline) Patch(ctx context.Context, accountID string, op *domain.UserOperation) (*domain.UserOperationPatch, error) {
	if _, err := p.wallets.wallet(ctx, accountID); err != nil {
		return nil, err
	}
	chain, err := p.activeChain(ctx)
	if err != nil {
		return nil, err
	}

	result := p.resolvePaymaster(ctx, chain, op, p.paymasterMode(op.NonceValue()))
	if result.Err != nil {
		p.log.Warn("paymaster unavailable, returning empty paymasterAndData",
			"mode", result.Mode, "nonce", op.NonceValue(), "error", result.Err)
	}
	return &domain.UserOperationPatch{PaymasterAndData: result.OrEmpty()}, nil
}

// paymasterMode sponsors the account's first operations and charges the fee
// token afterwards
func (p *UserOpPipeline) paymasterMode(nonce *big.Int) erc4337.PaymasterMode {
	if nonce.Cmp(p.threshold) <= 0 {
		return erc4337.PaymasterModeSponsored
	}
	return erc4337.PaymasterModeERC20
}

func (p *UserOpPipeline) resolvePaymaster(ctx context.Context, chain *ResolvedChain, op *domain.UserOperation, mode erc4337.PaymasterMode) PaymasterResult {
	result := PaymasterResult{Mode: mode}

	switch {
	case mode == erc4337.PaymasterModeSponsored && chain.CustomPaymasterKey != "":
		key, err := p.keys.FromPrivateKey(chain.CustomPaymasterKey)
		if err != nil {
			result.Err = err
			return result
		}
		validUntil := uint64(p.now().Add(sponsorshipValidity).Unix())
		result.Data, result.Err = erc4337.SignVerifyingPaymaster(op, new(big.Int).SetUint64(chain.ChainID), chain.CustomPaymasterAddress, validUntil, 0, key.PrivateKey)

	case chain.PaymasterURL == "":
		result.Err = fmt.Errorf("%w: no paymaster URL for chain %d", domain.ErrConfig, chain.ChainID)

	case mode == erc4337.PaymasterModeSponsored:
		result.Data, result.Err = p.paymaster.Sponsor(ctx, chain.PaymasterURL, op)

	default:
		result.Data, result.Err = p.paymaster.QuoteERC20Fee(ctx, chain.PaymasterURL, op, chain.FeeToken)
	}
	return result
}

// Sign recomputes the operation hash and returns the module-wrapped owner signature
func (p *UserOpPipeline) Sign(ctx context.Context, accountID string, op *domain.UserOperation) (hexutil.Bytes, error) {
	wallet, err := p.wallets.wallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	chain, err := p.activeChain(ctx)
	if err != nil {
		return nil, err
	}
	if op.Sender != wallet.Account.Address {
		return nil, domain.NewValidationError("sender", "%s is not the address of account '%s'", op.Sender.Hex(), accountID)
	}

	hash, err := p.hash(chain, op)
	if err != nil {
		return nil, err
	}
	return p.signHash(wallet, chain, hash)
}

// hash returns the v0.6 hash of op with its signature zeroed
func (p *UserOpPipeline) hash(chain *ResolvedChain, op *domain.UserOperation) (common.Hash, error) {
	unsigned := op.Copy()
	unsigned.Signature = hexutil.Bytes{}

	hash, err := unsigned.Hash(chain.EntryPoint, new(big.Int).SetUint64(chain.ChainID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash user operation: %w", err)
	}
	return hash, nil
}

// signHash signs hash with the wallet's owner key and wraps it for the ownership module
func (p *UserOpPipeline) signHash(wallet *domain.Wallet, chain *ResolvedChain, hash common.Hash) (hexutil.Bytes, error) {
	owner, err := p.keys.FromPrivateKey(wallet.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner key: %w", err)
	}
	sig, err := erc4337.SignHash(hash, owner.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign user operation: %w", err)
	}

	encoded, err := erc4337.EncodeModuleSignature(sig, chain.Account.OwnershipModule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}
	return encoded, nil
}

func (c *ResolvedChain) paymasterFor(mode erc4337.PaymasterMode) common.Address {
	if mode == erc4337.PaymasterModeERC20 {
		return c.TokenPaymaster
	}
	if c.CustomPaymasterKey != "" {
		return c.CustomPaymasterAddress
	}
	return c.SponsorshipPaymaster
}
