package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
)

const (
	approvalTitle       = "User operation confirmation"
	approvalDescription = "Do you want to sign this user operation? The fee is paid in USDC from your account."
)

// Send stages reported to the ProgressSink, in order
const (
	StageBuild     = "build"
	StageApproval  = "approval"
	StageBroadcast = "broadcast"
	StageInclusion = "inclusion"
	StageCompleted = "completed"
)

// SendTransaction builds, approves, signs and broadcasts a single call, then
// waits for it to be included
type SendTransaction struct {
	wallets      *WalletStore
	pipeline     *UserOpPipeline
	chains       ChainReader
	bundler      BundlerClient
	approval     ApprovalService
	notifier     Notifier
	progress     ProgressSink
	pollInterval time.Duration
	log          *slog.Logger
}

// NewSendTransaction creates a new SendTransaction use case
func NewSendTransaction(
	wallets *WalletStore,
	pipeline *UserOpPipeline,
	chains ChainReader,
	bundler BundlerClient,
	approval ApprovalService,
	notifier Notifier,
	progress ProgressSink,
	cfg *config.RuntimeConfig,
	log *slog.Logger,
) *SendTransaction {
	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if progress == nil {
		progress = NopProgress{}
	}
	return &SendTransaction{
		wallets:      wallets,
		pipeline:     pipeline,
		chains:       chains,
		bundler:      bundler,
		approval:     approval,
		notifier:     notifier,
		progress:     progress,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Run executes the transaction described by payload
func (uc *SendTransaction) Run(ctx context.Context, payload domain.TransactionPayload) (*domain.TransactionResponse, error) {
	wallet, err := uc.wallets.walletByAddress(ctx, payload.AccountAddress.Hex())
	if err != nil {
		return nil, err
	}
	chain, err := uc.pipeline.activeChain(ctx)
	if err != nil {
		return nil, err
	}
	if chain.BundlerURL == "" {
		return nil, fmt.Errorf("%w: no bundler URL for chain %d", domain.ErrConfig, chain.ChainID)
	}

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageBuild, Message: "Building user operation...", Spinner: true})
	op, err := uc.pipeline.buildSkeleton(ctx, wallet, chain, domain.BaseTransaction{
		To:    payload.To,
		Value: payload.Value,
		Data:  payload.Data,
	})
	if err != nil {
		return nil, err
	}
	op.PaymasterAndData = erc4337.DummyPaymasterAndData(erc4337.PaymasterModeERC20, chain.TokenPaymaster)

	if err := uc.estimate(ctx, chain, op); err != nil {
		return nil, err
	}

	result := uc.pipeline.resolvePaymaster(ctx, chain, op, erc4337.PaymasterModeERC20)
	if result.Err != nil {
		return nil, fmt.Errorf("failed to get ERC20 paymaster data: %w", result.Err)
	}
	op.PaymasterAndData = result.Data

	hash, err := uc.pipeline.hash(chain, op)
	if err != nil {
		return nil, err
	}

	// the owner key is not touched until the user has approved the hash
	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageApproval, Message: "Waiting for approval"})
	approved, err := uc.approval.Confirm(ctx, approvalTitle, approvalDescription, hash.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	if !approved {
		return nil, fmt.Errorf("%w: user operation %s was not signed", domain.ErrSigningDenied, hash.Hex())
	}

	signature, err := uc.pipeline.signHash(wallet, chain, hash)
	if err != nil {
		return nil, err
	}
	op.Signature = signature

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageBroadcast, Message: "Sending user operation...", Spinner: true})
	userOpHash, err := uc.bundler.SendUserOperation(ctx, chain.BundlerURL, op, chain.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to send user operation: %w", err)
	}
	if userOpHash != hash {
		uc.log.Warn("bundler returned a different user operation hash", "expected", hash.Hex(), "got", userOpHash.Hex())
	}

	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageInclusion, Message: fmt.Sprintf("Waiting for %s to be included...", userOpHash.Hex()), Spinner: true})
	receipt, err := uc.waitForReceipt(ctx, chain.BundlerURL, userOpHash)
	if err != nil {
		return nil, err
	}
	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageCompleted, Message: "Included"})

	if len(op.InitCode) > 0 {
		if err := uc.wallets.MarkDeployed(ctx, wallet.Account.ID, chain.ChainID); err != nil {
			uc.log.Warn("failed to record deployment", "account", wallet.Account.ID, "error", err)
		}
	}

	response := &domain.TransactionResponse{
		UserOpHash:      userOpHash,
		TransactionHash: receipt.Receipt.TransactionHash,
	}

	message := fmt.Sprintf("User operation %s included in transaction %s", userOpHash.Hex(), response.TransactionHash.Hex())
	if !receipt.Success {
		message = fmt.Sprintf("User operation %s reverted in transaction %s", userOpHash.Hex(), response.TransactionHash.Hex())
	}
	if err := uc.notifier.Notify(ctx, "Transaction sent", message); err != nil {
		uc.log.Warn("failed to notify user", "error", err)
	}

	return response, nil
}

// estimate fills the gas fields from the bundler, falling back to the chain's
// fee suggestion when the bundler returns limits only
func (uc *SendTransaction) estimate(ctx context.Context, chain *ResolvedChain, op *domain.UserOperation) error {
	estimate, err := uc.bundler.EstimateUserOperationGas(ctx, chain.BundlerURL, op, chain.EntryPoint)
	if err != nil {
		return fmt.Errorf("failed to estimate gas: %w", err)
	}
	op.CallGasLimit = estimate.CallGasLimit
	op.VerificationGasLimit = estimate.VerificationGasLimit
	op.PreVerificationGas = estimate.PreVerificationGas

	if estimate.MaxFeePerGas != nil && estimate.MaxPriorityFeePerGas != nil {
		op.MaxFeePerGas = estimate.MaxFeePerGas
		op.MaxPriorityFeePerGas = estimate.MaxPriorityFeePerGas
		return nil
	}

	maxFee, tip, err := uc.chains.SuggestFees(ctx)
	if err != nil {
		return fmt.Errorf("failed to suggest fees: %w", err)
	}
	op.MaxFeePerGas = erc4337.NewBig(maxFee)
	op.MaxPriorityFeePerGas = erc4337.NewBig(tip)
	return nil
}

// waitForReceipt polls the bundler until the operation is included or ctx ends
func (uc *SendTransaction) waitForReceipt(ctx context.Context, endpoint string, userOpHash common.Hash) (*domain.UserOperationReceipt, error) {
	ticker := time.NewTicker(uc.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := uc.bundler.GetUserOperationReceipt(ctx, endpoint, userOpHash)
		if err != nil {
			uc.log.Debug("receipt lookup failed", "userOpHash", userOpHash.Hex(), "error", err)
		} else if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped waiting for user operation %s: %w", userOpHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
