package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	userOpHash = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	txHash     = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

func gasEstimate() *domain.GasEstimate {
	return &domain.GasEstimate{
		CallGasLimit:         erc4337.NewBig(big.NewInt(50_000)),
		VerificationGasLimit: erc4337.NewBig(big.NewInt(300_000)),
		PreVerificationGas:   erc4337.NewBig(big.NewInt(60_000)),
	}
}

func receipt(success bool) *domain.UserOperationReceipt {
	r := &domain.UserOperationReceipt{UserOpHash: userOpHash, Success: success}
	r.Receipt.TransactionHash = txHash
	return r
}

func payload(account *domain.Account) domain.TransactionPayload {
	tx := transfer()
	return domain.TransactionPayload{
		AccountAddress: account.Address,
		To:             tx.To,
		Value:          tx.Value,
		Data:           tx.Data,
	}
}

func TestSendTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("approved operation is broadcast and confirmed", func(t *testing.T) {
		k := newKeyring(t)
		account := createTestAccount(t, k)
		bundlerURL := mumbaiDefaults().BundlerURL

		k.bundler.On("EstimateUserOperationGas", mock.Anything, bundlerURL, mock.Anything, erc4337.EntryPointV06).Return(gasEstimate(), nil)
		k.paymaster.On("QuoteERC20Fee", mock.Anything, mock.Anything, mock.Anything, domain.PreferredFeeToken).Return(erc20QuotedData, nil)
		k.approval.On("Confirm", mock.Anything, "User operation confirmation", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { assert.Zero(t, k.signer.loads(), "owner key loaded before approval") }).
			Return(true, nil)
		k.bundler.On("SendUserOperation", mock.Anything, bundlerURL, mock.Anything, erc4337.EntryPointV06).Return(userOpHash, nil)
		k.bundler.On("GetUserOperationReceipt", mock.Anything, bundlerURL, userOpHash).Return(nil, nil).Once()
		k.bundler.On("GetUserOperationReceipt", mock.Anything, bundlerURL, userOpHash).Return(receipt(true), nil)
		k.notifier.On("Notify", mock.Anything, "Transaction sent", mock.Anything).Return(nil)

		response, err := k.send.Run(ctx, payload(account))
		require.NoError(t, err)
		assert.Equal(t, userOpHash, response.UserOpHash)
		assert.Equal(t, txHash, response.TransactionHash)

		sent := k.bundler.Calls[len(k.bundler.Calls)-1]
		for _, call := range k.bundler.Calls {
			if call.Method == "SendUserOperation" {
				sent = call
			}
		}
		op := sent.Arguments.Get(2).(*domain.UserOperation)
		assert.Equal(t, account.Address, op.Sender)
		assert.Equal(t, erc20QuotedData, []byte(op.PaymasterAndData))
		assert.Equal(t, int64(3_000_000_000), erc4337.BigValue(op.MaxFeePerGas).Int64())
		assert.NotEmpty(t, op.InitCode)

		sig, _, err := erc4337.DecodeModuleSignature(op.Signature)
		require.NoError(t, err)
		unsigned := op.Copy()
		unsigned.Signature = nil
		hash, err := unsigned.Hash(erc4337.EntryPointV06, big.NewInt(int64(domain.ChainIDMumbai)))
		require.NoError(t, err)
		signer, err := erc4337.RecoverHashSigner(hash, sig)
		require.NoError(t, err)
		assert.Equal(t, ownerAddress(t, testOwnerKey), signer)
		k.approval.AssertCalled(t, "Confirm", mock.Anything, "User operation confirmation", mock.Anything, hash.Hex())
		assert.Equal(t, 1, k.signer.loads())

		info, err := k.wallets.Describe(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, info.Chains[domain.ChainIDMumbai])

		assert.Equal(t, []string{"build", "approval", "broadcast", "inclusion", "completed"}, k.progress.stages())
		k.notifier.AssertExpectations(t)
	})

	t.Run("denied approval aborts before broadcast", func(t *testing.T) {
		k := newKeyring(t)
		account := createTestAccount(t, k)

		k.bundler.On("EstimateUserOperationGas", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(gasEstimate(), nil)
		k.paymaster.On("QuoteERC20Fee", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(erc20QuotedData, nil)
		k.approval.On("Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

		_, err := k.send.Run(ctx, payload(account))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrSigningDenied))
		assert.Zero(t, k.signer.loads())
		k.bundler.AssertNotCalled(t, "SendUserOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("paymaster failure is not swallowed", func(t *testing.T) {
		k := newKeyring(t)
		account := createTestAccount(t, k)

		k.bundler.On("EstimateUserOperationGas", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(gasEstimate(), nil)
		k.paymaster.On("QuoteERC20Fee", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errPaymasterDown)

		_, err := k.send.Run(ctx, payload(account))
		require.Error(t, err)
		assert.ErrorIs(t, err, errPaymasterDown)
		k.approval.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("notification failure is not an error", func(t *testing.T) {
		k := newKeyring(t)
		account := createTestAccount(t, k)
		k.chain.deploy(account.Address)

		k.bundler.On("EstimateUserOperationGas", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(gasEstimate(), nil)
		k.paymaster.On("QuoteERC20Fee", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(erc20QuotedData, nil)
		k.approval.On("Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		k.bundler.On("SendUserOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(userOpHash, nil)
		k.bundler.On("GetUserOperationReceipt", mock.Anything, mock.Anything, mock.Anything).Return(receipt(false), nil)
		k.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no display"))

		response, err := k.send.Run(ctx, payload(account))
		require.NoError(t, err)
		assert.Equal(t, txHash, response.TransactionHash)

		info, err := k.wallets.Describe(ctx, account.ID)
		require.NoError(t, err)
		assert.False(t, info.Chains[domain.ChainIDMumbai])
	})

	t.Run("waiting stops with the context", func(t *testing.T) {
		k := newKeyring(t)
		account := createTestAccount(t, k)

		k.bundler.On("EstimateUserOperationGas", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(gasEstimate(), nil)
		k.paymaster.On("QuoteERC20Fee", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(erc20QuotedData, nil)
		k.approval.On("Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		k.bundler.On("SendUserOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(userOpHash, nil)
		k.bundler.On("GetUserOperationReceipt", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := k.send.Run(ctx, payload(account))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("unknown account", func(t *testing.T) {
		k := newKeyring(t)
		_, err := k.send.Run(ctx, domain.TransactionPayload{AccountAddress: recipient, To: recipient})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
