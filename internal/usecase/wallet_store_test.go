package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWalletStoreCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit key with default salt", func(t *testing.T) {
		k := newKeyring(t)

		account, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{
			domain.OptionPrivateKey: testOwnerKey,
			"label":                 "main",
		})
		require.NoError(t, err)

		owner := ownerAddress(t, testOwnerKey)
		assert.Equal(t, counterfactual(t, owner, common.Hash{}), account.Address)
		assert.Equal(t, []common.Address{mumbaiDefaults().Factory}, k.chain.contractCalls())
		assert.NotEmpty(t, account.ID)
		assert.Equal(t, domain.AccountTypeERC4337, account.Type)
		assert.Equal(t, domain.DefaultAccountMethods, account.Methods)
		assert.NotContains(t, account.Options, domain.OptionPrivateKey)
		assert.Equal(t, "main", account.Options["label"])

		info, err := k.wallets.Describe(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, owner, info.Owner)
		assert.Equal(t, common.Hash{}, info.Index)
		assert.NotEqual(t, common.Hash{}, info.Salt)
		assert.Equal(t, map[uint64]bool{domain.ChainIDMumbai: false}, info.Chains)

		k.events.AssertCalled(t, "Emit", mock.Anything, domain.EventAccountCreated, mock.Anything)
		assert.Equal(t, 1, k.store.saves)
	})

	t.Run("derived key is deterministic for a fixed seed", func(t *testing.T) {
		first, err := newKeyring(t).wallets.CreateAccount(ctx, nil)
		require.NoError(t, err)
		second, err := newKeyring(t).wallets.CreateAccount(ctx, nil)
		require.NoError(t, err)

		assert.Equal(t, first.Address, second.Address)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("derived keys use the next path index", func(t *testing.T) {
		k := newKeyring(t)

		first, err := k.wallets.CreateAccount(ctx, nil)
		require.NoError(t, err)
		second, err := k.wallets.CreateAccount(ctx, nil)
		require.NoError(t, err)

		assert.NotEqual(t, first.Address, second.Address)

		a, err := k.wallets.Describe(ctx, first.ID)
		require.NoError(t, err)
		b, err := k.wallets.Describe(ctx, second.ID)
		require.NoError(t, err)
		assert.NotEqual(t, a.Owner, b.Owner)
	})

	t.Run("duplicate owner is a conflict", func(t *testing.T) {
		k := newKeyring(t)

		_, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)

		_, err = k.wallets.CreateAccount(ctx, domain.AccountOptions{
			domain.OptionPrivateKey: testOwnerKey,
			domain.OptionSalt:       "0x01",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConflict))

		accounts, err := k.wallets.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})

	t.Run("deployed code at the address is a collision", func(t *testing.T) {
		k := newKeyring(t)
		expected := counterfactual(t, ownerAddress(t, testOwnerKey), common.Hash{})
		k.chain.deploy(expected)

		_, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.Error(t, err)

		var collision *domain.CollisionError
		require.True(t, errors.As(err, &collision))
		assert.Equal(t, expected, collision.Address)
		assert.True(t, errors.Is(err, domain.ErrCollision))
	})

	t.Run("salt option changes the address", func(t *testing.T) {
		k := newKeyring(t)

		account, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{
			domain.OptionPrivateKey: testOwnerKey,
			domain.OptionSalt:       "0x2a",
		})
		require.NoError(t, err)

		salt := common.HexToHash("0x2a")
		assert.Equal(t, counterfactual(t, ownerAddress(t, testOwnerKey), salt), account.Address)
		assert.NotEqual(t, counterfactual(t, ownerAddress(t, testOwnerKey), common.Hash{}), account.Address)

		info, err := k.wallets.Describe(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, salt, info.Salt)
		assert.Equal(t, salt, info.Index)
	})

	t.Run("default salt is random but the address is not", func(t *testing.T) {
		first := newKeyring(t)
		second := newKeyring(t)

		a, err := first.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)
		b, err := second.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)
		assert.Equal(t, a.Address, b.Address)

		infoA, err := first.wallets.Describe(ctx, a.ID)
		require.NoError(t, err)
		infoB, err := second.wallets.Describe(ctx, b.ID)
		require.NoError(t, err)
		assert.NotEqual(t, infoA.Salt, infoB.Salt)
	})

	t.Run("factory lookup failure fails the call", func(t *testing.T) {
		k := newKeyring(t)
		k.chain.callErr = errors.New("execution reverted")

		_, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "execution reverted")
		assert.Zero(t, k.store.saves)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		tests := []struct {
			name    string
			options domain.AccountOptions
			field   string
		}{
			{"bad private key", domain.AccountOptions{domain.OptionPrivateKey: "0x1234"}, "privateKey"},
			{"non string private key", domain.AccountOptions{domain.OptionPrivateKey: 42}, "privateKey"},
			{"bad salt", domain.AccountOptions{domain.OptionSalt: "nothex"}, "salt"},
			{"long salt", domain.AccountOptions{domain.OptionSalt: "0x" + strings.Repeat("ab", 33)}, "salt"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				k := newKeyring(t)
				_, err := k.wallets.CreateAccount(ctx, tt.options)
				require.Error(t, err)

				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Field)
			})
		}
	})

	t.Run("unsupported chain", func(t *testing.T) {
		k := newKeyring(t, withChain(newFakeChain(999)))

		_, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnsupportedChain))
	})

	t.Run("persistence failure fails the call", func(t *testing.T) {
		store := &memoryStore{saveErr: errors.New("disk full")}
		k := newKeyring(t, withStore(store))

		_, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")

		accounts, err := k.wallets.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accounts)
		k.events.AssertNotCalled(t, "Emit", mock.Anything, domain.EventAccountCreated, mock.Anything)
	})
}

func TestWalletStoreUpdateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("address and type are preserved", func(t *testing.T) {
		k := newKeyring(t)
		created, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)

		updated, err := k.wallets.UpdateAccount(ctx, domain.Account{
			ID:      created.ID,
			Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Options: domain.AccountOptions{"label": "renamed", domain.OptionPrivateKey: testOwnerKey},
			Methods: []domain.AccountMethod{domain.MethodSignUserOperation},
			Type:    "eip155:eoa",
		})
		require.NoError(t, err)

		assert.Equal(t, created.Address, updated.Address)
		assert.Equal(t, domain.AccountTypeERC4337, updated.Type)
		assert.Equal(t, "renamed", updated.Options["label"])
		assert.NotContains(t, updated.Options, domain.OptionPrivateKey)
		assert.Equal(t, []domain.AccountMethod{domain.MethodSignUserOperation}, updated.Methods)

		stored, err := k.wallets.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Address, stored.Address)
		assert.Equal(t, domain.AccountTypeERC4337, stored.Type)
		k.events.AssertCalled(t, "Emit", mock.Anything, domain.EventAccountUpdated, mock.Anything)
	})

	t.Run("personal signing methods are rejected", func(t *testing.T) {
		k := newKeyring(t)
		created, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)

		for _, method := range []domain.AccountMethod{domain.MethodPersonalSign, domain.MethodSignTypedDataV4, domain.MethodSign} {
			_, err := k.wallets.UpdateAccount(ctx, domain.Account{
				ID:      created.ID,
				Methods: []domain.AccountMethod{domain.MethodSignUserOperation, method},
			})
			require.Error(t, err, method)
			assert.True(t, errors.Is(err, domain.ErrValidation), method)
		}

		stored, err := k.wallets.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultAccountMethods, stored.Methods)
	})

	t.Run("unknown account", func(t *testing.T) {
		k := newKeyring(t)
		_, err := k.wallets.UpdateAccount(ctx, domain.Account{ID: "missing"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestWalletStoreReads(t *testing.T) {
	ctx := context.Background()

	t.Run("delete then get fails", func(t *testing.T) {
		k := newKeyring(t)
		created, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)

		require.NoError(t, k.wallets.DeleteAccount(ctx, created.ID))

		_, err = k.wallets.GetAccount(ctx, created.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		k.events.AssertCalled(t, "Emit", mock.Anything, domain.EventAccountDeleted, domain.AccountDeletedPayload{ID: created.ID})

		err = k.wallets.DeleteAccount(ctx, created.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("get by address ignores case", func(t *testing.T) {
		k := newKeyring(t)
		created, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)

		found, err := k.wallets.GetByAddress(ctx, strings.ToLower(created.Address.Hex()))
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)

		found, err = k.wallets.GetByAddress(ctx, "0x"+strings.ToUpper(created.Address.Hex()[2:]))
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)

		_, err = k.wallets.GetByAddress(ctx, "0x0000000000000000000000000000000000000001")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("list keeps creation order and unique addresses", func(t *testing.T) {
		k := newKeyring(t)
		var ids []string
		for i := 0; i < 3; i++ {
			a, err := k.wallets.CreateAccount(ctx, nil)
			require.NoError(t, err)
			ids = append(ids, a.ID)
		}

		accounts, err := k.wallets.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 3)

		addresses := map[common.Address]bool{}
		for i, a := range accounts {
			assert.Equal(t, ids[i], a.ID)
			addresses[a.Address] = true
		}
		assert.Len(t, addresses, 3)
	})

	t.Run("state survives a reload", func(t *testing.T) {
		store := &memoryStore{}
		k := newKeyring(t, withStore(store))
		created, err := k.wallets.CreateAccount(ctx, domain.AccountOptions{domain.OptionPrivateKey: testOwnerKey})
		require.NoError(t, err)

		reloaded := newKeyring(t, withStore(store))
		found, err := reloaded.wallets.GetAccount(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Address, found.Address)
	})

	t.Run("filter supported chains", func(t *testing.T) {
		k := newKeyring(t)
		chains := k.wallets.FilterSupportedChains(ctx, "ignored", []string{
			"eip155:1", "eip155:80001", "bip122:000000000019d6689c085ae165831e93", "eip155:", "solana:mainnet",
		})
		assert.Equal(t, []string{"eip155:1", "eip155:80001"}, chains)
	})
}
