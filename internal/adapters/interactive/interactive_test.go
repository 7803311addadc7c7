package interactive

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalAdapter(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)

	t.Run("auto approve", func(t *testing.T) {
		a := NewApprovalAdapter(&config.RuntimeConfig{AutoApprove: true, NonInteractive: true}, log)
		ok, err := a.Confirm(ctx, "title", "description", "0x01")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("non-interactive denies", func(t *testing.T) {
		a := NewApprovalAdapter(&config.RuntimeConfig{NonInteractive: true}, log)
		ok, err := a.Confirm(ctx, "title", "description", "0x01")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancelled context", func(t *testing.T) {
		a := NewApprovalAdapter(&config.RuntimeConfig{}, log)
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := a.Confirm(ctx, "title", "description", "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNotifierAdapter(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	n := &NotifierAdapter{out: &out}

	require.NoError(t, n.Notify(context.Background(), "Transaction sent", "included in 0xabc"))
	assert.Equal(t, "Transaction sent: included in 0xabc\n", out.String())
}

func TestSelectorAdapter(t *testing.T) {
	ctx := context.Background()
	accounts := []domain.Account{
		{ID: "a", Address: common.HexToAddress("0x01")},
		{ID: "b", Address: common.HexToAddress("0x02"), Options: domain.AccountOptions{domain.OptionSalt: "0x2a"}},
	}

	t.Run("single account needs no prompt", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
		account, err := s.SelectAccount(ctx, accounts[:1], "Select account")
		require.NoError(t, err)
		assert.Equal(t, "a", account.ID)
	})

	t.Run("ambiguous without a terminal", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
		_, err := s.SelectAccount(ctx, accounts, "Select account")
		assert.ErrorContains(t, err, "2 accounts match")
	})

	t.Run("empty", func(t *testing.T) {
		s := NewSelectorAdapter(&config.RuntimeConfig{})
		_, err := s.SelectAccount(ctx, nil, "Select account")
		assert.Error(t, err)
	})

	t.Run("options and search", func(t *testing.T) {
		color.NoColor = true
		options := formatAccountOptions(accounts)
		assert.Equal(t, "0x0000000000000000000000000000000000000001 (a)", options[0])
		assert.Contains(t, options[1], "[salt 0x2a]")

		search := createFuzzySearchFunc(options)
		assert.True(t, search("", 0))
		assert.True(t, search("salt", 1))
		assert.False(t, search("salt", 0))
	})
}
