package keys

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hardhat and anvil's default development mnemonic
const testMnemonic = "test test test test test test test test test test test junk"

func TestFromMnemonic(t *testing.T) {
	tests := []struct {
		index   uint32
		address string
	}{
		{0, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		{1, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		{2, "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			key, err := FromMnemonic(testMnemonic, tt.index)
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(tt.address), key.Address)
		})
	}
}

func TestDeriverAdapter_FromSeed(t *testing.T) {
	d := NewDeriverAdapter()
	seed := common.FromHex("0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	t.Run("deterministic per index", func(t *testing.T) {
		a, err := d.FromSeed(seed, 0)
		require.NoError(t, err)
		b, err := d.FromSeed(seed, 0)
		require.NoError(t, err)
		c, err := d.FromSeed(seed, 1)
		require.NoError(t, err)

		assert.Equal(t, a.Address, b.Address)
		assert.NotEqual(t, a.Address, c.Address)
	})

	t.Run("rejects entropy of the wrong size", func(t *testing.T) {
		_, err := d.FromSeed([]byte{1, 2, 3}, 0)
		assert.Error(t, err)
	})
}

func TestDeriverAdapter_FromPrivateKey(t *testing.T) {
	d := NewDeriverAdapter()

	t.Run("with and without prefix", func(t *testing.T) {
		const hexKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
		a, err := d.FromPrivateKey("0x" + hexKey)
		require.NoError(t, err)
		b, err := d.FromPrivateKey(hexKey)
		require.NoError(t, err)

		assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), a.Address)
		assert.Equal(t, a.Address, b.Address)
	})

	t.Run("invalid keys", func(t *testing.T) {
		for _, key := range []string{"", "0x12", "zz", "0x0000000000000000000000000000000000000000000000000000000000000000"} {
			_, err := d.FromPrivateKey(key)
			require.Error(t, err, key)
			assert.True(t, errors.Is(err, domain.ErrValidation), key)
		}
	})
}
