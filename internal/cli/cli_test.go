package cli

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against a fresh data directory
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--non-interactive", "--rpc-url", "http://127.0.0.1:1"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("version needs no app", func(t *testing.T) {
		out, err := run(t, t.TempDir(), "version")
		require.NoError(t, err)
		assert.Contains(t, out, "aakeyring version dev")
	})

	t.Run("entropy is stable across runs", func(t *testing.T) {
		dir := t.TempDir()

		first, err := run(t, dir, "entropy", "--json")
		require.NoError(t, err)
		second, err := run(t, dir, "entropy", "--json")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		var decoded struct {
			Entropy string `json:"entropy"`
		}
		require.NoError(t, json.Unmarshal([]byte(first), &decoded))
		assert.Len(t, decoded.Entropy, 2+64)
	})

	t.Run("empty queue lists as an empty array", func(t *testing.T) {
		out, err := run(t, t.TempDir(), "requests", "list", "--json")
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
	})

	t.Run("unsupported method is rejected", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "requests", "submit", "--method", "eth_sendTransaction")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnsupportedMethod)
	})

	t.Run("submit needs a method or file", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "requests", "submit")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--file or --method")
	})

	t.Run("config set needs a field", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "config", "set", "--chain", "80001")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to set")
	})

	t.Run("config set on an explicit chain", func(t *testing.T) {
		dir := t.TempDir()
		out, err := run(t, dir, "config", "set", "--json", "--chain", "80001",
			"--bundler-url", "https://bundler.example.com/rpc")
		require.NoError(t, err)

		var merged domain.ChainConfig
		require.NoError(t, json.Unmarshal([]byte(out), &merged))
		assert.Equal(t, "https://bundler.example.com/rpc", merged.BundlerURL)
	})
}

func TestTxFlags(t *testing.T) {
	recipient := "0x00000000000000000000000000000000000000B0"

	t.Run("decimal and hex values", func(t *testing.T) {
		for _, value := range []string{"1000", "0x3e8"} {
			f := txFlags{to: recipient, value: value, data: "0x"}
			tx, err := f.transaction()
			require.NoError(t, err, value)
			assert.Equal(t, big.NewInt(1000), tx.Value.ToInt())
			assert.Equal(t, common.HexToAddress(recipient), tx.To)
			assert.Empty(t, tx.Data)
		}
	})

	t.Run("invalid inputs", func(t *testing.T) {
		tests := []struct {
			name  string
			flags txFlags
		}{
			{"bad address", txFlags{to: "0x1234", value: "0", data: "0x"}},
			{"negative value", txFlags{to: recipient, value: "-1", data: "0x"}},
			{"bad hex value", txFlags{to: recipient, value: "0xzz", data: "0x"}},
			{"unprefixed data", txFlags{to: recipient, value: "0", data: "abcd"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.flags.transaction()
				assert.Error(t, err)
			})
		}
	})
}

func TestReadRequestFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "request.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
id: "7"
account: acc
scope: eip155:80001
request:
  method: eth_prepareUserOperation
  params:
    - to: "0x00000000000000000000000000000000000000B0"
      value: "0x0"
      data: "0x"
`), 0o600))

		req, err := readRequestFile(path)
		require.NoError(t, err)
		assert.Equal(t, "7", req.ID)
		assert.Equal(t, "acc", req.Account)
		assert.Equal(t, string(domain.MethodPrepareUserOperation), req.Request.Method)

		call, err := domain.ParseRequest(req.Request)
		require.NoError(t, err)
		prepare, ok := call.(domain.PrepareUserOperationCall)
		require.True(t, ok)
		require.Len(t, prepare.Transactions, 1)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "request.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"id":"8","account":"acc","request":{"method":"snap.internal.setConfig","params":[{"bundlerUrl":"https://b.example.com"}]}}`), 0o600))

		req, err := readRequestFile(path)
		require.NoError(t, err)
		assert.Equal(t, "8", req.ID)
		assert.Equal(t, domain.MethodSetConfig, req.Request.Method)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readRequestFile(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestMultiSelectModel(t *testing.T) {
	requests := []domain.KeyringRequest{
		{ID: "a", Request: domain.RPCRequest{Method: string(domain.MethodSignUserOperation)}},
		{ID: "b", Request: domain.RPCRequest{Method: string(domain.MethodSignUserOperation)}},
		{ID: "c", Request: domain.RPCRequest{Method: string(domain.MethodSignUserOperation)}},
	}
	key := func(s string) tea.KeyMsg {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	update := func(m multiSelectModel, msg tea.Msg) multiSelectModel {
		next, _ := m.Update(msg)
		return next.(multiSelectModel)
	}

	t.Run("toggle and confirm", func(t *testing.T) {
		m := initialMultiSelectModel(requests, "pick")
		m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.False(t, m.done, "enter without a selection is ignored")

		m = update(m, key("j"))
		m = update(m, key("j"))
		m = update(m, tea.KeyMsg{Type: tea.KeySpace})
		m = update(m, key("k"))
		m = update(m, key("k"))
		m = update(m, tea.KeyMsg{Type: tea.KeySpace})
		m = update(m, tea.KeyMsg{Type: tea.KeyEnter})

		assert.True(t, m.done)
		assert.False(t, m.cancelled)
		assert.Equal(t, []int{0, 2}, m.indices())
	})

	t.Run("select all toggles", func(t *testing.T) {
		m := initialMultiSelectModel(requests, "pick")
		m = update(m, key("a"))
		assert.Equal(t, []int{0, 1, 2}, m.indices())
		m = update(m, key("a"))
		assert.Empty(t, m.indices())
	})

	t.Run("quit cancels", func(t *testing.T) {
		m := initialMultiSelectModel(requests, "pick")
		m = update(m, tea.KeyMsg{Type: tea.KeySpace})
		m = update(m, key("q"))
		assert.True(t, m.cancelled)
		assert.Empty(t, m.View())
	})

	t.Run("view lists every request", func(t *testing.T) {
		view := initialMultiSelectModel(requests, "pick").View()
		for _, req := range requests {
			assert.Contains(t, view, req.ID)
		}
	})
}
