package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// StateStoreAdapter implements StateStore as a single JSON file in the data directory
type StateStoreAdapter struct {
	statePath string
}

// NewStateStoreAdapter creates a new StateStoreAdapter
func NewStateStoreAdapter(cfg *config.RuntimeConfig) *StateStoreAdapter {
	return &StateStoreAdapter{
		statePath: filepath.Join(cfg.DataDir, "priv", "keyring.json"),
	}
}

// Load reads the keyring blob. Returns nil if nothing has been saved yet.
func (s *StateStoreAdapter) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyring state file: %w", err)
	}
	return data, nil
}

// Save replaces the keyring blob. The file is written next to the target and
// renamed over it so a crash never leaves a truncated state.
func (s *StateStoreAdapter) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.statePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keyring state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".keyring-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write keyring state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync keyring state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close keyring state: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set keyring state permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.statePath); err != nil {
		return fmt.Errorf("failed to replace keyring state file: %w", err)
	}
	return nil
}

// Delete removes the keyring state file from disk.
func (s *StateStoreAdapter) Delete(_ context.Context) error {
	err := os.Remove(s.statePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete keyring state file: %w", err)
	}
	return nil
}

// GetPath returns the path to the state file
func (s *StateStoreAdapter) GetPath() string {
	return s.statePath
}

// Ensure StateStoreAdapter implements StateStore
var _ usecase.StateStore = (*StateStoreAdapter)(nil)
