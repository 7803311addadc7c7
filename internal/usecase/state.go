package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

// KeyringState is the single mutation point for wallets, pending requests and
// chain overrides. Updates are copy-on-write: a mutation runs against a clone,
// the clone is persisted, and only then does it become the current state.
// Snapshots handed to readers are never mutated afterwards.
type KeyringState struct {
	store StateStore
	log   *slog.Logger

	once    sync.Once
	loadErr error

	mu      sync.Mutex
	current *domain.KeyringState
}

// NewKeyringState creates a state holder backed by store. Nothing is loaded
// until first use.
func NewKeyringState(store StateStore, log *slog.Logger) *KeyringState {
	return &KeyringState{
		store: store,
		log:   log,
	}
}

func (k *KeyringState) hydrate(ctx context.Context) error {
	k.once.Do(func() {
		data, err := k.store.Load(ctx)
		if err != nil {
			k.loadErr = fmt.Errorf("failed to load keyring state: %w", err)
			return
		}

		state := domain.NewKeyringState()
		if len(data) > 0 {
			if err := json.Unmarshal(data, state); err != nil {
				k.loadErr = fmt.Errorf("failed to decode keyring state: %w", err)
				return
			}
		}
		state.Normalize()

		k.mu.Lock()
		k.current = state
		k.mu.Unlock()

		k.log.Debug("keyring state loaded", "wallets", len(state.Wallets), "pendingRequests", len(state.PendingRequests))
	})
	return k.loadErr
}

// Snapshot returns the current state. Callers must treat it as read-only.
func (k *KeyringState) Snapshot(ctx context.Context) (*domain.KeyringState, error) {
	if err := k.hydrate(ctx); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current, nil
}

// Update applies fn to a copy of the state and persists it. If fn or the save
// fails the current state is left untouched and the error is returned.
func (k *KeyringState) Update(ctx context.Context, fn func(state *domain.KeyringState) error) error {
	if err := k.hydrate(ctx); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	next := k.current.Clone()
	if err := fn(next); err != nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode keyring state: %w", err)
	}
	if err := k.store.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist keyring state: %w", err)
	}

	k.current = next
	return nil
}
