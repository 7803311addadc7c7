package domain

import (
	"maps"
	"slices"
)

// KeyringState is the whole persisted keyring: wallets, queued requests and chain overrides
type KeyringState struct {
	Wallets         map[string]*Wallet         `json:"wallets"`
	PendingRequests map[string]*KeyringRequest `json:"pendingRequests"`
	Config          map[uint64]ChainConfig     `json:"config"`

	// Insertion order, used for listing
	WalletOrder  []string `json:"walletOrder"`
	RequestOrder []string `json:"requestOrder"`
}

// NewKeyringState returns an empty state
func NewKeyringState() *KeyringState {
	return &KeyringState{
		Wallets:         make(map[string]*Wallet),
		PendingRequests: make(map[string]*KeyringRequest),
		Config:          make(map[uint64]ChainConfig),
	}
}

// Normalize fills nil maps left by decoding older or empty blobs
func (s *KeyringState) Normalize() {
	if s.Wallets == nil {
		s.Wallets = make(map[string]*Wallet)
	}
	if s.PendingRequests == nil {
		s.PendingRequests = make(map[string]*KeyringRequest)
	}
	if s.Config == nil {
		s.Config = make(map[uint64]ChainConfig)
	}
	s.WalletOrder = reconcileOrder(s.WalletOrder, s.Wallets)
	s.RequestOrder = reconcileOrder(s.RequestOrder, s.PendingRequests)
}

// Clone returns a deep copy of s
func (s *KeyringState) Clone() *KeyringState {
	cp := &KeyringState{
		Wallets:         make(map[string]*Wallet, len(s.Wallets)),
		PendingRequests: make(map[string]*KeyringRequest, len(s.PendingRequests)),
		Config:          maps.Clone(s.Config),
		WalletOrder:     slices.Clone(s.WalletOrder),
		RequestOrder:    slices.Clone(s.RequestOrder),
	}
	for id, w := range s.Wallets {
		cp.Wallets[id] = w.Clone()
	}
	for id, r := range s.PendingRequests {
		cp.PendingRequests[id] = r.Clone()
	}
	if cp.Config == nil {
		cp.Config = make(map[uint64]ChainConfig)
	}
	return cp
}

// OrderedWallets returns wallets in creation order
func (s *KeyringState) OrderedWallets() []*Wallet {
	out := make([]*Wallet, 0, len(s.WalletOrder))
	for _, id := range s.WalletOrder {
		if w, ok := s.Wallets[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// OrderedRequests returns pending requests in submission order
func (s *KeyringState) OrderedRequests() []*KeyringRequest {
	out := make([]*KeyringRequest, 0, len(s.RequestOrder))
	for _, id := range s.RequestOrder {
		if r, ok := s.PendingRequests[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// reconcileOrder drops ids no longer present and appends ids missing from order
func reconcileOrder[V any](order []string, items map[string]V) []string {
	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(items))
	for _, id := range order {
		if _, ok := items[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	missing := make([]string, 0)
	for id := range items {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return append(out, missing...)
}
