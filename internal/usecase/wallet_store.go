package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
	"github.com/samber/lo"
)

var evmChainPattern = regexp.MustCompile(`^eip155:\d+$`)

// WalletInfo is a wallet without its secret, for display
type WalletInfo struct {
	Account  domain.Account
	Owner    common.Address
	Salt     common.Hash
	Index    common.Hash
	Chains   map[uint64]bool
	InitCode hexutil.Bytes
}

// WalletStore owns the wallet records and their uniqueness invariants
type WalletStore struct {
	state    *KeyringState
	registry *ChainRegistry
	chains   ChainReader
	keys     KeyDeriver
	entropy  *GetEntropy
	events   EventSink
	log      *slog.Logger

	newID      func() string
	randomSalt func() (common.Hash, error)
}

// NewWalletStore creates a new WalletStore use case
func NewWalletStore(
	state *KeyringState,
	registry *ChainRegistry,
	chains ChainReader,
	keys KeyDeriver,
	entropy *GetEntropy,
	events EventSink,
	log *slog.Logger,
) *WalletStore {
	return &WalletStore{
		state:      state,
		registry:   registry,
		chains:     chains,
		keys:       keys,
		entropy:    entropy,
		events:     events,
		log:        log,
		newID:      uuid.NewString,
		randomSalt: randomSalt,
	}
}

func randomSalt() (common.Hash, error) {
	var salt common.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return common.Hash{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// CreateAccount creates a smart account owned by an explicit or derived key
func (s *WalletStore) CreateAccount(ctx context.Context, options domain.AccountOptions) (*domain.Account, error) {
	opts := maps.Clone(options)
	if opts == nil {
		opts = domain.AccountOptions{}
	}

	key, err := s.ownerKey(ctx, opts)
	if err != nil {
		return nil, err
	}
	delete(opts, domain.OptionPrivateKey)

	if existing, err := s.findWallet(ctx, func(w *domain.Wallet) bool { return w.Owner == key.Address }); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: owner %s already controls account '%s'", domain.ErrConflict, key.Address.Hex(), existing.Account.ID)
	}

	salt, index, err := s.salt(opts)
	if err != nil {
		return nil, err
	}

	chainID, err := s.registry.ActiveChainID(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := s.registry.ResolveChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	address, err := s.counterfactualAddress(ctx, chain, key.Address, index)
	if err != nil {
		return nil, err
	}

	code, err := s.chains.CodeAt(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to check code at %s: %w", address.Hex(), err)
	}
	if len(code) > 0 {
		return nil, &domain.CollisionError{Address: address}
	}

	account := domain.Account{
		ID:      s.newID(),
		Address: address,
		Options: opts,
		Methods: slices.Clone(domain.DefaultAccountMethods),
		Type:    domain.AccountTypeERC4337,
	}
	wallet := &domain.Wallet{
		Account:    account,
		Owner:      key.Address,
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key.PrivateKey)),
		Chains:     map[uint64]bool{chainID: false},
		Salt:       salt,
		Index:      index,
	}

	err = s.state.Update(ctx, func(state *domain.KeyringState) error {
		for _, w := range state.Wallets {
			if w.Owner == wallet.Owner {
				return fmt.Errorf("%w: owner %s already controls account '%s'", domain.ErrConflict, wallet.Owner.Hex(), w.Account.ID)
			}
			if w.Account.Address == wallet.Account.Address {
				return fmt.Errorf("%w: address %s already belongs to account '%s'", domain.ErrConflict, address.Hex(), w.Account.ID)
			}
		}
		state.Wallets[account.ID] = wallet
		state.WalletOrder = append(state.WalletOrder, account.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account created", "id", account.ID, "address", address.Hex(), "chainId", chainID)

	created := account.Clone()
	if err := s.events.Emit(ctx, domain.EventAccountCreated, domain.AccountCreatedPayload{Account: created}); err != nil {
		return nil, fmt.Errorf("failed to emit account created event: %w", err)
	}
	return &created, nil
}

// ownerKey derives the owner key from the privateKey option, or from the
// installation seed at the next unused path index
func (s *WalletStore) ownerKey(ctx context.Context, opts domain.AccountOptions) (*DerivedKey, error) {
	if raw, ok := opts[domain.OptionPrivateKey]; ok {
		hexKey, ok := raw.(string)
		if !ok || hexKey == "" {
			return nil, domain.NewValidationError("privateKey", "must be a hex string")
		}
		return s.keys.FromPrivateKey(hexKey)
	}

	state, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	seed, err := s.entropy.Run(ctx)
	if err != nil {
		return nil, err
	}
	return s.keys.FromSeed(seed, uint32(len(state.Wallets)))
}

// salt returns the recorded salt and the deployment index. A salt option is
// both. Without one the salt is random and the account is deployed at index 0,
// so a fixed owner always maps to the same address.
func (s *WalletStore) salt(opts domain.AccountOptions) (salt, index common.Hash, err error) {
	raw, ok := opts[domain.OptionSalt]
	if !ok {
		salt, err = s.randomSalt()
		return salt, common.Hash{}, err
	}
	str, ok := raw.(string)
	if !ok {
		return common.Hash{}, common.Hash{}, domain.NewValidationError("salt", "must be a hex string")
	}
	b, err := hexutil.Decode(str)
	if err != nil {
		return common.Hash{}, common.Hash{}, domain.NewValidationError("salt", "%v", err)
	}
	if len(b) > common.HashLength {
		return common.Hash{}, common.Hash{}, domain.NewValidationError("salt", "longer than %d bytes", common.HashLength)
	}
	salt = common.BytesToHash(b)
	return salt, salt, nil
}

// counterfactualAddress asks the chain's account factory where it will deploy
// the account for owner at index
func (s *WalletStore) counterfactualAddress(ctx context.Context, chain *ResolvedChain, owner common.Address, index common.Hash) (common.Address, error) {
	query, err := chain.Account.EncodeGetAddress(owner, index)
	if err != nil {
		return common.Address{}, err
	}
	out, err := s.chains.CallContract(ctx, chain.Account.Factory, query)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get counterfactual address: %w", err)
	}
	address, err := erc4337.DecodeAddress(out)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode counterfactual address: %w", err)
	}
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: factory %s returned the zero address", domain.ErrConfig, chain.Account.Factory.Hex())
	}
	return address, nil
}

// UpdateAccount merges account into the stored record. The address is immutable.
func (s *WalletStore) UpdateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	if _, err := s.wallet(ctx, account.ID); err != nil {
		return nil, err
	}

	for _, m := range account.Methods {
		if m.RequiresEOASignature() {
			return nil, domain.NewValidationError("methods", "account does not implement EIP-1271, %s is not supported", m)
		}
	}

	var updated domain.Account
	err := s.state.Update(ctx, func(state *domain.KeyringState) error {
		w, ok := state.Wallets[account.ID]
		if !ok {
			return &domain.NotFoundError{Kind: "account", ID: account.ID}
		}
		updated = w.Account
		if account.Options != nil {
			updated.Options = maps.Clone(account.Options)
			delete(updated.Options, domain.OptionPrivateKey)
		}
		if account.Methods != nil {
			updated.Methods = slices.Clone(account.Methods)
		}
		// address and type are never taken from the caller
		updated.Address = w.Account.Address
		updated.Type = w.Account.Type
		w.Account = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated = updated.Clone()
	if err := s.events.Emit(ctx, domain.EventAccountUpdated, domain.AccountUpdatedPayload{Account: updated}); err != nil {
		return nil, fmt.Errorf("failed to emit account updated event: %w", err)
	}
	return &updated, nil
}

// DeleteAccount removes the wallet with id
func (s *WalletStore) DeleteAccount(ctx context.Context, id string) error {
	err := s.state.Update(ctx, func(state *domain.KeyringState) error {
		if _, ok := state.Wallets[id]; !ok {
			return &domain.NotFoundError{Kind: "account", ID: id}
		}
		delete(state.Wallets, id)
		state.WalletOrder = lo.Without(state.WalletOrder, id)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("account deleted", "id", id)
	if err := s.events.Emit(ctx, domain.EventAccountDeleted, domain.AccountDeletedPayload{ID: id}); err != nil {
		return fmt.Errorf("failed to emit account deleted event: %w", err)
	}
	return nil
}

// MarkDeployed records that the account's contract now exists on chainID
func (s *WalletStore) MarkDeployed(ctx context.Context, id string, chainID uint64) error {
	return s.state.Update(ctx, func(state *domain.KeyringState) error {
		w, ok := state.Wallets[id]
		if !ok {
			return &domain.NotFoundError{Kind: "account", ID: id}
		}
		if w.Chains == nil {
			w.Chains = make(map[uint64]bool)
		}
		w.Chains[chainID] = true
		return nil
	})
}

// ListAccounts returns every account in creation order
func (s *WalletStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	state, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(state.OrderedWallets(), func(w *domain.Wallet, _ int) domain.Account {
		return w.Account.Clone()
	}), nil
}

// GetAccount returns the account with id
func (s *WalletStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	w, err := s.wallet(ctx, id)
	if err != nil {
		return nil, err
	}
	return &w.Account, nil
}

// GetByAddress returns the account at address, compared case-insensitively
func (s *WalletStore) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	w, err := s.walletByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return &w.Account, nil
}

// Describe returns the wallet with id minus its private key
func (s *WalletStore) Describe(ctx context.Context, id string) (*WalletInfo, error) {
	w, err := s.wallet(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WalletInfo{
		Account:  w.Account,
		Owner:    w.Owner,
		Salt:     w.Salt,
		Index:    w.Index,
		Chains:   w.Chains,
		InitCode: w.InitCode,
	}, nil
}

// FilterSupportedChains keeps the EVM chains. Every wallet works on every EVM
// chain, so id is not consulted.
func (s *WalletStore) FilterSupportedChains(_ context.Context, _ string, chains []string) []string {
	return lo.Filter(chains, func(chain string, _ int) bool {
		return evmChainPattern.MatchString(chain)
	})
}

// wallet returns a private copy of the wallet with id
func (s *WalletStore) wallet(ctx context.Context, id string) (*domain.Wallet, error) {
	w, err := s.findWallet(ctx, func(w *domain.Wallet) bool { return w.Account.ID == id })
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, &domain.NotFoundError{Kind: "account", ID: id}
	}
	return w, nil
}

func (s *WalletStore) walletByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	w, err := s.findWallet(ctx, func(w *domain.Wallet) bool {
		return strings.EqualFold(w.Account.Address.Hex(), address)
	})
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, &domain.NotFoundError{Kind: "account", ID: address}
	}
	return w, nil
}

func (s *WalletStore) findWallet(ctx context.Context, match func(*domain.Wallet) bool) (*domain.Wallet, error) {
	state, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	w, ok := lo.Find(state.OrderedWallets(), match)
	if !ok {
		return nil, nil
	}
	return w.Clone(), nil
}
