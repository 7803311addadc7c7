package usecase_test

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/livingrockrises/snap-account-abstraction-keyring/pkg/erc4337"
	"github.com/stretchr/testify/mock"
)

const testOwnerKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// memoryStore is an in-memory StateStore
type memoryStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
	loadErr error
}

func (s *memoryStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.data, nil
}

func (s *memoryStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = append([]byte(nil), data...)
	s.saves++
	return nil
}

// fakeChain is a ChainReader serving fixed answers. Contract calls answer
// with an address derived from the call target and calldata, standing in for
// the account factory.
type fakeChain struct {
	mu      sync.Mutex
	chainID uint64
	code    map[common.Address][]byte
	nonces  map[common.Address]*big.Int
	calls   []common.Address
	err     error
	callErr error
}

func newFakeChain(chainID uint64) *fakeChain {
	return &fakeChain{
		chainID: chainID,
		code:    make(map[common.Address][]byte),
		nonces:  make(map[common.Address]*big.Int),
	}
}

func (c *fakeChain) ChainID(ctx context.Context) (uint64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.chainID, nil
}

func (c *fakeChain) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code[address], nil
}

func (c *fakeChain) EntryPointNonce(ctx context.Context, entryPoint, sender common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.nonces[sender]; ok {
		return new(big.Int).Set(n), nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, to)
	if c.callErr != nil {
		return nil, c.callErr
	}
	return common.LeftPadBytes(factoryAnswer(to, data).Bytes(), 32), nil
}

func factoryAnswer(to common.Address, data []byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256(to.Bytes(), data)[12:])
}

func (c *fakeChain) contractCalls() []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Address(nil), c.calls...)
}

func (c *fakeChain) SuggestFees(ctx context.Context) (*big.Int, *big.Int, error) {
	return big.NewInt(3_000_000_000), big.NewInt(1_000_000_000), nil
}

func (c *fakeChain) deploy(address common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[address] = []byte{0x60, 0x80}
}

// testKeys derives keys without BIP-32 so use case tests stay independent of the adapter
type testKeys struct{}

func (testKeys) FromPrivateKey(hexKey string) (*usecase.DerivedKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, domain.NewValidationError("privateKey", "%v", err)
	}
	return &usecase.DerivedKey{PrivateKey: key, Address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (testKeys) FromSeed(seed []byte, index uint32) (*usecase.DerivedKey, error) {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	key, err := crypto.ToECDSA(crypto.Keccak256(seed, idx[:]))
	if err != nil {
		return nil, err
	}
	return &usecase.DerivedKey{PrivateKey: key, Address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// signerKeys counts owner key loads so tests can tell when signing happened
type signerKeys struct {
	testKeys
	mu    sync.Mutex
	count int
}

func (k *signerKeys) FromPrivateKey(hexKey string) (*usecase.DerivedKey, error) {
	k.mu.Lock()
	k.count++
	k.mu.Unlock()
	return k.testKeys.FromPrivateKey(hexKey)
}

func (k *signerKeys) loads() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.count
}

type staticEntropy []byte

func (e staticEntropy) GetSeed(ctx context.Context, version int, salt string) ([]byte, error) {
	return []byte(e), nil
}

// MockEventSink is a mock implementation of EventSink
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Emit(ctx context.Context, kind domain.KeyringEvent, payload any) error {
	args := m.Called(ctx, kind, payload)
	return args.Error(0)
}

// MockPaymasterClient is a mock implementation of PaymasterClient
type MockPaymasterClient struct {
	mock.Mock
}

func (m *MockPaymasterClient) Sponsor(ctx context.Context, endpoint string, op *domain.UserOperation) ([]byte, error) {
	args := m.Called(ctx, endpoint, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPaymasterClient) QuoteERC20Fee(ctx context.Context, endpoint string, op *domain.UserOperation, token common.Address) ([]byte, error) {
	args := m.Called(ctx, endpoint, op, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockBundlerClient is a mock implementation of BundlerClient
type MockBundlerClient struct {
	mock.Mock
}

func (m *MockBundlerClient) EstimateUserOperationGas(ctx context.Context, endpoint string, op *domain.UserOperation, entryPoint common.Address) (*domain.GasEstimate, error) {
	args := m.Called(ctx, endpoint, op, entryPoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GasEstimate), args.Error(1)
}

func (m *MockBundlerClient) SendUserOperation(ctx context.Context, endpoint string, op *domain.UserOperation, entryPoint common.Address) (common.Hash, error) {
	args := m.Called(ctx, endpoint, op, entryPoint)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockBundlerClient) GetUserOperationReceipt(ctx context.Context, endpoint string, userOpHash common.Hash) (*domain.UserOperationReceipt, error) {
	args := m.Called(ctx, endpoint, userOpHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserOperationReceipt), args.Error(1)
}

// MockApprovalService is a mock implementation of ApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Confirm(ctx context.Context, title, description, detail string) (bool, error) {
	args := m.Called(ctx, title, description, detail)
	return args.Bool(0), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, title, message string) error {
	args := m.Called(ctx, title, message)
	return args.Error(0)
}

// MockProgressSink records progress events
type MockProgressSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(string)  {}
func (m *MockProgressSink) Error(string) {}

func (m *MockProgressSink) stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Stage)
	}
	return out
}

// keyring wires every use case against in-memory collaborators
type keyring struct {
	cfg       *config.RuntimeConfig
	store     *memoryStore
	chain     *fakeChain
	events    *MockEventSink
	paymaster *MockPaymasterClient
	bundler   *MockBundlerClient
	approval  *MockApprovalService
	notifier  *MockNotifier
	progress  *MockProgressSink
	signer    *signerKeys

	state    *usecase.KeyringState
	registry *usecase.ChainRegistry
	wallets  *usecase.WalletStore
	pipeline *usecase.UserOpPipeline
	send     *usecase.SendTransaction
	requests *usecase.RequestQueue
}

type keyringOption func(k *keyring)

func withAsyncRequests() keyringOption {
	return func(k *keyring) { k.cfg.AsyncRequests = true }
}

func withThreshold(n uint64) keyringOption {
	return func(k *keyring) { k.cfg.SponsorshipNonceThreshold = n }
}

func withStore(store *memoryStore) keyringOption {
	return func(k *keyring) { k.store = store }
}

func withChain(chain *fakeChain) keyringOption {
	return func(k *keyring) { k.chain = chain }
}

func newKeyring(t *testing.T, opts ...keyringOption) *keyring {
	t.Helper()

	k := &keyring{
		cfg: &config.RuntimeConfig{
			SponsorshipNonceThreshold: 2,
			ReceiptPollInterval:       time.Millisecond,
			EntropyVersion:            1,
			EntropySalt:               "bicoaasnap02",
			Chains:                    domain.BuiltinChains(),
		},
		store:     &memoryStore{},
		chain:     newFakeChain(domain.ChainIDMumbai),
		events:    new(MockEventSink),
		paymaster: new(MockPaymasterClient),
		bundler:   new(MockBundlerClient),
		approval:  new(MockApprovalService),
		notifier:  new(MockNotifier),
		progress:  &MockProgressSink{},
		signer:    &signerKeys{},
	}
	for _, opt := range opts {
		opt(k)
	}
	k.events.On("Emit", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	log := slog.New(slog.DiscardHandler)
	entropy := usecase.NewGetEntropy(staticEntropy("fixed installation seed"), k.cfg)

	k.state = usecase.NewKeyringState(k.store, log)
	k.registry = usecase.NewChainRegistry(k.state, k.chain, k.cfg)
	k.wallets = usecase.NewWalletStore(k.state, k.registry, k.chain, testKeys{}, entropy, k.events, log)
	k.pipeline = usecase.NewUserOpPipeline(k.wallets, k.registry, k.chain, k.signer, k.paymaster, k.cfg, log)
	k.send = usecase.NewSendTransaction(k.wallets, k.pipeline, k.chain, k.bundler, k.approval, k.notifier, k.progress, k.cfg, log)
	k.requests = usecase.NewRequestQueue(k.state, k.wallets, k.registry, k.pipeline, k.send, k.events, k.cfg, log)
	return k
}

func mumbaiDefaults() domain.ChainDefaults {
	return domain.BuiltinChains()[domain.ChainIDMumbai]
}

// mumbaiAccount is the smart account layout of the built-in Mumbai defaults
func mumbaiAccount() erc4337.SmartAccount {
	d := mumbaiDefaults()
	return erc4337.SmartAccount{
		Factory:         d.Factory,
		Implementation:  d.Implementation,
		OwnershipModule: d.OwnershipModule,
		FallbackHandler: d.FallbackHandler,
	}
}

// counterfactual is the address the fake factory reports for owner at index
func counterfactual(t *testing.T, owner common.Address, index common.Hash) common.Address {
	t.Helper()
	query, err := mumbaiAccount().EncodeGetAddress(owner, index)
	if err != nil {
		t.Fatalf("encode address query: %v", err)
	}
	return factoryAnswer(mumbaiDefaults().Factory, query)
}

func ownerAddress(t *testing.T, hexKey string) common.Address {
	t.Helper()
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		t.Fatalf("bad test key: %v", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

var errPaymasterDown = errors.New("paymaster unavailable")
