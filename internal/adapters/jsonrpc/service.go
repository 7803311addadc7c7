package jsonrpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// Namespace is the RPC method prefix, keyring_createAccount etc.
const Namespace = "keyring"

// EventSubscriber delivers keyring events
type EventSubscriber interface {
	Subscribe(ch chan<- domain.Event) event.Subscription
}

// KeyringAPI exposes the keyring host operations over JSON-RPC
type KeyringAPI struct {
	wallets  *usecase.WalletStore
	requests *usecase.RequestQueue
	entropy  *usecase.GetEntropy
	events   EventSubscriber
}

// NewKeyringAPI creates a new KeyringAPI
func NewKeyringAPI(
	wallets *usecase.WalletStore,
	requests *usecase.RequestQueue,
	entropy *usecase.GetEntropy,
	events EventSubscriber,
) *KeyringAPI {
	return &KeyringAPI{
		wallets:  wallets,
		requests: requests,
		entropy:  entropy,
		events:   events,
	}
}

// ListAccounts implements keyring_listAccounts
func (api *KeyringAPI) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := api.wallets.ListAccounts(ctx)
	return accounts, toRPCError(err)
}

// GetAccount implements keyring_getAccount
func (api *KeyringAPI) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := api.wallets.GetAccount(ctx, id)
	return account, toRPCError(err)
}

// CreateAccount implements keyring_createAccount; options may be omitted
func (api *KeyringAPI) CreateAccount(ctx context.Context, options *domain.AccountOptions) (*domain.Account, error) {
	opts := domain.AccountOptions{}
	if options != nil {
		opts = *options
	}
	account, err := api.wallets.CreateAccount(ctx, opts)
	return account, toRPCError(err)
}

// UpdateAccount implements keyring_updateAccount
func (api *KeyringAPI) UpdateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	updated, err := api.wallets.UpdateAccount(ctx, account)
	return updated, toRPCError(err)
}

// DeleteAccount implements keyring_deleteAccount
func (api *KeyringAPI) DeleteAccount(ctx context.Context, id string) error {
	return toRPCError(api.wallets.DeleteAccount(ctx, id))
}

// FilterAccountChains implements keyring_filterAccountChains
func (api *KeyringAPI) FilterAccountChains(ctx context.Context, id string, chains []string) []string {
	return api.wallets.FilterSupportedChains(ctx, id, chains)
}

// ListRequests implements keyring_listRequests
func (api *KeyringAPI) ListRequests(ctx context.Context) ([]domain.KeyringRequest, error) {
	requests, err := api.requests.ListRequests(ctx)
	return requests, toRPCError(err)
}

// GetRequest implements keyring_getRequest
func (api *KeyringAPI) GetRequest(ctx context.Context, id string) (*domain.KeyringRequest, error) {
	req, err := api.requests.GetRequest(ctx, id)
	return req, toRPCError(err)
}

// SubmitRequest implements keyring_submitRequest
func (api *KeyringAPI) SubmitRequest(ctx context.Context, req domain.KeyringRequest) (*domain.SubmitRequestResponse, error) {
	resp, err := api.requests.SubmitRequest(ctx, req)
	return resp, toRPCError(err)
}

// ApproveRequest implements keyring_approveRequest
func (api *KeyringAPI) ApproveRequest(ctx context.Context, id string) (any, error) {
	result, err := api.requests.ApproveRequest(ctx, id)
	return result, toRPCError(err)
}

// RejectRequest implements keyring_rejectRequest
func (api *KeyringAPI) RejectRequest(ctx context.Context, id string) error {
	return toRPCError(api.requests.RejectRequest(ctx, id))
}

// GetEntropy implements keyring_getEntropy
func (api *KeyringAPI) GetEntropy(ctx context.Context) (hexutil.Bytes, error) {
	seed, err := api.entropy.Run(ctx)
	return seed, toRPCError(err)
}

// Events streams every keyring event; clients call keyring_subscribe("events")
func (api *KeyringAPI) Events(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	rpcSub := notifier.CreateSubscription()
	ch := make(chan domain.Event, 16)
	sub := api.events.Subscribe(ch)
	go func() {
		defer sub.Unsubscribe()

		for {
			select {
			case ev := <-ch:
				if err := notifier.Notify(rpcSub.ID, ev); err != nil {
					return
				}
			case <-rpcSub.Err():
				return
			case <-sub.Err():
				return
			}
		}
	}()

	return rpcSub, nil
}
