package adapters

import (
	"fmt"
	"log/slog"

	"github.com/google/wire"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/blockchain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/bundler"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/entropy"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/events"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/fs"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/interactive"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/jsonrpc"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/keys"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/paymaster"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/postgres"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/progress"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// ProvideStateStore picks the durable store for the configured driver
func ProvideStateStore(cfg *config.RuntimeConfig, log *slog.Logger) (usecase.StateStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		store, err := postgres.NewStateStoreAdapter(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				log.Warn("failed to close postgres store", "error", err)
			}
		}
		return store, cleanup, nil
	default:
		return fs.NewStateStoreAdapter(cfg), func() {}, nil
	}
}

// ProvideChainReader provides the node connection, closed on cleanup
func ProvideChainReader(cfg *config.RuntimeConfig) (*blockchain.ReaderAdapter, func()) {
	reader := blockchain.NewReaderAdapter(cfg)
	return reader, reader.Close
}

// ProvideBundlerClient provides the bundler client, closed on cleanup
func ProvideBundlerClient(log *slog.Logger) (*bundler.ClientAdapter, func()) {
	client := bundler.NewClientAdapter(log)
	return client, client.Close
}

// ProvidePaymasterClient provides the paymaster client, closed on cleanup
func ProvidePaymasterClient(log *slog.Logger) (*paymaster.ClientAdapter, func()) {
	client := paymaster.NewClientAdapter(log)
	return client, client.Close
}

// ProvideEventFeed provides the event feed, closed on cleanup
func ProvideEventFeed(log *slog.Logger) (*events.FeedAdapter, func()) {
	feed := events.NewFeedAdapter(log)
	return feed, feed.Close
}

// StorageSet provides keyring persistence and secrets
var StorageSet = wire.NewSet(
	ProvideStateStore,

	entropy.NewSourceAdapter,
	wire.Bind(new(usecase.EntropySource), new(*entropy.SourceAdapter)),

	keys.NewDeriverAdapter,
	wire.Bind(new(usecase.KeyDeriver), new(*keys.DeriverAdapter)),
)

// NetworkSet provides chain, bundler and paymaster clients
var NetworkSet = wire.NewSet(
	ProvideChainReader,
	wire.Bind(new(usecase.ChainReader), new(*blockchain.ReaderAdapter)),

	ProvideBundlerClient,
	wire.Bind(new(usecase.BundlerClient), new(*bundler.ClientAdapter)),

	ProvidePaymasterClient,
	wire.Bind(new(usecase.PaymasterClient), new(*paymaster.ClientAdapter)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.AccountSelector), new(*interactive.SelectorAdapter)),

	interactive.NewApprovalAdapter,
	wire.Bind(new(usecase.ApprovalService), new(*interactive.ApprovalAdapter)),

	interactive.NewNotifierAdapter,
	wire.Bind(new(usecase.Notifier), new(*interactive.NotifierAdapter)),

	progress.NewProgressSink,
)

// EventsSet provides the event feed and its RPC surface
var EventsSet = wire.NewSet(
	ProvideEventFeed,
	wire.Bind(new(usecase.EventSink), new(*events.FeedAdapter)),
	wire.Bind(new(jsonrpc.EventSubscriber), new(*events.FeedAdapter)),

	jsonrpc.NewKeyringAPI,
	jsonrpc.NewServer,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StorageSet,
	NetworkSet,
	InteractiveSet,
	EventsSet,
)
