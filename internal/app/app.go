package app

import (
	"log/slog"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters/jsonrpc"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Selector usecase.AccountSelector

	// Use cases
	Accounts *usecase.WalletStore
	Chains   *usecase.ChainRegistry
	Requests *usecase.RequestQueue
	UserOps  *usecase.UserOpPipeline
	Send     *usecase.SendTransaction
	Entropy  *usecase.GetEntropy

	// JSON-RPC surface for `serve`
	Server *jsonrpc.Server
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	selector usecase.AccountSelector,
	accounts *usecase.WalletStore,
	chains *usecase.ChainRegistry,
	requests *usecase.RequestQueue,
	userOps *usecase.UserOpPipeline,
	send *usecase.SendTransaction,
	entropy *usecase.GetEntropy,
	server *jsonrpc.Server,
) (*App, error) {
	return &App{
		Config:   cfg,
		Log:      log,
		Selector: selector,
		Accounts: accounts,
		Chains:   chains,
		Requests: requests,
		UserOps:  userOps,
		Send:     send,
		Entropy:  entropy,
		Server:   server,
	}, nil
}
