//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/adapters"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/logging"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/spf13/viper"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewKeyringState,
		usecase.NewChainRegistry,
		usecase.NewGetEntropy,
		usecase.NewWalletStore,
		usecase.NewUserOpPipeline,
		usecase.NewSendTransaction,
		usecase.NewRequestQueue,

		// App
		NewApp,
	)
	return nil, nil, nil
}
