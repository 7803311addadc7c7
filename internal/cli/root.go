package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/app"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/config"
	"github.com/spf13/cobra"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
	// cleanupKey is the context key for the teardown of the app and its timeout
	cleanupKey contextKey = "cleanup"
)

// commands that run without an app
var standalone = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aakeyring",
		Short: "ERC-4337 smart account keyring",
		Long: `aakeyring manages ERC-4337 smart accounts and signs their user operations.

Each account is a counterfactual smart contract wallet owned by a key held in
the keyring. User operations are prepared, patched with paymaster data and
signed through the keyring, either directly or via an approval queue.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if standalone[cmd.Name()] {
				return nil
			}

			dataDir, err := resolveDataDir(cmd)
			if err != nil {
				return err
			}

			v := config.SetupViper(dataDir, cmd)

			appInstance, cleanup, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			// serve runs until interrupted
			if appInstance.Config.Timeout > 0 && cmd.Name() != "serve" {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				teardown := cleanup
				cleanup = func() {
					cancel()
					teardown()
				}
			}
			ctx = context.WithValue(ctx, cleanupKey, cleanup)

			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cleanup, ok := cmd.Context().Value(cleanupKey).(func()); ok {
				cleanup()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("data-dir", "", "Keyring data directory (default ~/.aakeyring)")
	rootCmd.PersistentFlags().String("rpc-url", "", "Node RPC URL; selects the active chain")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Approve confirmation prompts automatically")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	// Main commands
	accountsCmd := NewAccountsCmd()
	accountsCmd.GroupID = "main"
	rootCmd.AddCommand(accountsCmd)

	sendCmd := NewSendCmd()
	sendCmd.GroupID = "main"
	rootCmd.AddCommand(sendCmd)

	userOpCmd := NewUserOpCmd()
	userOpCmd.GroupID = "main"
	rootCmd.AddCommand(userOpCmd)

	requestsCmd := NewRequestsCmd()
	requestsCmd.GroupID = "main"
	rootCmd.AddCommand(requestsCmd)

	// Management commands
	configCmd := NewConfigCmd()
	configCmd.GroupID = "management"
	rootCmd.AddCommand(configCmd)

	entropyCmd := NewEntropyCmd()
	entropyCmd.GroupID = "management"
	rootCmd.AddCommand(entropyCmd)

	serveCmd := NewServeCmd()
	serveCmd.GroupID = "management"
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// resolveDataDir picks --data-dir, then AAKEYRING_DATA_DIR, then ~/.aakeyring
func resolveDataDir(cmd *cobra.Command) (string, error) {
	if f := cmd.Flag("data-dir"); f != nil && f.Changed {
		return f.Value.String(), nil
	}
	if dir := os.Getenv(config.EnvPrefix + "_DATA_DIR"); dir != "" {
		return dir, nil
	}
	return config.DefaultDataDir()
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
