package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the keyring over JSON-RPC",
		Long: `Serve the keyring API over HTTP and WebSocket JSON-RPC.

Methods live under the "keyring" namespace (keyring_listAccounts,
keyring_submitRequest, ...). WebSocket clients can subscribe to account and
request events with keyring_subscribe("events").

Approval prompts for direct sends appear on the server's terminal. With
--non-interactive they are denied unless --yes is set.`,
		Example: `  aakeyring serve --listen-addr 127.0.0.1:8545 --async-requests`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.Log.Info("starting keyring server",
				"async_requests", app.Config.AsyncRequests,
				"store", string(app.Config.StoreDriver))
			return app.Server.Serve(ctx)
		},
	}

	cmd.Flags().String("listen-addr", "127.0.0.1:8545", "Address to listen on")
	cmd.Flags().Bool("async-requests", false, "Queue signing requests until approved")

	return cmd
}
