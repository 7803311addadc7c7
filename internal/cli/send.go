package cli

import (
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/cli/render"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/spf13/cobra"
)

// NewSendCmd creates the send command
func NewSendCmd() *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "send [account]",
		Short: "Send a transaction from a smart account",
		Long: `Build, sponsor, sign and broadcast a user operation in one step, then
wait for the bundler to report it included.

Gas is paid in the chain's fee token through the token paymaster. The
operation hash is shown for confirmation before anything is signed; pass
--yes to confirm without prompting.`,
		Example: `  aakeyring send 0xAccount --to 0xRecipient --value 1000000000000000
  aakeyring send --to 0xToken --data 0xa9059cbb... --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			tx, err := flags.transaction()
			if err != nil {
				return err
			}
			account, err := resolveAccount(ctx, app, args)
			if err != nil {
				return err
			}

			resp, err := app.Send.Run(ctx, domain.TransactionPayload{
				AccountAddress: account.Address,
				To:             tx.To,
				Value:          tx.Value,
				Data:           tx.Data,
			})
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), resp)
			}
			return render.NewTransactionRenderer(cmd.OutOrStdout()).Render(resp)
		},
	}

	flags.register(cmd)
	return cmd
}
