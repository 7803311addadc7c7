package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/app"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/cli/render"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// NewAccountsCmd creates the accounts command group
func NewAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acc"},
		Short:   "Manage smart accounts",
		Long: `Create, inspect, update and delete the keyring's smart accounts.

When run without subcommands, lists all accounts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAccounts(cmd)
		},
	}

	cmd.AddCommand(
		newAccountsListCmd(),
		newAccountsShowCmd(),
		newAccountsCreateCmd(),
		newAccountsUpdateCmd(),
		newAccountsDeleteCmd(),
		newAccountsChainsCmd(),
	)
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAccounts(cmd)
		},
	}
}

func listAccounts(cmd *cobra.Command) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	accounts, err := app.Accounts.ListAccounts(cmd.Context())
	if err != nil {
		return err
	}

	if app.Config.JSON {
		return render.JSON(cmd.OutOrStdout(), accounts)
	}
	return render.NewAccountsRenderer(cmd.OutOrStdout()).RenderList(accounts)
}

func newAccountsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id|address]",
		Short: "Show account details",
		Long: `Show one account, referenced by id or smart account address.
Without an argument an interactive picker is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			account, err := resolveAccount(cmd.Context(), app, args)
			if err != nil {
				return err
			}

			info, err := app.Accounts.Describe(cmd.Context(), account.ID)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]any{
					"account":  info.Account,
					"owner":    info.Owner,
					"salt":     info.Salt,
					"index":    info.Index,
					"deployed": info.Chains,
				})
			}
			return render.NewAccountsRenderer(cmd.OutOrStdout()).RenderAccount(info)
		},
	}
}

// resolveAccount finds the account named by args[0] or asks the user to pick one
func resolveAccount(ctx context.Context, app *app.App, args []string) (*domain.Account, error) {
	if len(args) == 1 {
		ref := args[0]
		if strings.HasPrefix(ref, "0x") {
			return app.Accounts.GetByAddress(ctx, ref)
		}
		return app.Accounts.GetAccount(ctx, ref)
	}

	accounts, err := app.Accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return app.Selector.SelectAccount(ctx, accounts, "Select account")
}

func newAccountsCreateCmd() *cobra.Command {
	var (
		privateKey string
		salt       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a smart account",
		Long: `Create a smart account on the active chain.

The owner key is derived from the keyring's entropy unless --private-key is
given. The account address is counterfactual: the contract is deployed by the
account's first user operation.`,
		Example: `  # Derive the next owner key
  aakeyring accounts create

  # Import an owner key and pick a deployment salt
  aakeyring accounts create --private-key 0x... --salt 0x2a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			options := domain.AccountOptions{}
			if privateKey != "" {
				options[domain.OptionPrivateKey] = privateKey
			}
			if salt != "" {
				options[domain.OptionSalt] = salt
			}

			account, err := app.Accounts.CreateAccount(cmd.Context(), options)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), account)
			}
			return render.NewAccountsRenderer(cmd.OutOrStdout()).RenderCreated(account)
		},
	}

	cmd.Flags().StringVar(&privateKey, "private-key", "", "Owner private key (hex) instead of a derived key")
	cmd.Flags().StringVar(&salt, "salt", "", "Deployment salt, also used as the factory index (32 byte hex word). Random with index 0 when omitted")

	return cmd
}

func newAccountsUpdateCmd() *cobra.Command {
	var methods []string

	cmd := &cobra.Command{
		Use:     "update <id|address>",
		Short:   "Update an account's methods",
		Example: `  aakeyring accounts update 0xAbc... --methods eth_prepareUserOperation,eth_signUserOperation`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			account, err := resolveAccount(cmd.Context(), app, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("methods") {
				account.Methods = lo.Map(methods, func(m string, _ int) domain.AccountMethod {
					return domain.AccountMethod(strings.TrimSpace(m))
				})
			}

			updated, err := app.Accounts.UpdateAccount(cmd.Context(), *account)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Updated account %s", updated.Address.Hex())))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&methods, "methods", nil, "Methods the account supports")

	return cmd
}

func newAccountsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|address>",
		Aliases: []string{"rm"},
		Short:   "Delete an account and its owner key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			account, err := resolveAccount(cmd.Context(), app, args)
			if err != nil {
				return err
			}
			if err := app.Accounts.DeleteAccount(cmd.Context(), account.ID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Deleted account %s", account.Address.Hex())))
			return nil
		},
	}
}

func newAccountsChainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "chains <id> <chain>...",
		Short:   "Filter the CAIP-2 chains an account supports",
		Example: `  aakeyring accounts chains <id> eip155:80001 bip122:000000000019d6689c085ae165831e93`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			supported := app.Accounts.FilterSupportedChains(cmd.Context(), args[0], args[1:])
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), supported)
			}
			for _, chain := range supported {
				fmt.Fprintln(cmd.OutOrStdout(), chain)
			}
			return nil
		},
	}
}
