package cli

import (
	"fmt"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/cli/render"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage per-chain keyring config",
		Long: `Manage the per-chain overrides stored in the keyring state.

Every chain starts from its built-in defaults (entry point, account factory,
bundler and paymaster endpoints). Overrides set here take precedence.

Available subcommands:
  config           Show effective config per chain
  config set       Merge an override into a chain's config

When run without subcommands, displays the current config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	}

	cmd.AddCommand(newConfigShowCmd(), newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "show",
		Short:        "Show effective config per chain",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	}
}

func showConfig(cmd *cobra.Command) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	overrides, err := app.Chains.Overrides(ctx)
	if err != nil {
		return err
	}

	// The active chain is unknown without a reachable node; show config anyway.
	active, err := app.Chains.ActiveChainID(ctx)
	if err != nil {
		app.Log.Debug("active chain unavailable", "error", err)
	}

	views := make(map[uint64]*render.ChainView)
	view := func(id uint64) *render.ChainView {
		if v, ok := views[id]; ok {
			return v
		}
		v := &render.ChainView{ChainID: id, Active: id == active}
		views[id] = v
		return v
	}
	for id, defaults := range app.Chains.Defaults() {
		defaults := defaults
		v := view(id)
		v.Name = defaults.Name
		v.Defaults = &defaults
	}
	for id, override := range overrides {
		override := override
		view(id).Override = &override
	}

	if app.Config.JSON {
		return render.JSON(cmd.OutOrStdout(), struct {
			ActiveChainID uint64                        `json:"activeChainId,omitempty"`
			Overrides     map[uint64]domain.ChainConfig `json:"overrides"`
		}{active, redactOverrides(overrides)})
	}

	list := make([]render.ChainView, 0, len(views))
	for _, v := range views {
		list = append(list, *v)
	}
	return render.NewConfigRenderer(cmd.OutOrStdout()).RenderChains(list)
}

func redactOverrides(overrides map[uint64]domain.ChainConfig) map[uint64]domain.ChainConfig {
	out := make(map[uint64]domain.ChainConfig, len(overrides))
	for id, cfg := range overrides {
		if cfg.CustomVerifyingPaymasterPK != "" {
			cfg.CustomVerifyingPaymasterPK = "<redacted>"
		}
		out[id] = cfg
	}
	return out
}

func newConfigSetCmd() *cobra.Command {
	var (
		chainID uint64
		partial domain.ChainConfig
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Merge an override into a chain's config",
		Long: `Merge the given fields into a chain's override. Fields that are not
passed keep their current value. Addresses must be 0x-prefixed and, when
mixed case, EIP-55 checksummed.

Without --chain the override applies to the chain the RPC node reports.`,
		Example: `  aakeyring config set --bundler-url https://bundler.example.com/rpc
  aakeyring config set --chain 80001 --entry-point 0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789
  aakeyring config set --paymaster-pk $PK --paymaster-address 0x...`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if partial == (domain.ChainConfig{}) {
				return fmt.Errorf("nothing to set; pass at least one field flag")
			}

			if !cmd.Flags().Changed("chain") {
				if chainID, err = app.Chains.ActiveChainID(ctx); err != nil {
					return err
				}
			}
			merged, err := app.Chains.SetChainConfig(ctx, chainID, partial)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				redacted := redactOverrides(map[uint64]domain.ChainConfig{chainID: *merged})
				return render.JSON(cmd.OutOrStdout(), redacted[chainID])
			}
			return render.NewConfigRenderer(cmd.OutOrStdout()).RenderSet(chainID, merged)
		},
	}

	cmd.Flags().Uint64Var(&chainID, "chain", 0, "Chain id to configure (default: active chain)")
	cmd.Flags().StringVar(&partial.SimpleAccountFactory, "factory", "", "Account factory address")
	cmd.Flags().StringVar(&partial.EntryPoint, "entry-point", "", "EntryPoint address")
	cmd.Flags().StringVar(&partial.BundlerURL, "bundler-url", "", "Bundler endpoint")
	cmd.Flags().StringVar(&partial.PaymasterURL, "paymaster-url", "", "Paymaster service endpoint")
	cmd.Flags().StringVar(&partial.FeeToken, "fee-token", "", "ERC20 token used for gas payment")
	cmd.Flags().StringVar(&partial.CustomVerifyingPaymasterPK, "paymaster-pk", "", "Signer key of a self-hosted verifying paymaster")
	cmd.Flags().StringVar(&partial.CustomVerifyingPaymasterAddress, "paymaster-address", "", "Address of a self-hosted verifying paymaster")

	return cmd
}
