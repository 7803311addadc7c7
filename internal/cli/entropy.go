package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/cli/render"
	"github.com/spf13/cobra"
)

// NewEntropyCmd creates the entropy command
func NewEntropyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entropy",
		Short: "Print the installation seed owner keys are derived from",
		Long: `Print the installation seed for the configured entropy version and salt.

The seed is secret: anyone holding it can derive every owner key of this
keyring.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			seed, err := app.Entropy.Run(cmd.Context())
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), struct {
					Entropy hexutil.Bytes `json:"entropy"`
				}{seed})
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(seed))
			return nil
		},
	}
}
