package cli

import (
	"fmt"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/config"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of aakeyring",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aakeyring version %s\n", config.Version)
			if config.Commit != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n  built:  %s\n", config.Commit, config.Date)
			}
		},
	}
}
