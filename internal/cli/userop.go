package cli

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/app"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/cli/render"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/spf13/cobra"
)

// NewUserOpCmd creates the userop command group
func NewUserOpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "userop",
		Aliases: []string{"op"},
		Short:   "Build, patch and sign user operations step by step",
		Long: `Run the user operation pipeline one phase at a time.

  prepare   build the operation skeleton (nonce, initCode, callData, dummies)
  patch     resolve paymasterAndData for a gas-estimated operation
  sign      sign a complete operation with the account's owner key

Operations are read from YAML or JSON files and printed as JSON, so the
phases can be chained with a bundler's eth_estimateUserOperationGas.`,
	}

	cmd.AddCommand(newUserOpPrepareCmd(), newUserOpPatchCmd(), newUserOpSignCmd())
	return cmd
}

// txFlags are the call fields shared by prepare and send
type txFlags struct {
	to    string
	value string
	data  string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.to, "to", "", "Call target address")
	cmd.Flags().StringVar(&f.value, "value", "0", "Value in wei (decimal or 0x hex)")
	cmd.Flags().StringVar(&f.data, "data", "0x", "Call data")
	_ = cmd.MarkFlagRequired("to")
}

func (f *txFlags) transaction() (domain.BaseTransaction, error) {
	var tx domain.BaseTransaction

	if !common.IsHexAddress(f.to) {
		return tx, fmt.Errorf("invalid --to address: %s", f.to)
	}
	tx.To = common.HexToAddress(f.to)

	value, err := parseWei(f.value)
	if err != nil {
		return tx, err
	}
	tx.Value = (*hexutil.Big)(value)

	if tx.Data, err = hexutil.Decode(f.data); err != nil {
		return tx, fmt.Errorf("invalid --data: %w", err)
	}
	return tx, nil
}

func parseWei(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "0x") {
		v, err := hexutil.DecodeBig(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --value: %w", err)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid --value: %s", s)
	}
	return v, nil
}

func newUserOpPrepareCmd() *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "prepare [account]",
		Short: "Build a user operation skeleton",
		Example: `  aakeyring userop prepare 0xAccount --to 0xRecipient --value 1000000000000000
  aakeyring userop prepare --to 0xToken --data 0xa9059cbb...`,
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

			prepared, err := app.UserOps.Prepare(ctx, account.ID, []domain.BaseTransaction{tx})
			if err != nil {
				return err
			}
			return render.JSON(cmd.OutOrStdout(), prepared)
		},
	}

	flags.register(cmd)
	return cmd
}

func newUserOpPatchCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "patch [account] -f <operation>",
		Short: "Resolve paymasterAndData for an operation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnOperation(cmd, args, file, func(app *app.App, accountID string, op *domain.UserOperation) (any, error) {
				return app.UserOps.Patch(cmd.Context(), accountID, op)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "User operation file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newUserOpSignCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sign [account] -f <operation>",
		Short: "Sign a complete user operation",
		Long: `Sign a complete user operation with the owner key of the account that
sends it. The printed signature is already wrapped for the account's
ownership module.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnOperation(cmd, args, file, func(app *app.App, accountID string, op *domain.UserOperation) (any, error) {
				sig, err := app.UserOps.Sign(cmd.Context(), accountID, op)
				if err != nil {
					return nil, err
				}
				return struct {
					Signature hexutil.Bytes `json:"signature"`
				}{sig}, nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "User operation file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// runOnOperation loads an operation file, resolves the account that sends it
// and prints fn's result as JSON
func runOnOperation(cmd *cobra.Command, args []string, file string, fn func(*app.App, string, *domain.UserOperation) (any, error)) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var op domain.UserOperation
	if err := decodeFile(file, &op); err != nil {
		return err
	}

	var account *domain.Account
	if len(args) == 0 && op.Sender != (common.Address{}) {
		account, err = app.Accounts.GetByAddress(ctx, op.Sender.Hex())
	} else {
		account, err = resolveAccount(ctx, app, args)
	}
	if err != nil {
		return err
	}

	result, err := fn(app, account.ID, &op)
	if err != nil {
		return err
	}
	return render.JSON(cmd.OutOrStdout(), result)
}
