package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/cli/render"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewRequestsCmd creates the requests command group
func NewRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"request", "req"},
		Short:   "Submit and review keyring requests",
		Long: `Submit keyring requests and manage the approval queue.

With async_requests enabled, signing requests are queued until approved or
rejected. Otherwise every request executes on submission.

When run without subcommands, lists pending requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRequests(cmd)
		},
	}

	cmd.AddCommand(
		newRequestsListCmd(),
		newRequestsShowCmd(),
		newRequestsSubmitCmd(),
		newRequestsApproveCmd(),
		newRequestsRejectCmd(),
		newRequestsReviewCmd(),
	)
	return cmd
}

func newRequestsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pending requests",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRequests(cmd)
		},
	}
}

func listRequests(cmd *cobra.Command) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	requests, err := app.Requests.ListRequests(cmd.Context())
	if err != nil {
		return err
	}

	if app.Config.JSON {
		return render.JSON(cmd.OutOrStdout(), requests)
	}
	return render.NewRequestsRenderer(cmd.OutOrStdout()).RenderList(requests)
}

func newRequestsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			req, err := app.Requests.GetRequest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), req)
			}
			return render.NewRequestsRenderer(cmd.OutOrStdout()).RenderRequest(req)
		},
	}
}

func newRequestsSubmitCmd() *cobra.Command {
	var (
		file    string
		id      string
		account string
		scope   string
		method  string
		params  string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a keyring request",
		Long: `Submit a keyring request, read from a YAML or JSON file or built from flags.

A request file has the shape of a keyring request:

  id: "1"
  account: <account id>
  scope: eip155:80001
  request:
    method: eth_prepareUserOperation
    params:
      - to: "0x..."
        value: "0x0"
        data: "0x"

Hex quantities must be quoted in YAML.`,
		Example: `  aakeyring requests submit -f request.yaml
  aakeyring requests submit --account <id> --method eth_signUserOperation --params '[{...}]'
  aakeyring requests submit --method snap.internal.setConfig --params '[{"bundlerUrl":"https://..."}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var req domain.KeyringRequest
			if file != "" {
				if req, err = readRequestFile(file); err != nil {
					return err
				}
			} else {
				if method == "" {
					return fmt.Errorf("either --file or --method is required")
				}
				req = domain.KeyringRequest{
					Account: account,
					Scope:   scope,
					Request: domain.RPCRequest{Method: method},
				}
				if params != "" {
					if !json.Valid([]byte(params)) {
						return fmt.Errorf("--params is not valid JSON")
					}
					req.Request.Params = json.RawMessage(params)
				}
			}
			if id != "" {
				req.ID = id
			}
			if req.ID == "" {
				req.ID = uuid.NewString()
			}

			resp, err := app.Requests.SubmitRequest(cmd.Context(), req)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), resp)
			}
			return render.NewRequestsRenderer(cmd.OutOrStdout()).RenderSubmitted(req, resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Request file (YAML or JSON)")
	cmd.Flags().StringVar(&id, "id", "", "Request id (default: random uuid)")
	cmd.Flags().StringVar(&account, "account", "", "Account id")
	cmd.Flags().StringVar(&scope, "scope", "", "CAIP-2 chain scope")
	cmd.Flags().StringVar(&method, "method", "", "RPC method")
	cmd.Flags().StringVar(&params, "params", "", "RPC params as a JSON array")

	return cmd
}

// readRequestFile decodes a YAML or JSON request file
func readRequestFile(path string) (domain.KeyringRequest, error) {
	var req domain.KeyringRequest
	err := decodeFile(path, &req)
	return req, err
}

// decodeFile reads a YAML or JSON document into v using its JSON tags
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	// YAML is a superset of JSON; round trip through JSON so hex and raw
	// params keep their JSON decoders
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := json.Unmarshal(encoded, v); err != nil {
		return fmt.Errorf("invalid %s: %w", path, err)
	}
	return nil
}

func newRequestsApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve and execute a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.Requests.ApproveRequest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), result)
			}
			return render.NewRequestsRenderer(cmd.OutOrStdout()).RenderApproved(args[0], result)
		},
	}
}

func newRequestsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if err := app.Requests.RejectRequest(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Rejected request %s", args[0])))
			return nil
		},
	}
}

func newRequestsReviewCmd() *cobra.Command {
	var reject bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Pick pending requests to approve (or reject) interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if app.Config.NonInteractive {
				return fmt.Errorf("review needs an interactive terminal; use approve or reject")
			}

			requests, err := app.Requests.ListRequests(cmd.Context())
			if err != nil {
				return err
			}
			if len(requests) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending requests")
				return nil
			}

			title := "Select requests to approve"
			if reject {
				title = "Select requests to reject"
			}
			selected, err := SelectRequests(requests, title)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var failed int
			for _, i := range selected {
				id := requests[i].ID
				if reject {
					err = app.Requests.RejectRequest(cmd.Context(), id)
				} else {
					_, err = app.Requests.ApproveRequest(cmd.Context(), id)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s (request %s)\n", render.FormatError(err.Error()), id)
					continue
				}
				if reject {
					fmt.Fprintln(out, render.FormatSuccess(fmt.Sprintf("Rejected request %s", id)))
				} else {
					fmt.Fprintln(out, render.FormatSuccess(fmt.Sprintf("Approved request %s", id)))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(selected))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the selected requests instead")

	return cmd
}
