package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/samber/lo"
)

var (
	addressStyle        = color.New(color.FgWhite, color.Bold)
	idStyle             = color.New(color.FgBlue)
	faintStyle          = color.New(color.Faint)
	deployedStyle       = color.New(color.FgGreen)
	counterfactualStyle = color.New(color.FgYellow)
	sectionHeaderStyle  = color.New(color.Bold, color.FgHiWhite)
)

// AccountsRenderer renders accounts
type AccountsRenderer struct {
	out io.Writer
}

// NewAccountsRenderer creates a new accounts renderer
func NewAccountsRenderer(out io.Writer) *AccountsRenderer {
	return &AccountsRenderer{out: out}
}

// RenderList renders accounts as a table
func (r *AccountsRenderer) RenderList(accounts []domain.Account) error {
	if len(accounts) == 0 {
		fmt.Fprintln(r.out, "No accounts found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Address", "ID", "Methods"})
	for i, account := range accounts {
		methods := lo.Map(account.Methods, func(m domain.AccountMethod, _ int) string { return string(m) })
		t.AppendRow(table.Row{
			i + 1,
			addressStyle.Sprint(account.Address.Hex()),
			idStyle.Sprint(account.ID),
			strings.Join(methods, ", "),
		})
	}
	t.Render()
	return nil
}

// RenderAccount renders one wallet's details
func (r *AccountsRenderer) RenderAccount(info *usecase.WalletInfo) error {
	fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("Account"))
	fmt.Fprintf(r.out, "  Address:  %s\n", addressStyle.Sprint(info.Account.Address.Hex()))
	fmt.Fprintf(r.out, "  ID:       %s\n", idStyle.Sprint(info.Account.ID))
	fmt.Fprintf(r.out, "  Type:     %s\n", info.Account.Type)
	fmt.Fprintf(r.out, "  Owner:    %s\n", info.Owner.Hex())
	fmt.Fprintf(r.out, "  Salt:     %s\n", faintStyle.Sprint(info.Salt.Hex()))
	fmt.Fprintf(r.out, "  Index:    %s\n", info.Index.Big().String())

	methods := lo.Map(info.Account.Methods, func(m domain.AccountMethod, _ int) string { return string(m) })
	fmt.Fprintf(r.out, "  Methods:  %s\n", strings.Join(methods, ", "))

	if len(info.Account.Options) > 0 {
		keys := lo.Keys(info.Account.Options)
		sort.Strings(keys)
		fmt.Fprintln(r.out, "  Options:")
		for _, k := range keys {
			fmt.Fprintf(r.out, "    %s: %v\n", k, info.Account.Options[k])
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("Deployment"))
	deployed := lo.Filter(lo.Keys(info.Chains), func(id uint64, _ int) bool { return info.Chains[id] })
	if len(deployed) == 0 {
		fmt.Fprintf(r.out, "  %s\n", counterfactualStyle.Sprint("counterfactual (deployed by its first user operation)"))
		return nil
	}
	sort.Slice(deployed, func(i, j int) bool { return deployed[i] < deployed[j] })
	for _, id := range deployed {
		fmt.Fprintf(r.out, "  %s chain %d\n", deployedStyle.Sprint("✓"), id)
	}
	return nil
}

// RenderCreated renders a newly created account
func (r *AccountsRenderer) RenderCreated(account *domain.Account) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Created account %s", account.Address.Hex())))
	fmt.Fprintf(r.out, "  ID: %s\n", idStyle.Sprint(account.ID))
	return nil
}
