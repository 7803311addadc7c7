package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

var hashStyle = color.New(color.FgCyan)

// TransactionRenderer renders direct sends
type TransactionRenderer struct {
	out io.Writer
}

// NewTransactionRenderer creates a new transaction renderer
func NewTransactionRenderer(out io.Writer) *TransactionRenderer {
	return &TransactionRenderer{out: out}
}

// Render renders a confirmed send
func (r *TransactionRenderer) Render(resp *domain.TransactionResponse) error {
	fmt.Fprintln(r.out, FormatSuccess("User operation included"))
	fmt.Fprintf(r.out, "  UserOp hash:      %s\n", hashStyle.Sprint(resp.UserOpHash.Hex()))
	fmt.Fprintf(r.out, "  Transaction hash: %s\n", hashStyle.Sprint(resp.TransactionHash.Hex()))
	return nil
}

var _ Renderer[*domain.TransactionResponse] = (*TransactionRenderer)(nil)
