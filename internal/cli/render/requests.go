package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

var (
	methodStyle  = color.New(color.FgCyan)
	pendingStyle = color.New(color.FgYellow)
)

// RequestsRenderer renders pending requests and their outcomes
type RequestsRenderer struct {
	out io.Writer
}

// NewRequestsRenderer creates a new requests renderer
func NewRequestsRenderer(out io.Writer) *RequestsRenderer {
	return &RequestsRenderer{out: out}
}

// RenderList renders the pending queue in submission order
func (r *RequestsRenderer) RenderList(requests []domain.KeyringRequest) error {
	if len(requests) == 0 {
		fmt.Fprintln(r.out, "No pending requests")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Method", "Account", "Scope"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 36, WidthMaxEnforcer: text.Trim},
	})
	for _, req := range requests {
		t.AppendRow(table.Row{req.ID, methodStyle.Sprint(req.Request.Method), req.Account, req.Scope})
	}
	t.Render()
	return nil
}

// RenderRequest renders one request with its params
func (r *RequestsRenderer) RenderRequest(req *domain.KeyringRequest) error {
	fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("Request ")+req.ID)
	fmt.Fprintf(r.out, "  Method:   %s\n", methodStyle.Sprint(req.Request.Method))
	fmt.Fprintf(r.out, "  Account:  %s\n", req.Account)
	if req.Scope != "" {
		fmt.Fprintf(r.out, "  Scope:    %s\n", req.Scope)
	}
	if len(req.Request.Params) > 0 {
		var params any
		if err := json.Unmarshal(req.Request.Params, &params); err != nil {
			return fmt.Errorf("failed to decode params: %w", err)
		}
		pretty, err := json.MarshalIndent(params, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "  Params:   %s\n", pretty)
	}
	return nil
}

// RenderSubmitted renders the outcome of a submission
func (r *RequestsRenderer) RenderSubmitted(req domain.KeyringRequest, resp *domain.SubmitRequestResponse) error {
	if resp.Pending {
		fmt.Fprintln(r.out, pendingStyle.Sprintf("⏳ Request %s queued for approval", req.ID))
		return nil
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Request %s executed", req.ID)))
	return JSON(r.out, resp.Result)
}

// RenderApproved renders an approved request's result
func (r *RequestsRenderer) RenderApproved(id string, result any) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Approved request %s", id)))
	return JSON(r.out, result)
}
