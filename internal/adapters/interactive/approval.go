package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/manifoldco/promptui"
)

// ApprovalAdapter asks for confirmation on the terminal
type ApprovalAdapter struct {
	config *config.RuntimeConfig
	out    io.Writer
	log    *slog.Logger
}

// NewApprovalAdapter creates a new approval adapter
func NewApprovalAdapter(cfg *config.RuntimeConfig, log *slog.Logger) *ApprovalAdapter {
	return &ApprovalAdapter{config: cfg, out: os.Stdout, log: log}
}

// Confirm shows the dialog and waits for y/N. Without a terminal the answer
// is no unless auto-approval is configured.
func (a *ApprovalAdapter) Confirm(ctx context.Context, title, description, detail string) (bool, error) {
	if a.config.AutoApprove {
		a.log.Info("approval granted automatically", "title", title, "detail", detail)
		return true, nil
	}
	if a.config.NonInteractive {
		a.log.Warn("approval denied, no terminal to ask on", "title", title, "detail", detail)
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintln(a.out)
	color.New(color.FgCyan, color.Bold).Fprintln(a.out, title)
	fmt.Fprintln(a.out, description)
	if detail != "" {
		color.New(color.Faint).Fprintln(a.out, detail)
	}

	prompt := promptui.Prompt{
		Label:     "Approve",
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		// promptui reports "n" as ErrAbort
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("approval prompt failed: %w", err)
	}
	return true, nil
}

// NotifierAdapter prints notifications on stderr, clear of command output
type NotifierAdapter struct {
	out io.Writer
}

// NewNotifierAdapter creates a new notifier
func NewNotifierAdapter() *NotifierAdapter {
	return &NotifierAdapter{out: os.Stderr}
}

// Notify prints a titled message
func (n *NotifierAdapter) Notify(ctx context.Context, title, message string) error {
	_, err := fmt.Fprintf(n.out, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint(title+":"), message)
	return err
}

var (
	_ usecase.ApprovalService = (*ApprovalAdapter)(nil)
	_ usecase.Notifier        = (*NotifierAdapter)(nil)
)
