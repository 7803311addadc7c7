package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectAccount selects an account from a list
func (s *SelectorAdapter) SelectAccount(ctx context.Context, accounts []domain.Account, prompt string) (*domain.Account, error) {
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts to select from")
	}
	if len(accounts) == 1 {
		return &accounts[0], nil
	}
	if s.config.NonInteractive {
		return nil, fmt.Errorf("%d accounts match; pass an account id or address", len(accounts))
	}

	options := formatAccountOptions(accounts)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return &accounts[index], nil
}

// formatAccountOptions renders "0xAbc… (id) [salt 0x2a]"
func formatAccountOptions(accounts []domain.Account) []string {
	options := make([]string, len(accounts))
	for i, account := range accounts {
		address := color.New(color.FgWhite, color.Bold).Sprint(account.Address.Hex())
		id := color.New(color.FgBlue).Sprint(account.ID)

		if salt, ok := account.Options[domain.OptionSalt]; ok {
			options[i] = fmt.Sprintf("%s (%s) %s", address, id, color.New(color.FgYellow).Sprintf("[salt %v]", salt))
		} else {
			options[i] = fmt.Sprintf("%s (%s)", address, id)
		}
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

var _ usecase.AccountSelector = (*SelectorAdapter)(nil)
