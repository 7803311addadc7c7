package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
)

// multiSelectModel is the bubbletea model for picking pending requests
type multiSelectModel struct {
	requests  []domain.KeyringRequest
	cursor    int
	selected  map[int]bool
	title     string
	done      bool
	cancelled bool
}

func initialMultiSelectModel(requests []domain.KeyringRequest, title string) multiSelectModel {
	return multiSelectModel{
		requests: requests,
		selected: make(map[int]bool, len(requests)),
		title:    title,
	}
}

// Init is the initial command for bubbletea
func (m multiSelectModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.requests)-1 {
				m.cursor++
			}
		case " ":
			m.selected[m.cursor] = !m.selected[m.cursor]
		case "a":
			all := len(m.indices()) < len(m.requests)
			for i := range m.requests {
				m.selected[i] = all
			}
		case "enter":
			if len(m.indices()) > 0 {
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// indices returns the selected rows in display order
func (m multiSelectModel) indices() []int {
	var out []int
	for i, ok := range m.selected {
		if ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// View renders the UI
func (m multiSelectModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(color.New(color.FgCyan, color.Bold).Sprintf("%s\n\n", m.title))

	for i, req := range m.requests {
		cursor := " "
		if m.cursor == i {
			cursor = color.New(color.FgCyan).Sprint("▸")
		}

		checkbox := color.New(color.FgWhite).Sprint("○")
		if m.selected[i] {
			checkbox = color.New(color.FgGreen).Sprint("✓")
		}

		id := color.New(color.FgWhite).Sprint(req.ID)
		method := color.New(color.FgYellow).Sprintf("(%s)", req.Request.Method)
		account := color.New(color.Faint).Sprint(req.Account)

		b.WriteString(fmt.Sprintf("%s %s %s %s %s\n", cursor, checkbox, id, method, account))
	}

	b.WriteString("\n")
	b.WriteString(color.New(color.FgYellow).Sprint("↑/↓: move  Space: toggle  a: all  Enter: confirm  q: quit\n"))

	return b.String()
}

// SelectRequests shows a multi-select interface and returns the selected request indices
func SelectRequests(requests []domain.KeyringRequest, title string) ([]int, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("no requests to select")
	}

	p := tea.NewProgram(initialMultiSelectModel(requests, title))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("multi-select failed: %w", err)
	}

	m := finalModel.(multiSelectModel)
	if m.cancelled || !m.done {
		return nil, fmt.Errorf("selection cancelled")
	}

	selected := m.indices()
	if len(selected) == 0 {
		return nil, fmt.Errorf("no requests selected")
	}
	return selected, nil
}
