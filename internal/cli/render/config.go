package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ChainView is one chain's effective settings
type ChainView struct {
	ChainID  uint64
	Name     string
	Active   bool
	Defaults *domain.ChainDefaults
	Override *domain.ChainConfig
}

// ConfigRenderer renders chain configuration
type ConfigRenderer struct {
	out io.Writer
}

// NewConfigRenderer creates a new config renderer
func NewConfigRenderer(out io.Writer) *ConfigRenderer {
	return &ConfigRenderer{out: out}
}

var displayedFields = []domain.ChainField{
	domain.FieldEntryPoint,
	domain.FieldFactory,
	domain.FieldBundlerURL,
	domain.FieldPaymasterURL,
	domain.FieldFeeToken,
}

// RenderChains renders each chain's effective value per field, marking overrides
func (r *ConfigRenderer) RenderChains(chains []ChainView) error {
	sort.Slice(chains, func(i, j int) bool { return chains[i].ChainID < chains[j].ChainID })
	title := cases.Title(language.English)

	for _, chain := range chains {
		name := title.String(chain.Name)
		if name == "" {
			name = "Custom"
		}
		header := fmt.Sprintf("%s (%d)", name, chain.ChainID)
		if chain.Active {
			header += " ← active"
		}
		fmt.Fprintln(r.out, sectionHeaderStyle.Sprint(header))

		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Setting", "Value", "Source"})
		for _, field := range displayedFields {
			value, source := "", ""
			if chain.Defaults != nil {
				value, source = chain.Defaults.Lookup(field), "default"
			}
			if chain.Override != nil {
				if v := chain.Override.Lookup(field); v != "" {
					value, source = v, "override"
				}
			}
			if value == "" {
				value, source = faintStyle.Sprint("(not set)"), ""
			}
			t.AppendRow(table.Row{string(field), value, source})
		}
		if chain.Override != nil && chain.Override.HasCustomPaymaster() {
			t.AppendRow(table.Row{"customVerifyingPaymaster", chain.Override.CustomVerifyingPaymasterAddress, "override"})
		}
		t.Render()
		fmt.Fprintln(r.out)
	}
	return nil
}

// RenderSet renders the merged configuration after an update
func (r *ConfigRenderer) RenderSet(chainID uint64, merged *domain.ChainConfig) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Updated configuration for chain %d", chainID)))
	redacted := *merged
	if redacted.CustomVerifyingPaymasterPK != "" {
		redacted.CustomVerifyingPaymasterPK = "<redacted>"
	}
	return JSON(r.out, redacted)
}
