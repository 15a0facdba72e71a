package mapping

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Table maps normalized raw column headers to canonical KPI names.
// It is immutable after construction; unknown headers pass through verbatim.
type Table struct {
	aliases map[string]string
}

// DefaultTable carries the aliases the upstream CRM exports are known to use.
func DefaultTable() *Table {
	t := &Table{aliases: make(map[string]string)}
	t.add("Leads Generated", "leads", "leads_generated", "zoho_leads", "total_leads")
	t.add("Revenue", "revenue", "invoice_amount", "total_revenue")
	t.add("Expenses", "expenses", "total_expenses", "spend")
	t.add("Ad Spend", "ad_spend", "advertising_spend")
	return t
}

// LoadTable reads an alias table from an INI file. Each section names a
// canonical KPI and its `aliases` key lists the raw headers, e.g.
//
//	[Revenue]
//	aliases = revenue, invoice_amount, total_revenue
//
// File entries extend the defaults and win on conflict.
func LoadTable(path string) (*Table, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load alias table %s: %w", path, err)
	}

	t := DefaultTable()
	for _, section := range cfg.Sections() {
		canonical := section.Name()
		if canonical == ini.DefaultSection {
			continue
		}
		raw := section.Key("aliases").String()
		var aliases []string
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		t.add(canonical, aliases...)
	}
	return t, nil
}

func (t *Table) add(canonical string, aliases ...string) {
	t.aliases[normalize(canonical)] = canonical
	for _, a := range aliases {
		t.aliases[normalize(a)] = canonical
	}
}

// Canonical resolves a raw header to its canonical KPI name. Headers with
// no alias become KPI names verbatim (whitespace-trimmed).
func (t *Table) Canonical(header string) string {
	if name, ok := t.aliases[normalize(header)]; ok {
		return name
	}
	return strings.TrimSpace(header)
}

// normalize lowercases and collapses internal whitespace so lookups are
// case- and spacing-insensitive.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
