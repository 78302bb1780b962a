// Package catalog loads the versioned rule catalog: declarative YAML
// metadata (one document per OWASP CI/CD category) bound to predicate
// implementations registered in the rules package. The catalog is
// immutable after Load and safe for unsynchronized concurrent reads.
package catalog

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/rules"
)

const Version = "2025.08.0"

//go:embed rules/*.yaml
var catalogFS embed.FS

// Error is the one fatal error class of the scanner: an invalid catalog
// invalidates every result, so the run must abort.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "rule catalog: " + e.Reason }

// Rule is one check definition. Eval is nil only for the synthetic
// LOADER-0/EVAL-0 entries, which exist so every finding's rule id
// resolves against the catalog.
type Rule struct {
	ID          string
	Category    int
	Severity    ir.Severity
	Formats     []ir.Format
	Summary     string
	Remediation string
	Eval        rules.Predicate
}

type Catalog struct {
	Version string

	rules    []Rule
	byID     map[string]int
	byFormat map[ir.Format][]Rule
}

type ruleDoc struct {
	Category int `yaml:"category"`
	Rules    []struct {
		ID          string   `yaml:"id"`
		Severity    string   `yaml:"severity"`
		Formats     []string `yaml:"formats"`
		Summary     string   `yaml:"summary"`
		Remediation string   `yaml:"remediation"`
		Predicate   string   `yaml:"predicate"`
	} `yaml:"rules"`
}

// Load reads the embedded catalog, binds predicates, and enforces the
// load-time invariants: valid metadata, every predicate registered, and
// no empty category 1..10.
func Load() (*Catalog, error) {
	entries, err := catalogFS.ReadDir("rules")
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("embedded rules unreadable: %v", err)}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var defs []Rule
	for _, name := range names {
		data, err := catalogFS.ReadFile("rules/" + name)
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("read %s: %v", name, err)}
		}
		var doc ruleDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &Error{Reason: fmt.Sprintf("parse %s: %v", name, err)}
		}
		if doc.Category < 1 || doc.Category > 10 {
			return nil, &Error{Reason: fmt.Sprintf("%s: category %d out of range 1..10", name, doc.Category)}
		}
		for _, r := range doc.Rules {
			sev, ok := ir.ParseSeverity(r.Severity)
			if !ok {
				return nil, &Error{Reason: fmt.Sprintf("rule %s: unknown severity %q", r.ID, r.Severity)}
			}
			var formats []ir.Format
			for _, f := range r.Formats {
				format, ok := ir.ParseFormat(f)
				if !ok {
					return nil, &Error{Reason: fmt.Sprintf("rule %s: unknown format %q", r.ID, f)}
				}
				formats = append(formats, format)
			}
			eval, ok := rules.Lookup(r.Predicate)
			if !ok {
				return nil, &Error{Reason: fmt.Sprintf("rule %s: predicate %q is not registered", r.ID, r.Predicate)}
			}
			defs = append(defs, Rule{
				ID:          r.ID,
				Category:    doc.Category,
				Severity:    sev,
				Formats:     formats,
				Summary:     r.Summary,
				Remediation: r.Remediation,
				Eval:        eval,
			})
		}
	}

	cat, err := New(Version, defs)
	if err != nil {
		return nil, err
	}
	if missing := cat.emptyCategories(); len(missing) > 0 {
		// A silently empty category would misreport full compliance.
		return nil, &Error{Reason: fmt.Sprintf("categories with no rules: %v", missing)}
	}
	return cat, nil
}

// New builds a catalog from explicit definitions and adds the synthetic
// LOADER-0/EVAL-0 entries. It validates per-rule fields but not full
// category coverage; tests construct small catalogs through here.
func New(version string, defs []Rule) (*Catalog, error) {
	c := &Catalog{
		Version:  version,
		byID:     map[string]int{},
		byFormat: map[ir.Format][]Rule{},
	}
	all := append(append([]Rule(nil), defs...), syntheticRules()...)
	for _, r := range all {
		if r.ID == "" {
			return nil, &Error{Reason: "rule with empty id"}
		}
		if r.Category < 1 || r.Category > 10 {
			return nil, &Error{Reason: fmt.Sprintf("rule %s: category %d out of range 1..10", r.ID, r.Category)}
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, &Error{Reason: fmt.Sprintf("duplicate rule id %s", r.ID)}
		}
		if r.Eval == nil && !synthetic(r.ID) {
			return nil, &Error{Reason: fmt.Sprintf("rule %s: no predicate bound", r.ID)}
		}
		if r.Eval != nil && len(r.Formats) == 0 {
			return nil, &Error{Reason: fmt.Sprintf("rule %s: no applicable formats", r.ID)}
		}
		c.byID[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
		for _, f := range r.Formats {
			c.byFormat[f] = append(c.byFormat[f], r)
		}
	}
	return c, nil
}

func synthetic(id string) bool {
	return id == ir.RuleLoaderFailure || id == ir.RuleEvalFailure
}

func syntheticRules() []Rule {
	return []Rule{
		{
			ID:       ir.RuleLoaderFailure,
			Category: ir.SyntheticCategory,
			Severity: ir.SevInfo,
			Summary:  "File was recognized but could not be parsed; it was excluded from evaluation.",
		},
		{
			ID:       ir.RuleEvalFailure,
			Category: ir.SyntheticCategory,
			Severity: ir.SevInfo,
			Summary:  "A rule predicate failed internally on one document; other rules were unaffected.",
		},
	}
}

// Rules returns every definition, synthetic entries included, sorted by
// id.
func (c *Catalog) Rules() []Rule {
	out := append([]Rule(nil), c.rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ForFormat returns the evaluatable rules applicable to one document
// format, in catalog order.
func (c *Catalog) ForFormat(f ir.Format) []Rule {
	return c.byFormat[f]
}

func (c *Catalog) Get(id string) (Rule, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

func (c *Catalog) emptyCategories() []int {
	seen := map[int]bool{}
	for _, r := range c.rules {
		if r.Eval != nil {
			seen[r.Category] = true
		}
	}
	var missing []int
	for cat := 1; cat <= 10; cat++ {
		if !seen[cat] {
			missing = append(missing, cat)
		}
	}
	return missing
}
