package catalog

import (
	"errors"
	"testing"

	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/rules"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("embedded catalog must load: %v", err)
	}
	if cat.Version != Version {
		t.Fatalf("version = %q, want %q", cat.Version, Version)
	}

	// Every category 1..10 has at least one evaluatable rule.
	seen := map[int]bool{}
	for _, r := range cat.Rules() {
		if r.Eval != nil {
			seen[r.Category] = true
		}
	}
	for c := 1; c <= 10; c++ {
		if !seen[c] {
			t.Errorf("category %d has no rules", c)
		}
	}

	// Synthetic entries resolve like any other rule id.
	for _, id := range []string{ir.RuleLoaderFailure, ir.RuleEvalFailure} {
		r, ok := cat.Get(id)
		if !ok {
			t.Fatalf("synthetic rule %s missing", id)
		}
		if r.Eval != nil || r.Category != ir.SyntheticCategory || r.Severity != ir.SevInfo {
			t.Fatalf("synthetic rule %s misconfigured: %+v", id, r)
		}
	}
}

func TestLoadDeterministicOrder(t *testing.T) {
	a, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	ra, rb := a.Rules(), b.Rules()
	if len(ra) != len(rb) {
		t.Fatalf("rule counts differ: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i].ID != rb[i].ID {
			t.Fatalf("rule order differs at %d: %s vs %s", i, ra[i].ID, rb[i].ID)
		}
	}
}

func TestForFormatFilters(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range cat.ForFormat(ir.FormatTerraform) {
		applies := false
		for _, f := range r.Formats {
			if f == ir.FormatTerraform {
				applies = true
			}
		}
		if !applies {
			t.Fatalf("rule %s returned for terraform but does not declare it", r.ID)
		}
	}
	if len(cat.ForFormat(ir.FormatGithubActions)) == 0 {
		t.Fatal("github-actions must have applicable rules")
	}
}

func noop(doc *ir.Document) []ir.Finding { return nil }

func TestNewValidation(t *testing.T) {
	ok := Rule{ID: "X-1", Category: 1, Severity: ir.SevLow,
		Formats: []ir.Format{ir.FormatGithubActions}, Eval: noop}

	cases := []struct {
		name string
		defs []Rule
	}{
		{"empty id", []Rule{{Category: 1, Severity: ir.SevLow, Formats: ok.Formats, Eval: noop}}},
		{"category out of range", []Rule{{ID: "X-1", Category: 11, Severity: ir.SevLow, Formats: ok.Formats, Eval: noop}}},
		{"duplicate id", []Rule{ok, ok}},
		{"no predicate", []Rule{{ID: "X-1", Category: 1, Severity: ir.SevLow, Formats: ok.Formats}}},
		{"no formats", []Rule{{ID: "X-1", Category: 1, Severity: ir.SevLow, Eval: noop}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New("test", c.defs)
			if err == nil {
				t.Fatal("want error")
			}
			var catErr *Error
			if !errors.As(err, &catErr) {
				t.Fatalf("want *catalog.Error, got %T: %v", err, err)
			}
		})
	}

	cat, err := New("test", []Rule{ok})
	if err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}
	if _, found := cat.Get("X-1"); !found {
		t.Fatal("rule not retrievable")
	}
}

func TestEveryCatalogPredicateIsRegistered(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	registered := map[string]bool{}
	for _, n := range rules.Names() {
		registered[n] = true
	}
	if len(registered) == 0 {
		t.Fatal("no predicates registered")
	}
	for _, r := range cat.Rules() {
		if r.Eval == nil && !(r.ID == ir.RuleLoaderFailure || r.ID == ir.RuleEvalFailure) {
			t.Errorf("rule %s has no bound predicate", r.ID)
		}
	}
}
