// Package aggregate turns the flat finding set into a ComplianceReport:
// deduplication, per-category risk scores, and the canonical ordering
// the reporters rely on. Pure and deterministic: the same finding
// multiset always yields bit-identical output.
package aggregate

import (
	"github.com/codewithboateng/pipelift/internal/ir"
)

// Policy holds the organizational judgment calls the status derivation
// depends on.
type Policy struct {
	// NonCompliantAt is the lowest severity that flips a category to
	// NON_COMPLIANT. Anything below it yields PARTIALLY_COMPLIANT.
	NonCompliantAt ir.Severity
}

func DefaultPolicy() Policy {
	return Policy{NonCompliantAt: ir.SevMedium}
}

// Build assembles the report. Findings are sorted, deduplicated on
// (rule id, path, location), and counted into exactly ten category
// scores, 1 through 10, present even when empty.
func Build(scanned int, incomplete bool, findings []ir.Finding, pol Policy) ir.ComplianceReport {
	if pol.NonCompliantAt == "" {
		pol.NonCompliantAt = ir.SevMedium
	}

	sorted := append([]ir.Finding(nil), findings...)
	ir.SortFindings(sorted)
	deduped := dedupe(sorted)

	counts := map[int]*ir.SeverityCounts{}
	worst := map[int]int{}
	for _, f := range deduped {
		c := counts[f.Category]
		if c == nil {
			c = &ir.SeverityCounts{}
			counts[f.Category] = c
		}
		c.Add(f.Severity)
		if r := ir.SeverityRank(f.Severity); r > worst[f.Category] {
			worst[f.Category] = r
		}
	}

	threshold := ir.SeverityRank(pol.NonCompliantAt)
	categories := make([]ir.RiskScore, 0, 10)
	for cat := 1; cat <= 10; cat++ {
		score := ir.RiskScore{Category: cat, Status: ir.StatusCompliant}
		if c := counts[cat]; c != nil {
			score.Counts = *c
			if worst[cat] >= threshold {
				score.Status = ir.StatusNonCompliant
			} else {
				score.Status = ir.StatusPartial
			}
		}
		categories = append(categories, score)
	}

	if deduped == nil {
		deduped = []ir.Finding{}
	}
	return ir.ComplianceReport{
		ScannedDocuments: scanned,
		Incomplete:       incomplete,
		Categories:       categories,
		Findings:         deduped,
	}
}

// dedupe keeps the first of any findings sharing (rule id, path,
// location). Input must already be in canonical sorted order: the sort
// is total, so the survivor of each group is the same finding no matter
// how the input was arranged.
func dedupe(sorted []ir.Finding) []ir.Finding {
	seen := make(map[string]struct{}, len(sorted))
	var out []ir.Finding
	for _, f := range sorted {
		key := f.RuleID + "\x00" + f.Path + "\x00" + f.Location
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
