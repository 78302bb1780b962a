package reporting

import (
	"fmt"
	"io"
	"sort"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// Category titles for the human-readable summary, indexed 1..10.
var categoryTitles = map[int]string{
	1:  "Insufficient Flow Control Mechanisms",
	2:  "Inadequate Identity and Access Management",
	3:  "Dependency Chain Abuse",
	4:  "Poisoned Pipeline Execution",
	5:  "Insufficient Pipeline-Based Access Controls",
	6:  "Insufficient Credential Hygiene",
	7:  "Insecure System Configuration",
	8:  "Ungoverned Usage of Third-Party Services",
	9:  "Improper Artifact Integrity Validation",
	10: "Insufficient Logging and Visibility",
}

func CategoryTitle(id int) string {
	if t, ok := categoryTitles[id]; ok {
		return t
	}
	return fmt.Sprintf("Category %d", id)
}

// RenderText writes the human-readable summary: categories worst-first,
// then the findings grouped under each non-compliant category.
func RenderText(w io.Writer, run *ir.Run) error {
	rep := run.Report

	fmt.Fprintf(w, "pipelift scan %s\n", run.ID)
	fmt.Fprintf(w, "  documents scanned: %d\n", rep.ScannedDocuments)
	fmt.Fprintf(w, "  findings: %d", len(rep.Findings))
	if run.Waived > 0 {
		fmt.Fprintf(w, " (+%d waived)", run.Waived)
	}
	fmt.Fprintln(w)
	if rep.Incomplete {
		fmt.Fprintln(w, "  WARNING: evaluation hit the deadline; results are partial")
	}
	fmt.Fprintln(w)

	cats := append([]ir.RiskScore(nil), rep.Categories...)
	sort.SliceStable(cats, func(i, j int) bool {
		return statusRank(cats[i].Status) > statusRank(cats[j].Status)
	})

	for _, c := range cats {
		fmt.Fprintf(w, "  [%-19s] CICD-SEC-%-2d %s", c.Status, c.Category, CategoryTitle(c.Category))
		if n := c.Counts.Total(); n > 0 {
			fmt.Fprintf(w, "  (crit:%d high:%d med:%d low:%d info:%d)",
				c.Counts.Critical, c.Counts.High, c.Counts.Medium, c.Counts.Low, c.Counts.Info)
		}
		fmt.Fprintln(w)
	}

	if len(rep.Findings) > 0 {
		fmt.Fprintln(w)
		for _, f := range rep.Findings {
			loc := f.Path
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
			}
			fmt.Fprintf(w, "  %-8s %-28s %s\n           %s\n", f.Severity, f.RuleID, loc, f.Message)
		}
	}
	return nil
}

func statusRank(s ir.Status) int {
	switch s {
	case ir.StatusNonCompliant:
		return 2
	case ir.StatusPartial:
		return 1
	default:
		return 0
	}
}
