package rules

import (
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/storage"
)

// ApplyWaivers filters out findings covered by an active waiver.
// Returns (kept, waivedCount).
func ApplyWaivers(in []ir.Finding, waivers []storage.Waiver) ([]ir.Finding, int) {
	if len(waivers) == 0 || len(in) == 0 {
		return in, 0
	}
	out := make([]ir.Finding, 0, len(in))
	waived := 0
nextFinding:
	for _, f := range in {
		for _, w := range waivers {
			if !strings.EqualFold(strings.TrimSpace(f.RuleID), strings.TrimSpace(w.RuleID)) {
				continue
			}
			if w.Path != "" && !strings.EqualFold(f.Path, w.Path) {
				continue
			}
			if w.PatternSub != "" {
				ps := strings.ToUpper(w.PatternSub)
				if !strings.Contains(strings.ToUpper(f.Message), ps) &&
					!strings.Contains(strings.ToUpper(f.Location), ps) {
					continue
				}
			}
			waived++
			continue nextFinding
		}
		out = append(out, f)
	}
	return out, waived
}
