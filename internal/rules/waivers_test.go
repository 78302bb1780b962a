package rules

import (
	"testing"

	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/storage"
)

func TestApplyWaivers(t *testing.T) {
	findings := []ir.Finding{
		{RuleID: "SEC-8.mutable-action-ref", Path: ".github/workflows/ci.yml", Location: "jobs.build.steps[0].uses", Message: "action pinned to mutable ref"},
		{RuleID: "SEC-8.mutable-action-ref", Path: ".github/workflows/release.yml", Location: "jobs.rel.steps[1].uses", Message: "action pinned to mutable ref"},
		{RuleID: "SEC-3.unpinned-image", Path: ".gitlab-ci.yml", Location: "image", Message: "image uses :latest"},
	}

	t.Run("rule and path scoped", func(t *testing.T) {
		kept, waived := ApplyWaivers(findings, []storage.Waiver{
			{RuleID: "sec-8.mutable-action-ref", Path: ".github/workflows/ci.yml", Reason: "vendor action, tracked upstream"},
		})
		if waived != 1 || len(kept) != 2 {
			t.Fatalf("waived=%d kept=%d, want 1/2", waived, len(kept))
		}
		for _, f := range kept {
			if f.Path == ".github/workflows/ci.yml" && f.RuleID == "SEC-8.mutable-action-ref" {
				t.Fatalf("waived finding survived: %+v", f)
			}
		}
	})

	t.Run("rule wide", func(t *testing.T) {
		kept, waived := ApplyWaivers(findings, []storage.Waiver{
			{RuleID: "SEC-8.mutable-action-ref", Reason: "accepted risk"},
		})
		if waived != 2 || len(kept) != 1 {
			t.Fatalf("waived=%d kept=%d, want 2/1", waived, len(kept))
		}
	})

	t.Run("pattern substring", func(t *testing.T) {
		kept, waived := ApplyWaivers(findings, []storage.Waiver{
			{RuleID: "SEC-8.mutable-action-ref", PatternSub: "steps[1]", Reason: "one-off"},
		})
		if waived != 1 || len(kept) != 2 {
			t.Fatalf("waived=%d kept=%d, want 1/2", waived, len(kept))
		}
	})

	t.Run("no waivers is passthrough", func(t *testing.T) {
		kept, waived := ApplyWaivers(findings, nil)
		if waived != 0 || len(kept) != len(findings) {
			t.Fatalf("waived=%d kept=%d", waived, len(kept))
		}
	})
}
