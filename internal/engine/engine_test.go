package engine

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/codewithboateng/pipelift/internal/catalog"
	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/loader"
)

func testCatalog(t *testing.T, defs ...catalog.Rule) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("test", defs)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func ghDocs(t *testing.T, contents ...string) []*ir.Document {
	t.Helper()
	docs := make([]*ir.Document, 0, len(contents))
	for i, c := range contents {
		doc, err := loader.Parse(".github/workflows/w"+string(rune('a'+i))+".yml", ir.FormatGithubActions, []byte(c))
		if err != nil {
			t.Fatalf("parse doc %d: %v", i, err)
		}
		docs = append(docs, doc)
	}
	return docs
}

func allJobsRule(id string, sev ir.Severity) catalog.Rule {
	return catalog.Rule{
		ID: id, Category: 5, Severity: sev,
		Formats: []ir.Format{ir.FormatGithubActions},
		Eval: func(doc *ir.Document) []ir.Finding {
			var out []ir.Finding
			jobs := doc.Root.Child("jobs")
			for _, name := range jobs.Keys {
				out = append(out, ir.Finding{Location: "jobs." + name, Message: "job " + name})
			}
			return out
		},
	}
}

const wf = "on: push\njobs:\n  build:\n    steps: []\n  deploy:\n    steps: []\n"

func TestEvaluateStampsCatalogMetadata(t *testing.T) {
	cat := testCatalog(t, allJobsRule("T-1", ir.SevHigh))
	docs := ghDocs(t, wf)

	res := Evaluate(context.Background(), docs, cat, Options{})
	if res.Incomplete {
		t.Fatal("unexpected incomplete")
	}
	if len(res.Findings) != 2 {
		t.Fatalf("want 2 findings, got %+v", res.Findings)
	}
	for _, f := range res.Findings {
		if f.RuleID != "T-1" || f.Category != 5 || f.Severity != ir.SevHigh || f.Path != docs[0].Path {
			t.Fatalf("metadata not stamped: %+v", f)
		}
	}
}

func TestEvaluateDeterministicAcrossWorkerCounts(t *testing.T) {
	cat := testCatalog(t,
		allJobsRule("T-1", ir.SevHigh),
		allJobsRule("T-2", ir.SevLow),
	)
	docs := ghDocs(t, wf, wf, wf, wf, wf, wf, wf, wf)

	base := Evaluate(context.Background(), docs, cat, Options{Workers: 1})
	for _, workers := range []int{2, 4, 16} {
		got := Evaluate(context.Background(), docs, cat, Options{Workers: workers})
		if !reflect.DeepEqual(base.Findings, got.Findings) {
			t.Fatalf("workers=%d produced different output", workers)
		}
	}
}

func TestEvaluatePanicIsolation(t *testing.T) {
	panicky := catalog.Rule{
		ID: "T-PANIC", Category: 3, Severity: ir.SevHigh,
		Formats: []ir.Format{ir.FormatGithubActions},
		Eval: func(doc *ir.Document) []ir.Finding {
			panic("predicate bug")
		},
	}
	cat := testCatalog(t, allJobsRule("T-1", ir.SevHigh), panicky)
	docs := ghDocs(t, wf)

	res := Evaluate(context.Background(), docs, cat, Options{Workers: 1})

	var evalFailures, normal int
	for _, f := range res.Findings {
		switch f.RuleID {
		case ir.RuleEvalFailure:
			evalFailures++
			if f.Category != ir.SyntheticCategory || f.Severity != ir.SevInfo {
				t.Fatalf("EVAL-0 misclassified: %+v", f)
			}
			if f.Location != "T-PANIC" {
				t.Fatalf("EVAL-0 location must carry the failing rule id: %+v", f)
			}
		case "T-1":
			normal++
		default:
			t.Fatalf("unexpected finding: %+v", f)
		}
	}
	if evalFailures != 1 {
		t.Fatalf("want exactly 1 EVAL-0, got %d", evalFailures)
	}
	if normal != 2 {
		t.Fatalf("other rules must still run, got %d findings", normal)
	}
}

func TestEvaluateExpiredContextIsIncomplete(t *testing.T) {
	cat := testCatalog(t, allJobsRule("T-1", ir.SevHigh))
	docs := ghDocs(t, wf, wf, wf, wf)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res := Evaluate(ctx, docs, cat, Options{Workers: 1})
	if !res.Incomplete {
		t.Fatal("expired deadline must mark the result incomplete")
	}
}

func TestEvaluateEmptyInput(t *testing.T) {
	cat := testCatalog(t, allJobsRule("T-1", ir.SevHigh))
	res := Evaluate(context.Background(), nil, cat, Options{})
	if res.Incomplete || len(res.Findings) != 0 {
		t.Fatalf("empty input must be a clean empty result: %+v", res)
	}
}
