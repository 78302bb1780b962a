package ir

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"critical", SevCritical, true},
		{" HIGH ", SevHigh, true},
		{"Medium", SevMedium, true},
		{"low", SevLow, true},
		{"info", SevInfo, true},
		{"urgent", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseSeverity(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseSeverity(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SevInfo, SevLow, SevMedium, SevHigh, SevCritical}
	for i := 1; i < len(order); i++ {
		if SeverityRank(order[i-1]) >= SeverityRank(order[i]) {
			t.Fatalf("rank(%s) should be below rank(%s)", order[i-1], order[i])
		}
	}
}

func TestSeverityCounts(t *testing.T) {
	var c SeverityCounts
	for _, s := range []Severity{SevCritical, SevHigh, SevHigh, SevMedium, SevLow, SevInfo} {
		c.Add(s)
	}
	if c.Critical != 1 || c.High != 2 || c.Medium != 1 || c.Low != 1 || c.Info != 1 {
		t.Fatalf("unexpected counts: %+v", c)
	}
	if c.Total() != 6 {
		t.Fatalf("Total = %d, want 6", c.Total())
	}
}

func TestSortFindingsCanonicalOrder(t *testing.T) {
	fs := []Finding{
		{RuleID: "b", Severity: SevLow, Category: 3, Path: "x.yml"},
		{RuleID: "a", Severity: SevCritical, Category: 9, Path: "z.yml"},
		{RuleID: "a", Severity: SevLow, Category: 3, Path: "x.yml"},
		{RuleID: "a", Severity: SevLow, Category: 1, Path: "x.yml"},
		{RuleID: "a", Severity: SevLow, Category: 3, Path: "a.yml"},
	}
	SortFindings(fs)

	if fs[0].Severity != SevCritical {
		t.Fatalf("highest severity must sort first, got %+v", fs[0])
	}
	if fs[1].Category != 1 {
		t.Fatalf("within a severity, lower category sorts first, got %+v", fs[1])
	}
	if fs[2].Path != "a.yml" {
		t.Fatalf("within a category, paths sort ascending, got %+v", fs[2])
	}
	if fs[3].RuleID != "a" || fs[4].RuleID != "b" {
		t.Fatalf("rule id is the final tiebreak: %+v / %+v", fs[3], fs[4])
	}
}

func TestSortFindingsTotalOrderOnLocationTies(t *testing.T) {
	// One rule can flag several lines of a single run: block; those
	// findings share (severity, category, path, location, rule id) and
	// differ only in line and message. Line then message must decide.
	npm := Finding{RuleID: "r", Severity: SevLow, Category: 3,
		Path: "ci.yml", Location: "jobs.build.steps[1].run", Line: 12,
		Message: "npm install resolves dependencies freshly"}
	pip := Finding{RuleID: "r", Severity: SevLow, Category: 3,
		Path: "ci.yml", Location: "jobs.build.steps[1].run", Line: 14,
		Message: "pip install without a pinned requirements file"}

	ab := []Finding{npm, pip}
	ba := []Finding{pip, npm}
	SortFindings(ab)
	SortFindings(ba)

	if !reflect.DeepEqual(ab, ba) {
		t.Fatalf("tied findings not totally ordered:\n%+v\n%+v", ab, ba)
	}
	if ab[0].Line != 12 {
		t.Fatalf("lower line must sort first: %+v", ab)
	}

	// Same line too (both matches on one script line): message decides.
	sameLine := pip
	sameLine.Line = npm.Line
	xy := []Finding{sameLine, npm}
	SortFindings(xy)
	if xy[0].Message != npm.Message {
		t.Fatalf("message must be the final tiebreak: %+v", xy)
	}
}

func TestReportJSONFieldNames(t *testing.T) {
	rep := ComplianceReport{
		ScannedDocuments: 2,
		Categories:       []RiskScore{{Category: 1, Status: StatusCompliant}},
		Findings: []Finding{{
			RuleID: "SEC-4.read-only-pr", Category: 4, Severity: SevCritical,
			Path: ".github/workflows/ci.yml", Location: "permissions", Message: "m",
		}},
	}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		`"scannedDocuments":2`, `"id":1`, `"status":"COMPLIANT"`,
		`"ruleId":"SEC-4.read-only-pr"`, `"category":4`, `"severity":"CRITICAL"`,
		`"path":".github/workflows/ci.yml"`, `"location":"permissions"`,
	} {
		if !strings.Contains(string(b), key) {
			t.Errorf("report JSON missing %s in %s", key, b)
		}
	}
	if strings.Contains(string(b), `"incomplete"`) {
		t.Errorf("incomplete=false must be omitted: %s", b)
	}
}
