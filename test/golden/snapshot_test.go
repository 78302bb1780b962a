package golden

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/codewithboateng/pipelift/internal/aggregate"
	"github.com/codewithboateng/pipelift/internal/catalog"
	"github.com/codewithboateng/pipelift/internal/engine"
	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/loader"
)

var update = flag.Bool("update", false, "update golden snapshot")

const goldenFile = "expected.json"

// A deliberately careless deploy workflow exercising one rule per
// finding: PR trigger with write-all, latest-tag container, branch-
// pinned action, lockfile-free install, secret echoed to the log, no
// environment gate, root container, nothing retained.
const sampleDeploy = `name: deploy
on: pull_request
permissions: write-all
jobs:
  deploy:
    container:
      image: node:latest
    steps:
      - uses: actions/checkout@main
      - run: npm install
      - run: echo "token=${{ secrets.DEPLOY_TOKEN }}"
      - run: ./deploy.sh
`

func scanSnapshot(t *testing.T, files map[string]string) ir.ComplianceReport {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	res, err := loader.Load(context.Background(), root, loader.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ev := engine.Evaluate(context.Background(), res.Documents, cat, engine.Options{})
	findings := append(res.Failures, ev.Findings...)
	return aggregate.Build(len(res.Documents)+len(res.Failures), ev.Incomplete, findings, aggregate.DefaultPolicy())
}

type catLite struct {
	ID       int    `json:"id"`
	Status   string `json:"status"`
	Findings int    `json:"findings"`
}

type findLite struct {
	RuleID   string `json:"ruleId"`
	Severity string `json:"severity"`
	Path     string `json:"path"`
}

type snapshot struct {
	ScannedDocuments int        `json:"scannedDocuments"`
	Categories       []catLite  `json:"categories"`
	Findings         []findLite `json:"findings"`
}

// normalize reduces the report to its stable skeleton: rule ids,
// severities, and category statuses. Messages and locations are free to
// evolve without churning the snapshot.
func normalize(rep ir.ComplianceReport) snapshot {
	s := snapshot{ScannedDocuments: rep.ScannedDocuments}
	for _, c := range rep.Categories {
		s.Categories = append(s.Categories, catLite{
			ID: c.Category, Status: string(c.Status), Findings: c.Counts.Total(),
		})
	}
	for _, f := range rep.Findings {
		s.Findings = append(s.Findings, findLite{
			RuleID: f.RuleID, Severity: string(f.Severity), Path: f.Path,
		})
	}
	return s
}

func TestGolden_DeployWorkflowSnapshot(t *testing.T) {
	rep := scanSnapshot(t, map[string]string{
		".github/workflows/deploy.yml": sampleDeploy,
	})

	got, err := json.MarshalIndent(normalize(rep), "", "  ")
	if err != nil {
		t.Fatalf("marshal got: %v", err)
	}

	if *update {
		if err := os.WriteFile(goldenFile, append(got, '\n'), 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		t.Logf("updated %s", goldenFile)
		return
	}

	want, err := os.ReadFile(goldenFile)
	if err != nil {
		t.Fatalf("read golden (%s): %v\nRun with: go test ./test/golden -run TestGolden_DeployWorkflowSnapshot -args -update", goldenFile, err)
	}

	if !bytes.Equal(bytes.TrimSpace(got), bytes.TrimSpace(want)) {
		tmp := filepath.Join(t.TempDir(), "got.json")
		_ = os.WriteFile(tmp, got, 0o644)
		t.Fatalf("golden mismatch.\n  golden: %s\n  actual: %s\nTip: update with\n  go test ./test/golden -run TestGolden_DeployWorkflowSnapshot -count=1 -args -update", goldenFile, tmp)
	}
}
