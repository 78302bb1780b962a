package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/pipelift/internal/ir"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestLoadRecognizedFormats(t *testing.T) {
	root := writeTree(t, map[string]string{
		".github/workflows/ci.yml": "on: push\njobs:\n  build:\n    steps: []\n",
		".gitlab-ci.yml":           "stages: [test]\nunit:\n  script: go test\n",
		"infra/main.tf":            `resource "aws_ecr_repository" "app" { image_tag_mutability = "IMMUTABLE" }` + "\n",
		"README.md":                "not a pipeline\n",
	})

	res, err := Load(context.Background(), root, Options{})
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Len(t, res.Documents, 3)

	// Sorted by path.
	assert.Equal(t, ".github/workflows/ci.yml", res.Documents[0].Path)
	assert.Equal(t, ".gitlab-ci.yml", res.Documents[1].Path)
	assert.Equal(t, "infra/main.tf", res.Documents[2].Path)
	assert.Equal(t, ir.FormatGithubActions, res.Documents[0].Format)
	assert.Equal(t, ir.FormatTerraform, res.Documents[2].Format)
}

func TestLoadMalformedFileBecomesFinding(t *testing.T) {
	root := writeTree(t, map[string]string{
		".github/workflows/good.yml": "on: push\njobs: {}\n",
		".github/workflows/bad.yml":  "on: [push\n", // unclosed flow sequence
	})

	res, err := Load(context.Background(), root, Options{})
	require.NoError(t, err, "a malformed file must not fail the load")
	require.Len(t, res.Documents, 1)
	require.Len(t, res.Failures, 1)

	f := res.Failures[0]
	assert.Equal(t, ir.RuleLoaderFailure, f.RuleID)
	assert.Equal(t, ir.SyntheticCategory, f.Category)
	assert.Equal(t, ir.SevInfo, f.Severity)
	assert.Equal(t, ".github/workflows/bad.yml", f.Path)
	assert.NotEmpty(t, f.Message)
}

func TestLoadExpiredDeadlineYieldsPartialResult(t *testing.T) {
	root := writeTree(t, map[string]string{
		".github/workflows/ci.yml": "on: push\njobs: {}\n",
		".gitlab-ci.yml":           "stages: [test]\nunit:\n  script: go test\n",
	})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := Load(ctx, root, Options{})
	require.NoError(t, err, "an expired deadline must degrade, not fail the load")
	assert.True(t, res.Incomplete, "skipped files must be flagged")
	assert.Empty(t, res.Failures, "skipping is not a parse failure")
}

func TestLoadIncludeExcludeGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		".github/workflows/ci.yml":      "on: push\njobs: {}\n",
		".github/workflows/nightly.yml": "on: schedule\njobs: {}\n",
		"infra/main.tf":                 `variable "x" {}` + "\n",
	})

	res, err := Load(context.Background(), root, Options{Exclude: []string{"nightly.yml"}})
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	for _, d := range res.Documents {
		assert.NotContains(t, d.Path, "nightly")
	}

	res, err = Load(context.Background(), root, Options{Include: []string{"*.tf"}})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "infra/main.tf", res.Documents[0].Path)
}

func TestLoadSkipsVendoredTrees(t *testing.T) {
	root := writeTree(t, map[string]string{
		"vendor/dep/.github/workflows/ci.yml": "on: push\njobs: {}\n",
		"node_modules/pkg/main.tf":            `variable "x" {}` + "\n",
		".github/workflows/real.yml":          "on: push\njobs: {}\n",
	})

	res, err := Load(context.Background(), root, Options{})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, ".github/workflows/real.yml", res.Documents[0].Path)
}

func TestLoadRootErrors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.yml")
	require.NoError(t, os.WriteFile(file, []byte("x: 1\n"), 0o644))
	_, err = Load(context.Background(), file, Options{})
	require.Error(t, err, "a plain file is not a scan root")
}

func TestParseYAMLStructure(t *testing.T) {
	doc, err := Parse(".github/workflows/ci.yml", ir.FormatGithubActions, []byte(`
on:
  pull_request:
jobs:
  build:
    steps:
      - uses: actions/checkout@v4
      - run: make test
`))
	require.NoError(t, err)

	uses := doc.Root.Child("jobs").Child("build").Child("steps").At(0).Child("uses")
	require.NotNil(t, uses)
	assert.Equal(t, "actions/checkout@v4", uses.Scalar())
	assert.Greater(t, uses.Line, 0, "yaml nodes carry source lines")

	run := doc.Root.Child("jobs").Child("build").Child("steps").At(1).Child("run")
	assert.Equal(t, "make test", run.Scalar())
}

func TestParseYAMLAnchorsResolve(t *testing.T) {
	doc, err := Parse(".gitlab-ci.yml", ir.FormatGitlabCI, []byte(`
.base: &base
  script: echo hi
unit:
  <<: *base
  stage: test
copy: *base
`))
	require.NoError(t, err)
	// The alias itself resolves to the anchored mapping.
	assert.Equal(t, "echo hi", doc.Root.Child("copy").Child("script").Scalar())
}

func TestParseYAMLEmptyAndNonMapping(t *testing.T) {
	doc, err := Parse("azure-pipelines.yml", ir.FormatAzurePipelines, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.MappingNode, doc.Root.Kind)
	assert.Empty(t, doc.Root.Keys)

	_, err = Parse("azure-pipelines.yml", ir.FormatAzurePipelines, []byte("- just\n- a\n- list\n"))
	require.Error(t, err, "top-level sequence is not a pipeline definition")
}

func TestParseHCLResources(t *testing.T) {
	doc, err := Parse("main.tf", ir.FormatTerraform, []byte(`
resource "aws_ecr_repository" "app" {
  name                 = "app"
  image_tag_mutability = "MUTABLE"

  image_scanning_configuration {
    scan_on_push = true
  }
}

resource "aws_ecr_repository" "tools" {
  name = "tools"
}

resource "docker_container" "web" {
  image = "nginx:latest"
  user  = "1000"
}
`))
	require.NoError(t, err)

	ecr := doc.Root.Child("resource").Child("aws_ecr_repository")
	require.NotNil(t, ecr)
	assert.ElementsMatch(t, []string{"app", "tools"}, ecr.Keys)
	assert.Equal(t, "MUTABLE", ecr.Child("app").Child("image_tag_mutability").Scalar())
	assert.True(t, ecr.Child("app").Child("image_scanning_configuration").Child("scan_on_push").IsTrue())

	web := doc.Root.Child("resource").Child("docker_container").Child("web")
	require.NotNil(t, web)
	assert.Equal(t, "nginx:latest", web.Child("image").Scalar())
}

func TestParseHCLUnresolvableExprKeepsSource(t *testing.T) {
	doc, err := Parse("main.tf", ir.FormatTerraform, []byte(`
resource "aws_iam_access_key" "ci" {
  user = var.ci_user
}
`))
	require.NoError(t, err)
	user := doc.Root.Child("resource").Child("aws_iam_access_key").Child("ci").Child("user")
	require.NotNil(t, user)
	assert.Equal(t, "var.ci_user", user.Scalar(), "unevaluable expressions keep their raw source")
}

func TestParseHCLSyntaxError(t *testing.T) {
	_, err := Parse("main.tf", ir.FormatTerraform, []byte(`resource "x" {`))
	require.Error(t, err)
}
