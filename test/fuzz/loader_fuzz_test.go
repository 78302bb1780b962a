package fuzz

import (
	"testing"

	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/loader"
)

// Fuzz the normalizers with arbitrary content: any input may be
// rejected with an error, but none may panic.
func FuzzParseYAMLNoPanic(f *testing.F) {
	seeds := []string{
		"on: push\njobs:\n  build:\n    steps: []\n",
		"stages: [test]\nunit:\n  script: go test\n",
		"image: node:latest\n",
		"on: [push\n",
		"- a\n- b\n",
		"",
		"key: &a\n  x: *a\n",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = loader.Parse(".github/workflows/f.yml", ir.FormatGithubActions, data)
		_, _ = loader.Parse(".gitlab-ci.yml", ir.FormatGitlabCI, data)
	})
}

func FuzzParseHCLNoPanic(f *testing.F) {
	seeds := []string{
		`resource "aws_ecr_repository" "app" { name = "app" }`,
		`resource "x" {`,
		`a = [1, 2, var.b]`,
		"",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = loader.Parse("main.tf", ir.FormatTerraform, data)
	})
}

// Detect must classify anything thrown at it without panicking.
func FuzzDetectNoPanic(f *testing.F) {
	for _, s := range []string{".github/workflows/ci.yml", "a/../b.tf", "", "..", "\\x\\y.yml"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, rel string) {
		_, _ = loader.Detect(rel)
	})
}
