package loader

import (
	"path"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// Detect maps a slash-separated relative path to a document format by
// filename convention. The second result is false for files the scanner
// does not recognize.
func Detect(rel string) (ir.Format, bool) {
	rel = strings.ToLower(path.Clean(strings.ReplaceAll(rel, "\\", "/")))
	base := path.Base(rel)

	switch {
	case strings.HasSuffix(base, ".tf"):
		return ir.FormatTerraform, true
	case base == ".gitlab-ci.yml" || base == ".gitlab-ci.yaml":
		return ir.FormatGitlabCI, true
	case strings.HasPrefix(base, "azure-pipelines") && isYAML(base):
		return ir.FormatAzurePipelines, true
	case strings.Contains(rel, ".github/workflows/") && isYAML(base):
		return ir.FormatGithubActions, true
	}
	return "", false
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}
