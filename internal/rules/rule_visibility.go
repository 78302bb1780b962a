package rules

import (
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-10: insufficient logging and visibility. A pipeline that
// retains nothing leaves no trail to investigate after an incident.

func init() {
	Register("no-artifact-retention", evalNoArtifactRetention)
}

func evalNoArtifactRetention(doc *ir.Document) []ir.Finding {
	retained := false
	switch doc.Format {
	case ir.FormatGithubActions:
		eachJob(doc.Root, func(_ string, job *ir.Node) {
			eachStep(job, func(_ int, step *ir.Node) {
				if strings.Contains(step.Child("uses").Scalar(), "upload-artifact") {
					retained = true
				}
			})
		})
	case ir.FormatGitlabCI:
		eachGitlabJob(doc.Root, func(_ string, job *ir.Node) {
			if job.Child("artifacts") != nil {
				retained = true
			}
		})
	case ir.FormatAzurePipelines:
		doc.Root.Walk(func(_ string, n *ir.Node) {
			if n.Kind != ir.MappingNode {
				return
			}
			task := n.Child("task").Scalar()
			if strings.Contains(task, "PublishBuildArtifacts") || strings.Contains(task, "PublishPipelineArtifact") {
				retained = true
			}
		})
	default:
		return nil
	}
	if retained {
		return nil
	}
	return []ir.Finding{finding(doc.Root, "",
		"pipeline persists no artifacts or logs beyond the run itself; upload build evidence so an audit trail survives the runner")}
}
