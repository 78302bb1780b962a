package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-1: insufficient flow control mechanisms.

func init() {
	Register("github-deploy-without-environment", evalDeployWithoutEnvironment)
	Register("gitlab-deploy-without-gate", evalGitlabDeployWithoutGate)
}

func evalDeployWithoutEnvironment(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachJob(doc.Root, func(name string, job *ir.Node) {
		if !deployJob(name, job) {
			return
		}
		if job.Child("environment") != nil {
			return
		}
		out = append(out, finding(job, "jobs."+name,
			fmt.Sprintf("deploy-type job %q has no environment gate; bind it to a protected environment with required reviewers", name)))
	})
	return out
}

// deployJob flags a job as deploy-type when its name, a step name, or a
// step action reference reads like a deployment.
func deployJob(name string, job *ir.Node) bool {
	if deployLike(name) {
		return true
	}
	hit := false
	eachStep(job, func(_ int, step *ir.Node) {
		if deployLike(step.Child("name").Scalar()) || deployLike(step.Child("uses").Scalar()) {
			hit = true
		}
	})
	return hit
}

func evalGitlabDeployWithoutGate(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachGitlabJob(doc.Root, func(name string, job *ir.Node) {
		isDeployment := job.Child("environment") != nil || deployLike(name)
		if !isDeployment {
			return
		}
		if strings.EqualFold(job.Child("when").Scalar(), "manual") {
			return
		}
		out = append(out, finding(job, name,
			fmt.Sprintf("deployment job %q runs without a manual gate; add when: manual or a protected environment approval", name)))
	})
	return out
}
