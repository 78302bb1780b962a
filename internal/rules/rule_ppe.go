package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-4: poisoned pipeline execution. Workflows that run on
// untrusted pull-request input must not hold write scopes or secrets.

func init() {
	Register("github-pr-write-access", evalPRWriteAccess)
	Register("github-pr-target-checkout", evalPRTargetCheckout)
}

func evalPRWriteAccess(doc *ir.Document) []ir.Finding {
	if !hasEvent(doc.Root, "pull_request", "pull_request_target") {
		return nil
	}
	var out []ir.Finding
	if perms := doc.Root.Child("permissions"); grantsWrite(perms) {
		out = append(out, finding(perms, "permissions",
			"workflow triggered by pull requests grants write-scoped permissions; untrusted PR code can abuse the token"))
	}
	eachJob(doc.Root, func(name string, job *ir.Node) {
		if perms := job.Child("permissions"); grantsWrite(perms) {
			out = append(out, finding(perms, "jobs."+name+".permissions",
				fmt.Sprintf("job %q grants write-scoped permissions in a pull-request-triggered workflow", name)))
		}
	})
	if len(out) > 0 {
		return out
	}
	// No explicit write grant: secret access in PR context is still
	// poisoned-pipeline exposure.
	var secretAt string
	var secretNode *ir.Node
	doc.Root.Walk(func(path string, n *ir.Node) {
		if secretNode == nil && n.Kind == ir.ScalarNode && secretExprRe.MatchString(n.Value) {
			secretAt, secretNode = path, n
		}
	})
	if secretNode != nil {
		out = append(out, finding(secretNode, secretAt,
			"workflow triggered by pull requests reads repository secrets; untrusted PR code can exfiltrate them"))
	}
	return out
}

func evalPRTargetCheckout(doc *ir.Document) []ir.Finding {
	if !hasEvent(doc.Root, "pull_request_target") {
		return nil
	}
	var out []ir.Finding
	eachJob(doc.Root, func(name string, job *ir.Node) {
		eachStep(job, func(i int, step *ir.Node) {
			uses := step.Child("uses").Scalar()
			if !strings.Contains(uses, "actions/checkout") {
				return
			}
			ref := step.Child("with").Child("ref").Scalar()
			if strings.Contains(ref, "github.event.pull_request") {
				out = append(out, finding(step, fmt.Sprintf("jobs.%s.steps[%d]", name, i),
					"pull_request_target workflow checks out the PR head ref; attacker-controlled code runs in a privileged context"))
			}
		})
	})
	return out
}
