package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-5: insufficient pipeline-based access controls.

func init() {
	Register("github-missing-permissions", evalMissingPermissions)
	Register("github-broad-permissions", evalBroadPermissions)
}

func evalMissingPermissions(doc *ir.Document) []ir.Finding {
	if doc.Root.Child("permissions") != nil {
		return nil
	}
	var out []ir.Finding
	eachJob(doc.Root, func(name string, job *ir.Node) {
		if job.Child("permissions") != nil {
			return
		}
		out = append(out, finding(job, "jobs."+name,
			fmt.Sprintf("job %q inherits the repository default token scope; declare an explicit least-privilege permissions block", name)))
	})
	return out
}

func evalBroadPermissions(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	check := func(perms *ir.Node, loc string) {
		if perms != nil && perms.Kind == ir.ScalarNode && strings.EqualFold(perms.Value, "write-all") {
			out = append(out, finding(perms, loc,
				"permissions: write-all grants every scope to the job token; enumerate only the scopes the workflow needs"))
		}
	}
	check(doc.Root.Child("permissions"), "permissions")
	eachJob(doc.Root, func(name string, job *ir.Node) {
		check(job.Child("permissions"), "jobs."+name+".permissions")
	})
	return out
}
