package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-7: insecure system configuration.

func init() {
	Register("privileged-execution", evalPrivilegedExecution)
	Register("container-runs-as-root", evalContainerRunsAsRoot)
}

func evalPrivilegedExecution(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	doc.Root.Walk(func(path string, n *ir.Node) {
		if n.Kind != ir.MappingNode {
			return
		}
		for _, key := range n.Keys {
			child := n.Children[key]
			loc := key
			if path != "" {
				loc = path + "." + key
			}
			switch {
			case key == "privileged" && child.IsTrue():
				out = append(out, finding(child, loc,
					"privileged execution disables container isolation; drop the flag or move the workload to a dedicated runner"))
			case key == "options" && strings.Contains(child.Scalar(), "--privileged"):
				out = append(out, finding(child, loc,
					"container options request --privileged; the job container gets full access to the host"))
			}
		}
	})
	return out
}

func evalContainerRunsAsRoot(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	switch doc.Format {
	case ir.FormatGithubActions:
		eachJob(doc.Root, func(name string, job *ir.Node) {
			container := job.Child("container")
			if container == nil || container.Kind != ir.MappingNode {
				return
			}
			if strings.Contains(container.Child("options").Scalar(), "--user") {
				return
			}
			out = append(out, finding(container, "jobs."+name+".container",
				fmt.Sprintf("job container for %q has no non-root user directive; add options: --user with an unprivileged uid", name)))
		})
	case ir.FormatTerraform:
		eachResource(doc.Root, "docker_container", func(name string, body *ir.Node) {
			if body.Child("user") != nil {
				return
			}
			out = append(out, finding(body, resourceLoc("docker_container", name),
				fmt.Sprintf("container %q defines no user and defaults to root; set an unprivileged user", name)))
		})
	}
	return out
}
