package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// CICD-SEC-8: ungoverned usage of third-party services. Action and
// include references pinned to a mutable ref can change under the
// pipeline without review.

func init() {
	Register("mutable-action-ref", evalMutableActionRef)
	Register("gitlab-include-mutable-ref", evalGitlabIncludeMutableRef)
}

var (
	commitSHARe  = regexp.MustCompile(`^[0-9a-f]{40}$`)
	versionTagRe = regexp.MustCompile(`^v?\d+(\.\d+){0,2}(-[\w.]+)?$`)
)

// pinnedRef accepts a full commit SHA or a version-shaped tag. Branch
// and tag names are statically indistinguishable, so anything that does
// not look like a version is assumed mutable.
func pinnedRef(ref string) bool {
	return commitSHARe.MatchString(ref) || versionTagRe.MatchString(ref)
}

func evalMutableActionRef(doc *ir.Document) []ir.Finding {
	var out []ir.Finding
	eachJob(doc.Root, func(name string, job *ir.Node) {
		eachStep(job, func(i int, step *ir.Node) {
			uses := strings.TrimSpace(step.Child("uses").Scalar())
			if uses == "" || strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "docker://") {
				return
			}
			loc := fmt.Sprintf("jobs.%s.steps[%d].uses", name, i)
			at := strings.LastIndex(uses, "@")
			if at < 0 {
				out = append(out, finding(step.Child("uses"), loc,
					fmt.Sprintf("action %q is not pinned at all; pin it to a commit SHA or release tag", uses)))
				return
			}
			if ref := uses[at+1:]; !pinnedRef(ref) {
				out = append(out, finding(step.Child("uses"), loc,
					fmt.Sprintf("action %q is pinned to mutable ref %q; pin a commit SHA or release tag", uses[:at], ref)))
			}
		})
	})
	return out
}

func evalGitlabIncludeMutableRef(doc *ir.Document) []ir.Finding {
	include := doc.Root.Child("include")
	if include == nil || include.Kind != ir.SequenceNode {
		return nil
	}
	var out []ir.Finding
	for i := 0; i < include.Len(); i++ {
		entry := include.At(i)
		if entry.Kind != ir.MappingNode || entry.Child("project") == nil {
			continue
		}
		ref := strings.TrimSpace(entry.Child("ref").Scalar())
		if ref == "" {
			out = append(out, finding(entry, fmt.Sprintf("include[%d]", i),
				fmt.Sprintf("remote include of %q has no ref and tracks the default branch; pin a SHA or tag", entry.Child("project").Scalar())))
			continue
		}
		if !pinnedRef(ref) {
			out = append(out, finding(entry, fmt.Sprintf("include[%d]", i),
				fmt.Sprintf("remote include of %q is pinned to mutable ref %q; pin a SHA or tag", entry.Child("project").Scalar(), ref)))
		}
	}
	return out
}
