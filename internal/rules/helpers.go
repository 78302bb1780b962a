package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// finding builds a raw finding anchored at node n.
func finding(n *ir.Node, loc, msg string) ir.Finding {
	f := ir.Finding{Location: loc, Message: msg}
	if n != nil {
		f.Line = n.Line
	}
	return f
}

var deployNameRe = regexp.MustCompile(`(?i)\b(deploy|release|publish|prod)`)

func deployLike(name string) bool { return deployNameRe.MatchString(name) }

// eachJob visits GitHub Actions jobs in declaration order.
func eachJob(root *ir.Node, fn func(name string, job *ir.Node)) {
	jobs := root.Child("jobs")
	if jobs == nil || jobs.Kind != ir.MappingNode {
		return
	}
	for _, name := range jobs.Keys {
		if j := jobs.Children[name]; j != nil && j.Kind == ir.MappingNode {
			fn(name, j)
		}
	}
}

// eachStep visits the steps sequence of a GitHub Actions job.
func eachStep(job *ir.Node, fn func(i int, step *ir.Node)) {
	steps := job.Child("steps")
	for i := 0; i < steps.Len(); i++ {
		if s := steps.At(i); s != nil && s.Kind == ir.MappingNode {
			fn(i, s)
		}
	}
}

// Keys that are configuration, not jobs, at the top of a .gitlab-ci.yml.
var gitlabReserved = map[string]bool{
	"stages": true, "variables": true, "include": true, "default": true,
	"image": true, "services": true, "workflow": true, "cache": true,
	"before_script": true, "after_script": true,
}

// eachGitlabJob visits GitLab CI jobs (top-level mappings that are not
// reserved configuration keys).
func eachGitlabJob(root *ir.Node, fn func(name string, job *ir.Node)) {
	for _, name := range root.Keys {
		if gitlabReserved[name] || strings.HasPrefix(name, ".") {
			continue
		}
		j := root.Children[name]
		if j == nil || j.Kind != ir.MappingNode {
			continue
		}
		fn(name, j)
	}
}

// onEvents lists a GitHub workflow's trigger event names, whatever the
// shape of the on: block (scalar, sequence, or mapping).
func onEvents(root *ir.Node) []string {
	on := root.Child("on")
	if on == nil {
		return nil
	}
	switch on.Kind {
	case ir.ScalarNode:
		return []string{on.Value}
	case ir.SequenceNode:
		out := make([]string, 0, len(on.Items))
		for _, item := range on.Items {
			if item.Kind == ir.ScalarNode {
				out = append(out, item.Value)
			}
		}
		return out
	case ir.MappingNode:
		return append([]string(nil), on.Keys...)
	}
	return nil
}

func hasEvent(root *ir.Node, names ...string) bool {
	for _, ev := range onEvents(root) {
		for _, want := range names {
			if strings.EqualFold(ev, want) {
				return true
			}
		}
	}
	return false
}

// grantsWrite reports whether a permissions node grants any write
// scope, either the write-all shorthand or a per-scope write value.
func grantsWrite(perms *ir.Node) bool {
	if perms == nil {
		return false
	}
	if perms.Kind == ir.ScalarNode {
		return strings.EqualFold(perms.Value, "write-all")
	}
	if perms.Kind == ir.MappingNode {
		for _, k := range perms.Keys {
			if v := perms.Children[k]; strings.EqualFold(v.Scalar(), "write") {
				return true
			}
		}
	}
	return false
}

// Keys whose values are shell scripts across the supported formats.
var scriptKeys = map[string]bool{
	"run": true, "script": true, "before_script": true,
	"after_script": true, "bash": true, "pwsh": true, "powershell": true,
}

// eachScriptLine visits every shell command line in the document,
// wherever the format nests it. Paths are structural ("jobs.x.steps[1].run").
func eachScriptLine(doc *ir.Document, fn func(path string, node *ir.Node, line string)) {
	doc.Root.Walk(func(path string, n *ir.Node) {
		if n.Kind != ir.MappingNode {
			return
		}
		for _, key := range n.Keys {
			if !scriptKeys[key] {
				continue
			}
			child := n.Children[key]
			childPath := path + "." + key
			if path == "" {
				childPath = key
			}
			switch child.Kind {
			case ir.ScalarNode:
				emitLines(childPath, child, fn)
			case ir.SequenceNode:
				for i, item := range child.Items {
					if item.Kind == ir.ScalarNode {
						emitLines(childPath+"["+itoa(i)+"]", item, fn)
					}
				}
			}
		}
	})
}

func emitLines(path string, n *ir.Node, fn func(string, *ir.Node, string)) {
	for _, line := range strings.Split(n.Value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			fn(path, n, line)
		}
	}
}

func itoa(i int) string { return strconv.Itoa(i) }

// eachImageRef visits container image references: image keys in any
// format plus scalar GitLab services entries. Expressions and variable
// references are skipped, they cannot be judged statically.
func eachImageRef(doc *ir.Document, fn func(path string, node *ir.Node, ref string)) {
	doc.Root.Walk(func(path string, n *ir.Node) {
		if n.Kind != ir.MappingNode {
			return
		}
		for _, key := range n.Keys {
			child := n.Children[key]
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			switch {
			case key == "image" && child.Kind == ir.ScalarNode:
				emitImage(childPath, child, fn)
			case key == "image" && child.Kind == ir.MappingNode:
				// GitLab long form: image: {name: ..., entrypoint: ...}
				if name := child.Child("name"); name != nil {
					emitImage(childPath+".name", name, fn)
				}
			case key == "services" && child.Kind == ir.SequenceNode:
				for i, item := range child.Items {
					if item.Kind == ir.ScalarNode {
						emitImage(childPath+"["+itoa(i)+"]", item, fn)
					}
				}
			}
		}
	})
}

func emitImage(path string, n *ir.Node, fn func(string, *ir.Node, string)) {
	ref := strings.TrimSpace(n.Value)
	if ref == "" || strings.ContainsAny(ref, "${") {
		return
	}
	fn(path, n, ref)
}

// imageTag splits the tag off an image reference, tolerating registry
// host:port prefixes. Second result is false when no tag is present.
func imageTag(ref string) (string, bool) {
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	last := ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		last = ref[i+1:]
	}
	if i := strings.Index(last, ":"); i >= 0 {
		return last[i+1:], true
	}
	return "", false
}

func hasDigest(ref string) bool { return strings.Contains(ref, "@sha256:") }

// eachResource visits Terraform resource bodies of one type:
// resource -> rtype -> name -> body.
func eachResource(root *ir.Node, rtype string, fn func(name string, body *ir.Node)) {
	group := root.Child("resource").Child(rtype)
	if group == nil || group.Kind != ir.MappingNode {
		return
	}
	for _, name := range group.Keys {
		if body := group.Children[name]; body != nil && body.Kind == ir.MappingNode {
			fn(name, body)
		}
	}
}

func resourceLoc(rtype, name string) string {
	return "resource." + rtype + "." + name
}

var secretExprRe = regexp.MustCompile(`\$\{\{\s*secrets\.`)
