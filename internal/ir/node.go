package ir

import (
	"fmt"
	"strings"
)

// Format tags a document with its source dialect. Predicates branch on
// it where platforms differ; the node tree itself is format-agnostic.
type Format string

const (
	FormatGithubActions  Format = "github-actions"
	FormatGitlabCI       Format = "gitlab-ci"
	FormatAzurePipelines Format = "azure-pipelines"
	FormatTerraform      Format = "terraform"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatGithubActions:
		return FormatGithubActions, true
	case FormatGitlabCI:
		return FormatGitlabCI, true
	case FormatAzurePipelines:
		return FormatAzurePipelines, true
	case FormatTerraform:
		return FormatTerraform, true
	}
	return "", false
}

type NodeKind int

const (
	ScalarNode NodeKind = iota + 1
	MappingNode
	SequenceNode
)

// Node is one vertex of the normalized configuration tree. Trees are
// built once by the loader and never mutated afterwards, so they are
// safe for unsynchronized concurrent reads.
type Node struct {
	Kind  NodeKind
	Value string // scalar payload

	Keys     []string         // mapping key order as written
	Children map[string]*Node // mapping values

	Items []*Node // sequence entries

	Line   int // 1-based source line, 0 = unknown
	Column int
	Offset int // byte offset where the parser provides one, else 0
}

func NewScalar(v string) *Node { return &Node{Kind: ScalarNode, Value: v} }

func NewMapping() *Node { return &Node{Kind: MappingNode, Children: map[string]*Node{}} }

func NewSequence() *Node { return &Node{Kind: SequenceNode} }

// Put appends a mapping entry, keeping key order. Later duplicates win,
// matching YAML semantics.
func (n *Node) Put(key string, child *Node) {
	if n.Children == nil {
		n.Children = map[string]*Node{}
	}
	if _, dup := n.Children[key]; !dup {
		n.Keys = append(n.Keys, key)
	}
	n.Children[key] = child
}

func (n *Node) Append(child *Node) { n.Items = append(n.Items, child) }

// Child returns the mapping value for key, or nil. Nil-safe so lookups
// chain without intermediate checks.
func (n *Node) Child(key string) *Node {
	if n == nil || n.Kind != MappingNode {
		return nil
	}
	return n.Children[key]
}

// At returns the i-th sequence item, or nil.
func (n *Node) At(i int) *Node {
	if n == nil || n.Kind != SequenceNode || i < 0 || i >= len(n.Items) {
		return nil
	}
	return n.Items[i]
}

func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Items)
}

// Scalar returns the scalar payload, or "" for nil/non-scalar nodes.
func (n *Node) Scalar() string {
	if n == nil || n.Kind != ScalarNode {
		return ""
	}
	return n.Value
}

// IsTrue reports whether the node is a scalar spelling of boolean true.
func (n *Node) IsTrue() bool {
	switch strings.ToLower(n.Scalar()) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}

// Walk visits every node depth-first, passing the structural path
// ("jobs.build.steps[2].uses" style). Visiting order follows source
// order, so walks are deterministic.
func (n *Node) Walk(fn func(path string, node *Node)) {
	n.walk("", fn)
}

func (n *Node) walk(path string, fn func(string, *Node)) {
	if n == nil {
		return
	}
	fn(path, n)
	switch n.Kind {
	case MappingNode:
		for _, k := range n.Keys {
			n.Children[k].walk(joinPath(path, k), fn)
		}
	case SequenceNode:
		for i, item := range n.Items {
			item.walk(fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// Document is one parsed configuration file: path (relative to the scan
// root, slash-separated), format tag, and the normalized tree.
// Immutable after load.
type Document struct {
	Path   string
	Format Format
	Root   *Node
}
