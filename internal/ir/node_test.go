package ir

import (
	"reflect"
	"testing"
)

func TestNodeNilSafeAccessors(t *testing.T) {
	var n *Node
	if n.Child("x") != nil {
		t.Fatal("Child on nil node must return nil")
	}
	if n.At(0) != nil || n.Len() != 0 {
		t.Fatal("At/Len on nil node must be zero-valued")
	}
	if n.Scalar() != "" || n.IsTrue() {
		t.Fatal("Scalar/IsTrue on nil node must be zero-valued")
	}

	// Chained lookup through missing keys stays nil-safe.
	root := NewMapping()
	if got := root.Child("a").Child("b").Child("c").Scalar(); got != "" {
		t.Fatalf("chained lookup = %q, want empty", got)
	}
}

func TestNodePutKeepsOrderAndDupsWin(t *testing.T) {
	m := NewMapping()
	m.Put("b", NewScalar("1"))
	m.Put("a", NewScalar("2"))
	m.Put("b", NewScalar("3"))

	if !reflect.DeepEqual(m.Keys, []string{"b", "a"}) {
		t.Fatalf("Keys = %v, want [b a]", m.Keys)
	}
	if m.Child("b").Scalar() != "3" {
		t.Fatalf("later duplicate must win, got %q", m.Child("b").Scalar())
	}
}

func TestIsTrueSpellings(t *testing.T) {
	for _, v := range []string{"true", "True", "yes", "on", "1"} {
		if !NewScalar(v).IsTrue() {
			t.Errorf("%q should be true", v)
		}
	}
	for _, v := range []string{"false", "no", "0", "", "enabled"} {
		if NewScalar(v).IsTrue() {
			t.Errorf("%q should not be true", v)
		}
	}
}

func TestWalkPaths(t *testing.T) {
	steps := NewSequence()
	step := NewMapping()
	step.Put("uses", NewScalar("actions/checkout@v4"))
	steps.Append(step)

	build := NewMapping()
	build.Put("steps", steps)

	jobs := NewMapping()
	jobs.Put("build", build)

	root := NewMapping()
	root.Put("jobs", jobs)

	var paths []string
	root.Walk(func(path string, n *Node) {
		if n.Kind == ScalarNode {
			paths = append(paths, path)
		}
	})
	want := []string{"jobs.build.steps[0].uses"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("scalar paths = %v, want %v", paths, want)
	}
}

func TestParseFormat(t *testing.T) {
	if f, ok := ParseFormat(" GitHub-Actions "); !ok || f != FormatGithubActions {
		t.Fatalf("ParseFormat normalization failed: %v %v", f, ok)
	}
	if _, ok := ParseFormat("jenkins"); ok {
		t.Fatal("unknown format must not parse")
	}
}
