package rules

import (
	"fmt"
	"sort"
	"strings"
)

// registry maps predicate reference names (as used by the catalog's
// predicate field) to implementations. Populated by init() in the
// rule_*.go files; read-only after process start.
var registry = map[string]Predicate{}

func Register(name string, p Predicate) {
	name = strings.TrimSpace(name)
	if name == "" || p == nil {
		panic("rules: empty predicate registration")
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("rules: duplicate predicate %q", name))
	}
	registry[name] = p
}

func Lookup(name string) (Predicate, bool) {
	p, ok := registry[strings.TrimSpace(name)]
	return p, ok
}

// Names lists registered predicates in stable order (used by the rules
// inventory output).
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
