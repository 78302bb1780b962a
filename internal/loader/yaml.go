package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/pipelift/internal/ir"
)

func parseYAML(data []byte) (*ir.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		// Empty file: normalize to an empty mapping so predicates need
		// no nil checks.
		return ir.NewMapping(), nil
	}
	return fromYAML(doc.Content[0], map[*yaml.Node]bool{})
}

// fromYAML converts one yaml node, resolving aliases in place. active
// tracks nodes on the current expansion path so a self-referential
// anchor errors instead of recursing forever.
func fromYAML(y *yaml.Node, active map[*yaml.Node]bool) (*ir.Node, error) {
	for y.Kind == yaml.AliasNode {
		y = y.Alias
	}
	if active[y] {
		return nil, fmt.Errorf("recursive alias at line %d", y.Line)
	}
	active[y] = true
	defer delete(active, y)

	switch y.Kind {
	case yaml.ScalarNode:
		n := ir.NewScalar(y.Value)
		n.Line, n.Column = y.Line, y.Column
		return n, nil
	case yaml.MappingNode:
		n := ir.NewMapping()
		n.Line, n.Column = y.Line, y.Column
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i]
			val, err := fromYAML(y.Content[i+1], active)
			if err != nil {
				return nil, err
			}
			n.Put(key.Value, val)
		}
		return n, nil
	case yaml.SequenceNode:
		n := ir.NewSequence()
		n.Line, n.Column = y.Line, y.Column
		for _, item := range y.Content {
			child, err := fromYAML(item, active)
			if err != nil {
				return nil, err
			}
			n.Append(child)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d at line %d", y.Kind, y.Line)
	}
}
