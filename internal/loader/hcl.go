package loader

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/codewithboateng/pipelift/internal/ir"
)

// parseHCL normalizes a Terraform file into the shared node tree. The
// shape follows Terraform's JSON representation: resource blocks nest
// as resource -> type -> name -> body, so predicates address
// root.Child("resource").Child("aws_ecr_repository") the same way for
// every module.
func parseHCL(data []byte, filename string) (*ir.Node, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected hcl body type", filename)
	}
	return fromHCLBody(body, data), nil
}

func fromHCLBody(body *hclsyntax.Body, src []byte) *ir.Node {
	n := ir.NewMapping()
	n.Line = body.SrcRange.Start.Line
	n.Offset = body.SrcRange.Start.Byte

	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n.Put(name, fromHCLExpr(body.Attributes[name].Expr, src))
	}

	for _, block := range body.Blocks {
		child := fromHCLBody(block.Body, src)
		child.Line = block.TypeRange.Start.Line
		child.Offset = block.TypeRange.Start.Byte
		// Labeled blocks nest one mapping level per label.
		for i := len(block.Labels) - 1; i >= 0; i-- {
			wrap := ir.NewMapping()
			wrap.Line, wrap.Offset = child.Line, child.Offset
			wrap.Put(block.Labels[i], child)
			child = wrap
		}
		mergeBlock(n, block.Type, child)
	}
	return n
}

// mergeBlock folds repeated blocks of the same type together: labeled
// blocks merge mapping levels (two resource blocks share one "resource"
// entry), unlabeled repeats become a sequence.
func mergeBlock(parent *ir.Node, key string, child *ir.Node) {
	existing := parent.Child(key)
	if existing == nil {
		parent.Put(key, child)
		return
	}
	if existing.Kind == ir.MappingNode && child.Kind == ir.MappingNode {
		for _, k := range child.Keys {
			mergeBlock(existing, k, child.Children[k])
		}
		return
	}
	if existing.Kind == ir.SequenceNode {
		existing.Append(child)
		return
	}
	seq := ir.NewSequence()
	seq.Line, seq.Offset = existing.Line, existing.Offset
	seq.Append(existing)
	seq.Append(child)
	parent.Put(key, seq)
}

func fromHCLExpr(expr hclsyntax.Expression, src []byte) *ir.Node {
	rng := expr.Range()
	val, diags := expr.Value(nil)
	if diags.HasErrors() || !val.IsKnown() || val.IsNull() {
		// References and interpolations cannot be evaluated statically;
		// keep the raw source text so heuristics can still match it.
		n := ir.NewScalar(rawRange(src, rng))
		n.Line, n.Offset = rng.Start.Line, rng.Start.Byte
		return n
	}
	n := fromCty(val)
	n.Line, n.Offset = rng.Start.Line, rng.Start.Byte
	return n
}

func fromCty(val cty.Value) *ir.Node {
	t := val.Type()
	switch {
	case t == cty.String:
		return ir.NewScalar(val.AsString())
	case t == cty.Bool:
		if val.True() {
			return ir.NewScalar("true")
		}
		return ir.NewScalar("false")
	case t == cty.Number:
		return ir.NewScalar(val.AsBigFloat().Text('f', -1))
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		n := ir.NewSequence()
		for _, item := range val.AsValueSlice() {
			n.Append(fromCty(item))
		}
		return n
	case t.IsObjectType() || t.IsMapType():
		m := val.AsValueMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := ir.NewMapping()
		for _, k := range keys {
			n.Put(k, fromCty(m[k]))
		}
		return n
	default:
		return ir.NewScalar(val.GoString())
	}
}

func rawRange(src []byte, rng hcl.Range) string {
	start, end := rng.Start.Byte, rng.End.Byte
	if start < 0 || end > len(src) || start >= end {
		return ""
	}
	return string(src[start:end])
}
