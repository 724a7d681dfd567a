package ctyext

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node to a cty value without applying any
// type information.
//
// Scalars become strings regardless of their YAML tag, except for explicit
// nulls which become a dynamic null. Sequences become tuples and mappings
// become objects. The caller is expected to convert the result to the
// declared type, which turns "3" into a number and "true" into a bool.
func FromYAML(node *yaml.Node) (cty.Value, error) {
	return fromYAML(node, nil)
}

func fromYAML(node *yaml.Node, path cty.Path) (cty.Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return fromYAML(node.Content[0], path)
	case yaml.AliasNode:
		return fromYAML(node.Alias, path)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return cty.StringVal(node.Value), nil
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(node.Content))
		for i, n := range node.Content {
			v, err := fromYAML(n, path.Index(cty.NumberIntVal(int64(i))))
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}
		return cty.TupleVal(vals), nil
	case yaml.MappingNode:
		if len(node.Content) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return cty.NilVal, pathErrorf(path, "line %d: mapping keys must be strings", k.Line)
			}
			if _, dup := attrs[k.Value]; dup {
				return cty.NilVal, pathErrorf(path, "line %d: duplicate key %q", k.Line, k.Value)
			}
			val, err := fromYAML(v, path.GetAttr(k.Value))
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k.Value] = val
		}
		return cty.ObjectVal(attrs), nil
	}
	return cty.NilVal, PathError{Path: path, Err: fmt.Errorf("line %d: unsupported YAML node", node.Line)}
}
