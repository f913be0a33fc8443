package suite

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml/ast"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

// Literal is a YAML value decoded with mapping order and scalar types kept.
type Literal struct {
	value.Value
}

func (l *Literal) UnmarshalYAML(node ast.Node) error {
	v, err := nodeToValue(node)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSuite, err)
	}
	l.Value = v
	return nil
}

// nodeToValue converts a YAML node. Integers keep their decimal text,
// mapping keys their document order.
func nodeToValue(node ast.Node) (value.Value, error) {
	switch n := node.(type) {
	case nil:
		return value.Null(), nil
	case *ast.NullNode:
		return value.Null(), nil
	case *ast.StringNode:
		return value.Text(n.Value), nil
	case *ast.LiteralNode:
		return value.Text(n.Value.Value), nil
	case *ast.BoolNode:
		return value.Bool(n.Value), nil
	case *ast.IntegerNode:
		switch v := n.Value.(type) {
		case int64:
			return value.Int(v), nil
		case uint64:
			return value.Number(json.Number(strconv.FormatUint(v, 10))), nil
		default:
			return value.Value{}, fmt.Errorf("unexpected integer node value type: %T", n.Value)
		}
	case *ast.FloatNode:
		return value.Float(n.Value), nil
	case *ast.InfinityNode, *ast.NanNode:
		return value.Text(n.GetToken().Value), nil
	case *ast.TagNode:
		return nodeToValue(n.Value)
	case *ast.AnchorNode:
		return nodeToValue(n.Value)
	case *ast.SequenceNode:
		items := make([]value.Value, 0, len(n.Values))
		for i, item := range n.Values {
			v, err := nodeToValue(item)
			if err != nil {
				return value.Value{}, fmt.Errorf("invalid value at index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return value.Seq(items...), nil
	case *ast.MappingNode:
		return pairsToValue(n.Values)
	case *ast.MappingValueNode:
		return pairsToValue([]*ast.MappingValueNode{n})
	default:
		return value.Value{}, fmt.Errorf("unsupported node type: %T", node)
	}
}

func pairsToValue(pairs []*ast.MappingValueNode) (value.Value, error) {
	members := make([]value.Member, 0, len(pairs))
	for _, pair := range pairs {
		key, err := keyString(pair.Key)
		if err != nil {
			return value.Value{}, err
		}
		v, err := nodeToValue(pair.Value)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid value for key %q: %w", key, err)
		}
		members = append(members, value.Pair(key, v))
	}
	return value.Map(members...), nil
}

func keyString(node ast.Node) (string, error) {
	switch k := node.(type) {
	case *ast.StringNode:
		return k.Value, nil
	case *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode:
		return k.GetToken().Value, nil
	default:
		return "", fmt.Errorf("mapping key must be scalar, got %T", node)
	}
}
