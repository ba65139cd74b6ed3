// Package yml provides thin helpers over yaml.v3 nodes used by the pipeline
// DSL parser; mapping order is preserved, which plain map decoding loses.
package yml

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node aliases yaml.Node to attach traversal helpers.
type Node yaml.Node

// Lookup returns the value node for the given mapping key, or nil.
func (n *Node) Lookup(name string) *Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

// Pairs iterates mapping entries in declaration order.
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Items iterates sequence elements.
func (n *Node) Items(callback func(index int, node *Node) error) error {
	for i := range n.Content {
		if err := callback(i, (*Node)(n.Content[i])); err != nil {
			return err
		}
	}
	return nil
}

// Interface converts the node into plain Go values (string/bool/int/float,
// map[string]interface{}, []interface{}).
func (n *Node) Interface() interface{} {
	switch n.Kind {
	case yaml.ScalarNode:
		return scalarValue(n)
	case yaml.MappingNode:
		aMap := make(map[string]interface{})
		for i := 0; i+1 < len(n.Content); i += 2 {
			aMap[n.Content[i].Value] = (*Node)(n.Content[i+1]).Interface()
		}
		return aMap
	case yaml.SequenceNode:
		aSlice := make([]interface{}, 0, len(n.Content))
		for i := range n.Content {
			aSlice = append(aSlice, (*Node)(n.Content[i]).Interface())
		}
		return aSlice
	}
	return nil
}

func scalarValue(n *Node) interface{} {
	switch n.Tag {
	case "!!bool":
		return strings.EqualFold(n.Value, "true")
	case "!!int":
		value, err := strconv.Atoi(n.Value)
		if err != nil {
			return 0
		}
		return value
	case "!!float":
		value, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return 0.0
		}
		return value
	case "!!null":
		return nil
	default:
		return n.Value
	}
}
