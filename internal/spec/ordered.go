package spec

import (
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Map is a string-keyed mapping that remembers declaration order. Every
// mapping in a document (paths, properties, content, responses, components)
// decodes into a Map so that generated artifacts follow the source order.
type Map[V any] struct {
	keys  []string
	items map[string]V
}

// NewMap builds a Map from pairs in the given order.
func NewMap[V any](pairs ...Pair[V]) Map[V] {
	var m Map[V]
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Pair is a single Map entry.
type Pair[V any] struct {
	Key   string
	Value V
}

// Set inserts or replaces a value. Replacing keeps the original position.
func (m *Map[V]) Set(key string, value V) {
	if m.items == nil {
		m.items = make(map[string]V)
	}
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = value
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil || m.items == nil {
		return zero, false
	}
	v, ok := m.items[key]
	return v, ok
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in declaration order.
func (m *Map[V]) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// All iterates entries in declaration order.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.items[k]) {
				return
			}
		}
	}
}

// UnmarshalYAML decodes a mapping node, keeping key order. Duplicate keys are
// rejected by yaml.v3 before we get here.
func (m *Map[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", node.Line, kindName(node.Kind))
	}
	*m = Map[V]{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var v V
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", key.Value, err)
		}
		m.Set(key.Value, v)
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown node"
	}
}
