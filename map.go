package fmf

import (
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Map is an ordered mapping from string keys to attribute values. It
// preserves first-insertion order of keys, which is what makes tree
// assembly and round-trip serialization deterministic.
//
// Values stored in a Map are one of: nil, bool, int, float64, string,
// []any (ordered list) or *Map (nested mapping).
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty ordered mapping.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Get returns the value stored under key and whether the key is present.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. An existing key keeps its position, a new
// key is appended at the end.
func (m *Map) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key from the mapping. Removing a missing key is a no-op.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Copy returns a deep clone sharing no mutable state with the origin.
func (m *Map) Copy() *Map {
	if m == nil {
		return nil
	}
	clone := NewMap()
	for _, k := range m.keys {
		clone.Set(k, copyValue(m.values[k]))
	}
	return clone
}

// ToMap converts the ordered mapping (recursively) into a plain
// map[string]any. Insertion order is lost; used for decoding blocks
// into typed structs.
func (m *Map) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	plain := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		plain[k] = plainValue(m.values[k])
	}
	return plain
}

func plainValue(v any) any {
	switch val := v.(type) {
	case *Map:
		return val.ToMap()
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = plainValue(item)
		}
		return items
	default:
		return v
	}
}

// copyValue deep-copies an attribute value.
func copyValue(v any) any {
	switch val := v.(type) {
	case *Map:
		return val.Copy()
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = copyValue(item)
		}
		return items
	default:
		// Scalars are immutable.
		return v
	}
}

// equalValues reports structural equality of two attribute values.
// Mappings are compared as sets of key-value pairs, lists element-wise.
func equalValues(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, present := bv.Get(k)
			if !present || !equalValues(av.values[k], bval) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Equal reports whether two mappings hold the same set of key-value pairs.
// Key order does not affect equality.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m.Len() == other.Len()
	}
	return equalValues(m, other)
}

// formatValue renders an attribute value the way filters and the CLI
// display it: scalars via their natural string form, lists and mappings
// in a compact flow style.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Map:
		parts := make([]string, 0, val.Len())
		for _, k := range val.keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, formatValue(val.values[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// String implements fmt.Stringer.
func (m *Map) String() string {
	return formatValue(m)
}

// FormatValue renders an attribute value the way filters match it and
// the CLI displays it.
func FormatValue(v any) string {
	return formatValue(v)
}

// --- YAML conversion ---

// decodeMapping converts a parsed yaml mapping node into an ordered Map.
// Duplicate keys within a single mapping are fatal.
func decodeMapping(node *yaml.Node, path string) (*Map, error) {
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping at %s:%d:%d",
			ErrFile, path, node.Line, node.Column)
	}
	m := NewMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := resolveAlias(node.Content[i])
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: mapping key is not a scalar at %s:%d:%d",
				ErrFile, path, keyNode.Line, keyNode.Column)
		}
		key := keyNode.Value
		if _, seen := m.Get(key); seen {
			return nil, fmt.Errorf("%w: duplicate key '%s' at %s:%d:%d",
				ErrFile, key, path, keyNode.Line, keyNode.Column)
		}
		value, err := decodeValue(node.Content[i+1], path)
		if err != nil {
			return nil, err
		}
		m.Set(key, value)
	}
	return m, nil
}

// decodeValue converts a yaml node into an attribute value.
func decodeValue(node *yaml.Node, path string) (any, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.MappingNode:
		return decodeMapping(node, path)
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := decodeValue(child, path)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case yaml.ScalarNode:
		return decodeScalar(node, path)
	default:
		return nil, fmt.Errorf("%w: unsupported yaml node at %s:%d:%d",
			ErrFile, path, node.Line, node.Column)
	}
}

func decodeScalar(node *yaml.Node, path string) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var v bool
		if err := node.Decode(&v); err != nil {
			return nil, formatYamlError(err, path)
		}
		return v, nil
	case "!!int":
		var v int
		if err := node.Decode(&v); err != nil {
			return nil, formatYamlError(err, path)
		}
		return v, nil
	case "!!float":
		var v float64
		if err := node.Decode(&v); err != nil {
			return nil, formatYamlError(err, path)
		}
		return v, nil
	default:
		// Strings and anything else (timestamps included) stay textual.
		return node.Value, nil
	}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// encodeValue converts an attribute value back into a yaml node,
// preserving mapping key order.
func encodeValue(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case *Map:
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range val.keys {
			value, err := encodeValue(val.values[k])
			if err != nil {
				return nil, err
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
			mapping.Content = append(mapping.Content, key, value)
		}
		return mapping, nil
	case []any:
		sequence := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			child, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			sequence.Content = append(sequence.Content, child)
		}
		return sequence, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}

// MarshalYAML implements yaml.Marshaler, keeping insertion order.
func (m *Map) MarshalYAML() (any, error) {
	return encodeValue(m)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := decodeMapping(node, "")
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
