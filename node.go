package fmf

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Node is one point in the metadata tree. Nodes are created during
// assembly, mutated only by Adjust, and are otherwise treated as
// immutable by consumers. OriginalData is the exception: it may be
// edited and written back via Save.
type Node struct {
	name     string
	parent   *Node
	children map[string]*Node
	order    []string
	tree     *Tree

	data     *Map
	adjusted bool
	// Snapshot of data before the first Adjust, so that re-running
	// Adjust with a different context starts from assembled data.
	preAdjust *Map

	// Raw per-source contributions, suffixes and scope keys intact.
	contributions []contribution

	inherit  bool
	selected *bool
}

// contribution is the raw mapping one source file supplied for a node.
// For scope-declared nodes the mapping is a reference into the parent
// document, which keeps round-trip writes consistent.
type contribution struct {
	source string
	raw    *Map
}

func newNode(name string, parent *Node, tree *Tree) *Node {
	return &Node{
		name:     name,
		parent:   parent,
		children: make(map[string]*Node),
		tree:     tree,
		data:     NewMap(),
		inherit:  true,
	}
}

// Name returns the node's unique hierarchical name, e.g. '/tests/basic'.
func (n *Node) Name() string {
	return n.name
}

// Parent returns the parent node, nil at the tree root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree {
	return n.tree
}

// Root returns the absolute filesystem path of the tree root.
func (n *Node) Root() string {
	if n.tree == nil {
		return ""
	}
	return n.tree.path
}

// Data returns the node's merged attribute data. The mapping is owned
// by the node; callers must not modify it (use Copy for a private
// clone).
func (n *Node) Data() *Map {
	return n.data
}

// Get returns the attribute value found by descending the given keys
// through nested mappings.
func (n *Node) Get(keys ...string) (any, bool) {
	var value any = n.data
	for _, key := range keys {
		mapping, ok := value.(*Map)
		if !ok {
			return nil, false
		}
		if value, ok = mapping.Get(key); !ok {
			return nil, false
		}
	}
	return value, true
}

// Sources returns the files which contributed to the node, in
// contribution order, parent sources first.
func (n *Node) Sources() []string {
	var sources []string
	if n.parent != nil {
		sources = n.parent.Sources()
	}
	seen := make(map[string]bool, len(sources))
	for _, source := range sources {
		seen[source] = true
	}
	for _, c := range n.contributions {
		if c.source != "" && !seen[c.source] {
			sources = append(sources, c.source)
			seen[c.source] = true
		}
	}
	return sources
}

// OriginalData returns the raw mapping of the node's last contribution,
// operator suffixes and child scope keys intact. Edits to the returned
// mapping are picked up by Save.
func (n *Node) OriginalData() *Map {
	if len(n.contributions) == 0 {
		return NewMap()
	}
	return n.contributions[len(n.contributions)-1].raw
}

// Adjusted reports whether Adjust has been applied to the node.
func (n *Node) Adjusted() bool {
	return n.adjusted
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.order) == 0
}

// Children returns the child nodes in document order.
func (n *Node) Children() []*Node {
	children := make([]*Node, 0, len(n.order))
	for _, segment := range n.order {
		children = append(children, n.children[segment])
	}
	return children
}

// Child returns the child with the given name segment, or nil.
func (n *Node) Child(segment string) *Node {
	return n.children[segment]
}

// child returns an existing child or materialises a fresh one.
func (n *Node) child(segment string) *Node {
	if existing, ok := n.children[segment]; ok {
		return existing
	}
	name := n.name + "/" + segment
	if n.name == "/" {
		name = "/" + segment
	}
	created := newNode(name, n, n.tree)
	n.children[segment] = created
	n.order = append(n.order, segment)
	return created
}

// attach records the raw mapping from one source, splitting directives
// and scope keys and descending into declared children.
func (n *Node) attach(raw *Map, source string) error {
	n.contributions = append(n.contributions, contribution{source: source, raw: raw})
	for _, key := range raw.Keys() {
		value, _ := raw.Get(key)
		switch {
		case key == "/":
			if err := n.applyDirective(value, source); err != nil {
				return err
			}
		case strings.HasPrefix(key, "/"):
			scoped, err := scopeMapping(value, key, source)
			if err != nil {
				return err
			}
			target := n
			for _, segment := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
				if segment == "" {
					return fmt.Errorf("%w: invalid child key '%s' in '%s'",
						ErrGeneral, key, source)
				}
				target = target.child(segment)
			}
			if err := target.attach(scoped, source); err != nil {
				return err
			}
		}
	}
	return nil
}

// scopeMapping validates the value of a '/child' scope key. A missing
// value declares an empty child.
func scopeMapping(value any, key, source string) (*Map, error) {
	switch scoped := value.(type) {
	case nil:
		return NewMap(), nil
	case *Map:
		return scoped, nil
	default:
		return nil, fmt.Errorf("%w: child '%s' in '%s' must be a mapping, got '%T'",
			ErrGeneral, key, source, value)
	}
}

// resolve computes the node's data: inherited parent data folded with
// the node's own raw pairs, in declared order. Children resolve after
// their parent.
func (n *Node) resolve() error {
	n.data = NewMap()
	if n.inherit && n.parent != nil {
		n.data = n.parent.data.Copy()
	}
	for _, c := range n.contributions {
		for _, key := range c.raw.Keys() {
			if strings.HasPrefix(key, "/") {
				continue
			}
			value, _ := c.raw.Get(key)
			if err := applyKey(n.data, key, value); err != nil {
				return fmt.Errorf("failed to merge data in '%s': %w", n.name, err)
			}
		}
	}
	for _, child := range n.Children() {
		if err := child.resolve(); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns an independent deep clone of the subtree rooted at the
// node, sharing no mutable state with its origin. The clone's parent is
// nil.
func (n *Node) Copy() *Node {
	return n.copyInto(nil)
}

func (n *Node) copyInto(parent *Node) *Node {
	clone := &Node{
		name:     n.name,
		parent:   parent,
		children: make(map[string]*Node, len(n.children)),
		tree:     n.tree,
		data:     n.data.Copy(),
		adjusted: n.adjusted,
		inherit:  n.inherit,
	}
	if n.preAdjust != nil {
		clone.preAdjust = n.preAdjust.Copy()
	}
	if n.selected != nil {
		selected := *n.selected
		clone.selected = &selected
	}
	clone.contributions = make([]contribution, len(n.contributions))
	for i, c := range n.contributions {
		clone.contributions[i] = contribution{source: c.source, raw: c.raw.Copy()}
	}
	clone.order = append(clone.order, n.order...)
	for segment, childNode := range n.children {
		clone.children[segment] = childNode.copyInto(clone)
	}
	return clone
}

// Save writes the document holding the node's last contribution back to
// its source file, preserving key order. Edits made through
// OriginalData are included.
func (n *Node) Save() error {
	if len(n.contributions) == 0 || n.contributions[len(n.contributions)-1].source == "" {
		return fmt.Errorf("%w: no source file to save node '%s'", ErrGeneral, n.name)
	}
	source := n.contributions[len(n.contributions)-1].source
	doc := n.tree.documents[source]
	if doc == nil {
		return fmt.Errorf("%w: unknown source '%s' for node '%s'", ErrGeneral, source, n.name)
	}
	encoded, err := marshalDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize '%s': %w", source, err)
	}
	if err := os.WriteFile(source, encoded, 0o644); err != nil {
		return fmt.Errorf("%w: cannot write '%s': %v", ErrFile, source, err)
	}
	return nil
}

// Show renders the node's attributes as indented text, keys in
// lexicographic order.
func (n *Node) Show() string {
	var builder strings.Builder
	builder.WriteString(n.name + "\n")
	keys := n.data.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		value, _ := n.data.Get(key)
		builder.WriteString(fmt.Sprintf("%s: %s\n", key, formatValue(value)))
	}
	return builder.String()
}
