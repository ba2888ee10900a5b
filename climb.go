package fmf

import (
	"fmt"
	"regexp"
	"sort"
)

// Climb yields the node and its descendants in traversal order. With
// whole false only leaves are returned; whole true includes branches.
// An explicit 'select' directive overrides either default: leaves with
// 'select: false' are suppressed, branches with 'select: true' are
// always included. With sorted true children are visited in
// lexicographic name order instead of document order.
func (n *Node) Climb(whole, sorted bool) []*Node {
	var nodes []*Node
	n.climb(whole, sorted, &nodes)
	return nodes
}

func (n *Node) climb(whole, sorted bool, nodes *[]*Node) {
	include := n.IsLeaf() || whole
	if n.selected != nil {
		include = *n.selected
	}
	if include {
		*nodes = append(*nodes, n)
	}
	segments := n.order
	if sorted {
		segments = append([]string(nil), n.order...)
		sort.Strings(segments)
	}
	for _, segment := range segments {
		n.children[segment].climb(whole, sorted, nodes)
	}
}

// Climb yields the whole tree's nodes, starting at the root.
func (t *Tree) Climb(whole, sorted bool) []*Node {
	return t.root.Climb(whole, sorted)
}

// Prune yields the node and its descendants matching all given filters: name
// regexes (any may match), required keys (all must be present), filter
// expressions (all must match) and arbitrary conditions (all must
// hold).
func (n *Node) Prune(opts PruneOptions) ([]*Node, error) {
	names := make([]*regexp.Regexp, 0, len(opts.Names))
	for _, name := range opts.Names {
		compiled, err := regexp.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid name pattern '%s': %v",
				ErrGeneral, name, err)
		}
		names = append(names, compiled)
	}

	var matched []*Node
climbing:
	for _, node := range n.Climb(opts.Whole, opts.Sort) {
		if len(names) > 0 {
			found := false
			for _, name := range names {
				if name.MatchString(node.name) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		for _, key := range opts.Keys {
			if _, ok := node.data.Get(key); !ok {
				continue climbing
			}
		}
		for _, filter := range opts.Filters {
			ok, err := matchFilter(filter, node.data, node.name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue climbing
			}
		}
		for _, condition := range opts.Conditions {
			ok, err := condition(node)
			if err != nil {
				return nil, fmt.Errorf("condition failed on '%s': %w", node.name, err)
			}
			if !ok {
				continue climbing
			}
		}
		matched = append(matched, node)
	}
	return matched, nil
}

// Prune filters the whole tree, starting at the root.
func (t *Tree) Prune(opts PruneOptions) ([]*Node, error) {
	return t.root.Prune(opts)
}
