package fmf

// TreeOptions configures how a metadata tree is built.
type TreeOptions struct {
	// Path is any path inside the metadata tree. The tree root is
	// detected by ascending to the first ancestor carrying a
	// .fmf/version file. Defaults to the current directory.
	Path string

	// Data builds the tree from the supplied mapping instead of the
	// filesystem. Exclusive with Path.
	Data *Map

	// Logger is an optional logger for verbose output. If nil, no
	// logging is performed.
	Logger Logger
}

// AdjustOptions configures rule evaluation during Adjust.
type AdjustOptions struct {
	// Key is the attribute holding the rule list. Defaults to
	// 'adjust'.
	Key string

	// AdditionalRules are appended to each node's own rules and
	// applied after them.
	AdditionalRules []*Map

	// Decide, when set, is invoked for every node before evaluation
	// and returns the effective rule list for that node.
	Decide func(node *Node, rules []Rule) []Rule

	// SkipInvalid reports rules with invalid 'when' expressions via
	// the Logger and continues, instead of aborting the adjustment.
	SkipInvalid bool

	// Logger receives warnings about skipped rules.
	Logger Logger
}

// PruneOptions configures tree filtering. All four filter kinds are
// combined with logical AND; an empty filter kind matches everything.
type PruneOptions struct {
	// Whole includes branch nodes alongside leaves.
	Whole bool

	// Sort yields children in lexicographic name order instead of
	// document order.
	Sort bool

	// Names are regular expressions; a node matches when any of them
	// is found in its name.
	Names []string

	// Keys must all be present in the node's data.
	Keys []string

	// Filters are filter expressions; all of them must match.
	Filters []string

	// Conditions are arbitrary predicates; all of them must hold.
	Conditions []func(node *Node) (bool, error)
}
