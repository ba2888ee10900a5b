package fmf

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	fmfcontext "github.com/teemtee/fmf/context"
)

// Rule is a single adjust rule: an optional 'when' condition plus the
// patch merged into the node when the condition matches.
type Rule struct {
	// When is the condition expression. Empty means always true.
	When string
	// Continue decides whether later rules are processed once this
	// rule applied. Defaults to true.
	Continue bool
	// Because is a free-form comment, ignored by the engine.
	Because string
	// Patch holds the remaining keys of the rule, operator suffixes
	// intact.
	Patch *Map
}

// ruleMeta captures the reserved rule keys for decoding.
type ruleMeta struct {
	When     *string `mapstructure:"when"`
	Continue *bool   `mapstructure:"continue"`
	Because  *string `mapstructure:"because"`
}

var ruleReserved = map[string]bool{"when": true, "continue": true, "because": true}

// parseRule decodes one element of an adjust rule list.
func parseRule(value any, node string) (Rule, error) {
	mapping, ok := value.(*Map)
	if !ok {
		return Rule{}, fmt.Errorf("%w: adjust rule in '%s' must be a mapping, got '%T'",
			ErrGeneral, node, value)
	}

	reserved := make(map[string]any)
	patch := NewMap()
	for _, key := range mapping.Keys() {
		v, _ := mapping.Get(key)
		if ruleReserved[key] {
			reserved[key] = v
		} else {
			patch.Set(key, v)
		}
	}

	var meta ruleMeta
	if err := mapstructure.Decode(reserved, &meta); err != nil {
		return Rule{}, fmt.Errorf("%w: invalid adjust rule in '%s': %v",
			ErrGeneral, node, err)
	}

	rule := Rule{Continue: true, Patch: patch}
	if meta.When != nil {
		rule.When = *meta.When
	}
	if meta.Continue != nil {
		rule.Continue = *meta.Continue
	}
	if meta.Because != nil {
		rule.Because = *meta.Because
	}
	return rule, nil
}

// rules reads the node's adjust rule list from the given attribute. A
// single mapping counts as a one-element list.
func (n *Node) rules(key string) ([]Rule, error) {
	value, ok := n.data.Get(key)
	if !ok || value == nil {
		return nil, nil
	}
	items := listOf(value)
	rules := make([]Rule, 0, len(items))
	for _, item := range items {
		rule, err := parseRule(item, n.name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Adjust applies each node's adjust rules against the supplied context,
// walking the whole tree in document order.
//
// The operation is idempotent for a given context: re-running it
// restores the assembled data first, then applies the rules again.
func (t *Tree) Adjust(c *fmfcontext.Context, opts AdjustOptions) error {
	return t.root.Adjust(c, opts)
}

// Adjust applies adjust rules to the node and all its descendants.
func (n *Node) Adjust(c *fmfcontext.Context, opts AdjustOptions) error {
	key := opts.Key
	if key == "" {
		key = "adjust"
	}
	if err := n.adjustSelf(c, key, opts); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := child.Adjust(c, opts); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) adjustSelf(c *fmfcontext.Context, key string, opts AdjustOptions) error {
	// Start every run from the assembled data so that repeated
	// adjustment does not stack patches.
	if n.preAdjust == nil {
		n.preAdjust = n.data.Copy()
	} else {
		n.data = n.preAdjust.Copy()
	}

	rules, err := n.rules(key)
	if err != nil {
		return err
	}
	for _, raw := range opts.AdditionalRules {
		rule, err := parseRule(raw, n.name)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	if opts.Decide != nil {
		rules = opts.Decide(n, rules)
	}

	for _, rule := range rules {
		outcome := fmfcontext.True
		if rule.When != "" {
			outcome, err = c.Matches(rule.When)
			if err != nil {
				if opts.SkipInvalid {
					if opts.Logger != nil {
						opts.Logger.Warnf(
							"Skipping invalid adjust rule in '%s': %v", n.name, err)
					}
					continue
				}
				return fmt.Errorf("invalid adjust rule in '%s': %w", n.name, err)
			}
		}
		if outcome != fmfcontext.True {
			continue
		}
		if err := mergeInto(n.data, rule.Patch); err != nil {
			return fmt.Errorf("failed to adjust '%s': %w", n.name, err)
		}
		if !rule.Continue {
			break
		}
	}

	n.adjusted = true
	return nil
}
