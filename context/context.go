// Package context implements the dimension/version context used to
// evaluate 'when' expressions during metadata adjustment.
//
// A Context maps dimension names (distro, arch, component, ...) to one
// or more version-structured values. Expressions compare dimensions
// against rule values and combine results with 'and' and 'or' using
// Kleene three-valued logic: a comparison which is undefined for the
// given context (wrong name, missing dimension, different major
// version for the '~' operators) evaluates to CannotDecide rather than
// an error.
package context

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel errors, checked via errors.Is.
var (
	// ErrExpression is returned for a malformed condition.
	ErrExpression = errors.New("invalid context expression")

	// ErrDimension is returned for an invalid dimension name or value.
	ErrDimension = errors.New("invalid dimension")
)

// Outcome is the three-valued result of an expression.
type Outcome int

const (
	// False means the expression decidedly does not match.
	False Outcome = iota
	// True means the expression decidedly matches.
	True
	// CannotDecide means the comparison is undefined for the given
	// context.
	CannotDecide
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "cannot decide"
	}
}

// and combines two outcomes per the Kleene truth table.
func (o Outcome) and(other Outcome) Outcome {
	if o == False || other == False {
		return False
	}
	if o == CannotDecide || other == CannotDecide {
		return CannotDecide
	}
	return True
}

// or combines two outcomes per the Kleene truth table.
func (o Outcome) or(other Outcome) Outcome {
	if o == True || other == True {
		return True
	}
	if o == CannotDecide || other == CannotDecide {
		return CannotDecide
	}
	return False
}

// negate flips True and False, leaving CannotDecide untouched.
func (o Outcome) negate() Outcome {
	switch o {
	case True:
		return False
	case False:
		return True
	default:
		return CannotDecide
	}
}

// Version is a parsed dimension value: a name plus ordered version
// parts. 'centos-8.4' has name 'centos' and parts ['8', '4'].
type Version struct {
	Name  string
	Parts []string
}

// ParseVersion splits a raw value into name and version parts. The
// value is tokenized on ':', '.' and '-'; the leading non-numeric
// token becomes the name (a trailing digit run, as in 'python3', is
// split off into the first part) and the remaining tokens become the
// ordered version parts.
func ParseVersion(raw string) Version {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ':' || r == '.' || r == '-'
	})
	if len(tokens) == 0 {
		return Version{Name: raw}
	}
	first := tokens[0]
	cut := len(first)
	for cut > 0 && first[cut-1] >= '0' && first[cut-1] <= '9' {
		cut--
	}
	var parts []string
	if cut < len(first) {
		parts = append(parts, first[cut:])
	}
	parts = append(parts, tokens[1:]...)
	return Version{Name: first[:cut], Parts: parts}
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if len(v.Parts) == 0 {
		return v.Name
	}
	if v.Name == "" {
		return strings.Join(v.Parts, ".")
	}
	return v.Name + "-" + strings.Join(v.Parts, ".")
}

// Context maps dimension names to their values.
type Context struct {
	dimensions map[string][]Version
	caseFold   bool
}

// Option adjusts context behavior.
type Option func(*Context)

// CaseInsensitive folds both sides of every comparison to lower case.
func CaseInsensitive() Option {
	return func(c *Context) {
		c.caseFold = true
	}
}

var dimensionName = regexp.MustCompile(`^[a-z0-9_][a-z0-9_-]*$`)

// New creates a context from a dimension mapping. Values may be a
// string, an int, or a list of those.
func New(dimensions map[string]any, options ...Option) (*Context, error) {
	c := &Context{dimensions: make(map[string][]Version, len(dimensions))}
	for _, option := range options {
		option(c)
	}
	for name, value := range dimensions {
		if !dimensionName.MatchString(name) {
			return nil, fmt.Errorf("%w: invalid name '%s'", ErrDimension, name)
		}
		versions, err := parseValues(name, value)
		if err != nil {
			return nil, err
		}
		c.dimensions[name] = versions
	}
	return c, nil
}

func parseValues(name string, value any) ([]Version, error) {
	var raws []any
	if list, ok := value.([]any); ok {
		raws = list
	} else {
		raws = []any{value}
	}
	versions := make([]Version, 0, len(raws))
	for _, raw := range raws {
		switch v := raw.(type) {
		case string:
			versions = append(versions, ParseVersion(v))
		case int:
			versions = append(versions, ParseVersion(strconv.Itoa(v)))
		case float64:
			versions = append(versions, ParseVersion(strconv.FormatFloat(v, 'g', -1, 64)))
		default:
			return nil, fmt.Errorf("%w: unsupported value '%v' for '%s'",
				ErrDimension, raw, name)
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no values for '%s'", ErrDimension, name)
	}
	return versions, nil
}

// Dimension returns the values stored for a dimension name.
func (c *Context) Dimension(name string) ([]Version, bool) {
	versions, ok := c.dimensions[name]
	return versions, ok
}
