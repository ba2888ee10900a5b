package fmf

import (
	"fmt"
	"regexp"
	"strings"
)

// matchFilter evaluates a filter expression against node data. The
// grammar is 'key: pattern' atoms combined with '&' (and) and '|'
// (or); an atom without a colon is a regex applied to the node name.
// Both operators may be escaped with a backslash inside patterns.
func matchFilter(expression string, data *Map, name string) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, fmt.Errorf("%w: empty filter", ErrFilter)
	}
	for _, clause := range splitEscaped(expression, '|') {
		matched := true
		for _, atom := range splitEscaped(clause, '&') {
			ok, err := matchAtom(atom, data, name)
			if err != nil {
				return false, err
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// matchAtom evaluates one 'key: pattern' literal or a bare name regex.
func matchAtom(atom string, data *Map, name string) (bool, error) {
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return false, fmt.Errorf("%w: empty filter literal", ErrFilter)
	}

	key, rawPattern, found := strings.Cut(atom, ":")
	if !found {
		pattern, err := compileFilterPattern(atom)
		if err != nil {
			return false, err
		}
		return pattern.MatchString(name), nil
	}

	key = strings.TrimSpace(key)
	pattern, err := compileFilterPattern(strings.TrimSpace(rawPattern))
	if err != nil {
		return false, err
	}

	value, ok := data.Get(key)
	if !ok {
		// Unknown keys make the literal false, not an error.
		return false, nil
	}
	for _, item := range listOf(value) {
		if pattern.MatchString(formatValue(item)) {
			return true, nil
		}
	}
	return false, nil
}

// compileFilterPattern unescapes operators and compiles the pattern
// anchored to the full value.
func compileFilterPattern(raw string) (*regexp.Regexp, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrFilter)
	}
	unescaped := strings.NewReplacer(`\|`, "|", `\&`, "&").Replace(raw)
	pattern, err := regexp.Compile("^(?:" + unescaped + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pattern '%s': %v", ErrFilter, raw, err)
	}
	return pattern, nil
}

// splitEscaped splits on an operator, honoring backslash escapes.
func splitEscaped(s string, operator byte) []string {
	var parts []string
	var current strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			current.WriteByte('\\')
			current.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == operator:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if escaped {
		current.WriteByte('\\')
	}
	parts = append(parts, current.String())
	return parts
}
