package fmf

import (
	"fmt"
	"regexp"
	"strings"
)

// Operator suffixes, longest first so that splitOperator never mistakes
// 'tag+<' for 'tag+' or 'key-~' for 'key-'.
var operatorSuffixes = []string{"+<", "-~", "+", "-", "~"}

// splitOperator splits a data key into its base name and operator suffix.
// Keys without a suffix (or consisting only of a suffix) are returned
// unchanged with an empty operator.
func splitOperator(key string) (base, op string) {
	for _, suffix := range operatorSuffixes {
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return key[:len(key)-len(suffix)], suffix
		}
	}
	return key, ""
}

// mergeInto applies every key of the incoming mapping onto data, in
// declared order, honoring operator suffixes. The incoming values are
// deep-copied so the caller's mapping stays untouched.
func mergeInto(data *Map, incoming *Map) error {
	for _, key := range incoming.Keys() {
		value, _ := incoming.Get(key)
		if err := applyKey(data, key, value); err != nil {
			return err
		}
	}
	return nil
}

// applyKey applies a single possibly-suffixed key onto data.
func applyKey(data *Map, key string, value any) error {
	base, op := splitOperator(key)
	value = copyValue(value)
	parent, hasParent := data.Get(base)

	switch op {
	case "":
		normalized, err := normalizeValue(value)
		if err != nil {
			return err
		}
		data.Set(base, normalized)
		return nil

	case "+", "+<":
		if !hasParent || parent == nil {
			normalized, err := normalizeValue(value)
			if err != nil {
				return err
			}
			data.Set(base, normalized)
			return nil
		}
		merged, err := mergeValues(base, parent, value, op == "+<")
		if err != nil {
			return err
		}
		data.Set(base, merged)
		return nil

	case "-":
		if !hasParent {
			return nil
		}
		reduced, err := reduceValue(base, parent, value)
		if err != nil {
			return err
		}
		data.Set(base, reduced)
		return nil

	case "~":
		if !hasParent {
			return nil
		}
		substituted, err := substituteValue(base, parent, value)
		if err != nil {
			return err
		}
		data.Set(base, substituted)
		return nil

	case "-~":
		if !hasParent {
			return nil
		}
		return removeMatching(data, base, parent, value)
	}
	return nil
}

// normalizeValue strips operator suffixes from mapping values by folding
// each suffixed key onto an empty mapping, so that no suffix survives
// into resolved node data. Mappings held inside lists keep their
// suffixes: adjust patches are stored that way and their operators must
// stay deferred until the patch is merged.
func normalizeValue(v any) (any, error) {
	if mapping, ok := v.(*Map); ok {
		folded := NewMap()
		if err := mergeInto(folded, mapping); err != nil {
			return nil, err
		}
		return folded, nil
	}
	return v, nil
}

// mergeValues implements the '+' and '+<' operators.
func mergeValues(key string, parent, value any, prepend bool) (any, error) {
	switch pv := parent.(type) {
	case []any:
		switch cv := value.(type) {
		case []any:
			normalized, err := normalizeValue(cv)
			if err != nil {
				return nil, err
			}
			items := normalized.([]any)
			if prepend {
				return append(items, pv...), nil
			}
			return append(pv, items...), nil
		case *Map:
			// Distribute the mapping into every list element.
			items := make([]any, len(pv))
			for i, element := range pv {
				member, ok := element.(*Map)
				if !ok {
					return nil, mergeError(key, parent, value)
				}
				merged := member.Copy()
				if err := mergeInto(merged, cv); err != nil {
					return nil, err
				}
				items[i] = merged
			}
			return items, nil
		}
	case *Map:
		switch cv := value.(type) {
		case *Map:
			merged := pv.Copy()
			if err := mergeInto(merged, cv); err != nil {
				return nil, err
			}
			return merged, nil
		case []any:
			// Apply the mapping as an update across every list element.
			items := make([]any, len(cv))
			for i, element := range cv {
				member, ok := element.(*Map)
				if !ok {
					return nil, mergeError(key, parent, value)
				}
				merged := pv.Copy()
				if err := mergeInto(merged, member); err != nil {
					return nil, err
				}
				items[i] = merged
			}
			return items, nil
		}
	case string:
		if cv, ok := value.(string); ok {
			if prepend {
				return cv + pv, nil
			}
			return pv + cv, nil
		}
	case int:
		switch cv := value.(type) {
		case int:
			return pv + cv, nil
		case float64:
			return float64(pv) + cv, nil
		}
	case float64:
		switch cv := value.(type) {
		case int:
			return pv + float64(cv), nil
		case float64:
			return pv + cv, nil
		}
	}
	return nil, mergeError(key, parent, value)
}

// reduceValue implements the '-' operator.
func reduceValue(key string, parent, value any) (any, error) {
	switch pv := parent.(type) {
	case int:
		switch cv := value.(type) {
		case int:
			return pv - cv, nil
		case float64:
			return float64(pv) - cv, nil
		}
	case float64:
		switch cv := value.(type) {
		case int:
			return pv - float64(cv), nil
		case float64:
			return pv - cv, nil
		}
	case []any:
		items := listOf(value)
		kept := make([]any, 0, len(pv))
		for _, element := range pv {
			matched := false
			for _, item := range items {
				if equalValues(element, item) {
					matched = true
					break
				}
			}
			if !matched {
				kept = append(kept, element)
			}
		}
		return kept, nil
	case *Map:
		keys, err := stringsOf(key, value)
		if err != nil {
			return nil, err
		}
		reduced := pv
		for _, k := range keys {
			reduced.Delete(k)
		}
		return reduced, nil
	case string:
		patterns, err := compilePatterns(key, value)
		if err != nil {
			return nil, err
		}
		result := pv
		for _, pattern := range patterns {
			result = pattern.ReplaceAllString(result, "")
		}
		return result, nil
	}
	return nil, mergeError(key, parent, value)
}

// substitution is one parsed 'dPATTERNdREPLACEMENTd' expression.
type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// parseSubstitution parses a sed-like substitution expression. The first
// character picks the delimiter, e.g. '/python2-/python3-/'.
func parseSubstitution(key, raw string) (substitution, error) {
	if len(raw) < 3 {
		return substitution{}, fmt.Errorf(
			"%w: invalid substitution '%s' for key '%s'", ErrMerge, raw, key)
	}
	delimiter := string(raw[0])
	parts := strings.Split(raw, delimiter)
	// Expect ['', pattern, replacement] with an optional trailing ''.
	valid := len(parts) == 3 || (len(parts) == 4 && parts[3] == "")
	if !valid || parts[0] != "" {
		return substitution{}, fmt.Errorf(
			"%w: invalid substitution '%s' for key '%s'", ErrMerge, raw, key)
	}
	pattern, err := regexp.Compile(parts[1])
	if err != nil {
		return substitution{}, fmt.Errorf(
			"%w: invalid pattern in substitution '%s' for key '%s': %v",
			ErrMerge, raw, key, err)
	}
	return substitution{pattern: pattern, replacement: parts[2]}, nil
}

// substituteValue implements the '~' operator.
func substituteValue(key string, parent, value any) (any, error) {
	raws, err := stringsOf(key, value)
	if err != nil {
		return nil, err
	}
	subs := make([]substitution, 0, len(raws))
	for _, raw := range raws {
		sub, err := parseSubstitution(key, raw)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	apply := func(s string) string {
		for _, sub := range subs {
			s = sub.pattern.ReplaceAllString(s, sub.replacement)
		}
		return s
	}

	switch pv := parent.(type) {
	case string:
		return apply(pv), nil
	case []any:
		items := make([]any, len(pv))
		for i, element := range pv {
			str, ok := element.(string)
			if !ok {
				return nil, mergeError(key, parent, value)
			}
			items[i] = apply(str)
		}
		return items, nil
	}
	return nil, mergeError(key, parent, value)
}

// removeMatching implements the '-~' operator.
func removeMatching(data *Map, key string, parent, value any) error {
	patterns, err := compilePatterns(key, value)
	if err != nil {
		return err
	}
	matches := func(s string) bool {
		for _, pattern := range patterns {
			if pattern.MatchString(s) {
				return true
			}
		}
		return false
	}

	switch pv := parent.(type) {
	case string:
		if matches(pv) {
			data.Set(key, "")
		}
		return nil
	case []any:
		kept := make([]any, 0, len(pv))
		for _, element := range pv {
			if !matches(formatValue(element)) {
				kept = append(kept, element)
			}
		}
		data.Set(key, kept)
		return nil
	case *Map:
		for _, k := range pv.Keys() {
			if matches(k) {
				pv.Delete(k)
			}
		}
		return nil
	}
	return mergeError(key, parent, value)
}

func mergeError(key string, parent, value any) error {
	return fmt.Errorf("%w: cannot combine '%T' with '%T' for key '%s'",
		ErrMerge, parent, value, key)
}

func listOf(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}
	return []any{value}
}

func stringsOf(key string, value any) ([]string, error) {
	items := listOf(value)
	strs := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf(
				"%w: expected string or list of strings for key '%s', got '%T'",
				ErrMerge, key, item)
		}
		strs = append(strs, str)
	}
	return strs, nil
}

func compilePatterns(key string, value any) ([]*regexp.Regexp, error) {
	raws, err := stringsOf(key, value)
	if err != nil {
		return nil, err
	}
	patterns := make([]*regexp.Regexp, 0, len(raws))
	for _, raw := range raws {
		pattern, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pattern '%s' for key '%s': %v",
				ErrMerge, raw, key, err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}
