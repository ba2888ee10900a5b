package cli

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/teemtee/fmf"
)

// The custom format and condition support evaluates restricted
// accessor expressions only: attribute access over 'name', 'root',
// 'sources' and 'data', optionally wrapped in a basename() or
// dirname() path helper. No code execution.
var accessorRe = regexp.MustCompile(
	`^(?:(basename|dirname)\s*\(\s*)?(name|root|sources|data(?:\.[^.()\s]+)*)\s*(\))?$`)

// evalAccessor resolves an accessor expression against a node. The
// second return value reports whether the accessed attribute exists.
func evalAccessor(node *fmf.Node, expression string) (any, bool, error) {
	match := accessorRe.FindStringSubmatch(strings.TrimSpace(expression))
	if match == nil || (match[1] == "") != (match[3] == "") {
		return nil, false, fmt.Errorf("%w: invalid value expression '%s'",
			ErrUsage, expression)
	}

	var value any
	var ok bool
	switch accessor := match[2]; {
	case accessor == "name":
		value, ok = node.Name(), true
	case accessor == "root":
		value, ok = node.Root(), true
	case accessor == "sources":
		sources := make([]any, 0, len(node.Sources()))
		for _, source := range node.Sources() {
			sources = append(sources, source)
		}
		value, ok = sources, true
	case accessor == "data":
		value, ok = node.Data(), true
	default:
		keys := strings.Split(strings.TrimPrefix(accessor, "data."), ".")
		value, ok = node.Get(keys...)
	}

	switch match[1] {
	case "basename":
		value = filepath.Base(fmf.FormatValue(value))
	case "dirname":
		value = filepath.Dir(fmf.FormatValue(value))
	}
	return value, ok, nil
}

var conditionRe = regexp.MustCompile(`^(.+?)\s*(==|!=|=~)\s*(.+)$`)

// parseCondition compiles a '--condition' expression into a node
// predicate. Supported forms: 'ACCESSOR == LITERAL',
// 'ACCESSOR != LITERAL', 'ACCESSOR =~ REGEX' and a bare ACCESSOR
// (true when the attribute is defined and not false).
func parseCondition(expression string) (func(*fmf.Node) (bool, error), error) {
	match := conditionRe.FindStringSubmatch(strings.TrimSpace(expression))
	if match == nil {
		accessor := expression
		// Validate eagerly so typos fail before the tree is climbed.
		if !accessorRe.MatchString(strings.TrimSpace(accessor)) {
			return nil, fmt.Errorf("%w: invalid condition '%s'", ErrUsage, expression)
		}
		return func(node *fmf.Node) (bool, error) {
			value, ok, err := evalAccessor(node, accessor)
			if err != nil || !ok {
				return false, err
			}
			return value != false && fmf.FormatValue(value) != "", nil
		}, nil
	}

	accessor, operator, literal := match[1], match[2], unquote(match[3])
	if !accessorRe.MatchString(strings.TrimSpace(accessor)) {
		return nil, fmt.Errorf("%w: invalid condition '%s'", ErrUsage, expression)
	}
	var pattern *regexp.Regexp
	if operator == "=~" {
		compiled, err := regexp.Compile(literal)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid condition pattern '%s': %v",
				ErrUsage, literal, err)
		}
		pattern = compiled
	}

	return func(node *fmf.Node) (bool, error) {
		value, ok, err := evalAccessor(node, accessor)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		rendered := fmf.FormatValue(value)
		switch operator {
		case "==":
			return rendered == literal, nil
		case "!=":
			return rendered != literal, nil
		default:
			return pattern.MatchString(rendered), nil
		}
	}, nil
}

var placeholderRe = regexp.MustCompile(`\{(\d+)\}`)

// expandFormat renders one node using the --format template: each {i}
// placeholder expands to the i-th --value expression.
func expandFormat(node *fmf.Node, format string, values []string) (string, error) {
	evaluated := make([]string, len(values))
	for i, expression := range values {
		value, _, err := evalAccessor(node, expression)
		if err != nil {
			return "", err
		}
		evaluated[i] = fmf.FormatValue(value)
	}

	var expandErr error
	expanded := placeholderRe.ReplaceAllStringFunc(format, func(placeholder string) string {
		var index int
		fmt.Sscanf(placeholder, "{%d}", &index)
		if index >= len(evaluated) {
			expandErr = fmt.Errorf("%w: no --value for placeholder %s",
				ErrUsage, placeholder)
			return placeholder
		}
		return evaluated[index]
	})
	if expandErr != nil {
		return "", expandErr
	}

	expanded = strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(expanded)
	return expanded, nil
}

// unquote strips one level of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
