package fmf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v4"
)

// loadFile reads and parses a single metadata file into an ordered
// mapping. An empty file yields an empty mapping. The document root
// must be a mapping.
func loadFile(path string) (*Map, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read '%s': %v", ErrFile, path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, formatYamlError(err, path)
	}
	if len(doc.Content) == 0 {
		return NewMap(), nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return NewMap(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: invalid syntax in '%s': top level must be a mapping",
			ErrYaml, path)
	}

	return decodeMapping(root, path)
}

// formatYamlError wraps a yaml error with position information when the
// parser provides it.
func formatYamlError(err error, path string) error {
	if err == nil {
		return nil
	}

	var parserErr *yaml.ParserError
	if errors.As(err, &parserErr) {
		return fmt.Errorf("%w: %s:%d:%d: %s",
			ErrYaml, path, parserErr.Line, parserErr.Column, parserErr.Message)
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		var msgs []string
		for _, e := range typeErr.Errors {
			if e.Line > 0 && e.Column > 0 {
				msgs = append(msgs, fmt.Sprintf("line %d:%d: %v", e.Line, e.Column, e.Err))
			} else {
				msgs = append(msgs, fmt.Sprintf("%v", e.Err))
			}
		}
		return fmt.Errorf("%w: %s: %s", ErrYaml, path, strings.Join(msgs, "; "))
	}

	return fmt.Errorf("%w: %s: %v", ErrYaml, path, err)
}
