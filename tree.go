package fmf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.yaml.in/yaml/v4"

	"github.com/teemtee/fmf/internal/logger"
	"github.com/teemtee/fmf/internal/scan"
)

// Tree is an assembled metadata tree.
//
// Building a tree, adjusting it and querying it are synchronous
// operations; a Tree is not safe for concurrent mutation, but any
// number of goroutines may query a tree that is no longer being
// adjusted.
type Tree struct {
	root    *Node
	path    string
	version int
	log     Logger

	// Full parsed documents keyed by source path, shared by reference
	// with node contributions so that Save round-trips whole files.
	documents map[string]*Map
}

// NewTree builds a metadata tree.
//
// With TreeOptions.Path set, the tree root is detected by ascending
// from the path to the first ancestor carrying .fmf/version, and all
// metadata files below the root are discovered, parsed and merged.
// With TreeOptions.Data set, the tree is assembled from the supplied
// mapping instead of the filesystem.
//
// The context can be used to cancel discovery and parsing. Assembly
// errors are fatal: no partial tree is returned.
func NewTree(ctx context.Context, opts TreeOptions) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	tree := &Tree{log: log, documents: make(map[string]*Map)}
	tree.root = newNode("/", nil, tree)

	if opts.Data != nil {
		if opts.Path != "" {
			return nil, fmt.Errorf("%w: options Path and Data are exclusive", ErrGeneral)
		}
		if err := tree.root.attach(opts.Data, ""); err != nil {
			return nil, err
		}
		if err := tree.root.resolve(); err != nil {
			return nil, err
		}
		return tree, nil
	}

	path := opts.Path
	if path == "" {
		path = "."
	}

	root, err := scan.FindRoot(path)
	if err != nil {
		if errors.Is(err, scan.ErrRootMissing) {
			return nil, fmt.Errorf("%w: '%s'", ErrRootMissing, path)
		}
		return nil, err
	}
	tree.path = root
	log.Debugf("Metadata tree root found: %s", root)

	version, err := scan.ReadVersion(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFile, err)
	}
	tree.version = version

	config, err := scan.ReadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFile, err)
	}

	files, err := scan.Walk(root, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFile, err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context canceled: %w", err)
		}
		log.Debugf("Loading metadata from: %s", file.Path)
		raw, err := loadFile(file.Path)
		if err != nil {
			return nil, err
		}
		tree.documents[file.Path] = raw
		node := tree.root
		if file.Name != "/" {
			for _, segment := range strings.Split(strings.TrimPrefix(file.Name, "/"), "/") {
				node = node.child(segment)
			}
		}
		if err := node.attach(raw, file.Path); err != nil {
			return nil, err
		}
	}

	if err := tree.root.resolve(); err != nil {
		return nil, err
	}
	return tree, nil
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Path returns the absolute filesystem path of the tree root. Empty for
// trees built from in-memory data.
func (t *Tree) Path() string {
	return t.path
}

// Version returns the tree format version from .fmf/version. Zero for
// trees built from in-memory data.
func (t *Tree) Version() int {
	return t.version
}

// Find returns the node with the given name, or nil when there is none.
func (t *Tree) Find(name string) *Node {
	if name == "/" || name == "" {
		return t.root
	}
	node := t.root
	for _, segment := range strings.Split(strings.TrimPrefix(name, "/"), "/") {
		if node = node.Child(segment); node == nil {
			return nil
		}
	}
	return node
}

// directive is the reserved '/' block controlling node assembly.
type directive struct {
	Inherit *bool `mapstructure:"inherit"`
	Select  *bool `mapstructure:"select"`
}

// applyDirective decodes and applies a '/' block. Unknown keys and
// non-mapping values are fatal.
func (n *Node) applyDirective(value any, source string) error {
	block, ok := value.(*Map)
	if !ok {
		return fmt.Errorf("%w: the '/' block in '%s' must be a mapping, got '%T'",
			ErrInvalidDirective, source, value)
	}
	var parsed directive
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &parsed,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDirective, err)
	}
	if err := decoder.Decode(block.ToMap()); err != nil {
		return fmt.Errorf("%w: node '%s' in '%s': %v",
			ErrInvalidDirective, n.name, source, err)
	}
	if parsed.Inherit != nil {
		n.inherit = *parsed.Inherit
	}
	if parsed.Select != nil {
		n.selected = parsed.Select
	}
	return nil
}

// marshalDocument serializes a parsed document back to YAML, preserving
// key order.
func marshalDocument(doc *Map) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(4)
	if err := encoder.Encode(doc); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
