// Package fmf materializes a hierarchical metadata tree from YAML
// files scattered across a filesystem, applying inheritance, typed
// merge operators, directives and context-conditional adjustments to
// produce a queryable, filterable tree of named nodes.
//
// A metadata tree is rooted in the first ancestor directory carrying a
// .fmf/version file. Every '*.fmf' file below the root contributes to
// the node named after its location: 'main.fmf' to the directory's own
// node, 'X.fmf' to the child 'X'. Keys starting with '/' declare child
// nodes inline, the reserved '/' key carries directives (inherit,
// select), and operator suffixes on data keys (+, +<, -, ~, -~)
// control how child values combine with inherited parent values.
//
// Example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/teemtee/fmf"
//	)
//
//	func main() {
//		tree, err := fmf.NewTree(context.Background(), fmf.TreeOptions{
//			Path: "./tests",
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, node := range tree.Climb(false, false) {
//			fmt.Println(node.Name())
//		}
//	}
//
// Error Handling:
//
// The package defines sentinel errors for programmatic error handling:
//   - ErrRootMissing
//   - ErrFile
//   - ErrYaml
//   - ErrInvalidDirective
//   - ErrMerge
//   - ErrFilter
//   - ErrGeneral
//
// Use errors.Is() to check for specific errors:
//
//	tree, err := fmf.NewTree(ctx, opts)
//	if err != nil {
//		if errors.Is(err, fmf.ErrRootMissing) {
//			// Not inside a metadata tree
//		}
//	}
//
// Conditional adjustments are driven by the context subpackage, which
// implements the dimension/version expression language used in 'when'
// rules.
package fmf
