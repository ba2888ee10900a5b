package fmf

import "errors"

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for specific errors:
//
//	tree, err := fmf.NewTree(ctx, opts)
//	if err != nil {
//		if errors.Is(err, fmf.ErrRootMissing) {
//			// Not inside a metadata tree
//		}
//	}
//
// Errors raised while parsing context expressions live in the context
// subpackage (context.ErrExpression).
var (
	// ErrRootMissing is returned when no ancestor directory contains
	// the .fmf/version marker.
	ErrRootMissing = errors.New("unable to find tree root")

	// ErrFile is returned when a metadata file cannot be read or
	// contains a duplicate key.
	ErrFile = errors.New("file error")

	// ErrYaml is returned when a metadata file fails to parse.
	ErrYaml = errors.New("yaml parse error")

	// ErrInvalidDirective is returned for a malformed '/' block or an
	// unknown directive key.
	ErrInvalidDirective = errors.New("invalid directive")

	// ErrMerge is returned when a merge operator is applied to
	// incompatible types.
	ErrMerge = errors.New("merge failed")

	// ErrFilter is returned for a malformed filter expression or
	// pattern.
	ErrFilter = errors.New("invalid filter")

	// ErrGeneral covers any other user-facing failure.
	ErrGeneral = errors.New("fmf error")
)
