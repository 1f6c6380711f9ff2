package wgsl

import "errors"

// Errors returned by Lower and LowerModule.
var (
	// ErrSyntax wraps a parse or IR lowering error reported by naga.
	ErrSyntax = errors.New("wgsl: invalid source")

	// ErrEntryPoint is returned when the requested entry point does not
	// exist or is not a vertex or fragment entry point.
	ErrEntryPoint = errors.New("wgsl: entry point not found")

	// ErrUnsupported is returned for a construct outside the lowered
	// subset.
	ErrUnsupported = errors.New("wgsl: unsupported construct")
)
