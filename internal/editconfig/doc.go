// Package editconfig defines the versioned edit configuration for a project
// and its self-consistency rules.
//
// A Config describes everything the renderer needs: the immutable source
// video, caption and highlight tracks, styling, animation presets, and export
// settings. Validate checks the whole document and reports the first broken
// rule as an InvariantViolation carrying the dotted field path, so callers
// never see a generic error for a specific problem.
//
// Treat this package as the single source of truth for document semantics;
// when adding fields, extend Validate and Clone together.
package editconfig
