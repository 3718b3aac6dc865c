// Package subtitle compiles a project's text track into an ASS document for
// caption burn-in. The compiler is deterministic and total: unsupported
// styles and animations degrade to the nearest expressible rendering and are
// reported as warnings rather than errors.
package subtitle
