// Package patch applies typed, sparse mutations to an edit configuration.
//
// Patches arrive from an interpretation layer that turns natural-language
// requests into operations; the input is therefore untrusted and potentially
// malformed. Decoding rejects unknown operation kinds and unknown payload
// fields, and Apply is strictly all-or-nothing: any operation that cannot be
// applied, or a final document that fails validation, rejects the whole patch
// and leaves the original config untouched.
package patch
