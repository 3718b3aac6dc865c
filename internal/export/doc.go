// Package export drives the project export lifecycle: freeze the edit config,
// compile captions, render, upload, and persist the outcome. One worker
// goroutine owns each live export and publishes fused progress where
// rendering and uploading share a fixed weighting.
package export
