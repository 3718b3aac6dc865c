// Package services defines shared utilities consumed by the export pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, export phases, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the failure kinds persisted on project records.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
