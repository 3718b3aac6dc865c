// Package logging wires log/slog with the handlers and attribute helpers the
// rest of the service uses.
//
// It provides a console handler for interactive use (colorized only on a TTY),
// a JSON handler for machine consumption, context-derived fields so project
// IDs and export phases stamp every record, and a no-op logger for tests.
package logging
