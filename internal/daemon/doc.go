// Package daemon runs the clipforge background service: it holds the
// single-instance lock, reconciles exports interrupted by a restart,
// and supervises the HTTP API server.
package daemon
