// Package api exposes the daemon's HTTP surface: project intake, edit config
// patching, and the export lifecycle. Handlers translate service errors into
// stable HTTP status codes and JSON error bodies.
package api
