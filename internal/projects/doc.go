// Package projects persists project records and their frozen edit configs in
// SQLite. All status transitions go through the store so the database is the
// single source of truth across daemon restarts.
package projects
