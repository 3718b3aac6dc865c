package projects

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the project database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "projects.db"))
}

// OpenPath opens the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the database to recreate)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Create inserts a new project in the processing state.
func (s *Store) Create(ctx context.Context, title, sourceURL string) (*Project, error) {
	title = strings.TrimSpace(title)
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, services.Wrap(services.ErrValidation, "projects", "create", "source url is required", nil)
	}
	if title == "" {
		title = "untitled"
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (
            id, title, source_url, status, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		title,
		sourceURL,
		StatusProcessing,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a single project.
func (s *Store) GetByID(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "projects", "get", fmt.Sprintf("project %s", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return project, nil
}

// List returns projects ordered most recently updated first, optionally
// filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Project, error) {
	query := "SELECT " + projectColumns + " FROM projects"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var result []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		result = append(result, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return result, nil
}

// AttachConfig stores the initial config document and moves the project to
// ready. Only a processing project can receive its first config.
func (s *Store) AttachConfig(ctx context.Context, id, configJSON string) (*Project, error) {
	if strings.TrimSpace(configJSON) == "" {
		return nil, services.Wrap(services.ErrValidation, "projects", "attach config", "config document is empty", nil)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET config_json = ?, status = ?, error_message = NULL, error_kind = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		configJSON,
		StatusReady,
		now(),
		id,
		StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("attach config: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, services.Wrap(services.ErrConflict, "projects", "attach config", "project already holds a config", nil)
	}
	return s.GetByID(ctx, id)
}

// UpdateConfig replaces the config document on an editable project.
func (s *Store) UpdateConfig(ctx context.Context, id, configJSON string) (*Project, error) {
	if strings.TrimSpace(configJSON) == "" {
		return nil, services.Wrap(services.ErrValidation, "projects", "update config", "config document is empty", nil)
	}
	res, err := s.db.ExecContext(
		ctx,
		"UPDATE projects SET config_json = ?, updated_at = ? WHERE id = ?",
		configJSON,
		now(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update config: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "projects", "update config", fmt.Sprintf("project %s", id), nil)
	}
	return s.GetByID(ctx, id)
}

// SetStatus transitions a project to the given status.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	if !ValidStatus(status) {
		return services.Wrap(services.ErrValidation, "projects", "set status", fmt.Sprintf("unknown status %q", status), nil)
	}
	res, err := s.db.ExecContext(
		ctx,
		"UPDATE projects SET status = ?, updated_at = ? WHERE id = ?",
		status,
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "projects", "set status", fmt.Sprintf("project %s", id), nil)
	}
	return nil
}

// ClaimForExport atomically moves a ready, exported, or failed project with a
// config into rendering. It fails with a conflict when another export already
// owns the row.
func (s *Store) ClaimForExport(ctx context.Context, id string) (*Project, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET status = ?, progress_phase = 'render', progress_percent = 0,
            error_message = NULL, error_kind = NULL, export_url = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?, ?) AND config_json IS NOT NULL`,
		StatusRendering,
		now(),
		id,
		StatusReady,
		StatusExported,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("claim project: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		project, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if project.Status == StatusRendering {
			return nil, services.Wrap(services.ErrConflict, "projects", "claim", "an export is already running for this project", nil)
		}
		return nil, services.Wrap(services.ErrValidation, "projects", "claim",
			fmt.Sprintf("project in status %q cannot be exported", project.Status), nil)
	}
	return s.GetByID(ctx, id)
}

// UpdateProgress persists the current phase and percent for a rendering project.
func (s *Store) UpdateProgress(ctx context.Context, id, phase string, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := s.db.ExecContext(
		ctx,
		"UPDATE projects SET progress_phase = ?, progress_percent = ?, updated_at = ? WHERE id = ?",
		nullableString(phase),
		percent,
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// SetExported records a completed export with its public URL.
func (s *Store) SetExported(ctx context.Context, id, exportURL string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET status = ?, export_url = ?, progress_phase = 'done', progress_percent = 100,
            error_message = NULL, error_kind = NULL, updated_at = ?
         WHERE id = ?`,
		StatusExported,
		exportURL,
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set exported: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "projects", "set exported", fmt.Sprintf("project %s", id), nil)
	}
	return nil
}

// SetFailed records a failed project with a categorized reason.
func (s *Store) SetFailed(ctx context.Context, id, kind, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET status = ?, error_kind = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(kind),
		nullableString(message),
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "projects", "set failed", fmt.Sprintf("project %s", id), nil)
	}
	return nil
}

// ResetStuckRendering fails every project left in the rendering state by a
// previous process. Called once at daemon startup before the API accepts
// requests.
func (s *Store) ResetStuckRendering(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET status = ?, error_kind = 'RenderFailed', error_message = ?,
            progress_phase = NULL, progress_percent = 0, updated_at = ?
         WHERE status = ?`,
		StatusFailed,
		RestartInterruptionReason,
		now(),
		StatusRendering,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck rendering: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Remove deletes a project row.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "projects", "remove", fmt.Sprintf("project %s", id), nil)
	}
	return nil
}

// Stats returns project counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM projects GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
		if status == StatusRendering {
			stats.Exporting += count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
