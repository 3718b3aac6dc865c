package projects

import (
	"database/sql"
	"time"
)

const projectColumns = "id, title, source_url, status, config_json, export_url, error_message, error_kind, progress_phase, progress_percent, created_at, updated_at"

func scanProject(scanner interface{ Scan(dest ...any) error }) (*Project, error) {
	var (
		id              string
		title           string
		sourceURL       string
		statusStr       string
		configJSON      sql.NullString
		exportURL       sql.NullString
		errorMessage    sql.NullString
		errorKind       sql.NullString
		progressPhase   sql.NullString
		progressPercent sql.NullFloat64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sourceURL,
		&statusStr,
		&configJSON,
		&exportURL,
		&errorMessage,
		&errorKind,
		&progressPhase,
		&progressPercent,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	project := &Project{
		ID:              id,
		Title:           title,
		SourceURL:       sourceURL,
		Status:          Status(statusStr),
		ConfigJSON:      configJSON.String,
		ExportURL:       exportURL.String,
		ErrorMessage:    errorMessage.String,
		ErrorKind:       errorKind.String,
		ProgressPhase:   progressPhase.String,
		ProgressPercent: progressPercent.Float64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		project.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		project.UpdatedAt = updated
	}
	return project, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
