package api

import (
	"encoding/json"
	"time"

	"clipforge/internal/export"
	"clipforge/internal/projects"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CreateProjectRequest struct {
	Title     string `json:"title,omitempty"`
	SourceURL string `json:"sourceUrl"`
}

type AttachConfigRequest struct {
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	AspectRatio     string  `json:"aspectRatio,omitempty"`
}

type ProjectResponse struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	SourceURL       string          `json:"sourceUrl"`
	Status          string          `json:"status"`
	ExportURL       string          `json:"exportUrl,omitempty"`
	ErrorKind       string          `json:"errorKind,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	ProgressPhase   string          `json:"progressPhase,omitempty"`
	ProgressPercent float64         `json:"progressPercent"`
	Config          json.RawMessage `json:"config,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type PatchResponse struct {
	Applied bool            `json:"applied"`
	Config  json.RawMessage `json:"config"`
}

// StartExportRequest optionally overrides stored export settings for one
// run. Omitted fields keep the values in the project's config.
type StartExportRequest struct {
	Resolution   string `json:"resolution,omitempty"`
	Quality      string `json:"quality,omitempty"`
	BurnCaptions *bool  `json:"burnCaptions,omitempty"`
}

type ExportStatusResponse struct {
	State        string  `json:"state"`
	Phase        string  `json:"phase,omitempty"`
	Percent      float64 `json:"percent"`
	ExportURL    string  `json:"exportUrl,omitempty"`
	ErrorKind    string  `json:"errorKind,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

type NotifyTestResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToResponse(p *projects.Project, includeConfig bool) ProjectResponse {
	resp := ProjectResponse{
		ID:              p.ID,
		Title:           p.Title,
		SourceURL:       p.SourceURL,
		Status:          string(p.Status),
		ExportURL:       p.ExportURL,
		ErrorKind:       p.ErrorKind,
		ErrorMessage:    p.ErrorMessage,
		ProgressPhase:   p.ProgressPhase,
		ProgressPercent: p.ProgressPercent,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
	if includeConfig && p.ConfigJSON != "" {
		resp.Config = json.RawMessage(p.ConfigJSON)
	}
	return resp
}

func SnapshotToResponse(s export.Snapshot) ExportStatusResponse {
	return ExportStatusResponse{
		State:        string(s.State),
		Phase:        s.Phase,
		Percent:      s.Percent,
		ExportURL:    s.ExportURL,
		ErrorKind:    s.ErrorKind,
		ErrorMessage: s.ErrorMessage,
	}
}
