package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/editconfig"
	"clipforge/internal/editconfig/patch"
	"clipforge/internal/export"
	"clipforge/internal/logs"
	"clipforge/internal/projects"
	"clipforge/internal/services"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/api/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.APIToken))

		r.Get("/api/projects", listProjectsHandler(cfg))
		r.Post("/api/projects", createProjectHandler(cfg))
		r.Get("/api/projects/{id}", getProjectHandler(cfg))
		r.Put("/api/projects/{id}/config", attachConfigHandler(cfg))
		r.Post("/api/projects/{id}/patch", patchHandler(cfg))
		r.Post("/api/projects/{id}/export", startExportHandler(cfg))
		r.Get("/api/projects/{id}/export", exportStatusHandler(cfg))
		r.Delete("/api/projects/{id}/export", cancelExportHandler(cfg))
		r.Get("/api/logs", tailLogsHandler(cfg))
		r.Post("/api/notify/test", testNotifyHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if strings.TrimSpace(req.SourceURL) == "" {
			WriteError(w, http.StatusBadRequest, "sourceUrl is required", "BAD_REQUEST")
			return
		}

		project, err := cfg.Store.Create(r.Context(), req.Title, req.SourceURL)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ProjectToResponse(project, false))
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statuses []projects.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			for _, value := range strings.Split(raw, ",") {
				status := projects.Status(strings.TrimSpace(value))
				if !projects.ValidStatus(status) {
					WriteError(w, http.StatusBadRequest, "unknown status "+string(status), "BAD_REQUEST")
					return
				}
				statuses = append(statuses, status)
			}
		}

		list, err := cfg.Store.List(r.Context(), statuses...)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(list))}
		for i, project := range list {
			resp.Projects[i] = ProjectToResponse(project, false)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := cfg.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(project, true))
	}
}

// attachConfigHandler seeds the initial edit config once source analysis is
// done, moving the project from processing to ready.
func attachConfigHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AttachConfigRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.DurationSeconds <= 0 || req.Width <= 0 || req.Height <= 0 {
			WriteError(w, http.StatusBadRequest, "durationSeconds, width, and height are required", "BAD_REQUEST")
			return
		}

		id := chi.URLParam(r, "id")
		project, err := cfg.Store.GetByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		source := editconfig.SourceVideo{
			URL:         project.SourceURL,
			Width:       req.Width,
			Height:      req.Height,
			AspectRatio: req.AspectRatio,
			Duration:    req.DurationSeconds,
		}
		document := editconfig.NewFromSource(source, time.Now())
		if err := document.Validate(); err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION")
			return
		}
		raw, err := document.Marshal()
		if err != nil {
			writeServiceError(w, err)
			return
		}

		attached, err := cfg.Store.AttachConfig(r.Context(), id, raw)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(attached, true))
	}
}

// patchHandler validates and applies an edit patch atomically: either every
// operation lands and the result passes validation, or the stored config is
// untouched. Patches are accepted while a project is exporting; the running
// job works from a config copy frozen at export start.
func patchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		project, err := cfg.Store.GetByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !project.Editable() {
			WriteError(w, http.StatusConflict, "project has no editable config yet", "NOT_EDITABLE")
			return
		}

		body, err := readBody(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "unreadable request body", "BAD_REQUEST")
			return
		}
		operations, err := patch.Decode(body)
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION")
			return
		}

		current, err := editconfig.Unmarshal(project.ConfigJSON)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		updated, err := patch.Apply(current, operations, time.Now())
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, services.Details(err).Message, "VALIDATION")
			return
		}
		raw, err := updated.Marshal()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if _, err := cfg.Store.UpdateConfig(r.Context(), id, raw); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, PatchResponse{Applied: true, Config: json.RawMessage(raw)})
	}
}

func startExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		override, err := decodeExportOverride(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err := cfg.Orchestrator.Start(r.Context(), id, override); err != nil {
			writeServiceError(w, err)
			return
		}
		snapshot, err := cfg.Orchestrator.Status(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, SnapshotToResponse(snapshot))
	}
}

// decodeExportOverride reads the optional settings body. An empty body keeps
// the stored export settings.
func decodeExportOverride(r *http.Request) (*export.SettingsOverride, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, errors.New("unreadable request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var req StartExportRequest
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid export settings: %v", err)
	}
	if req.Resolution == "" && req.Quality == "" && req.BurnCaptions == nil {
		return nil, nil
	}
	return &export.SettingsOverride{
		Resolution:   req.Resolution,
		Quality:      req.Quality,
		BurnCaptions: req.BurnCaptions,
	}, nil
}

func exportStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := cfg.Orchestrator.Status(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SnapshotToResponse(snapshot))
	}
}

// cancelExportHandler always accepts: cancelling an idle project is a no-op.
func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := cfg.Store.GetByID(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		cfg.Orchestrator.Cancel(id)
		snapshot, err := cfg.Orchestrator.Status(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, SnapshotToResponse(snapshot))
	}
}

func tailLogsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.LogPath == "" {
			WriteError(w, http.StatusNotFound, "log file not configured", "NOT_FOUND")
			return
		}

		opts := logs.TailOptions{Offset: -1, Limit: 100}
		query := r.URL.Query()
		if raw := query.Get("offset"); raw != "" {
			offset, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid offset", "BAD_REQUEST")
				return
			}
			opts.Offset = offset
		}
		if raw := query.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > 1000 {
				WriteError(w, http.StatusBadRequest, "limit must be within [1, 1000]", "BAD_REQUEST")
				return
			}
			opts.Limit = limit
		}
		if raw := query.Get("wait_ms"); raw != "" {
			waitMS, err := strconv.Atoi(raw)
			if err != nil || waitMS < 0 || waitMS > 30000 {
				WriteError(w, http.StatusBadRequest, "wait_ms must be within [0, 30000]", "BAD_REQUEST")
				return
			}
			opts.Wait = time.Duration(waitMS) * time.Millisecond
		}

		result, err := logs.Tail(r.Context(), cfg.LogPath, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			WriteError(w, http.StatusInternalServerError, "read log file", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, LogTailResponse{Lines: result.Lines, Offset: result.Offset})
	}
}

func testNotifyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Notifier == nil || !cfg.Notifier.Enabled() {
			WriteJSON(w, http.StatusOK, NotifyTestResponse{Sent: false, Message: "ntfy topic not configured"})
			return
		}
		if err := cfg.Notifier.TestNotification(r.Context()); err != nil {
			WriteError(w, http.StatusBadGateway, "failed to send notification: "+err.Error(), "NOTIFY_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, NotifyTestResponse{Sent: true, Message: "test notification sent"})
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		WriteError(w, http.StatusNotFound, services.Details(err).Message, "NOT_FOUND")
	case errors.Is(err, services.ErrConflict):
		WriteError(w, http.StatusConflict, services.Details(err).Message, "CONFLICT")
	case errors.Is(err, services.ErrValidation):
		WriteError(w, http.StatusUnprocessableEntity, services.Details(err).Message, "VALIDATION")
	default:
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}
