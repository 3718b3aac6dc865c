package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/api"
)

func runCommand(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if server != "" {
		args = append([]string{"--server", server}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func jsonHandler(t *testing.T, wantMethod, wantPath string, status int, payload any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != wantMethod || r.URL.Path != wantPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(payload)
	}
}

func TestProjectsListRendersTable(t *testing.T) {
	projects := api.ProjectsResponse{Projects: []api.ProjectResponse{
		{
			ID:              "3f2c8a76-0000-0000-0000-000000000000",
			Title:           "demo clip",
			Status:          "rendering",
			ProgressPhase:   "rendering",
			ProgressPercent: 40,
			UpdatedAt:       "2026-01-02T03:04:05Z",
		},
	}}
	server := httptest.NewServer(jsonHandler(t, http.MethodGet, "/api/projects", http.StatusOK, projects))
	defer server.Close()

	out, err := runCommand(t, server.URL, "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	if !strings.Contains(out, "3f2c8a76") {
		t.Fatalf("expected short project ID in output:\n%s", out)
	}
	if !strings.Contains(out, "demo clip") || !strings.Contains(out, "rendering 40%") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestProjectsListEmpty(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, http.MethodGet, "/api/projects", http.StatusOK, api.ProjectsResponse{}))
	defer server.Close()

	out, err := runCommand(t, server.URL, "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	if !strings.Contains(out, "No projects.") {
		t.Fatalf("expected empty message, got:\n%s", out)
	}
}

func TestProjectsCreate(t *testing.T) {
	var gotBody api.CreateProjectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.ProjectResponse{ID: "abc", Title: "demo"})
	}))
	defer server.Close()

	out, err := runCommand(t, server.URL, "projects", "create", "https://videos.example.com/raw.mp4", "--title", "demo")
	if err != nil {
		t.Fatalf("projects create: %v", err)
	}
	if gotBody.SourceURL != "https://videos.example.com/raw.mp4" || gotBody.Title != "demo" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if !strings.Contains(out, "Created project abc") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestExportStartSendsSettings(t *testing.T) {
	var gotBody api.StartExportRequest
	var gotLength int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		if gotLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.ExportStatusResponse{State: "rendering", Phase: "render"})
	}))
	defer server.Close()

	if _, err := runCommand(t, server.URL, "export", "start", "p1",
		"--resolution", "720p", "--quality", "medium", "--burn-captions=false"); err != nil {
		t.Fatalf("export start: %v", err)
	}
	if gotBody.Resolution != "720p" || gotBody.Quality != "medium" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if gotBody.BurnCaptions == nil || *gotBody.BurnCaptions {
		t.Fatalf("expected burnCaptions=false in body: %+v", gotBody.BurnCaptions)
	}

	// Without flags the request carries no body and the daemon keeps the
	// stored settings.
	if _, err := runCommand(t, server.URL, "export", "start", "p1"); err != nil {
		t.Fatalf("export start without flags: %v", err)
	}
	if gotLength > 0 {
		t.Fatalf("expected empty body, got %d bytes", gotLength)
	}
}

func TestExportStatusPrintsSnapshot(t *testing.T) {
	snapshot := api.ExportStatusResponse{
		State:   "uploading",
		Phase:   "uploading",
		Percent: 87.5,
	}
	server := httptest.NewServer(jsonHandler(t, http.MethodGet, "/api/projects/p1/export", http.StatusOK, snapshot))
	defer server.Close()

	out, err := runCommand(t, server.URL, "export", "status", "p1")
	if err != nil {
		t.Fatalf("export status: %v", err)
	}
	if !strings.Contains(out, "uploading") || !strings.Contains(out, "87.5") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDaemonErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "project not found", Code: "NOT_FOUND"})
	}))
	defer server.Close()

	_, err := runCommand(t, server.URL, "projects", "show", "missing")
	if err == nil {
		t.Fatal("expected error for missing project")
	}
	if !strings.Contains(err.Error(), "project not found") {
		t.Fatalf("expected daemon error message, got %v", err)
	}
}

func TestAuthTokenHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Version: "test"})
	}))
	defer server.Close()

	if _, err := runCommand(t, server.URL, "--token", "secret", "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer token header, got %q", gotAuth)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output:\n%s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config written: %v", err)
	}

	if _, err := runCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}
