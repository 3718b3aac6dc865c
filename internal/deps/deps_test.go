package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/deps"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "Ghost", Command: "definitely-not-a-real-binary-40925"},
		{Name: "Blank", Command: "  "},
	})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		if status.Available {
			t.Fatalf("expected %s unavailable", status.Name)
		}
		if status.Detail == "" {
			t.Fatalf("expected detail for %s", status.Name)
		}
	}
}

func TestCheckBinariesResolvesPath(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write stub binary: %v", err)
	}
	t.Setenv("PATH", dir)

	statuses := deps.CheckBinaries([]deps.Requirement{{Name: "FFmpeg", Command: "fake-ffmpeg"}})
	if !statuses[0].Available {
		t.Fatalf("expected stub binary found: %+v", statuses[0])
	}
	if statuses[0].Command != binary {
		t.Fatalf("expected resolved path %s, got %s", binary, statuses[0].Command)
	}
}

func TestRequirementsUseConfiguredBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Render.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"

	reqs := deps.Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}
}

func TestMissingFiltersOptional(t *testing.T) {
	missing := deps.Missing([]deps.Status{
		{Name: "A", Available: false, Optional: true},
		{Name: "B", Available: false},
		{Name: "C", Available: true},
	})
	if len(missing) != 1 || missing[0].Name != "B" {
		t.Fatalf("unexpected missing set: %+v", missing)
	}
}
