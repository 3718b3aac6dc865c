package projects

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipforge/internal/services"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, err := store.Create(ctx, "My Clip", "https://cdn.example.com/source.mp4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if project.Status != StatusProcessing {
		t.Fatalf("new project status = %q, want processing", project.Status)
	}
	if project.ID == "" {
		t.Fatal("expected generated id")
	}

	fetched, err := store.GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Title != "My Clip" || fetched.SourceURL != "https://cdn.example.com/source.mp4" {
		t.Fatalf("unexpected row: %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatal("timestamps not persisted")
	}
}

func TestCreateRequiresSource(t *testing.T) {
	store := newStore(t)
	if _, err := store.Create(context.Background(), "t", "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := newStore(t)
	if _, err := store.GetByID(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttachConfigTransition(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, err := store.Create(ctx, "t", "https://cdn.example.com/v.mp4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	attached, err := store.AttachConfig(ctx, project.ID, `{"schemaVersion":"1.1"}`)
	if err != nil {
		t.Fatalf("AttachConfig: %v", err)
	}
	if attached.Status != StatusReady {
		t.Fatalf("status = %q, want ready", attached.Status)
	}
	if attached.ConfigJSON == "" {
		t.Fatal("config not stored")
	}

	if _, err := store.AttachConfig(ctx, project.ID, `{}`); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict on second attach, got %v", err)
	}
}

func TestClaimForExport(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, _ := store.Create(ctx, "t", "https://cdn.example.com/v.mp4")
	if _, err := store.ClaimForExport(ctx, project.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for configless project, got %v", err)
	}

	if _, err := store.AttachConfig(ctx, project.ID, `{"schemaVersion":"1.1"}`); err != nil {
		t.Fatalf("AttachConfig: %v", err)
	}

	claimed, err := store.ClaimForExport(ctx, project.ID)
	if err != nil {
		t.Fatalf("ClaimForExport: %v", err)
	}
	if claimed.Status != StatusRendering {
		t.Fatalf("status = %q, want rendering", claimed.Status)
	}

	if _, err := store.ClaimForExport(ctx, project.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict for concurrent claim, got %v", err)
	}
}

func TestClaimAfterExportedAndFailed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, _ := store.Create(ctx, "t", "https://cdn.example.com/v.mp4")
	store.AttachConfig(ctx, project.ID, `{"schemaVersion":"1.1"}`)
	store.ClaimForExport(ctx, project.ID)

	if err := store.SetExported(ctx, project.ID, "https://cdn.example.com/out.mp4"); err != nil {
		t.Fatalf("SetExported: %v", err)
	}
	reclaimed, err := store.ClaimForExport(ctx, project.ID)
	if err != nil {
		t.Fatalf("reclaim after exported: %v", err)
	}
	if reclaimed.ExportURL != "" {
		t.Fatalf("export url should reset on claim, got %q", reclaimed.ExportURL)
	}

	if err := store.SetFailed(ctx, project.ID, "RenderFailed", "boom"); err != nil {
		t.Fatalf("SetFailed: %v", err)
	}
	if _, err := store.ClaimForExport(ctx, project.ID); err != nil {
		t.Fatalf("reclaim after failed: %v", err)
	}
}

func TestSetExportedAndFailed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, _ := store.Create(ctx, "t", "https://cdn.example.com/v.mp4")
	store.AttachConfig(ctx, project.ID, `{"schemaVersion":"1.1"}`)
	store.ClaimForExport(ctx, project.ID)

	if err := store.SetExported(ctx, project.ID, "https://cdn.example.com/out.mp4"); err != nil {
		t.Fatalf("SetExported: %v", err)
	}
	exported, _ := store.GetByID(ctx, project.ID)
	if exported.Status != StatusExported || exported.ExportURL == "" {
		t.Fatalf("unexpected exported row: %+v", exported)
	}
	if exported.ProgressPercent != 100 {
		t.Fatalf("exported progress = %f, want 100", exported.ProgressPercent)
	}

	if err := store.SetFailed(ctx, project.ID, "UploadFailed", "storage unreachable"); err != nil {
		t.Fatalf("SetFailed: %v", err)
	}
	failed, _ := store.GetByID(ctx, project.ID)
	if failed.Status != StatusFailed || failed.ErrorKind != "UploadFailed" || failed.ErrorMessage != "storage unreachable" {
		t.Fatalf("unexpected failed row: %+v", failed)
	}
}

func TestResetStuckRendering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stuck, _ := store.Create(ctx, "stuck", "https://cdn.example.com/a.mp4")
	store.AttachConfig(ctx, stuck.ID, `{"schemaVersion":"1.1"}`)
	store.ClaimForExport(ctx, stuck.ID)

	idle, _ := store.Create(ctx, "idle", "https://cdn.example.com/b.mp4")
	store.AttachConfig(ctx, idle.ID, `{"schemaVersion":"1.1"}`)

	reset, err := store.ResetStuckRendering(ctx)
	if err != nil {
		t.Fatalf("ResetStuckRendering: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset %d rows, want 1", reset)
	}

	failed, _ := store.GetByID(ctx, stuck.ID)
	if failed.Status != StatusFailed {
		t.Fatalf("stuck project status = %q, want failed", failed.Status)
	}
	if failed.ErrorMessage != RestartInterruptionReason {
		t.Fatalf("unexpected reason %q", failed.ErrorMessage)
	}

	untouched, _ := store.GetByID(ctx, idle.ID)
	if untouched.Status != StatusReady {
		t.Fatalf("idle project status = %q, want ready", untouched.Status)
	}
}

func TestUpdateProgressClamps(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, _ := store.Create(ctx, "t", "https://cdn.example.com/v.mp4")
	if err := store.UpdateProgress(ctx, project.ID, "render", 130); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	row, _ := store.GetByID(ctx, project.ID)
	if row.ProgressPercent != 100 || row.ProgressPhase != "render" {
		t.Fatalf("unexpected progress: %+v", row)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, _ := store.Create(ctx, "a", "https://cdn.example.com/a.mp4")
	store.AttachConfig(ctx, first.ID, `{"schemaVersion":"1.1"}`)
	store.Create(ctx, "b", "https://cdn.example.com/b.mp4")

	ready, err := store.List(ctx, StatusReady)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != first.ID {
		t.Fatalf("unexpected filter result: %+v", ready)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(all))
	}
}

func TestSetStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, _ := store.Create(ctx, "a", "https://cdn.example.com/a.mp4")
	if err := store.SetStatus(ctx, project.ID, StatusFailed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, _ := store.GetByID(ctx, project.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}

	if err := store.SetStatus(ctx, project.ID, Status("bogus")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
	if err := store.SetStatus(ctx, "missing", StatusReady); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatsAndRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	project, _ := store.Create(ctx, "a", "https://cdn.example.com/a.mp4")
	store.Create(ctx, "b", "https://cdn.example.com/b.mp4")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.ByStatus[StatusProcessing] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := store.Remove(ctx, project.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, project.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double remove, got %v", err)
	}
}
