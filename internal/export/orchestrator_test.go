package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipforge/internal/editconfig"
	"clipforge/internal/projects"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func decodeConfig(raw string) (*editconfig.Config, error) {
	return editconfig.Unmarshal(raw)
}

func caption(id, text string, start, end float64) editconfig.Caption {
	return editconfig.Caption{ID: id, Text: text, StartSeconds: start, EndSeconds: end}
}

type fakeInvoker struct {
	mu        sync.Mutex
	jobs      []render.Job
	fractions []float64
	err       error
	block     chan struct{}
}

func (f *fakeInvoker) Render(ctx context.Context, job render.Job, progress func(float64)) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	fractions := f.fractions
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return services.Wrap(services.ErrCancelled, "render", "encode", "render stopped on request", ctx.Err())
		}
	}
	if f.err != nil {
		return f.err
	}
	for _, fraction := range fractions {
		if progress != nil {
			progress(fraction)
		}
	}
	if err := os.WriteFile(job.OutputPath, []byte("rendered"), 0o644); err != nil {
		return err
	}
	if progress != nil {
		progress(1)
	}
	return nil
}

func (f *fakeInvoker) lastJob(t *testing.T) render.Job {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		t.Fatal("no render jobs captured")
	}
	return f.jobs[len(f.jobs)-1]
}

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	keys  []string
	url   string
	err   error
}

func (f *fakeUploader) UploadFile(ctx context.Context, path, key string, progress func(float64)) (string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if progress != nil {
		progress(0.5)
		progress(1)
	}
	if f.url == "" {
		return "https://cdn.example.com/out.mp4", nil
	}
	return f.url, nil
}

type harness struct {
	orchestrator *Orchestrator
	store        *projects.Store
	invoker      *fakeInvoker
	uploader     *fakeUploader
	workDir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	invoker := &fakeInvoker{fractions: []float64{0.25, 0.5, 0.75}}
	uploader := &fakeUploader{}
	orchestrator := New(store, invoker, uploader, cfg, nil)
	orchestrator.persistInterval = 0
	t.Cleanup(orchestrator.Shutdown)
	return &harness{
		orchestrator: orchestrator,
		store:        store,
		invoker:      invoker,
		uploader:     uploader,
		workDir:      cfg.Paths.WorkDir,
	}
}

func (h *harness) readyProject(t *testing.T) *projects.Project {
	t.Helper()
	return testsupport.NewReadyProject(t, h.store, "My Clip", "https://cdn.example.com/source.mp4", 30)
}

func (h *harness) waitTerminal(t *testing.T, projectID string) *projects.Project {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		project, err := h.store.GetByID(context.Background(), projectID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if project.Status == projects.StatusExported || project.Status == projects.StatusFailed {
			h.orchestrator.wg.Wait()
			return project
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("export did not reach a terminal state")
	return nil
}

func TestExportHappyPath(t *testing.T) {
	h := newHarness(t)
	project := h.readyProject(t)

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final := h.waitTerminal(t, project.ID)

	if final.Status != projects.StatusExported {
		t.Fatalf("status = %q (%s: %s), want exported", final.Status, final.ErrorKind, final.ErrorMessage)
	}
	if final.ExportURL != "https://cdn.example.com/out.mp4" {
		t.Fatalf("export url = %q", final.ExportURL)
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("terminal progress = %f, want 100", final.ProgressPercent)
	}

	job := h.invoker.lastJob(t)
	if job.SourcePath != "https://cdn.example.com/source.mp4" {
		t.Fatalf("render source = %q", job.SourcePath)
	}
	if job.SubtitlePath != "" {
		t.Fatalf("default config has no captions; subtitle path = %q", job.SubtitlePath)
	}

	h.uploader.mu.Lock()
	key := h.uploader.keys[0]
	h.uploader.mu.Unlock()
	if filepath.Dir(key) != "projects/"+project.ID {
		t.Fatalf("upload key = %q", key)
	}

	entries, err := os.ReadDir(h.workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("attempt directory not cleaned up: %v", entries)
	}
}

func TestExportConflictWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.invoker.block = make(chan struct{})
	project := h.readyProject(t)

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := h.orchestrator.Start(context.Background(), project.ID, nil)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	close(h.invoker.block)
	h.waitTerminal(t, project.ID)
}

func TestExportRenderFailure(t *testing.T) {
	h := newHarness(t)
	h.invoker.err = services.Wrap(services.ErrInputUnavailable, "render", "encode", "source unreachable", nil)
	project := h.readyProject(t)

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final := h.waitTerminal(t, project.ID)

	if final.Status != projects.StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if final.ErrorKind != "InputUnavailable" {
		t.Fatalf("error kind = %q", final.ErrorKind)
	}
	if final.ErrorMessage == "" {
		t.Fatal("expected a human readable error message")
	}
}

func TestExportUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.uploader.err = services.Wrap(services.ErrUploadFailed, "upload", "retry", "gave up after 3 attempts", nil)
	project := h.readyProject(t)

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final := h.waitTerminal(t, project.ID)

	if final.Status != projects.StatusFailed || final.ErrorKind != "UploadFailed" {
		t.Fatalf("unexpected terminal row: %+v", final)
	}

	entries, _ := os.ReadDir(h.workDir)
	if len(entries) != 0 {
		t.Fatalf("attempt directory not cleaned up after failure: %v", entries)
	}
}

func TestExportCancellation(t *testing.T) {
	h := newHarness(t)
	h.invoker.block = make(chan struct{})
	project := h.readyProject(t)

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snapshot, err := h.orchestrator.Status(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snapshot.State != StateRendering {
		t.Fatalf("live state = %q, want rendering", snapshot.State)
	}

	h.orchestrator.Cancel(project.ID)
	final := h.waitTerminal(t, project.ID)

	if final.Status != projects.StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if final.ErrorKind != "Cancelled" {
		t.Fatalf("error kind = %q, want Cancelled", final.ErrorKind)
	}

	entries, _ := os.ReadDir(h.workDir)
	if len(entries) != 0 {
		t.Fatalf("attempt directory not cleaned up after cancel: %v", entries)
	}
}

func TestExportProgressMonotone(t *testing.T) {
	h := newHarness(t)
	// Out-of-order render progress must never move the fused percent backward.
	h.invoker.fractions = []float64{0.5, 0.25, 0.75}
	project := h.readyProject(t)

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var observed []float64
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, err := h.orchestrator.Status(context.Background(), project.ID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		observed = append(observed, snapshot.Percent)
		if snapshot.State == StateDone || snapshot.State == StateFailed {
			break
		}
		time.Sleep(time.Millisecond)
	}
	for i := 1; i < len(observed); i++ {
		if observed[i] < observed[i-1] {
			t.Fatalf("progress regressed: %v", observed)
		}
	}
	final := h.waitTerminal(t, project.ID)
	if final.Status != projects.StatusExported {
		t.Fatalf("status = %q, want exported", final.Status)
	}
}

func TestExportBurnCaptionsWritesSubtitleFile(t *testing.T) {
	h := newHarness(t)
	h.invoker.block = nil
	project := testsupport.NewReadyProject(t, h.store, "Captioned", "https://cdn.example.com/source.mp4", 30)

	// Attach captions to the stored config.
	stored, err := h.store.GetByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	cfg, err := decodeConfig(stored.ConfigJSON)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	cfg.TextTrack.Captions = append(cfg.TextTrack.Captions, caption("c1", "hello", 1, 2))
	raw, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := h.store.UpdateConfig(context.Background(), project.ID, raw); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final := h.waitTerminal(t, project.ID)
	if final.Status != projects.StatusExported {
		t.Fatalf("status = %q, want exported", final.Status)
	}

	job := h.invoker.lastJob(t)
	if job.SubtitlePath == "" {
		t.Fatal("expected a subtitle side file for burn-in")
	}
}

func TestExportBurnCaptionsDisabledStripsTrack(t *testing.T) {
	h := newHarness(t)
	project := testsupport.NewReadyProject(t, h.store, "Plain", "https://cdn.example.com/source.mp4", 30)

	stored, _ := h.store.GetByID(context.Background(), project.ID)
	cfg, err := decodeConfig(stored.ConfigJSON)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	cfg.TextTrack.Captions = append(cfg.TextTrack.Captions, caption("c1", "hello", 1, 2))
	cfg.Export.BurnCaptions = false
	raw, _ := cfg.Marshal()
	if _, err := h.store.UpdateConfig(context.Background(), project.ID, raw); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	if err := h.orchestrator.Start(context.Background(), project.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.waitTerminal(t, project.ID)

	job := h.invoker.lastJob(t)
	if job.SubtitlePath != "" {
		t.Fatalf("captions should not burn when disabled; subtitle path = %q", job.SubtitlePath)
	}
}

func TestExportSettingsOverride(t *testing.T) {
	h := newHarness(t)
	project := h.readyProject(t)

	burn := false
	override := &SettingsOverride{Resolution: "720p", Quality: "medium", BurnCaptions: &burn}
	if err := h.orchestrator.Start(context.Background(), project.ID, override); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final := h.waitTerminal(t, project.ID)
	if final.Status != projects.StatusExported {
		t.Fatalf("status = %q, want exported", final.Status)
	}

	job := h.invoker.lastJob(t)
	if job.Settings.Resolution != "720p" || job.Settings.Quality != "medium" || job.Settings.BurnCaptions {
		t.Fatalf("override not applied to render job: %+v", job.Settings)
	}

	// The stored config keeps its own settings; the override lives only in
	// the frozen snapshot.
	stored, err := h.store.GetByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	cfg, err := decodeConfig(stored.ConfigJSON)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Export.Resolution != "original" || cfg.Export.Quality != "high" || !cfg.Export.BurnCaptions {
		t.Fatalf("stored settings mutated: %+v", cfg.Export)
	}
}

func TestExportSettingsOverrideRejected(t *testing.T) {
	h := newHarness(t)
	project := h.readyProject(t)

	err := h.orchestrator.Start(context.Background(), project.ID, &SettingsOverride{Resolution: "8k"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	stored, _ := h.store.GetByID(context.Background(), project.ID)
	if stored.Status != projects.StatusReady {
		t.Fatalf("rejected override claimed the project; status = %q", stored.Status)
	}
}

func TestStatusIdleProject(t *testing.T) {
	h := newHarness(t)
	project := h.readyProject(t)

	snapshot, err := h.orchestrator.Status(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snapshot.State != StateIdle {
		t.Fatalf("state = %q, want idle", snapshot.State)
	}

	if _, err := h.orchestrator.Status(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestOutputFileName(t *testing.T) {
	name := outputFileName("My Great Clip!", "3f2c8a76-0000-4000-8000-000000000000")
	if name != "my-great-clip-3f2c8a76.mp4" {
		t.Fatalf("unexpected artifact name %q", name)
	}
	if got := outputFileName("", "3f2c8a76-0000-4000-8000-000000000000"); got != "export-3f2c8a76.mp4" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}
