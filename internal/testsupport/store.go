package testsupport

import (
	"context"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/editconfig"
	"clipforge/internal/projects"
)

// MustOpenStore opens a projects.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *projects.Store {
	t.Helper()

	store, err := projects.Open(cfg)
	if err != nil {
		t.Fatalf("projects.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewProject creates a processing project for tests using the provided store.
func NewProject(t testing.TB, store *projects.Store, title, sourceURL string) *projects.Project {
	t.Helper()

	project, err := store.Create(context.Background(), title, sourceURL)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return project
}

// NewReadyProject creates a project carrying a default edit config so it can
// accept patches and exports.
func NewReadyProject(t testing.TB, store *projects.Store, title, sourceURL string, duration float64) *projects.Project {
	t.Helper()

	project := NewProject(t, store, title, sourceURL)
	cfg := editconfig.NewFromSource(editconfig.SourceVideo{
		URL:      sourceURL,
		Width:    1920,
		Height:   1080,
		Duration: duration,
	}, time.Now())
	raw, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	ready, err := store.AttachConfig(context.Background(), project.ID, raw)
	if err != nil {
		t.Fatalf("store.AttachConfig: %v", err)
	}
	return ready
}
