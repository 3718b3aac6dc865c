package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/editconfig"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/projects"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/staging"
	"clipforge/internal/subtitle"
)

// Uploader places a rendered artifact into remote storage.
type Uploader interface {
	UploadFile(ctx context.Context, path, key string, progress func(fraction float64)) (string, error)
}

// State is the live phase of an export job.
type State string

const (
	StateIdle       State = "idle"
	StateRendering  State = "rendering"
	StateUploading  State = "uploading"
	StateCancelling State = "cancelling"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// SettingsOverride replaces selected stored export settings for a single
// run. Zero-valued fields keep the stored value.
type SettingsOverride struct {
	Resolution   string
	Quality      string
	BurnCaptions *bool
}

func (s *SettingsOverride) apply(settings *editconfig.ExportSettings) {
	if s == nil {
		return
	}
	if s.Resolution != "" {
		settings.Resolution = s.Resolution
	}
	if s.Quality != "" {
		settings.Quality = s.Quality
	}
	if s.BurnCaptions != nil {
		settings.BurnCaptions = *s.BurnCaptions
	}
}

// Snapshot is a point-in-time view of a project's export.
type Snapshot struct {
	State        State
	Phase        string
	Percent      float64
	ExportURL    string
	ErrorKind    string
	ErrorMessage string
}

// Orchestrator runs at most one export job per project. Jobs hold a frozen
// copy of the edit config, so edits made during an export never leak into the
// running render.
type Orchestrator struct {
	store    *projects.Store
	invoker  render.Invoker
	uploader Uploader
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service

	mu   sync.Mutex
	jobs map[string]*job

	persistInterval time.Duration
	wg              sync.WaitGroup
}

type job struct {
	projectID string
	title     string
	cancel    context.CancelFunc

	mu         sync.Mutex
	state      State
	phase      string
	percent    float64
	cancelling bool
}

// New constructs an orchestrator.
func New(store *projects.Store, invoker render.Invoker, uploader Uploader, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:           store,
		invoker:         invoker,
		uploader:        uploader,
		cfg:             cfg,
		logger:          logger.With(logging.String(logging.FieldComponent, "export")),
		notifier:        notifications.NewService(cfg),
		jobs:            make(map[string]*job),
		persistInterval: 2 * time.Second,
	}
}

// Start claims the project and launches its export worker. It returns
// immediately once the claim succeeds; progress is observable through Status.
// A non-nil override replaces the stored export settings for this run only;
// invalid settings are rejected before the project is claimed.
func (o *Orchestrator) Start(ctx context.Context, projectID string, override *SettingsOverride) error {
	o.mu.Lock()
	if _, live := o.jobs[projectID]; live {
		o.mu.Unlock()
		return services.Wrap(services.ErrConflict, "export", "start", "an export is already running for this project", nil)
	}
	o.mu.Unlock()

	if override != nil {
		if err := o.checkOverride(ctx, projectID, override); err != nil {
			return err
		}
	}

	project, err := o.store.ClaimForExport(ctx, projectID)
	if err != nil {
		return err
	}

	snapshot, err := editconfig.Unmarshal(project.ConfigJSON)
	if err != nil {
		failErr := services.Wrap(services.ErrValidation, "export", "freeze", "stored config is unreadable", err)
		details := services.Details(failErr)
		if storeErr := o.store.SetFailed(context.WithoutCancel(ctx), projectID, details.Kind, details.Message); storeErr != nil {
			o.logger.Error("failed to persist export failure", logging.Error(storeErr))
		}
		return failErr
	}
	override.apply(&snapshot.Export)
	if !snapshot.Export.BurnCaptions {
		// Burn-in disabled: the frozen copy drops the text track entirely.
		snapshot.TextTrack.Captions = nil
		snapshot.TextTrack.Highlights = nil
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{projectID: projectID, title: project.Title, cancel: cancel, state: StateRendering, phase: "render"}

	o.mu.Lock()
	o.jobs[projectID] = j
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.run(jobCtx, j, project, snapshot)
	}()
	return nil
}

// checkOverride validates the requested settings against the stored config
// so a bad request never claims the project.
func (o *Orchestrator) checkOverride(ctx context.Context, projectID string, override *SettingsOverride) error {
	project, err := o.store.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.ConfigJSON == "" {
		// ClaimForExport reports the missing config.
		return nil
	}
	current, err := editconfig.Unmarshal(project.ConfigJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "export", "settings", "stored config is unreadable", err)
	}
	override.apply(&current.Export)
	if err := current.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "export", "settings", err.Error(), err)
	}
	return nil
}

// Status reports the live job state when one exists, otherwise a snapshot
// derived from the persisted row.
func (o *Orchestrator) Status(ctx context.Context, projectID string) (Snapshot, error) {
	o.mu.Lock()
	j := o.jobs[projectID]
	o.mu.Unlock()

	if j != nil {
		j.mu.Lock()
		snapshot := Snapshot{State: j.state, Phase: j.phase, Percent: j.percent}
		if j.cancelling {
			snapshot.State = StateCancelling
		}
		j.mu.Unlock()
		return snapshot, nil
	}

	project, err := o.store.GetByID(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotFromRow(project), nil
}

// Cancel requests cancellation of the project's running export. Cancelling an
// idle project is a no-op.
func (o *Orchestrator) Cancel(projectID string) {
	o.mu.Lock()
	j := o.jobs[projectID]
	o.mu.Unlock()
	if j == nil {
		return
	}
	j.mu.Lock()
	j.cancelling = true
	j.mu.Unlock()
	j.cancel()
}

// Shutdown cancels every live job and waits for workers to finish persisting
// their terminal states.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for _, j := range o.jobs {
		j.mu.Lock()
		j.cancelling = true
		j.mu.Unlock()
		j.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, j *job, project *projects.Project, snapshot *editconfig.Config) {
	logger := o.logger.With(logging.String(logging.FieldProjectID, project.ID))
	start := time.Now()

	defer func() {
		o.mu.Lock()
		delete(o.jobs, j.projectID)
		o.mu.Unlock()
	}()

	attemptDir, err := os.MkdirTemp(o.cfg.Paths.WorkDir, staging.AttemptDirPrefix+shortID(project.ID)+"-")
	if err != nil {
		o.fail(ctx, j, logger, services.Wrap(services.ErrRenderFailed, "export", "prepare", "create attempt directory", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(attemptDir); err != nil {
			logger.Warn("failed to remove attempt directory", logging.Error(err))
		}
	}()

	outputName := outputFileName(project.Title, project.ID)
	outputPath := filepath.Join(attemptDir, outputName)

	subtitlePath := ""
	if len(snapshot.TextTrack.Captions) > 0 {
		doc, warnings := subtitle.Compile(snapshot)
		for _, warning := range warnings {
			logger.Warn("subtitle degradation",
				logging.String("field", warning.Field),
				logging.String("detail", warning.Message))
		}
		if !doc.Empty() {
			subtitlePath = filepath.Join(attemptDir, "captions.ass")
			if err := os.WriteFile(subtitlePath, doc.Content, 0o644); err != nil {
				o.fail(ctx, j, logger, services.Wrap(services.ErrRenderFailed, "export", "prepare", "write subtitle file", err))
				return
			}
		}
	}

	weight := o.cfg.Render.ProgressWeight
	if weight <= 0 || weight >= 1 {
		weight = 0.8
	}

	logger.Info("export started",
		logging.String("output", outputName),
		logging.Bool("captions", subtitlePath != ""),
		logging.String("quality", snapshot.Export.Quality),
		logging.String("resolution", snapshot.Export.Resolution))

	lastPersist := time.Time{}
	publish := func(state State, phase string, percent float64) {
		j.mu.Lock()
		if percent < j.percent {
			percent = j.percent
		}
		// 100 is reserved for the terminal state.
		if percent > 99 {
			percent = 99
		}
		j.state = state
		j.phase = phase
		j.percent = percent
		j.mu.Unlock()

		now := time.Now()
		if !lastPersist.IsZero() && now.Sub(lastPersist) < o.persistInterval {
			return
		}
		lastPersist = now
		if err := o.store.UpdateProgress(ctx, project.ID, phase, percent); err != nil {
			logger.Warn("failed to persist progress", logging.Error(err))
		}
	}

	renderJob := render.Job{
		SourcePath:      project.SourceURL,
		SubtitlePath:    subtitlePath,
		OutputPath:      outputPath,
		DurationSeconds: snapshot.DurationSeconds,
		Animation:       snapshot.VideoAnimation,
		Settings:        snapshot.Export,
		SourceWidth:     snapshot.Source.Width,
		SourceHeight:    snapshot.Source.Height,
	}
	err = o.invoker.Render(ctx, renderJob, func(fraction float64) {
		publish(StateRendering, "render", fraction*weight*100)
	})
	if err != nil {
		o.fail(ctx, j, logger, err)
		return
	}

	publish(StateUploading, "upload", weight*100)
	key := fmt.Sprintf("projects/%s/%s", project.ID, outputName)
	url, err := o.uploader.UploadFile(ctx, outputPath, key, func(fraction float64) {
		publish(StateUploading, "upload", (weight+fraction*(1-weight))*100)
	})
	if err != nil {
		o.fail(ctx, j, logger, err)
		return
	}

	if err := o.store.SetExported(context.WithoutCancel(ctx), project.ID, url); err != nil {
		o.fail(ctx, j, logger, services.Wrap(services.ErrRenderFailed, "export", "finish", "persist export result", err))
		return
	}
	j.mu.Lock()
	j.state = StateDone
	j.phase = "done"
	j.percent = 100
	j.mu.Unlock()
	logger.Info("export finished",
		logging.String("export_url", url),
		logging.Duration("elapsed", time.Since(start)))
	if err := o.notifier.NotifyExportCompleted(context.WithoutCancel(ctx), project.Title, url); err != nil {
		logger.Warn("failed to send completion notification", logging.Error(err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, j *job, logger *slog.Logger, err error) {
	details := services.Details(err)
	j.mu.Lock()
	j.state = StateFailed
	j.mu.Unlock()

	if details.Kind == "Cancelled" {
		logger.Info("export cancelled")
	} else {
		logger.Error("export failed",
			logging.String(logging.FieldErrorHint, details.Kind),
			logging.Error(err))
		if notifyErr := o.notifier.NotifyExportFailed(context.WithoutCancel(ctx), j.title, details.Message); notifyErr != nil {
			logger.Warn("failed to send failure notification", logging.Error(notifyErr))
		}
	}
	if storeErr := o.store.SetFailed(context.WithoutCancel(ctx), j.projectID, details.Kind, details.Message); storeErr != nil {
		logger.Error("failed to persist export failure", logging.Error(storeErr))
	}
}

func snapshotFromRow(project *projects.Project) Snapshot {
	snapshot := Snapshot{
		Phase:        project.ProgressPhase,
		Percent:      project.ProgressPercent,
		ExportURL:    project.ExportURL,
		ErrorKind:    project.ErrorKind,
		ErrorMessage: project.ErrorMessage,
	}
	switch project.Status {
	case projects.StatusExported:
		snapshot.State = StateDone
		snapshot.Percent = 100
	case projects.StatusFailed:
		snapshot.State = StateFailed
	case projects.StatusRendering:
		// Row says rendering but no live job: interrupted by a restart and
		// not yet reconciled.
		snapshot.State = StateRendering
	default:
		snapshot.State = StateIdle
	}
	return snapshot
}

// outputFileName derives a stable artifact name from the project title plus a
// short id suffix so repeated exports never collide across projects.
func outputFileName(title, id string) string {
	sanitized := sanitizeTitle(title)
	if sanitized == "" {
		sanitized = "export"
	}
	return fmt.Sprintf("%s-%s.mp4", sanitized, shortID(id))
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
