package projects

import "time"

// Status represents the lifecycle of a project.
type Status string

const (
	// StatusProcessing covers intake: the source is submitted but no edit
	// config is attached yet.
	StatusProcessing Status = "processing"
	// StatusReady means the project holds a valid config and accepts patches
	// and export requests.
	StatusReady Status = "ready"
	// StatusRendering means an export job owns the project.
	StatusRendering Status = "rendering"
	// StatusExported means the last export completed and exportUrl is set.
	StatusExported Status = "exported"
	// StatusFailed means intake or the last export failed; the config, when
	// present, is still editable.
	StatusFailed Status = "failed"
)

// RestartInterruptionReason is the error recorded when a daemon restart finds
// a project still marked rendering.
const RestartInterruptionReason = "export interrupted by service restart"

var allStatuses = []Status{
	StatusProcessing,
	StatusReady,
	StatusRendering,
	StatusExported,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the given status is known.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// Project is one editable video with its frozen persistence state.
type Project struct {
	ID              string
	Title           string
	SourceURL       string
	Status          Status
	ConfigJSON      string
	ExportURL       string
	ErrorMessage    string
	ErrorKind       string
	ProgressPhase   string
	ProgressPercent float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Editable reports whether the project accepts config patches. Rendering
// projects stay editable: exports work from a config copy frozen at start,
// so concurrent edits never reach the running job.
func (p *Project) Editable() bool {
	if p == nil || p.ConfigJSON == "" {
		return false
	}
	switch p.Status {
	case StatusReady, StatusRendering, StatusExported, StatusFailed:
		return true
	default:
		return false
	}
}

// Stats summarizes project counts by status.
type Stats struct {
	Total     int
	ByStatus  map[Status]int
	Exporting int
}
