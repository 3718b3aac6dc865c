package render

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"strings"

	"clipforge/internal/editconfig"
	"clipforge/internal/services"
)

var commandContext = exec.CommandContext

const diagnosticTailLines = 20

// Job describes one render of a frozen edit snapshot.
type Job struct {
	SourcePath      string
	SubtitlePath    string
	OutputPath      string
	DurationSeconds float64
	Animation       *editconfig.VideoAnimation
	Settings        editconfig.ExportSettings
	SourceWidth     int
	SourceHeight    int
}

// Invoker runs the renderer over a job and reports fractional progress.
type Invoker interface {
	Render(ctx context.Context, job Job, progress func(fraction float64)) error
}

// Option configures the FFmpeg invoker.
type Option func(*FFmpeg)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// FFmpeg invokes the ffmpeg command line renderer.
type FFmpeg struct {
	binary string
}

// NewFFmpeg constructs an invoker using defaults.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Render launches ffmpeg and blocks until it exits, streaming progress parsed
// from stderr. Cancellation through ctx is reported as a cancellation, not a
// render fault.
func (f *FFmpeg) Render(ctx context.Context, job Job, progress func(float64)) error {
	if strings.TrimSpace(job.SourcePath) == "" {
		return services.Wrap(services.ErrInputUnavailable, "render", "prepare", "no source video path", nil)
	}
	if strings.TrimSpace(job.OutputPath) == "" {
		return services.Wrap(services.ErrRenderFailed, "render", "prepare", "no output path", nil)
	}
	if !isRemote(job.SourcePath) {
		if _, err := os.Stat(job.SourcePath); err != nil {
			return services.Wrap(services.ErrInputUnavailable, "render", "prepare", "source video is not readable", err)
		}
	}

	args, err := buildArgs(job)
	if err != nil {
		return err
	}

	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrRenderFailed, "render", "start", "attach stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCancelled, "render", "start", "render stopped on request", ctx.Err())
		}
		return services.Wrap(services.ErrRenderFailed, "render", "start", "launch renderer; confirm the ffmpeg binary path in config", err)
	}

	tail := newLineTail(diagnosticTailLines)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail.Add(line)
		if progress == nil || job.DurationSeconds <= 0 {
			continue
		}
		if seconds, ok := parseProgressTime(line); ok {
			fraction := seconds / job.DurationSeconds
			if fraction > 1 {
				fraction = 1
			}
			progress(fraction)
		}
	}

	waitErr := cmd.Wait()
	if waitErr == nil {
		if progress != nil {
			progress(1)
		}
		return nil
	}
	if ctx.Err() != nil {
		return services.Wrap(services.ErrCancelled, "render", "encode", "render stopped on request", ctx.Err())
	}
	if tail.LooksLikeUnreachableInput() {
		return services.Wrap(services.ErrInputUnavailable, "render", "encode", tail.Summary(), waitErr)
	}
	return services.Wrap(services.ErrRenderFailed, "render", "encode", tail.Summary(), waitErr)
}

var _ Invoker = (*FFmpeg)(nil)

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// lineTail keeps the last n lines of renderer output for diagnostics.
type lineTail struct {
	lines []string
	limit int
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit}
}

func (t *lineTail) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *lineTail) Summary() string {
	if len(t.lines) == 0 {
		return "renderer produced no diagnostics"
	}
	return "renderer output: " + strings.Join(t.lines, " | ")
}

// LooksLikeUnreachableInput inspects the tail for the renderer's open and
// probe failures so missing sources classify separately from encode faults.
func (t *lineTail) LooksLikeUnreachableInput() bool {
	for _, line := range t.lines {
		lower := strings.ToLower(line)
		for _, marker := range []string{
			"no such file or directory",
			"connection refused",
			"server returned 404",
			"server returned 403",
			"failed to resolve hostname",
			"invalid data found when processing input",
			"error opening input",
		} {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}
