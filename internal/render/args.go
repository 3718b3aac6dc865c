package render

import (
	"fmt"
	"strings"

	"clipforge/internal/services"
)

// qualityProfile maps a quality tier to encoder rate control.
type qualityProfile struct {
	crf    int
	preset string
}

var qualityProfiles = map[string]qualityProfile{
	"high":   {crf: 18, preset: "slow"},
	"medium": {crf: 23, preset: "medium"},
	"low":    {crf: 28, preset: "fast"},
}

var resolutionHeights = map[string]int{
	"1080p": 1080,
	"720p":  720,
	"480p":  480,
}

// buildArgs assembles the full ffmpeg argument list for a job.
func buildArgs(job Job) ([]string, error) {
	profile, ok := qualityProfiles[job.Settings.Quality]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "render", "plan", fmt.Sprintf("unknown quality tier %q", job.Settings.Quality), nil)
	}

	args := []string{"-y", "-i", job.SourcePath}

	if filters := buildFilterChain(job); filters != "" {
		args = append(args, "-vf", filters)
	}

	if job.Settings.Resolution != "" && job.Settings.Resolution != "original" {
		width, height, err := targetDimensions(job)
		if err != nil {
			return nil, err
		}
		args = append(args, "-s", fmt.Sprintf("%dx%d", width, height))
	}

	args = append(args,
		"-c:v", "libx264",
		"-crf", fmt.Sprintf("%d", profile.crf),
		"-preset", profile.preset,
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		job.OutputPath,
	)
	return args, nil
}

// buildFilterChain assembles the -vf expression: fades first so captions
// burned on top are not dimmed by the fade.
func buildFilterChain(job Job) string {
	var filters []string
	if anim := job.Animation; anim != nil {
		if fade := anim.FadeIn; fade != nil && fade.DurationSeconds > 0 {
			filters = append(filters, fmt.Sprintf("fade=t=in:st=%s:d=%s", trimFloat(fade.StartSeconds), trimFloat(fade.DurationSeconds)))
		}
		if fade := anim.FadeOut; fade != nil && fade.DurationSeconds > 0 {
			filters = append(filters, fmt.Sprintf("fade=t=out:st=%s:d=%s", trimFloat(fade.StartSeconds), trimFloat(fade.DurationSeconds)))
		}
	}
	if job.SubtitlePath != "" {
		filters = append(filters, fmt.Sprintf("subtitles='%s'", escapeFilterPath(job.SubtitlePath)))
	}
	return strings.Join(filters, ",")
}

// targetDimensions scales the source to the requested height, preserving
// aspect ratio and rounding both dimensions down to even values.
func targetDimensions(job Job) (int, int, error) {
	height, ok := resolutionHeights[job.Settings.Resolution]
	if !ok {
		return 0, 0, services.Wrap(services.ErrConfiguration, "render", "plan", fmt.Sprintf("unknown resolution %q", job.Settings.Resolution), nil)
	}
	if job.SourceWidth <= 0 || job.SourceHeight <= 0 {
		return 0, 0, services.Wrap(services.ErrConfiguration, "render", "plan", "source dimensions unknown; cannot scale", nil)
	}
	if height > job.SourceHeight {
		height = job.SourceHeight
	}
	width := job.SourceWidth * height / job.SourceHeight
	width -= width % 2
	height -= height % 2
	if width < 2 || height < 2 {
		return 0, 0, services.Wrap(services.ErrConfiguration, "render", "plan", "computed output dimensions are degenerate", nil)
	}
	return width, height, nil
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter expression.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `'`, `\'`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	return path
}

// trimFloat renders seconds without trailing zero noise.
func trimFloat(value float64) string {
	formatted := fmt.Sprintf("%.3f", value)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")
	if formatted == "" || formatted == "-" {
		return "0"
	}
	return formatted
}
