package editconfig

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// InvariantViolation reports the specific rule a config value breaks. Field is
// a dotted path into the document so callers can surface the exact location.
type InvariantViolation struct {
	Field  string
	Reason string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("schema invariant violation at %s: %s", v.Field, v.Reason)
}

func violation(field, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Field: field, Reason: fmt.Sprintf(format, args...)}
}

const (
	minFontSize = 1
	maxFontSize = 500
)

// Validate checks the whole document for self-consistency. It is run once
// after a patch has been fully applied, never per-operation, so compound
// edits that are only collectively consistent can succeed.
func (c *Config) Validate() error {
	if c == nil {
		return violation("", "config is nil")
	}
	if !VersionSupported(c.SchemaVersion) {
		return violation("schemaVersion", "unsupported version %q (supported: %s)", c.SchemaVersion, strings.Join(SupportedVersions, ", "))
	}
	if c.DurationSeconds <= 0 {
		return violation("durationSeconds", "must be positive, got %g", c.DurationSeconds)
	}
	if strings.TrimSpace(c.Source.URL) == "" {
		return violation("source.url", "must not be empty")
	}
	if c.Source.Width <= 0 || c.Source.Height <= 0 {
		return violation("source", "dimensions must be positive, got %dx%d", c.Source.Width, c.Source.Height)
	}
	if err := c.validateVideoAnimation(); err != nil {
		return err
	}
	if err := c.validateStyle(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateHighlights(); err != nil {
		return err
	}
	return c.validateExport()
}

func (c *Config) validateVideoAnimation() error {
	anim := c.VideoAnimation
	if anim == nil {
		return nil
	}
	if anim.PresetID != "" && !ValidPreset(AnimationVideo, anim.PresetID) {
		return violation("videoAnimation.presetId", "unknown video animation preset %q", anim.PresetID)
	}
	if err := c.validateFade("videoAnimation.fadeIn", anim.FadeIn); err != nil {
		return err
	}
	return c.validateFade("videoAnimation.fadeOut", anim.FadeOut)
}

func (c *Config) validateFade(field string, fade *Fade) error {
	if fade == nil {
		return nil
	}
	if fade.StartSeconds < 0 {
		return violation(field, "start must be >= 0, got %g", fade.StartSeconds)
	}
	if fade.DurationSeconds < 0 {
		return violation(field, "duration must be >= 0, got %g", fade.DurationSeconds)
	}
	if end := fade.StartSeconds + fade.DurationSeconds; end > c.DurationSeconds {
		return violation(field, "fade window ends at %g, beyond video duration %g", end, c.DurationSeconds)
	}
	return nil
}

func (c *Config) validateStyle() error {
	style := c.TextTrack.GlobalStyle
	if style.FontSize < minFontSize || style.FontSize > maxFontSize {
		return violation("textTrack.globalStyle.fontSize", "must be within [%d, %d], got %d", minFontSize, maxFontSize, style.FontSize)
	}
	if !validColor(style.Color) {
		return violation("textTrack.globalStyle.color", "invalid color value %q", style.Color)
	}
	if c.TextTrack.HighlightStyle.Color != "" && !validColor(c.TextTrack.HighlightStyle.Color) {
		return violation("textTrack.highlightStyle.color", "invalid color value %q", c.TextTrack.HighlightStyle.Color)
	}
	if scale := c.TextTrack.HighlightStyle.Scale; scale < 0 || scale > 10 {
		return violation("textTrack.highlightStyle.scale", "must be within [0, 10], got %g", scale)
	}
	anim := c.TextTrack.Animation
	for _, check := range []struct {
		field string
		kind  AnimationKind
		ref   AnimationRef
	}{
		{"textTrack.animation.entry", AnimationEntry, anim.Entry},
		{"textTrack.animation.exit", AnimationExit, anim.Exit},
		{"textTrack.animation.highlight", AnimationHighlight, anim.Highlight},
	} {
		if check.ref.PresetID != "" && !ValidPreset(check.kind, check.ref.PresetID) {
			return violation(check.field+".presetId", "unknown %s animation preset %q", check.kind, check.ref.PresetID)
		}
		if check.ref.Duration < 0 {
			return violation(check.field+".duration", "must be >= 0, got %g", check.ref.Duration)
		}
	}
	return nil
}

func (c *Config) validateCaptions() error {
	seen := make(map[string]struct{}, len(c.TextTrack.Captions))
	var prev *Caption
	for i := range c.TextTrack.Captions {
		caption := &c.TextTrack.Captions[i]
		field := fmt.Sprintf("textTrack.captions[%d]", i)
		if strings.TrimSpace(caption.ID) == "" {
			return violation(field+".id", "must not be empty")
		}
		if _, dup := seen[caption.ID]; dup {
			return violation(field+".id", "duplicate caption id %q", caption.ID)
		}
		seen[caption.ID] = struct{}{}
		if strings.TrimSpace(caption.Text) == "" {
			return violation(field+".text", "must not be empty")
		}
		if caption.StartSeconds < 0 {
			return violation(field+".start", "must be >= 0, got %g", caption.StartSeconds)
		}
		if caption.EndSeconds <= caption.StartSeconds {
			return violation(field+".end", "end %g must be after start %g", caption.EndSeconds, caption.StartSeconds)
		}
		if prev != nil {
			if caption.StartSeconds < prev.StartSeconds {
				return violation(field+".start", "captions out of order: %q starts before %q", caption.ID, prev.ID)
			}
			if caption.StartSeconds < prev.EndSeconds {
				return violation(field+".start", "caption %q overlaps %q", caption.ID, prev.ID)
			}
		}
		if caption.Style != nil && caption.Style.FontSize != 0 {
			if caption.Style.FontSize < minFontSize || caption.Style.FontSize > maxFontSize {
				return violation(field+".style.fontSize", "must be within [%d, %d], got %d", minFontSize, maxFontSize, caption.Style.FontSize)
			}
		}
		prev = caption
	}
	return nil
}

func (c *Config) validateHighlights() error {
	captionsByID := make(map[string]*Caption, len(c.TextTrack.Captions))
	for i := range c.TextTrack.Captions {
		captionsByID[c.TextTrack.Captions[i].ID] = &c.TextTrack.Captions[i]
	}
	for i, highlight := range c.TextTrack.Highlights {
		field := fmt.Sprintf("textTrack.highlights[%d]", i)
		caption, ok := captionsByID[highlight.CaptionID]
		if !ok {
			return violation(field+".captionId", "references unknown caption %q", highlight.CaptionID)
		}
		if highlight.StartOffset < 0 || highlight.EndOffset <= highlight.StartOffset {
			return violation(field, "offset range [%d, %d) is not a valid span", highlight.StartOffset, highlight.EndOffset)
		}
		// Offsets index characters, not bytes.
		if length := utf8.RuneCountInString(caption.Text); highlight.EndOffset > length {
			return violation(field+".endOffset", "offset %d exceeds caption %q text length %d", highlight.EndOffset, highlight.CaptionID, length)
		}
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Resolution {
	case "", "original", "1080p", "720p", "480p":
	default:
		return violation("export.resolution", "unsupported resolution %q", c.Export.Resolution)
	}
	switch c.Export.Quality {
	case "", "high", "medium", "low":
	default:
		return violation("export.quality", "unsupported quality %q", c.Export.Quality)
	}
	switch c.Export.Format {
	case "", "mp4", "webm":
	default:
		return violation("export.format", "unsupported format %q", c.Export.Format)
	}
	return nil
}

// validColor accepts #RGB/#RRGGBB hex values and rgba(...) expressions.
func validColor(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if strings.HasPrefix(value, "#") {
		hex := value[1:]
		if len(hex) != 3 && len(hex) != 6 {
			return false
		}
		for _, r := range hex {
			switch {
			case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			default:
				return false
			}
		}
		return true
	}
	return strings.HasPrefix(value, "rgba(") && strings.HasSuffix(value, ")")
}
