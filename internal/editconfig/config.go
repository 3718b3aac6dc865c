package editconfig

import (
	"encoding/json"
	"fmt"
	"time"
)

// SupportedVersions lists the schema versions this build can load and patch.
var SupportedVersions = []string{"1.0", "1.1"}

// CurrentVersion is the schema version stamped on newly created configs.
const CurrentVersion = "1.1"

// Config is the versioned edit configuration for one project. It is a pure
// value type; mutation goes through the patch package so every accepted state
// has passed Validate.
type Config struct {
	SchemaVersion   string          `json:"schemaVersion"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DurationSeconds float64         `json:"durationSeconds"`
	Source          SourceVideo     `json:"source"`
	VideoAnimation  *VideoAnimation `json:"videoAnimation,omitempty"`
	TextTrack       TextTrack       `json:"textTrack"`
	Export          ExportSettings  `json:"export"`
}

// SourceVideo describes the immutable source material.
type SourceVideo struct {
	URL         string  `json:"url"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio string  `json:"aspectRatio"`
	Duration    float64 `json:"duration"`
}

// Fade is a fade window on the video track.
type Fade struct {
	StartSeconds    float64 `json:"start"`
	DurationSeconds float64 `json:"duration"`
}

// VideoAnimation holds whole-track effects.
type VideoAnimation struct {
	PresetID string `json:"presetId,omitempty"`
	FadeIn   *Fade  `json:"fadeIn,omitempty"`
	FadeOut  *Fade  `json:"fadeOut,omitempty"`
}

// Position anchors the caption block on screen.
type Position struct {
	Anchor  string `json:"anchor"`
	OffsetY int    `json:"offsetY"`
}

// GlobalStyle is the caption style applied to every caption unless overridden.
type GlobalStyle struct {
	FontFamily   string   `json:"fontFamily"`
	FontSize     int      `json:"fontSize"`
	FontWeight   int      `json:"fontWeight,omitempty"`
	Color        string   `json:"color"`
	Background   string   `json:"background,omitempty"`
	Padding      []int    `json:"padding,omitempty"`
	BorderRadius int      `json:"borderRadius,omitempty"`
	Position     Position `json:"position"`
}

// HighlightStyle is the emphasis style for highlighted sub-spans.
type HighlightStyle struct {
	Color      string  `json:"color"`
	Scale      float64 `json:"scale,omitempty"`
	FontWeight int     `json:"fontWeight,omitempty"`
}

// TextAnimation selects presets for caption entry, exit, and highlight pulses.
type TextAnimation struct {
	Entry     AnimationRef `json:"entry"`
	Exit      AnimationRef `json:"exit"`
	Highlight AnimationRef `json:"highlight"`
}

// AnimationRef names a preset and its duration.
type AnimationRef struct {
	PresetID string  `json:"presetId"`
	Duration float64 `json:"duration"`
}

// StyleOverride carries optional per-caption style deviations.
type StyleOverride struct {
	Color    string `json:"color,omitempty"`
	FontSize int    `json:"fontSize,omitempty"`
	Bold     bool   `json:"bold,omitempty"`
}

// Caption is one timed text span.
type Caption struct {
	ID           string         `json:"id"`
	Text         string         `json:"text"`
	StartSeconds float64        `json:"start"`
	EndSeconds   float64        `json:"end"`
	Style        *StyleOverride `json:"style,omitempty"`
}

// Highlight references an emphasized character range inside a caption.
type Highlight struct {
	CaptionID   string `json:"captionId"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

// TextTrack groups everything caption-related.
type TextTrack struct {
	GlobalStyle    GlobalStyle    `json:"globalStyle"`
	HighlightStyle HighlightStyle `json:"highlightStyle"`
	Animation      TextAnimation  `json:"animation"`
	Captions       []Caption      `json:"captions"`
	Highlights     []Highlight    `json:"highlights"`
}

// ExportSettings selects output parameters for the render.
type ExportSettings struct {
	Resolution   string `json:"resolution"`
	Quality      string `json:"quality"`
	Format       string `json:"format"`
	BurnCaptions bool   `json:"burnCaptions"`
}

// NewFromSource builds a config seeded with the defaults a fresh project
// receives before any edits: gentle fade-in, two second fade-out ending at
// the video's end, and the standard caption styling.
func NewFromSource(source SourceVideo, now time.Time) *Config {
	fadeOutStart := source.Duration - 2.0
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	return &Config{
		SchemaVersion:   CurrentVersion,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
		DurationSeconds: source.Duration,
		Source:          source,
		VideoAnimation: &VideoAnimation{
			PresetID: "fade_in_out",
			FadeIn:   &Fade{StartSeconds: 0, DurationSeconds: 0.8},
			FadeOut:  &Fade{StartSeconds: fadeOutStart, DurationSeconds: 2.0},
		},
		TextTrack: TextTrack{
			GlobalStyle: GlobalStyle{
				FontFamily:   "Inter",
				FontSize:     14,
				FontWeight:   700,
				Color:        "#ffffff",
				Background:   "rgba(0,0,0,0.45)",
				Padding:      []int{12, 16},
				BorderRadius: 12,
				Position:     Position{Anchor: "bottom_center", OffsetY: -50},
			},
			HighlightStyle: HighlightStyle{Color: "#ffff00", Scale: 1.1, FontWeight: 800},
			Animation: TextAnimation{
				Entry:     AnimationRef{PresetID: "slide_up_fade", Duration: 0.2},
				Exit:      AnimationRef{PresetID: "fade_out", Duration: 0.2},
				Highlight: AnimationRef{PresetID: "none", Duration: 0.4},
			},
		},
		Export: ExportSettings{
			Resolution:   "original",
			Quality:      "high",
			Format:       "mp4",
			BurnCaptions: true,
		},
	}
}

// Clone returns a deep copy. Patches operate on clones so a rejected patch
// never leaves partial mutation behind.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if c.VideoAnimation != nil {
		anim := *c.VideoAnimation
		if c.VideoAnimation.FadeIn != nil {
			fadeIn := *c.VideoAnimation.FadeIn
			anim.FadeIn = &fadeIn
		}
		if c.VideoAnimation.FadeOut != nil {
			fadeOut := *c.VideoAnimation.FadeOut
			anim.FadeOut = &fadeOut
		}
		cp.VideoAnimation = &anim
	}
	cp.TextTrack.GlobalStyle.Padding = append([]int(nil), c.TextTrack.GlobalStyle.Padding...)
	cp.TextTrack.Captions = make([]Caption, len(c.TextTrack.Captions))
	for i, caption := range c.TextTrack.Captions {
		cp.TextTrack.Captions[i] = caption
		if caption.Style != nil {
			style := *caption.Style
			cp.TextTrack.Captions[i].Style = &style
		}
	}
	cp.TextTrack.Highlights = append([]Highlight(nil), c.TextTrack.Highlights...)
	return &cp
}

// Marshal serializes the config for persistence.
func (c *Config) Marshal() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(raw), nil
}

// Unmarshal parses a persisted config document.
func Unmarshal(raw string) (*Config, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty config document")
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// VersionSupported reports whether this build understands the given schema version.
func VersionSupported(version string) bool {
	for _, candidate := range SupportedVersions {
		if candidate == version {
			return true
		}
	}
	return false
}
