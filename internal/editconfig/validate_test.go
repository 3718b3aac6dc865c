package editconfig_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"clipforge/internal/editconfig"
)

func validConfig(t *testing.T) *editconfig.Config {
	t.Helper()
	cfg := editconfig.NewFromSource(testSource(), time.Now())
	cfg.TextTrack.Captions = []editconfig.Caption{
		{ID: "c1", Text: "hello world", StartSeconds: 1, EndSeconds: 3},
		{ID: "c2", Text: "second line", StartSeconds: 4, EndSeconds: 6},
	}
	cfg.TextTrack.Highlights = []editconfig.Highlight{
		{CaptionID: "c1", StartOffset: 6, EndOffset: 11},
	}
	return cfg
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateHighlightOffsetsCountRunes(t *testing.T) {
	cfg := validConfig(t)
	cfg.TextTrack.Captions[0].Text = "héllo"
	cfg.TextTrack.Highlights = []editconfig.Highlight{
		{CaptionID: "c1", StartOffset: 0, EndOffset: 5},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("offset 5 covers all five characters, got %v", err)
	}

	cfg.TextTrack.Highlights[0].EndOffset = 6
	var violation *editconfig.InvariantViolation
	if err := cfg.Validate(); !errors.As(err, &violation) {
		t.Fatalf("expected violation past the last character, got %v", err)
	} else if !strings.Contains(violation.Field, "endOffset") {
		t.Fatalf("unexpected field %q", violation.Field)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*editconfig.Config)
		wantField string
	}{
		{
			name:      "unsupported version",
			mutate:    func(c *editconfig.Config) { c.SchemaVersion = "9.9" },
			wantField: "schemaVersion",
		},
		{
			name:      "nonpositive duration",
			mutate:    func(c *editconfig.Config) { c.DurationSeconds = 0 },
			wantField: "durationSeconds",
		},
		{
			name:      "missing source url",
			mutate:    func(c *editconfig.Config) { c.Source.URL = " " },
			wantField: "source.url",
		},
		{
			name:      "fade beyond duration",
			mutate:    func(c *editconfig.Config) { c.VideoAnimation.FadeOut.DurationSeconds = 10 },
			wantField: "videoAnimation.fadeOut",
		},
		{
			name:      "unknown video preset",
			mutate:    func(c *editconfig.Config) { c.VideoAnimation.PresetID = "spin" },
			wantField: "videoAnimation.presetId",
		},
		{
			name:      "font size out of range",
			mutate:    func(c *editconfig.Config) { c.TextTrack.GlobalStyle.FontSize = 9000 },
			wantField: "globalStyle.fontSize",
		},
		{
			name:      "invalid color",
			mutate:    func(c *editconfig.Config) { c.TextTrack.GlobalStyle.Color = "red" },
			wantField: "globalStyle.color",
		},
		{
			name:      "unknown entry preset",
			mutate:    func(c *editconfig.Config) { c.TextTrack.Animation.Entry.PresetID = "teleport" },
			wantField: "animation.entry.presetId",
		},
		{
			name: "duplicate caption ids",
			mutate: func(c *editconfig.Config) {
				c.TextTrack.Captions[1].ID = "c1"
				c.TextTrack.Highlights = nil
			},
			wantField: "captions[1].id",
		},
		{
			name:      "caption end before start",
			mutate:    func(c *editconfig.Config) { c.TextTrack.Captions[0].EndSeconds = 0.5 },
			wantField: "captions[0].end",
		},
		{
			name:      "overlapping captions",
			mutate:    func(c *editconfig.Config) { c.TextTrack.Captions[1].StartSeconds = 2 },
			wantField: "captions[1].start",
		},
		{
			name: "highlight references unknown caption",
			mutate: func(c *editconfig.Config) {
				c.TextTrack.Highlights[0].CaptionID = "ghost"
			},
			wantField: "highlights[0].captionId",
		},
		{
			name: "highlight offset beyond text",
			mutate: func(c *editconfig.Config) {
				c.TextTrack.Highlights[0].EndOffset = 99
			},
			wantField: "highlights[0].endOffset",
		},
		{
			name:      "unsupported resolution",
			mutate:    func(c *editconfig.Config) { c.Export.Resolution = "8k" },
			wantField: "export.resolution",
		},
		{
			name:      "unsupported quality",
			mutate:    func(c *editconfig.Config) { c.Export.Quality = "lossless" },
			wantField: "export.quality",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var violation *editconfig.InvariantViolation
			if !errors.As(err, &violation) {
				t.Fatalf("expected InvariantViolation, got %T: %v", err, err)
			}
			if !strings.Contains(violation.Field, tc.wantField) {
				t.Fatalf("expected field containing %q, got %q", tc.wantField, violation.Field)
			}
		})
	}
}
