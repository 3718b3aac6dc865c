package patch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"clipforge/internal/editconfig"
)

// Apply produces a new config with the patch applied, or an error and the
// original untouched. Application is all-or-nothing: every operation must
// apply cleanly and the final document must pass Validate, otherwise nothing
// is kept. UpdatedAt is bumped only on acceptance; the schema version changes
// only through an explicit migrate_version operation.
func Apply(current *editconfig.Config, p Patch, now time.Time) (*editconfig.Config, error) {
	if current == nil {
		return nil, fmt.Errorf("no config to patch")
	}
	if len(p.Operations) == 0 {
		return nil, fmt.Errorf("patch contains no operations")
	}

	working := current.Clone()
	for i, op := range p.Operations {
		if err := applyOperation(working, op); err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Kind, err)
		}
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}
	working.UpdatedAt = now.UTC()
	return working, nil
}

func applyOperation(cfg *editconfig.Config, op Operation) error {
	switch op.Kind {
	case KindSetGlobalStyle:
		return applyGlobalStyle(cfg, op.GlobalStyle)
	case KindSetHighlightStyle:
		return applyHighlightStyle(cfg, op.HighlightStyle)
	case KindSetPosition:
		return applyPosition(cfg, op.Position)
	case KindSetTextAnimation:
		return applyTextAnimation(cfg, op.TextAnimation)
	case KindSetVideoAnimation:
		return applyVideoAnimation(cfg, op.VideoAnimation)
	case KindSetVideoFade:
		return applyVideoFade(cfg, op.VideoFade)
	case KindAddCaption:
		return applyAddCaption(cfg, op.AddCaption)
	case KindUpdateCaption:
		return applyUpdateCaption(cfg, op.UpdateCaption)
	case KindRemoveCaption:
		return applyRemoveCaption(cfg, op.RemoveCaption)
	case KindRemoveCaptionsInSpan:
		return applyRemoveSpan(cfg, op.RemoveSpan)
	case KindAddHighlights:
		return applyAddHighlights(cfg, op.Highlights)
	case KindRemoveHighlights:
		return applyRemoveHighlights(cfg, op.RemoveHl)
	case KindReplaceHighlights:
		return applyReplaceHighlights(cfg, op.Highlights)
	case KindMigrateVersion:
		return applyMigrate(cfg, op.Migrate)
	default:
		return fmt.Errorf("unknown operation")
	}
}

func applyGlobalStyle(cfg *editconfig.Config, props *GlobalStyleProps) error {
	if props == nil {
		return fmt.Errorf("missing payload")
	}
	style := &cfg.TextTrack.GlobalStyle
	if props.FontFamily != nil {
		style.FontFamily = *props.FontFamily
	}
	if props.FontSize != nil {
		style.FontSize = *props.FontSize
	}
	if props.FontWeight != nil {
		style.FontWeight = *props.FontWeight
	}
	if props.Color != nil {
		style.Color = *props.Color
	}
	if props.Background != nil {
		style.Background = *props.Background
	}
	if props.BorderRadius != nil {
		style.BorderRadius = *props.BorderRadius
	}
	return nil
}

func applyHighlightStyle(cfg *editconfig.Config, props *HighlightStyleProps) error {
	if props == nil {
		return fmt.Errorf("missing payload")
	}
	style := &cfg.TextTrack.HighlightStyle
	if props.Color != nil {
		style.Color = *props.Color
	}
	if props.Scale != nil {
		style.Scale = *props.Scale
	}
	if props.FontWeight != nil {
		style.FontWeight = *props.FontWeight
	}
	return nil
}

func applyPosition(cfg *editconfig.Config, props *PositionProps) error {
	if props == nil {
		return fmt.Errorf("missing payload")
	}
	position := &cfg.TextTrack.GlobalStyle.Position
	if props.Anchor != nil {
		switch *props.Anchor {
		case "bottom_center", "top_center", "center":
			position.Anchor = *props.Anchor
		default:
			return fmt.Errorf("unknown anchor %q", *props.Anchor)
		}
	}
	if props.OffsetY != nil {
		position.OffsetY = *props.OffsetY
	}
	return nil
}

func applyTextAnimation(cfg *editconfig.Config, op *TextAnimationOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	var slot *editconfig.AnimationRef
	var kind editconfig.AnimationKind
	switch op.Target {
	case "entry":
		slot, kind = &cfg.TextTrack.Animation.Entry, editconfig.AnimationEntry
	case "exit":
		slot, kind = &cfg.TextTrack.Animation.Exit, editconfig.AnimationExit
	case "highlight":
		slot, kind = &cfg.TextTrack.Animation.Highlight, editconfig.AnimationHighlight
	default:
		return fmt.Errorf("unknown animation target %q", op.Target)
	}
	if !editconfig.ValidPreset(kind, op.PresetID) {
		return fmt.Errorf("unknown %s preset %q", kind, op.PresetID)
	}
	slot.PresetID = op.PresetID
	if op.Duration != nil {
		slot.Duration = *op.Duration
	}
	return nil
}

func applyVideoAnimation(cfg *editconfig.Config, op *VideoAnimationOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	if !editconfig.ValidPreset(editconfig.AnimationVideo, op.PresetID) {
		return fmt.Errorf("unknown video preset %q", op.PresetID)
	}
	if cfg.VideoAnimation == nil {
		cfg.VideoAnimation = &editconfig.VideoAnimation{}
	}
	cfg.VideoAnimation.PresetID = op.PresetID
	return nil
}

func applyVideoFade(cfg *editconfig.Config, op *VideoFadeOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	if op.Fade != "fadeIn" && op.Fade != "fadeOut" {
		return fmt.Errorf("unknown fade %q", op.Fade)
	}
	if cfg.VideoAnimation == nil {
		cfg.VideoAnimation = &editconfig.VideoAnimation{}
	}
	slot := &cfg.VideoAnimation.FadeIn
	if op.Fade == "fadeOut" {
		slot = &cfg.VideoAnimation.FadeOut
	}

	if op.Enabled != nil && !*op.Enabled {
		*slot = nil
		return nil
	}
	if *slot == nil {
		// Enabling a fade seeds the same defaults a fresh project gets.
		if op.Fade == "fadeIn" {
			*slot = &editconfig.Fade{StartSeconds: 0, DurationSeconds: 0.8}
		} else {
			start := cfg.DurationSeconds - 2.0
			if start < 0 {
				start = 0
			}
			*slot = &editconfig.Fade{StartSeconds: start, DurationSeconds: 2.0}
		}
	}
	if op.Start != nil {
		(*slot).StartSeconds = *op.Start
	}
	if op.Duration != nil {
		(*slot).DurationSeconds = *op.Duration
	}
	return nil
}

func applyAddCaption(cfg *editconfig.Config, caption *editconfig.Caption) error {
	if caption == nil {
		return fmt.Errorf("missing payload")
	}
	if strings.TrimSpace(caption.ID) == "" {
		return fmt.Errorf("caption id required")
	}
	for _, existing := range cfg.TextTrack.Captions {
		if existing.ID == caption.ID {
			return fmt.Errorf("caption %q already exists", caption.ID)
		}
	}
	cfg.TextTrack.Captions = append(cfg.TextTrack.Captions, *caption)
	sort.SliceStable(cfg.TextTrack.Captions, func(i, j int) bool {
		return cfg.TextTrack.Captions[i].StartSeconds < cfg.TextTrack.Captions[j].StartSeconds
	})
	return nil
}

func applyUpdateCaption(cfg *editconfig.Config, op *CaptionUpdateOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	caption := findCaption(cfg, op.ID)
	if caption == nil {
		return fmt.Errorf("caption %q not found", op.ID)
	}
	if op.Text != nil {
		caption.Text = *op.Text
	}
	if op.Start != nil {
		caption.StartSeconds = *op.Start
	}
	if op.End != nil {
		caption.EndSeconds = *op.End
	}
	if op.Style != nil {
		style := *op.Style
		caption.Style = &style
	}
	if op.Start != nil || op.End != nil {
		sort.SliceStable(cfg.TextTrack.Captions, func(i, j int) bool {
			return cfg.TextTrack.Captions[i].StartSeconds < cfg.TextTrack.Captions[j].StartSeconds
		})
	}
	return nil
}

func applyRemoveCaption(cfg *editconfig.Config, op *CaptionRemoveOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	kept := cfg.TextTrack.Captions[:0]
	found := false
	for _, caption := range cfg.TextTrack.Captions {
		if caption.ID == op.ID {
			found = true
			continue
		}
		kept = append(kept, caption)
	}
	if !found {
		return fmt.Errorf("caption %q not found", op.ID)
	}
	cfg.TextTrack.Captions = kept
	dropHighlightsFor(cfg, map[string]struct{}{op.ID: {}})
	return nil
}

func applyRemoveSpan(cfg *editconfig.Config, op *SpanOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	if op.End < op.Start {
		return fmt.Errorf("span end %g before start %g", op.End, op.Start)
	}
	removed := make(map[string]struct{})
	kept := cfg.TextTrack.Captions[:0]
	for _, caption := range cfg.TextTrack.Captions {
		if caption.StartSeconds < op.End && caption.EndSeconds > op.Start {
			removed[caption.ID] = struct{}{}
			continue
		}
		kept = append(kept, caption)
	}
	cfg.TextTrack.Captions = kept
	dropHighlightsFor(cfg, removed)
	return nil
}

func applyAddHighlights(cfg *editconfig.Config, op *HighlightsOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	cfg.TextTrack.Highlights = append(cfg.TextTrack.Highlights, op.Highlights...)
	return nil
}

func applyRemoveHighlights(cfg *editconfig.Config, op *RemoveHighlightsOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	drop := make(map[string]struct{}, len(op.CaptionIDs))
	for _, id := range op.CaptionIDs {
		drop[id] = struct{}{}
	}
	dropHighlightsFor(cfg, drop)
	return nil
}

func applyReplaceHighlights(cfg *editconfig.Config, op *HighlightsOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	cfg.TextTrack.Highlights = append([]editconfig.Highlight(nil), op.Highlights...)
	return nil
}

func applyMigrate(cfg *editconfig.Config, op *MigrateVersionOp) error {
	if op == nil {
		return fmt.Errorf("missing payload")
	}
	if !editconfig.VersionSupported(op.To) {
		return fmt.Errorf("unsupported target version %q", op.To)
	}
	cfg.SchemaVersion = op.To
	return nil
}

func findCaption(cfg *editconfig.Config, id string) *editconfig.Caption {
	for i := range cfg.TextTrack.Captions {
		if cfg.TextTrack.Captions[i].ID == id {
			return &cfg.TextTrack.Captions[i]
		}
	}
	return nil
}

func dropHighlightsFor(cfg *editconfig.Config, captionIDs map[string]struct{}) {
	if len(captionIDs) == 0 {
		return
	}
	kept := cfg.TextTrack.Highlights[:0]
	for _, highlight := range cfg.TextTrack.Highlights {
		if _, drop := captionIDs[highlight.CaptionID]; drop {
			continue
		}
		kept = append(kept, highlight)
	}
	cfg.TextTrack.Highlights = kept
}
