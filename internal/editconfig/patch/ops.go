package patch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"clipforge/internal/editconfig"
)

// Kind names a patch operation. The set is closed: decoding rejects unknown
// kinds so the validation surface stays finite even for model-generated input.
type Kind string

const (
	KindSetGlobalStyle       Kind = "set_global_style"
	KindSetHighlightStyle    Kind = "set_highlight_style"
	KindSetPosition          Kind = "set_position"
	KindSetTextAnimation     Kind = "set_text_animation"
	KindSetVideoAnimation    Kind = "set_video_animation"
	KindSetVideoFade         Kind = "set_video_fade"
	KindAddCaption           Kind = "add_caption"
	KindUpdateCaption        Kind = "update_caption"
	KindRemoveCaption        Kind = "remove_caption"
	KindRemoveCaptionsInSpan Kind = "remove_captions_in_span"
	KindAddHighlights        Kind = "add_highlights"
	KindRemoveHighlights     Kind = "remove_highlights"
	KindReplaceHighlights    Kind = "replace_highlights"
	KindMigrateVersion       Kind = "migrate_version"
)

// GlobalStyleProps carries sparse global style mutations; nil fields are untouched.
type GlobalStyleProps struct {
	FontFamily   *string `json:"fontFamily,omitempty"`
	FontSize     *int    `json:"fontSize,omitempty"`
	FontWeight   *int    `json:"fontWeight,omitempty"`
	Color        *string `json:"color,omitempty"`
	Background   *string `json:"background,omitempty"`
	BorderRadius *int    `json:"borderRadius,omitempty"`
}

// HighlightStyleProps carries sparse highlight style mutations.
type HighlightStyleProps struct {
	Color      *string  `json:"color,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`
	FontWeight *int     `json:"fontWeight,omitempty"`
}

// PositionProps carries sparse caption position mutations.
type PositionProps struct {
	Anchor  *string `json:"anchor,omitempty"`
	OffsetY *int    `json:"offsetY,omitempty"`
}

// TextAnimationOp retargets one of the caption animation slots.
type TextAnimationOp struct {
	Target   string   `json:"target"`
	PresetID string   `json:"presetId"`
	Duration *float64 `json:"duration,omitempty"`
}

// VideoAnimationOp swaps the whole-track animation preset.
type VideoAnimationOp struct {
	PresetID string `json:"presetId"`
}

// VideoFadeOp enables, disables, or retimes a fade window.
type VideoFadeOp struct {
	Fade     string   `json:"fade"`
	Enabled  *bool    `json:"enabled,omitempty"`
	Start    *float64 `json:"start,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// CaptionUpdateOp carries sparse mutations for one caption.
type CaptionUpdateOp struct {
	ID    string                    `json:"id"`
	Text  *string                   `json:"text,omitempty"`
	Start *float64                  `json:"start,omitempty"`
	End   *float64                  `json:"end,omitempty"`
	Style *editconfig.StyleOverride `json:"style,omitempty"`
}

// CaptionRemoveOp removes one caption by id.
type CaptionRemoveOp struct {
	ID string `json:"id"`
}

// SpanOp selects captions whose span intersects [start, end].
type SpanOp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// HighlightsOp carries highlight additions or replacements.
type HighlightsOp struct {
	Highlights []editconfig.Highlight `json:"highlights"`
}

// RemoveHighlightsOp removes every highlight referencing the given captions.
type RemoveHighlightsOp struct {
	CaptionIDs []string `json:"captionIds"`
}

// MigrateVersionOp requests an explicit schema version bump.
type MigrateVersionOp struct {
	To string `json:"to"`
}

// Operation is one tagged mutation. Exactly one payload field is set,
// determined by Kind.
type Operation struct {
	Kind Kind

	GlobalStyle    *GlobalStyleProps
	HighlightStyle *HighlightStyleProps
	Position       *PositionProps
	TextAnimation  *TextAnimationOp
	VideoAnimation *VideoAnimationOp
	VideoFade      *VideoFadeOp
	AddCaption     *editconfig.Caption
	UpdateCaption  *CaptionUpdateOp
	RemoveCaption  *CaptionRemoveOp
	RemoveSpan     *SpanOp
	Highlights     *HighlightsOp
	RemoveHl       *RemoveHighlightsOp
	Migrate        *MigrateVersionOp
}

// Patch is an ordered list of operations applied atomically.
type Patch struct {
	Operations []Operation `json:"operations"`
}

type rawOperation struct {
	Op      Kind            `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes a tagged operation, rejecting unknown kinds and
// unknown payload fields.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var raw rawOperation
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("decode operation: %w", err)
	}
	if raw.Op == "" {
		return fmt.Errorf("operation missing op field")
	}

	o.Kind = raw.Op
	target, err := o.payloadTarget()
	if err != nil {
		return err
	}
	if len(raw.Payload) == 0 {
		return fmt.Errorf("operation %q missing payload", raw.Op)
	}
	payloadDecoder := json.NewDecoder(bytes.NewReader(raw.Payload))
	payloadDecoder.DisallowUnknownFields()
	if err := payloadDecoder.Decode(target); err != nil {
		return fmt.Errorf("operation %q payload: %w", raw.Op, err)
	}
	return nil
}

// MarshalJSON encodes the operation back into its tagged wire shape.
func (o Operation) MarshalJSON() ([]byte, error) {
	target, err := o.payloadTarget()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawOperation{Op: o.Kind, Payload: payload})
}

func (o *Operation) payloadTarget() (any, error) {
	switch o.Kind {
	case KindSetGlobalStyle:
		if o.GlobalStyle == nil {
			o.GlobalStyle = &GlobalStyleProps{}
		}
		return o.GlobalStyle, nil
	case KindSetHighlightStyle:
		if o.HighlightStyle == nil {
			o.HighlightStyle = &HighlightStyleProps{}
		}
		return o.HighlightStyle, nil
	case KindSetPosition:
		if o.Position == nil {
			o.Position = &PositionProps{}
		}
		return o.Position, nil
	case KindSetTextAnimation:
		if o.TextAnimation == nil {
			o.TextAnimation = &TextAnimationOp{}
		}
		return o.TextAnimation, nil
	case KindSetVideoAnimation:
		if o.VideoAnimation == nil {
			o.VideoAnimation = &VideoAnimationOp{}
		}
		return o.VideoAnimation, nil
	case KindSetVideoFade:
		if o.VideoFade == nil {
			o.VideoFade = &VideoFadeOp{}
		}
		return o.VideoFade, nil
	case KindAddCaption:
		if o.AddCaption == nil {
			o.AddCaption = &editconfig.Caption{}
		}
		return o.AddCaption, nil
	case KindUpdateCaption:
		if o.UpdateCaption == nil {
			o.UpdateCaption = &CaptionUpdateOp{}
		}
		return o.UpdateCaption, nil
	case KindRemoveCaption:
		if o.RemoveCaption == nil {
			o.RemoveCaption = &CaptionRemoveOp{}
		}
		return o.RemoveCaption, nil
	case KindRemoveCaptionsInSpan:
		if o.RemoveSpan == nil {
			o.RemoveSpan = &SpanOp{}
		}
		return o.RemoveSpan, nil
	case KindAddHighlights, KindReplaceHighlights:
		if o.Highlights == nil {
			o.Highlights = &HighlightsOp{}
		}
		return o.Highlights, nil
	case KindRemoveHighlights:
		if o.RemoveHl == nil {
			o.RemoveHl = &RemoveHighlightsOp{}
		}
		return o.RemoveHl, nil
	case KindMigrateVersion:
		if o.Migrate == nil {
			o.Migrate = &MigrateVersionOp{}
		}
		return o.Migrate, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", o.Kind)
	}
}

// Decode parses a JSON patch document.
func Decode(raw []byte) (Patch, error) {
	var p Patch
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&p); err != nil {
		return Patch{}, fmt.Errorf("decode patch: %w", err)
	}
	if len(p.Operations) == 0 {
		return Patch{}, fmt.Errorf("patch contains no operations")
	}
	return p, nil
}
