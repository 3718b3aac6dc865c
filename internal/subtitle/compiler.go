package subtitle

import (
	"fmt"
	"math"
	"strings"

	"clipforge/internal/editconfig"
)

// Warning records a style or animation the target format cannot express
// exactly. Compilation never fails on these; it degrades to the nearest
// supported rendering and reports the gap.
type Warning struct {
	Field   string
	Message string
}

// Document is a compiled ASS subtitle track ready to hand to the renderer.
type Document struct {
	Content []byte
}

// Empty reports whether the document carries no caption events.
func (d Document) Empty() bool {
	return len(d.Content) == 0
}

// Compile deterministically transforms the text track into an ASS document.
// Identical configs produce byte-identical output; nothing time- or
// map-ordering-dependent is written.
func Compile(cfg *editconfig.Config) (Document, []Warning) {
	if cfg == nil || len(cfg.TextTrack.Captions) == 0 {
		return Document{}, nil
	}

	var warnings []Warning
	var b strings.Builder

	style := cfg.TextTrack.GlobalStyle
	primary := assColor(style.Color, "&H00FFFFFF")
	back, backWarn := assBackColor(style.Background)
	if backWarn != "" {
		warnings = append(warnings, Warning{Field: "textTrack.globalStyle.background", Message: backWarn})
	}

	playResX, playResY := cfg.Source.Width, cfg.Source.Height
	if playResX <= 0 || playResY <= 0 {
		playResX, playResY = 1920, 1080
	}

	bold := 0
	if style.FontWeight >= 700 {
		bold = -1
	}
	alignment, marginV := assPlacement(style.Position)

	fmt.Fprintf(&b, "[Script Info]\n")
	fmt.Fprintf(&b, "Title: clipforge captions\n")
	fmt.Fprintf(&b, "ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "WrapStyle: 0\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", playResX)
	fmt.Fprintf(&b, "PlayResY: %d\n\n", playResY)

	fmt.Fprintf(&b, "[V4+ Styles]\n")
	fmt.Fprintf(&b, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,&H000000FF,&H00000000,%s,%d,0,0,0,100,100,0,0,3,%d,0,%d,10,10,%d,1\n\n",
		fontName(style.FontFamily), scaledFontSize(style.FontSize, playResY), primary, back, bold, borderWidth(style), alignment, marginV)

	fmt.Fprintf(&b, "[Events]\n")
	fmt.Fprintf(&b, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	fadeIn, fadeWarnIn := fadeMillis(cfg.TextTrack.Animation.Entry, "entry")
	if fadeWarnIn != "" {
		warnings = append(warnings, Warning{Field: "textTrack.animation.entry.presetId", Message: fadeWarnIn})
	}
	fadeOut, fadeWarnOut := fadeMillis(cfg.TextTrack.Animation.Exit, "exit")
	if fadeWarnOut != "" {
		warnings = append(warnings, Warning{Field: "textTrack.animation.exit.presetId", Message: fadeWarnOut})
	}
	if ref := cfg.TextTrack.Animation.Highlight; ref.PresetID != "" && ref.PresetID != "none" {
		warnings = append(warnings, Warning{
			Field:   "textTrack.animation.highlight.presetId",
			Message: fmt.Sprintf("preset %q has no subtitle equivalent; highlights render as static color emphasis", ref.PresetID),
		})
	}

	highlightsByCaption := groupHighlights(cfg.TextTrack.Highlights)
	highlightColor := assInlineColor(cfg.TextTrack.HighlightStyle.Color, "&HFFFF00&")
	globalInline := assInlineColor(style.Color, "&HFFFFFF&")

	for i := range cfg.TextTrack.Captions {
		caption := &cfg.TextTrack.Captions[i]
		text := renderCaptionText(caption, highlightsByCaption[caption.ID], highlightColor, globalInline, cfg.TextTrack.HighlightStyle)
		prefix := ""
		if fadeIn > 0 || fadeOut > 0 {
			prefix = fmt.Sprintf("{\\fad(%d,%d)}", fadeIn, fadeOut)
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s%s\n",
			assTime(caption.StartSeconds), assTime(caption.EndSeconds), prefix, text)
	}

	return Document{Content: []byte(b.String())}, warnings
}

// assTime formats seconds in the H:MM:SS.CC time base the renderer expects.
// Rounding happens on the total centisecond count so values like 2.50 never
// render as .49 through float truncation.
func assTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalCentis := int(math.Round(seconds * 100))
	centis := totalCentis % 100
	total := totalCentis / 100
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

// assColor converts #RRGGBB to ASS &HAABBGGRR with full opacity.
func assColor(hex, fallback string) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return fallback
	}
	return fmt.Sprintf("&H00%02X%02X%02X", b, g, r)
}

// assInlineColor converts #RRGGBB to the short inline override form &HBBGGRR&.
func assInlineColor(hex, fallback string) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return fallback
	}
	return fmt.Sprintf("&H%02X%02X%02X&", b, g, r)
}

// assBackColor converts an rgba(...) background to &HAABBGGRR. ASS alpha is
// transparency, so CSS alpha 1.0 maps to 00.
func assBackColor(background string) (string, string) {
	const fallback = "&H80000000"
	background = strings.TrimSpace(background)
	if background == "" {
		return fallback, ""
	}
	if r, g, b, ok := parseHex(background); ok {
		return fmt.Sprintf("&H00%02X%02X%02X", b, g, r), ""
	}
	var r, g, b int
	var a float64
	if _, err := fmt.Sscanf(strings.ReplaceAll(background, " ", ""), "rgba(%d,%d,%d,%f)", &r, &g, &b, &a); err != nil {
		return fallback, fmt.Sprintf("unparseable background %q; using semi-transparent black", background)
	}
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	alpha := 255 - int(a*255)
	return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, clampByte(b), clampByte(g), clampByte(r)), ""
}

func parseHex(value string) (r, g, b int, ok bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "#") {
		return 0, 0, 0, false
	}
	hex := value[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// fadeMillis maps an animation preset onto the native fade effect. Presets
// with no fade component degrade to a plain fade and report the gap.
func fadeMillis(ref editconfig.AnimationRef, kind string) (int, string) {
	if ref.PresetID == "" || ref.PresetID == "none" {
		return 0, ""
	}
	millis := int(ref.Duration * 1000)
	if millis <= 0 {
		millis = 200
	}
	if strings.Contains(ref.PresetID, "fade") {
		return millis, ""
	}
	return millis, fmt.Sprintf("preset %q is not expressible as a subtitle effect; degraded to %s fade", ref.PresetID, kind)
}

func fontName(family string) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return "Arial"
	}
	// Commas would break the style line format.
	return strings.ReplaceAll(family, ",", " ")
}

// scaledFontSize converts the client's CSS-ish point size into playfield
// pixels. The client renders captions at roughly fontSize/380ths of the
// frame height.
func scaledFontSize(fontSize, playResY int) int {
	if fontSize <= 0 {
		return 48
	}
	scaled := fontSize * playResY / 380
	if scaled < 12 {
		scaled = 12
	}
	return scaled
}

func borderWidth(style editconfig.GlobalStyle) int {
	if style.BorderRadius > 0 {
		return 3
	}
	return 2
}

// assPlacement maps the anchor to ASS numpad alignment and a vertical margin.
func assPlacement(position editconfig.Position) (alignment, marginV int) {
	offset := position.OffsetY
	if offset < 0 {
		offset = -offset
	}
	switch position.Anchor {
	case "top_center":
		return 8, offset
	case "center":
		return 5, 0
	default:
		return 2, offset
	}
}

func groupHighlights(highlights []editconfig.Highlight) map[string][]editconfig.Highlight {
	if len(highlights) == 0 {
		return nil
	}
	grouped := make(map[string][]editconfig.Highlight)
	for _, highlight := range highlights {
		grouped[highlight.CaptionID] = append(grouped[highlight.CaptionID], highlight)
	}
	// Keep spans ordered within a caption so output bytes are stable
	// regardless of highlight insertion order.
	for id := range grouped {
		spans := grouped[id]
		for i := 1; i < len(spans); i++ {
			for j := i; j > 0 && spans[j].StartOffset < spans[j-1].StartOffset; j-- {
				spans[j], spans[j-1] = spans[j-1], spans[j]
			}
		}
		grouped[id] = spans
	}
	return grouped
}

// renderCaptionText escapes caption text and weaves inline emphasis tags over
// the highlighted character ranges. Offsets index runes so multibyte text is
// never split mid-character.
func renderCaptionText(caption *editconfig.Caption, spans []editconfig.Highlight, highlightColor, globalColor string, style editconfig.HighlightStyle) string {
	if len(spans) == 0 {
		return escapeASS(caption.Text)
	}

	text := []rune(caption.Text)
	var b strings.Builder
	cursor := 0
	boldOn := style.FontWeight >= 700
	for _, span := range spans {
		start, end := span.StartOffset, span.EndOffset
		if start < cursor {
			start = cursor
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}
		b.WriteString(escapeASS(string(text[cursor:start])))
		b.WriteString("{\\c")
		b.WriteString(highlightColor)
		if boldOn {
			b.WriteString("\\b1")
		}
		b.WriteString("}")
		b.WriteString(escapeASS(string(text[start:end])))
		b.WriteString("{\\c")
		b.WriteString(globalColor)
		if boldOn {
			b.WriteString("\\b0")
		}
		b.WriteString("}")
		cursor = end
	}
	b.WriteString(escapeASS(string(text[cursor:])))
	return b.String()
}

func escapeASS(text string) string {
	text = strings.ReplaceAll(text, "\n", "\\N")
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	return text
}
