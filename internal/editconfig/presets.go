package editconfig

// AnimationKind partitions the preset catalog.
type AnimationKind string

const (
	AnimationEntry     AnimationKind = "entry"
	AnimationExit      AnimationKind = "exit"
	AnimationHighlight AnimationKind = "highlight"
	AnimationVideo     AnimationKind = "video"
)

// The preset catalogs must match the client's animation presets exactly.
var entryAnimations = []string{
	"fade_in",
	"pop_in",
	"slide_up",
	"slide_down",
	"slide_left",
	"slide_right",
	"slide_up_fade",
	"slide_down_fade",
	"slide_left_fade",
	"slide_right_fade",
	"scale_up",
	"scale_down",
	"scale_up_fade",
	"bounce_in",
}

var exitAnimations = []string{
	"fade_out",
	"pop_out",
	"slide_up_out",
	"slide_down_out",
	"slide_left_out",
	"slide_right_out",
	"slide_up_fade_out",
	"slide_down_fade_out",
	"slide_left_fade_out",
	"slide_right_fade_out",
	"scale_down_out",
	"scale_down_fade_out",
}

var highlightAnimations = []string{
	"none",
	"pulse",
	"pulse_fade",
	"scale_up",
	"bounce_soft",
	"fade_emphasis",
	"color_emphasis",
	"scale_color_pulse",
}

var videoAnimations = []string{
	"none",
	"fade_in",
	"fade_out",
	"fade_in_out",
}

var presetCatalog = map[AnimationKind][]string{
	AnimationEntry:     entryAnimations,
	AnimationExit:      exitAnimations,
	AnimationHighlight: highlightAnimations,
	AnimationVideo:     videoAnimations,
}

// ValidPreset reports whether the preset id exists for the given kind.
func ValidPreset(kind AnimationKind, presetID string) bool {
	for _, candidate := range presetCatalog[kind] {
		if candidate == presetID {
			return true
		}
	}
	return false
}

// Presets returns the catalog for a kind, in stable order.
func Presets(kind AnimationKind) []string {
	src := presetCatalog[kind]
	cp := make([]string, len(src))
	copy(cp, src)
	return cp
}
