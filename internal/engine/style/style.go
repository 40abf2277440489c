// Package style holds the user-editable stylization settings.
package style

// MaxOutlineWidth is the soft cap exposed by the settings UI. Wider
// values are accepted from config files.
const MaxOutlineWidth = 100

// Settings controls outline and toon shading. The document owns one
// Settings value; the renderer reads it each frame and never mutates it.
type Settings struct {
	EnableOutline    bool    `yaml:"enable_outline"`
	OutlineWidth     float32 `yaml:"outline_width"`
	ShadingSharpness float32 `yaml:"shading_sharpness"`
}

// Default returns the settings new documents start with.
func Default() Settings {
	return Settings{
		EnableOutline:    true,
		OutlineWidth:     1,
		ShadingSharpness: 1,
	}
}

// Clamped returns a copy with all fields forced into their valid domain.
func (s Settings) Clamped() Settings {
	if s.OutlineWidth < 0 {
		s.OutlineWidth = 0
	}
	if s.ShadingSharpness < 0 {
		s.ShadingSharpness = 0
	}
	if s.ShadingSharpness > 1 {
		s.ShadingSharpness = 1
	}
	return s
}
