package media

import (
	"image/color"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Iron-Ham/kla/internal/terminal"
)

// Built-in theme names.
const (
	ThemeDefault = "default"
	ThemeDracula = "dracula"
)

// Theme is the palette a frame is painted with.
type Theme struct {
	Name       string
	Background color.RGBA
	Foreground color.RGBA
	Cursor     color.RGBA
	Selection  color.RGBA
	// ANSI holds the 16 base colors: 0-7 normal, 8-15 bright.
	ANSI [16]color.RGBA
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// DefaultTheme is a dark palette modeled on One Dark.
func DefaultTheme() *Theme {
	return &Theme{
		Name:       ThemeDefault,
		Background: rgb(40, 44, 52),
		Foreground: rgb(171, 178, 191),
		Cursor:     rgb(97, 175, 239),
		Selection:  rgb(75, 81, 96),
		ANSI: [16]color.RGBA{
			rgb(40, 44, 52),
			rgb(224, 108, 117),
			rgb(152, 195, 121),
			rgb(229, 192, 123),
			rgb(97, 175, 239),
			rgb(198, 120, 221),
			rgb(86, 182, 194),
			rgb(171, 178, 191),
			rgb(92, 99, 112),
			rgb(224, 108, 117),
			rgb(152, 195, 121),
			rgb(229, 192, 123),
			rgb(97, 175, 239),
			rgb(198, 120, 221),
			rgb(86, 182, 194),
			rgb(255, 255, 255),
		},
	}
}

// DraculaTheme returns the Dracula palette.
func DraculaTheme() *Theme {
	return &Theme{
		Name:       ThemeDracula,
		Background: rgb(40, 42, 54),
		Foreground: rgb(248, 248, 242),
		Cursor:     rgb(248, 248, 242),
		Selection:  rgb(68, 71, 90),
		ANSI: [16]color.RGBA{
			rgb(40, 42, 54),
			rgb(255, 85, 85),
			rgb(80, 250, 123),
			rgb(241, 250, 140),
			rgb(139, 233, 253),
			rgb(255, 121, 198),
			rgb(139, 233, 253),
			rgb(248, 248, 242),
			rgb(98, 114, 164),
			rgb(255, 85, 85),
			rgb(80, 250, 123),
			rgb(241, 250, 140),
			rgb(139, 233, 253),
			rgb(255, 121, 198),
			rgb(139, 233, 253),
			rgb(255, 255, 255),
		},
	}
}

// BuiltinThemes returns the names of the themes compiled into kla.
func BuiltinThemes() []string {
	return []string{ThemeDefault, ThemeDracula}
}

// IsBuiltinTheme reports whether name is a built-in theme, ignoring case.
func IsBuiltinTheme(name string) bool {
	return slices.Contains(BuiltinThemes(), strings.ToLower(name))
}

// BuiltinTheme returns the named built-in theme and whether it exists.
func BuiltinTheme(name string) (*Theme, bool) {
	switch strings.ToLower(name) {
	case ThemeDefault:
		return DefaultTheme(), true
	case ThemeDracula:
		return DraculaTheme(), true
	default:
		return nil, false
	}
}

// cellColors resolves the paint colors of one cell. Reverse swaps the
// pair, hidden paints the glyph in the background color, bold lifts the
// eight normal ANSI colors to their bright variants and dim blends the
// glyph halfway toward the background.
func (t *Theme) cellColors(c terminal.Cell) (fg, bg color.RGBA) {
	fgc := c.Fg
	if c.Attrs.Has(terminal.AttrBold) && fgc.IsANSI() && fgc.Index < 8 {
		fgc = terminal.ColorFromIndex(fgc.Index + 8)
	}
	fg = t.resolve(fgc, t.Foreground)
	bg = t.resolve(c.Bg, t.Background)

	if c.Attrs.Has(terminal.AttrReverse) {
		fg, bg = bg, fg
	}
	if c.Attrs.Has(terminal.AttrDim) {
		fg = blend(fg, bg, 0.5)
	}
	if c.Attrs.Has(terminal.AttrHidden) {
		fg = bg
	}
	return fg, bg
}

// resolve maps a terminal color onto the theme. The 16 ANSI colors come
// from the palette so themes restyle them; 256-color and direct colors
// keep their exact values.
func (t *Theme) resolve(c terminal.Color, def color.RGBA) color.RGBA {
	switch {
	case c.Default:
		return def
	case c.IsANSI():
		return t.ANSI[c.Index]
	default:
		return rgb(c.R, c.G, c.B)
	}
}

func blend(a, b color.RGBA, t float64) color.RGBA {
	ca, _ := colorful.MakeColor(a)
	cb, _ := colorful.MakeColor(b)
	r, g, bl := ca.BlendRgb(cb, t).Clamped().RGB255()
	return rgb(r, g, bl)
}
