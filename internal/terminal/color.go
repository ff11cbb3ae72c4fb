package terminal

// Color is a cell foreground or background color.
//
// Indexed colors keep their palette index so a renderer can substitute its
// theme's ANSI colors for indices 0-15; R, G and B hold the stock xterm
// value. Truecolor values use Index -1.
type Color struct {
	R, G, B uint8
	Index   int
	Default bool
}

// DefaultColor is the terminal's default foreground or background.
var DefaultColor = Color{Default: true, Index: -1}

// xterm's stock values for the 16 ANSI colors.
var ansiRGB = [16][3]uint8{
	{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
	{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
	{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

// ColorFromIndex returns entry index of the xterm 256-color palette.
// Out-of-range indices yield DefaultColor.
func ColorFromIndex(index int) Color {
	switch {
	case index < 0 || index > 255:
		return DefaultColor
	case index < 16:
		c := ansiRGB[index]
		return Color{R: c[0], G: c[1], B: c[2], Index: index}
	case index < 232:
		i := index - 16
		return Color{
			R:     cubeLevel(i / 36),
			G:     cubeLevel((i / 6) % 6),
			B:     cubeLevel(i % 6),
			Index: index,
		}
	default:
		gray := uint8((index-232)*10 + 8)
		return Color{R: gray, G: gray, B: gray, Index: index}
	}
}

// cubeLevel maps a 6x6x6 cube coordinate to its xterm channel value.
func cubeLevel(n int) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(55 + n*40)
}

// ColorFromRGB returns a truecolor value.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, Index: -1}
}

// IsANSI reports whether c is one of the 16 themeable ANSI colors.
func (c Color) IsANSI() bool {
	return !c.Default && c.Index >= 0 && c.Index < 16
}

// Attr is a set of cell attributes.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrHidden
	AttrStrike
)

// Has reports whether every bit of attr is set.
func (a Attr) Has(attr Attr) bool {
	return a&attr == attr
}

// Cell is one character position on the screen.
//
// A wide rune occupies its own cell with Width 2 and the cell to its right
// with Width 0 and Rune 0.
type Cell struct {
	Rune  rune
	Width int
	Fg    Color
	Bg    Color
	Attrs Attr
}

// BlankCell returns an empty cell with default colors.
func BlankCell() Cell {
	return Cell{Rune: ' ', Width: 1, Fg: DefaultColor, Bg: DefaultColor}
}

// Continuation reports whether c is the right half of a wide rune.
func (c Cell) Continuation() bool {
	return c.Width == 0
}
