package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/terminal"
)

// RenderOptions control frame geometry.
type RenderOptions struct {
	// Padding is the margin around the grid in pixels.
	Padding int
	// LineHeight is the row pitch as a multiple of the glyph height.
	LineHeight float64
	// ShowCursor paints the block cursor when the frame reports it visible.
	ShowCursor bool
}

// DefaultRenderOptions mirror the render section of the default config.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Padding: 20, LineHeight: 1.2, ShowCursor: true}
}

// PNGRenderer paints terminal frames with a fixed-width bitmap font.
type PNGRenderer struct {
	theme      *Theme
	face       *basicfont.Face
	padding    int
	cellW      int
	cellH      int
	baseline   int
	showCursor bool
}

// NewPNGRenderer returns a renderer for theme. A nil theme uses the
// default palette; non-positive options fall back to the defaults.
func NewPNGRenderer(theme *Theme, opts RenderOptions) *PNGRenderer {
	if theme == nil {
		theme = DefaultTheme()
	}
	def := DefaultRenderOptions()
	if opts.Padding < 0 {
		opts.Padding = def.Padding
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = def.LineHeight
	}

	face := basicfont.Face7x13
	cellH := int(math.Round(float64(face.Height) * opts.LineHeight))
	if cellH < face.Height {
		cellH = face.Height
	}
	return &PNGRenderer{
		theme:      theme,
		face:       face,
		padding:    opts.Padding,
		cellW:      face.Advance,
		cellH:      cellH,
		baseline:   (cellH-face.Height)/2 + face.Ascent,
		showCursor: opts.ShowCursor,
	}
}

// Theme returns the palette in use.
func (r *PNGRenderer) Theme() *Theme { return r.theme }

// ImageSize returns the pixel size of a cols x rows frame.
func (r *PNGRenderer) ImageSize(cols, rows int) (width, height int) {
	return cols*r.cellW + 2*r.padding, rows*r.cellH + 2*r.padding
}

// Render paints f and encodes it as PNG.
func (r *PNGRenderer) Render(f terminal.Frame) ([]byte, error) {
	img, err := r.RenderImage(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encoding png: %w", errors.ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

// RenderImage paints f without encoding it.
func (r *PNGRenderer) RenderImage(f terminal.Frame) (*image.RGBA, error) {
	if f.Width <= 0 || f.Height <= 0 || len(f.Rows) != f.Height {
		return nil, fmt.Errorf("%w: malformed frame %dx%d with %d rows",
			errors.ErrRenderFailed, f.Width, f.Height, len(f.Rows))
	}

	w, h := r.ImageSize(f.Width, f.Height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.theme.Background), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Face: r.face}
	for y, row := range f.Rows {
		for x, cell := range row {
			if x >= f.Width {
				break
			}
			if cell.Continuation() {
				continue
			}
			fg, bg := r.theme.cellColors(cell)
			if r.cursorAt(f, x, y) {
				fg, bg = bg, r.theme.Cursor
			}
			span := max(cell.Width, 1)
			r.paintCell(img, d, x, y, span, cell, fg, bg)
		}
	}
	return img, nil
}

func (r *PNGRenderer) cursorAt(f terminal.Frame, x, y int) bool {
	return r.showCursor && f.CursorVisible && f.CursorX == x && f.CursorY == y
}

func (r *PNGRenderer) paintCell(img *image.RGBA, d *font.Drawer, x, y, span int, cell terminal.Cell, fg, bg color.RGBA) {
	px := r.padding + x*r.cellW
	py := r.padding + y*r.cellH
	rect := image.Rect(px, py, px+span*r.cellW, py+r.cellH)

	if bg != r.theme.Background {
		draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Src)
	}

	src := image.NewUniform(fg)
	if cell.Rune != ' ' && cell.Rune != 0 {
		d.Src = src
		d.Dot = fixed.P(px, py+r.baseline)
		d.DrawString(string(cell.Rune))
	}

	if cell.Attrs.Has(terminal.AttrUnderline) {
		uy := py + r.baseline + 1
		draw.Draw(img, image.Rect(rect.Min.X, uy, rect.Max.X, uy+1), src, image.Point{}, draw.Src)
	}
	if cell.Attrs.Has(terminal.AttrStrike) {
		sy := py + r.baseline - r.face.Ascent/3
		draw.Draw(img, image.Rect(rect.Min.X, sy, rect.Max.X, sy+1), src, image.Point{}, draw.Src)
	}
}
