package terminal

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 8

// Screen is a fixed-size grid of cells plus cursor and pen state.
//
// Screen is not safe for concurrent use. It is owned by the goroutine that
// feeds it and only ever mutated through a Parser.
type Screen struct {
	width  int
	height int
	rows   [][]Cell

	// primary holds the main grid while the alternate screen is active.
	primary [][]Cell

	x, y int
	// wrapNext is set after a rune lands in the last column. The wrap
	// happens when the next rune arrives, not before.
	wrapNext bool

	cursorVisible bool
	title         string

	// Scroll region, inclusive.
	top, bottom int

	pen   Cell
	saved savedCursor

	autoWrap   bool
	originMode bool
}

type savedCursor struct {
	x, y int
	pen  Cell
}

// NewScreen returns a blank screen. Non-positive sizes are raised to 1.
func NewScreen(width, height int) *Screen {
	width = max(width, 1)
	height = max(height, 1)
	s := &Screen{
		width:         width,
		height:        height,
		cursorVisible: true,
		autoWrap:      true,
	}
	s.rows = s.blankGrid(width, height)
	s.resetPen()
	s.bottom = height - 1
	s.saved = savedCursor{pen: s.pen}
	return s
}

func (s *Screen) blankGrid(width, height int) [][]Cell {
	grid := make([][]Cell, height)
	for y := range grid {
		grid[y] = blankRow(width)
	}
	return grid
}

func blankRow(width int) []Cell {
	row := make([]Cell, width)
	for x := range row {
		row[x] = BlankCell()
	}
	return row
}

// Width returns the number of columns.
func (s *Screen) Width() int { return s.width }

// Height returns the number of rows.
func (s *Screen) Height() int { return s.height }

// Cursor returns the cursor column and row.
func (s *Screen) Cursor() (x, y int) { return s.x, s.y }

// CursorVisible reports whether the cursor is shown.
func (s *Screen) CursorVisible() bool { return s.cursorVisible }

// Title returns the last title set through OSC 0 or OSC 2.
func (s *Screen) Title() string { return s.title }

// Cell returns the cell at (x, y), or a blank cell when out of bounds.
func (s *Screen) Cell(x, y int) Cell {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return BlankCell()
	}
	return s.rows[y][x]
}

// Row returns a copy of row y, or nil when out of bounds.
func (s *Screen) Row(y int) []Cell {
	if y < 0 || y >= s.height {
		return nil
	}
	row := make([]Cell, s.width)
	copy(row, s.rows[y])
	return row
}

// LineText returns row y as text with trailing blanks removed.
func (s *Screen) LineText(y int) (string, bool) {
	if y < 0 || y >= s.height {
		return "", false
	}
	return rowText(s.rows[y]), true
}

func rowText(row []Cell) string {
	var b strings.Builder
	for _, c := range row {
		if c.Continuation() {
			continue
		}
		if c.Rune == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(c.Rune)
	}
	return strings.TrimRight(b.String(), " ")
}

func (s *Screen) resetPen() {
	s.pen = BlankCell()
}

// blank is an erased cell. Erasure keeps the pen background.
func (s *Screen) blank() Cell {
	c := BlankCell()
	c.Bg = s.pen.Bg
	return c
}

// put writes r at the cursor and advances it.
func (s *Screen) put(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		// Combining marks and other zero-width runes are dropped.
		return
	}
	if w > s.width {
		return
	}

	if s.wrapNext {
		s.wrapNext = false
		if s.autoWrap {
			s.x = 0
			s.lineFeed()
		}
	}
	if s.x+w > s.width {
		// A wide rune does not fit in the last column.
		if !s.autoWrap {
			return
		}
		s.rows[s.y][s.x] = s.blank()
		s.x = 0
		s.lineFeed()
	}

	row := s.rows[s.y]
	s.splitWide(row, s.x)
	cell := s.pen
	cell.Rune = r
	cell.Width = w
	row[s.x] = cell
	if w == 2 {
		s.splitWide(row, s.x+1)
		tail := s.pen
		tail.Rune = 0
		tail.Width = 0
		row[s.x+1] = tail
	}

	s.x += w
	if s.x >= s.width {
		s.x = s.width - 1
		s.wrapNext = true
	}
}

// splitWide blanks the other half of a wide rune about to be overwritten
// at column x.
func (s *Screen) splitWide(row []Cell, x int) {
	switch {
	case row[x].Continuation() && x > 0:
		row[x-1] = s.blank()
	case row[x].Width == 2 && x+1 < len(row):
		row[x+1] = s.blank()
	}
}

// moveTo places the cursor at (x, y), clamped to the screen, or to the
// scroll region in origin mode.
func (s *Screen) moveTo(x, y int) {
	s.wrapNext = false
	top, bottom := 0, s.height-1
	if s.originMode {
		top, bottom = s.top, s.bottom
		y += top
	}
	s.x = min(max(x, 0), s.width-1)
	s.y = min(max(y, top), bottom)
}

// moveBy moves the cursor relative to its current position without
// leaving the screen.
func (s *Screen) moveBy(dx, dy int) {
	s.wrapNext = false
	s.x = min(max(s.x+dx, 0), s.width-1)
	s.y = min(max(s.y+dy, 0), s.height-1)
}

func (s *Screen) carriageReturn() {
	s.wrapNext = false
	s.x = 0
}

func (s *Screen) backspace() {
	s.wrapNext = false
	if s.x > 0 {
		s.x--
	}
}

func (s *Screen) tab() {
	s.wrapNext = false
	s.x = min((s.x/tabWidth+1)*tabWidth, s.width-1)
}

func (s *Screen) lineFeed() {
	switch {
	case s.y == s.bottom:
		s.scrollUp(1)
	case s.y < s.height-1:
		s.y++
	}
}

func (s *Screen) reverseLineFeed() {
	switch {
	case s.y == s.top:
		s.scrollDown(1)
	case s.y > 0:
		s.y--
	}
}

// scrollUp moves the scroll region's rows up by n, blanking the bottom.
func (s *Screen) scrollUp(n int) {
	s.scrollRegionUp(s.top, n)
}

func (s *Screen) scrollRegionUp(top, n int) {
	bottom := s.bottom
	if n <= 0 || top > bottom {
		return
	}
	n = min(n, bottom-top+1)
	copy(s.rows[top:bottom+1], s.rows[top+n:bottom+1])
	for y := bottom - n + 1; y <= bottom; y++ {
		s.rows[y] = s.blankRow()
	}
}

// scrollDown moves the scroll region's rows down by n, blanking the top.
func (s *Screen) scrollDown(n int) {
	s.scrollRegionDown(s.top, n)
}

func (s *Screen) scrollRegionDown(top, n int) {
	bottom := s.bottom
	if n <= 0 || top > bottom {
		return
	}
	n = min(n, bottom-top+1)
	copy(s.rows[top+n:bottom+1], s.rows[top:bottom+1-n])
	for y := top; y < top+n; y++ {
		s.rows[y] = s.blankRow()
	}
}

func (s *Screen) blankRow() []Cell {
	row := make([]Cell, s.width)
	for x := range row {
		row[x] = s.blank()
	}
	return row
}

// setScrollRegion sets the inclusive, zero-based scroll region and homes
// the cursor. Regions smaller than two rows are ignored.
func (s *Screen) setScrollRegion(top, bottom int) {
	top = max(top, 0)
	bottom = min(bottom, s.height-1)
	if top >= bottom {
		return
	}
	s.top, s.bottom = top, bottom
	s.moveTo(0, 0)
}

func (s *Screen) clearRange(y, from, to int) {
	row := s.rows[y]
	from = max(from, 0)
	to = min(to, s.width)
	if from >= to {
		return
	}
	if from > 0 && row[from].Continuation() {
		row[from-1] = s.blank()
	}
	for x := from; x < to; x++ {
		row[x] = s.blank()
	}
	if to < s.width && row[to].Continuation() {
		row[to] = s.blank()
	}
}

// eraseDisplay implements ED. Mode 3 only clears scrollback, which this
// screen does not keep.
func (s *Screen) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.clearRange(s.y, s.x, s.width)
		for y := s.y + 1; y < s.height; y++ {
			s.clearRange(y, 0, s.width)
		}
	case 1:
		for y := 0; y < s.y; y++ {
			s.clearRange(y, 0, s.width)
		}
		s.clearRange(s.y, 0, s.x+1)
	case 2:
		for y := 0; y < s.height; y++ {
			s.clearRange(y, 0, s.width)
		}
	}
}

// eraseLine implements EL.
func (s *Screen) eraseLine(mode int) {
	switch mode {
	case 0:
		s.clearRange(s.y, s.x, s.width)
	case 1:
		s.clearRange(s.y, 0, s.x+1)
	case 2:
		s.clearRange(s.y, 0, s.width)
	}
}

func (s *Screen) insertLines(n int) {
	if s.y < s.top || s.y > s.bottom {
		return
	}
	s.scrollRegionDown(s.y, n)
	s.carriageReturn()
}

func (s *Screen) deleteLines(n int) {
	if s.y < s.top || s.y > s.bottom {
		return
	}
	s.scrollRegionUp(s.y, n)
	s.carriageReturn()
}

func (s *Screen) insertChars(n int) {
	s.wrapNext = false
	row := s.rows[s.y]
	n = min(n, s.width-s.x)
	if n <= 0 {
		return
	}
	copy(row[s.x+n:], row[s.x:s.width-n])
	s.clearRange(s.y, s.x, s.x+n)
}

func (s *Screen) deleteChars(n int) {
	s.wrapNext = false
	row := s.rows[s.y]
	n = min(n, s.width-s.x)
	if n <= 0 {
		return
	}
	copy(row[s.x:], row[s.x+n:])
	s.clearRange(s.y, s.width-n, s.width)
}

func (s *Screen) eraseChars(n int) {
	s.clearRange(s.y, s.x, s.x+max(n, 1))
}

func (s *Screen) saveCursor() {
	s.saved = savedCursor{x: s.x, y: s.y, pen: s.pen}
}

func (s *Screen) restoreCursor() {
	s.pen = s.saved.pen
	s.wrapNext = false
	s.x = min(s.saved.x, s.width-1)
	s.y = min(s.saved.y, s.height-1)
}

// enterAlternate switches to a blank alternate grid, keeping the primary
// grid for exitAlternate.
func (s *Screen) enterAlternate(saveCursor bool) {
	if s.primary != nil {
		return
	}
	if saveCursor {
		s.saveCursor()
	}
	s.primary = s.rows
	s.rows = s.blankGrid(s.width, s.height)
}

func (s *Screen) exitAlternate(restoreCursor bool) {
	if s.primary == nil {
		return
	}
	s.rows = s.primary
	s.primary = nil
	if restoreCursor {
		s.restoreCursor()
	}
}

// reset implements RIS.
func (s *Screen) reset() {
	*s = *NewScreen(s.width, s.height)
}

// resize copies the overlapping top-left rectangle into a fresh grid and
// clamps the cursor. The scroll region resets to the full screen.
func (s *Screen) resize(width, height int) {
	width = max(width, 1)
	height = max(height, 1)

	s.rows = copyGrid(s.rows, width, height)
	if s.primary != nil {
		s.primary = copyGrid(s.primary, width, height)
	}

	s.width, s.height = width, height
	s.top, s.bottom = 0, height-1
	s.wrapNext = false
	s.x = min(s.x, width-1)
	s.y = min(s.y, height-1)
	s.saved.x = min(s.saved.x, width-1)
	s.saved.y = min(s.saved.y, height-1)
}

func copyGrid(old [][]Cell, width, height int) [][]Cell {
	grid := make([][]Cell, height)
	for y := range grid {
		row := blankRow(width)
		if y < len(old) {
			copy(row, old[y])
			// A wide rune cut in half by the new right edge is dropped.
			if last := row[width-1]; last.Width == 2 {
				row[width-1] = BlankCell()
			}
		}
		grid[y] = row
	}
	return grid
}
