// Package terminal turns raw terminal output into a queryable screen model.
//
// State combines a Screen with the Parser that drives it. Process is the
// only way content changes; everything else is a read-only query. A State
// is confined to one goroutine and does no locking.
package terminal

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// State is the interpreted screen of one terminal session.
type State struct {
	screen *Screen
	parser *Parser
}

// New returns a blank terminal of width x height cells.
func New(width, height int) *State {
	s := NewScreen(width, height)
	return &State{screen: s, parser: NewParser(s)}
}

// Process interprets data and applies it to the screen.
func (t *State) Process(data []byte) {
	t.parser.Parse(data)
}

// Screen exposes the underlying grid for read access.
func (t *State) Screen() *Screen { return t.screen }

// Size returns the terminal width and height in cells.
func (t *State) Size() (width, height int) {
	return t.screen.width, t.screen.height
}

// Cursor returns the cursor column and row.
func (t *State) Cursor() (x, y int) { return t.screen.Cursor() }

// CursorVisible reports whether the cursor is shown.
func (t *State) CursorVisible() bool { return t.screen.cursorVisible }

// Title returns the window title set by the running program.
func (t *State) Title() string { return t.screen.title }

// Text returns the screen content, one line per row with trailing blanks
// trimmed.
func (t *State) Text() string {
	lines := make([]string, t.screen.height)
	for y, row := range t.screen.rows {
		lines[y] = rowText(row)
	}
	return strings.Join(lines, "\n")
}

// LineText returns the trimmed text of row y. ok is false when y is out
// of bounds.
func (t *State) LineText(y int) (text string, ok bool) {
	return t.screen.LineText(y)
}

// Contains reports whether s appears anywhere in Text. Matches may span
// rows when s contains a newline.
func (t *State) Contains(s string) bool {
	return strings.Contains(t.Text(), s)
}

// Find locates the first occurrence of s in Text. row is the row holding
// the first character of the match and col its cell offset from the start
// of that row.
func (t *State) Find(s string) (row, col int, ok bool) {
	text := t.Text()
	idx := strings.Index(text, s)
	if idx < 0 {
		return 0, 0, false
	}
	before := text[:idx]
	row = strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return row, runewidth.StringWidth(before[lineStart:]), true
}

// Resize changes the grid size, keeping the overlapping top-left
// rectangle and clamping the cursor.
func (t *State) Resize(width, height int) {
	t.screen.resize(width, height)
}

// Frame is an immutable copy of the screen handed to renderers.
type Frame struct {
	Width         int
	Height        int
	Rows          [][]Cell
	CursorX       int
	CursorY       int
	CursorVisible bool
	Title         string
}

// Frame copies the current screen.
func (t *State) Frame() Frame {
	s := t.screen
	rows := make([][]Cell, s.height)
	for y := range rows {
		rows[y] = s.Row(y)
	}
	return Frame{
		Width:         s.width,
		Height:        s.height,
		Rows:          rows,
		CursorX:       s.x,
		CursorY:       s.y,
		CursorVisible: s.cursorVisible,
		Title:         s.title,
	}
}

// Text returns the frame content the same way State.Text does.
func (f Frame) Text() string {
	lines := make([]string, len(f.Rows))
	for y, row := range f.Rows {
		lines[y] = rowText(row)
	}
	return strings.Join(lines, "\n")
}
