package terminal

import (
	"testing"
)

func TestState_Text(t *testing.T) {
	s := feed(10, 3, "hi   ")
	if got, want := s.Text(), "hi\n\n"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if w, h := s.Size(); w != 10 || h != 3 {
		t.Errorf("Size() = %dx%d, want 10x3", w, h)
	}
}

func TestState_LineText(t *testing.T) {
	s := feed(10, 3, "one\r\n  two  ")

	tests := []struct {
		row    int
		want   string
		wantOK bool
	}{
		{0, "one", true},
		{1, "  two", true},
		{2, "", true},
		{3, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		got, ok := s.LineText(tt.row)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LineText(%d) = %q, %v; want %q, %v", tt.row, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestState_Find(t *testing.T) {
	s := feed(20, 4, "$ echo hi\r\nhi\r\n日本 done")

	tests := []struct {
		name    string
		needle  string
		wantRow int
		wantCol int
		wantOK  bool
	}{
		{"first row", "echo", 0, 2, true},
		{"first match wins", "hi", 0, 7, true},
		{"start of row", "hi\n", 0, 7, true},
		{"spans rows", "hi\nhi", 0, 7, true},
		{"after wide runes", "done", 2, 5, true},
		{"missing", "absent", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, col, ok := s.Find(tt.needle)
			if row != tt.wantRow || col != tt.wantCol || ok != tt.wantOK {
				t.Errorf("Find(%q) = (%d, %d, %v), want (%d, %d, %v)",
					tt.needle, row, col, ok, tt.wantRow, tt.wantCol, tt.wantOK)
			}
			if got := s.Contains(tt.needle); got != tt.wantOK {
				t.Errorf("Contains(%q) = %v, want %v", tt.needle, got, tt.wantOK)
			}
		})
	}
}

func TestState_FindKnownPosition(t *testing.T) {
	s := New(30, 10)
	s.Process([]byte("\x1b[6;12Hmarker"))

	row, col, ok := s.Find("marker")
	if !ok || row != 5 || col != 11 {
		t.Errorf("Find() = (%d, %d, %v), want (5, 11, true)", row, col, ok)
	}
}

func fillGrid() *State {
	return feed(6, 4, "abcdef\r\nghijkl\r\nmnopqr\r\nstuvwx")
}

func TestState_ResizeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		want   string
		cursor [2]int
	}{
		{"shrink", 3, 2, "abc\nghi\n\n", [2]int{2, 1}},
		{"narrower", 4, 4, "abcd\nghij\nmnop\nstuv", [2]int{3, 3}},
		{"shorter", 6, 1, "abcdef\n\n\n", [2]int{5, 0}},
		{"grow", 9, 6, "abcdef\nghijkl\nmnopqr\nstuvwx", [2]int{5, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fillGrid()
			s.Resize(tt.w, tt.h)
			if x, y := s.Cursor(); x != tt.cursor[0] || y != tt.cursor[1] {
				t.Errorf("Cursor() after Resize = (%d, %d), want (%d, %d)", x, y, tt.cursor[0], tt.cursor[1])
			}

			s.Resize(6, 4)
			if got := s.Text(); got != tt.want {
				t.Errorf("Text() after round trip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestState_ResizeBlanksNewCells(t *testing.T) {
	s := feed(3, 1, "\x1b[41mabc")
	s.Resize(5, 2)

	for _, pos := range [][2]int{{3, 0}, {4, 0}, {0, 1}} {
		if c := s.Screen().Cell(pos[0], pos[1]); c != BlankCell() {
			t.Errorf("Cell(%d, %d) = %+v, want blank", pos[0], pos[1], c)
		}
	}
	if c := s.Screen().Cell(0, 0); c.Bg != ColorFromIndex(1) {
		t.Errorf("Cell(0, 0).Bg = %+v, want kept red background", c.Bg)
	}
}

func TestState_ResizeDropsSplitWideRune(t *testing.T) {
	s := feed(4, 1, "a日")
	s.Resize(2, 1)

	if got := s.Text(); got != "a" {
		t.Errorf("Text() = %q, want %q", got, "a")
	}
}

func TestState_ResizeThenWrite(t *testing.T) {
	s := feed(10, 3, "abc")
	s.Resize(4, 2)
	s.Process([]byte("defg"))

	if got, want := s.Text(), "abcd\nefg"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestState_Frame(t *testing.T) {
	s := feed(8, 2, "\x1b]2;demo\x07\x1b[?25lhey")
	f := s.Frame()

	if f.Width != 8 || f.Height != 2 || len(f.Rows) != 2 || len(f.Rows[0]) != 8 {
		t.Fatalf("Frame() size = %dx%d rows=%d", f.Width, f.Height, len(f.Rows))
	}
	if f.CursorX != 3 || f.CursorY != 0 || f.CursorVisible {
		t.Errorf("Frame() cursor = (%d, %d, %v), want (3, 0, false)", f.CursorX, f.CursorY, f.CursorVisible)
	}
	if f.Title != "demo" {
		t.Errorf("Frame().Title = %q, want %q", f.Title, "demo")
	}
	if f.Text() != s.Text() {
		t.Errorf("Frame().Text() = %q, want %q", f.Text(), s.Text())
	}

	s.Process([]byte("\rXXX"))
	if got := f.Text(); got != "hey\n" {
		t.Errorf("Frame changed after Process: %q", got)
	}
}

func TestNew_ClampsSize(t *testing.T) {
	s := New(0, -3)
	if w, h := s.Size(); w != 1 || h != 1 {
		t.Errorf("Size() = %dx%d, want 1x1", w, h)
	}
	s.Resize(-1, 0)
	if w, h := s.Size(); w != 1 || h != 1 {
		t.Errorf("Size() after Resize = %dx%d, want 1x1", w, h)
	}
}
