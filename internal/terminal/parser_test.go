package terminal

import (
	"strings"
	"testing"
)

func feed(width, height int, chunks ...string) *State {
	t := New(width, height)
	for _, c := range chunks {
		t.Process([]byte(c))
	}
	return t
}

func lines(t *testing.T, s *State) []string {
	t.Helper()
	return strings.Split(s.Text(), "\n")
}

func TestParser_Text(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		input  string
		want   []string
	}{
		{"plain", 10, 2, "hello", []string{"hello", ""}},
		{"crlf", 10, 2, "hello\r\nworld", []string{"hello", "world"}},
		{"bare lf keeps column", 10, 2, "A\nB", []string{"A", " B"}},
		{"carriage return overwrites", 10, 1, "ABC\rX", []string{"XBC"}},
		{"backspace", 10, 1, "AB\bC", []string{"AC"}},
		{"tab stops every 8", 20, 1, "A\tB", []string{"A       B"}},
		{"autowrap", 5, 2, "abcdefg", []string{"abcde", "fg"}},
		{"no autowrap overwrites last column", 5, 2, "\x1b[?7labcdefg", []string{"abcdg", ""}},
		{"scrolls at bottom", 5, 3, "1\r\n2\r\n3\r\n4", []string{"2", "3", "4"}},
		{"cursor position", 5, 2, "\x1b[2;3HX", []string{"", "  X"}},
		{"erase to end of line", 10, 1, "hello\x1b[3D\x1b[K", []string{"he"}},
		{"erase start of line", 10, 1, "hello\x1b[3D\x1b[1K", []string{"   lo"}},
		{"erase whole line", 10, 1, "hello\x1b[2K", []string{""}},
		{"erase display", 5, 2, "abc\r\ndef\x1b[2J", []string{"", ""}},
		{"erase below", 5, 3, "aaa\r\nbbb\r\nccc\x1b[2;2H\x1b[J", []string{"aaa", "b", ""}},
		{"erase above", 5, 3, "aaa\r\nbbb\r\nccc\x1b[2;2H\x1b[1J", []string{"", "  b", "ccc"}},
		{"insert chars", 10, 1, "abcdef\r\x1b[2@", []string{"  abcdef"}},
		{"delete chars", 10, 1, "abcdef\r\x1b[2P", []string{"cdef"}},
		{"erase chars", 10, 1, "abcdef\r\x1b[2X", []string{"  cdef"}},
		{"insert line", 5, 4, "a\r\nb\r\nc\r\nd\x1b[2;1H\x1b[L", []string{"a", "", "b", "c"}},
		{"delete line", 5, 4, "a\r\nb\r\nc\r\nd\x1b[2;1H\x1b[M", []string{"a", "c", "d", ""}},
		{"scroll region", 5, 5, "1\r\n2\r\n3\r\n4\r\n5\x1b[2;4r\x1b[4;1H\n", []string{"1", "3", "4", "", "5"}},
		{"scroll up", 5, 3, "a\r\nb\r\nc\x1b[S", []string{"b", "c", ""}},
		{"scroll down", 5, 3, "a\r\nb\r\nc\x1b[T", []string{"", "a", "b"}},
		{"reverse index at top", 5, 2, "a\x1bM", []string{"", "a"}},
		{"save and restore", 10, 3, "ab\x1b7\x1b[3;3Hx\x1b8c", []string{"abc", "", "  x"}},
		{"reset", 5, 2, "abc\r\nde\x1bc", []string{"", ""}},
		{"invalid utf-8", 10, 1, "a\xffb", []string{"a�b"}},
		{"truncated utf-8", 10, 1, "a\xc3b", []string{"a�b"}},
		{"cancel aborts sequence", 10, 1, "\x1b[31\x18X", []string{"X"}},
		{"charset designation ignored", 10, 1, "\x1b(Bok", []string{"ok"}},
		{"dcs swallowed", 10, 1, "\x1bPq#0;2;0;0;0\x1b\\ok", []string{"ok"}},
		{"controls inside csi", 10, 1, "ab\x1b[\r1Cc", []string{"ac"}},
		{"wide runes", 10, 1, "日本語", []string{"日本語"}},
		{"wide rune wraps early", 3, 2, "ab日", []string{"ab", "日"}},
		{"overwrite half of wide rune", 10, 1, "日本\x1b[2Gx", []string{" x本"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := feed(tt.width, tt.height, tt.input)
			got := lines(t, s)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_Cursor(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantX, wantY int
	}{
		{"after text", "hello\r\nab", 2, 1},
		{"position is one-based", "\x1b[3;4H", 3, 2},
		{"omitted params home", "abc\x1b[H", 0, 0},
		{"clamped", "\x1b[99;99H", 9, 4},
		{"relative moves", "\x1b[3;3H\x1b[2A\x1b[4C\x1b[B\x1b[D", 5, 1},
		{"moves stay on screen", "\x1b[50A\x1b[50D", 0, 0},
		{"column absolute", "abc\x1b[7G", 6, 0},
		{"row absolute", "abc\x1b[4d", 3, 3},
		{"next line", "abc\x1b[2E", 0, 2},
		{"previous line", "\x1b[4;5H\x1b[F", 0, 2},
		{"pending wrap stays in last column", "0123456789", 9, 0},
		{"tab clamps to last column", "\x1b[1;9H\t\t", 9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := feed(10, 5, tt.input)
			if x, y := s.Cursor(); x != tt.wantX || y != tt.wantY {
				t.Errorf("Cursor() = (%d, %d), want (%d, %d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestParser_SGR(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFg    Color
		wantBg    Color
		wantAttrs Attr
	}{
		{"default", "X", DefaultColor, DefaultColor, 0},
		{"bold red", "\x1b[1;31mX", ColorFromIndex(1), DefaultColor, AttrBold},
		{"reset", "\x1b[1;31m\x1b[0mX", DefaultColor, DefaultColor, 0},
		{"empty reset", "\x1b[4;32m\x1b[mX", DefaultColor, DefaultColor, 0},
		{"bright fg", "\x1b[92mX", ColorFromIndex(10), DefaultColor, 0},
		{"bright bg", "\x1b[104mX", DefaultColor, ColorFromIndex(12), 0},
		{"256 fg", "\x1b[38;5;196mX", ColorFromIndex(196), DefaultColor, 0},
		{"truecolor bg", "\x1b[48;2;10;20;30mX", DefaultColor, ColorFromRGB(10, 20, 30), 0},
		{"colon truecolor", "\x1b[38:2:1:2:3mX", ColorFromRGB(1, 2, 3), DefaultColor, 0},
		{"attrs after extended color", "\x1b[38;5;2;4mX", ColorFromIndex(2), DefaultColor, AttrUnderline},
		{"default fg", "\x1b[31;39mX", DefaultColor, DefaultColor, 0},
		{"normal intensity", "\x1b[1;2;3;22mX", DefaultColor, DefaultColor, AttrItalic},
		{"many attrs", "\x1b[3;4;5;7;8;9mX", DefaultColor, DefaultColor,
			AttrItalic | AttrUnderline | AttrBlink | AttrReverse | AttrHidden | AttrStrike},
		{"attr off", "\x1b[4;7;24;27mX", DefaultColor, DefaultColor, 0},
		{"malformed extended", "\x1b[38;5mX", DefaultColor, DefaultColor, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := feed(10, 1, tt.input)
			c := s.Screen().Cell(0, 0)
			if c.Rune != 'X' {
				t.Fatalf("Cell(0, 0).Rune = %q, want 'X'", c.Rune)
			}
			if c.Fg != tt.wantFg {
				t.Errorf("Fg = %+v, want %+v", c.Fg, tt.wantFg)
			}
			if c.Bg != tt.wantBg {
				t.Errorf("Bg = %+v, want %+v", c.Bg, tt.wantBg)
			}
			if c.Attrs != tt.wantAttrs {
				t.Errorf("Attrs = %b, want %b", c.Attrs, tt.wantAttrs)
			}
		})
	}
}

func TestParser_SplitAcrossChunks(t *testing.T) {
	s := feed(10, 1, "\x1b[3", "1mR", "\xc3", "\xa9", "\x1b]0;ti", "tle\x07")

	if got := s.Text(); got != "Ré" {
		t.Errorf("Text() = %q, want %q", got, "Ré")
	}
	if fg := s.Screen().Cell(0, 0).Fg; fg != ColorFromIndex(1) {
		t.Errorf("Fg = %+v, want red", fg)
	}
	if got := s.Title(); got != "title" {
		t.Errorf("Title() = %q, want %q", got, "title")
	}
}

func TestParser_Title(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"osc 0 bel", "\x1b]0;my title\x07", "my title"},
		{"osc 2 st", "\x1b]2;other\x1b\\", "other"},
		{"osc 1 ignored", "\x1b]1;icon\x07", ""},
		{"last wins", "\x1b]2;a\x07\x1b]2;b\x07", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := feed(10, 1, tt.input)
			if got := s.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
			if got := s.Text(); got != "" {
				t.Errorf("Text() = %q, want empty", got)
			}
		})
	}
}

func TestParser_CursorVisibility(t *testing.T) {
	s := feed(10, 1)
	if !s.CursorVisible() {
		t.Error("CursorVisible() = false on a new terminal")
	}
	s.Process([]byte("\x1b[?25l"))
	if s.CursorVisible() {
		t.Error("CursorVisible() = true after DECTCEM reset")
	}
	s.Process([]byte("\x1b[?25h"))
	if !s.CursorVisible() {
		t.Error("CursorVisible() = false after DECTCEM set")
	}
}

func TestParser_AlternateScreen(t *testing.T) {
	s := feed(10, 3, "main")
	s.Process([]byte("\x1b[?1049h"))

	if s.Contains("main") {
		t.Errorf("alternate screen shows %q", s.Text())
	}
	s.Process([]byte("alt"))
	if !s.Contains("alt") {
		t.Errorf("Text() = %q, want alt content", s.Text())
	}

	s.Process([]byte("\x1b[?1049l"))
	if !s.Contains("main") || s.Contains("alt") {
		t.Errorf("Text() after leaving alternate screen = %q", s.Text())
	}
	if x, y := s.Cursor(); x != 4 || y != 0 {
		t.Errorf("Cursor() = (%d, %d), want (4, 0)", x, y)
	}
}

func TestParser_WideCells(t *testing.T) {
	s := feed(10, 1, "日本")
	scr := s.Screen()

	if c := scr.Cell(0, 0); c.Rune != '日' || c.Width != 2 {
		t.Errorf("Cell(0, 0) = %q width %d, want '日' width 2", c.Rune, c.Width)
	}
	if c := scr.Cell(1, 0); !c.Continuation() {
		t.Errorf("Cell(1, 0) = %+v, want continuation", c)
	}
	if c := scr.Cell(2, 0); c.Rune != '本' {
		t.Errorf("Cell(2, 0) = %q, want '本'", c.Rune)
	}
	if x, _ := s.Cursor(); x != 4 {
		t.Errorf("cursor x = %d, want 4", x)
	}
}

func TestColorFromIndex(t *testing.T) {
	tests := []struct {
		index   int
		r, g, b uint8
	}{
		{0, 0, 0, 0},
		{1, 205, 0, 0},
		{15, 255, 255, 255},
		{16, 0, 0, 0},
		{21, 0, 0, 255},
		{196, 255, 0, 0},
		{231, 255, 255, 255},
		{232, 8, 8, 8},
		{255, 238, 238, 238},
	}

	for _, tt := range tests {
		c := ColorFromIndex(tt.index)
		if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.Index != tt.index {
			t.Errorf("ColorFromIndex(%d) = %+v, want rgb(%d, %d, %d)", tt.index, c, tt.r, tt.g, tt.b)
		}
	}

	for _, idx := range []int{-1, 256} {
		if c := ColorFromIndex(idx); c != DefaultColor {
			t.Errorf("ColorFromIndex(%d) = %+v, want DefaultColor", idx, c)
		}
	}

	if !ColorFromIndex(9).IsANSI() || ColorFromIndex(16).IsANSI() || DefaultColor.IsANSI() {
		t.Error("IsANSI() misclassifies colors")
	}
}
