package terminal

import (
	"strings"
	"unicode/utf8"
)

// Limits on buffered sequence data. Anything beyond them is dropped.
const (
	maxParams   = 32
	maxOSCBytes = 4096
)

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeInter
	stateCSI
	stateOSC
	// stateString swallows DCS, SOS, PM and APC payloads until ST.
	stateString
)

// Parser interprets a terminal byte stream and applies it to a Screen.
//
// Parser keeps its state between calls to Parse, so escape sequences and
// UTF-8 runes may be split across chunks at any byte.
type Parser struct {
	screen *Screen
	state  parserState

	// params holds CSI parameters; -1 marks an omitted parameter.
	params  []int
	prefix  byte
	inter   []byte
	osc     []byte
	pending []byte // incomplete UTF-8 rune
}

// NewParser returns a parser that writes to screen.
func NewParser(screen *Screen) *Parser {
	return &Parser{
		screen:  screen,
		params:  make([]int, 0, maxParams),
		inter:   make([]byte, 0, 4),
		osc:     make([]byte, 0, 64),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Parse feeds data through the interpreter.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.step(b)
	}
}

func (p *Parser) step(b byte) {
	// CAN and SUB abort any sequence in progress.
	if b == 0x18 || b == 0x1a {
		p.state = stateGround
		return
	}

	switch p.state {
	case stateGround:
		p.ground(b)
	case stateEscape:
		p.escape(b)
	case stateEscapeInter:
		p.escapeInter(b)
	case stateCSI:
		p.csi(b)
	case stateOSC:
		p.oscByte(b)
	case stateString:
		if b == 0x1b {
			p.state = stateEscape
		} else if b == 0x07 {
			p.state = stateGround
		}
	}
}

func (p *Parser) ground(b byte) {
	if len(p.pending) > 0 {
		if b >= 0x80 && b < 0xc0 {
			p.pending = append(p.pending, b)
			if utf8.FullRune(p.pending) {
				r, _ := utf8.DecodeRune(p.pending)
				p.pending = p.pending[:0]
				p.screen.put(r)
			}
			return
		}
		// Truncated rune.
		p.pending = p.pending[:0]
		p.screen.put(utf8.RuneError)
	}

	switch {
	case b < 0x20:
		p.execute(b)
	case b < 0x7f:
		p.screen.put(rune(b))
	case b == 0x7f:
		// DEL is ignored.
	case b >= 0xc2 && b <= 0xf4:
		p.pending = append(p.pending, b)
	default:
		p.screen.put(utf8.RuneError)
	}
}

// execute runs a C0 control. Controls are honored inside CSI sequences too.
func (p *Parser) execute(b byte) {
	s := p.screen
	switch b {
	case 0x1b:
		p.state = stateEscape
		p.inter = p.inter[:0]
	case '\b':
		s.backspace()
	case '\t':
		s.tab()
	case '\n', '\v', '\f':
		s.lineFeed()
	case '\r':
		s.carriageReturn()
	}
}

func (p *Parser) escape(b byte) {
	s := p.screen
	p.state = stateGround
	switch {
	case b == '[':
		p.params = p.params[:0]
		p.inter = p.inter[:0]
		p.prefix = 0
		p.state = stateCSI
	case b == ']':
		p.osc = p.osc[:0]
		p.state = stateOSC
	case b == 'P', b == 'X', b == '^', b == '_':
		p.state = stateString
	case b == '7':
		s.saveCursor()
	case b == '8':
		s.restoreCursor()
	case b == 'D':
		s.lineFeed()
	case b == 'E':
		s.carriageReturn()
		s.lineFeed()
	case b == 'M':
		s.reverseLineFeed()
	case b == 'c':
		s.reset()
	case b >= 0x20 && b <= 0x2f:
		// Charset designation and friends: read and ignore.
		p.inter = append(p.inter, b)
		p.state = stateEscapeInter
	case b < 0x20:
		p.execute(b)
	}
}

func (p *Parser) escapeInter(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2f:
		p.inter = append(p.inter, b)
	case b >= 0x30 && b <= 0x7e:
		p.state = stateGround
	case b < 0x20:
		p.execute(b)
	default:
		p.state = stateGround
	}
}

func (p *Parser) csi(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if len(p.params) == 0 {
			p.params = append(p.params, -1)
		}
		last := &p.params[len(p.params)-1]
		if *last < 0 {
			*last = 0
		}
		if *last < 1<<16 {
			*last = *last*10 + int(b-'0')
		}
	case b == ';', b == ':':
		if len(p.params) == 0 {
			p.params = append(p.params, -1)
		}
		if len(p.params) < maxParams {
			p.params = append(p.params, -1)
		}
	case b >= '<' && b <= '?':
		p.prefix = b
	case b >= 0x20 && b <= 0x2f:
		p.inter = append(p.inter, b)
	case b >= 0x40 && b <= 0x7e:
		p.state = stateGround
		p.dispatchCSI(b)
	case b < 0x20:
		p.execute(b)
	default:
		p.state = stateGround
	}
}

func (p *Parser) oscByte(b byte) {
	switch b {
	case 0x07:
		p.dispatchOSC()
		p.state = stateGround
	case 0x1b:
		// ESC \ terminates; the backslash is eaten by the escape state.
		p.dispatchOSC()
		p.state = stateEscape
	default:
		if len(p.osc) < maxOSCBytes {
			p.osc = append(p.osc, b)
		}
	}
}

func (p *Parser) dispatchOSC() {
	cmd, value, ok := strings.Cut(string(p.osc), ";")
	if !ok {
		return
	}
	switch cmd {
	case "0", "2":
		p.screen.title = value
	}
}

// param returns parameter i, or def when it is omitted or zero.
func (p *Parser) param(i, def int) int {
	if i < len(p.params) && p.params[i] > 0 {
		return p.params[i]
	}
	return def
}

// rawParam returns parameter i with omitted values read as zero.
func (p *Parser) rawParam(i int) int {
	if i < len(p.params) && p.params[i] > 0 {
		return p.params[i]
	}
	return 0
}

func (p *Parser) dispatchCSI(final byte) {
	s := p.screen
	if p.prefix == '?' {
		switch final {
		case 'h':
			p.setPrivateModes(true)
		case 'l':
			p.setPrivateModes(false)
		}
		return
	}
	if p.prefix != 0 || len(p.inter) > 0 {
		// Secondary DA, cursor style and similar do not touch the grid.
		return
	}

	switch final {
	case 'A':
		s.moveBy(0, -p.param(0, 1))
	case 'B', 'e':
		s.moveBy(0, p.param(0, 1))
	case 'C', 'a':
		s.moveBy(p.param(0, 1), 0)
	case 'D':
		s.moveBy(-p.param(0, 1), 0)
	case 'E':
		s.moveBy(0, p.param(0, 1))
		s.carriageReturn()
	case 'F':
		s.moveBy(0, -p.param(0, 1))
		s.carriageReturn()
	case 'G', '`':
		s.wrapNext = false
		s.x = min(p.param(0, 1)-1, s.width-1)
	case 'H', 'f':
		s.moveTo(p.param(1, 1)-1, p.param(0, 1)-1)
	case 'd':
		s.moveTo(s.x, p.param(0, 1)-1)
	case 'J':
		s.eraseDisplay(p.rawParam(0))
	case 'K':
		s.eraseLine(p.rawParam(0))
	case 'L':
		s.insertLines(p.param(0, 1))
	case 'M':
		s.deleteLines(p.param(0, 1))
	case '@':
		s.insertChars(p.param(0, 1))
	case 'P':
		s.deleteChars(p.param(0, 1))
	case 'X':
		s.eraseChars(p.param(0, 1))
	case 'S':
		s.scrollUp(p.param(0, 1))
	case 'T':
		s.scrollDown(p.param(0, 1))
	case 'm':
		p.sgr()
	case 'r':
		s.setScrollRegion(p.param(0, 1)-1, p.param(1, s.height)-1)
	case 's':
		s.saveCursor()
	case 'u':
		s.restoreCursor()
	}
}

func (p *Parser) setPrivateModes(on bool) {
	s := p.screen
	for i := range p.params {
		switch p.rawParam(i) {
		case 6:
			s.originMode = on
			s.moveTo(0, 0)
		case 7:
			s.autoWrap = on
		case 25:
			s.cursorVisible = on
		case 47, 1047:
			if on {
				s.enterAlternate(false)
			} else {
				s.exitAlternate(false)
			}
		case 1049:
			if on {
				s.enterAlternate(true)
			} else {
				s.exitAlternate(true)
			}
		}
	}
}

func (p *Parser) sgr() {
	pen := &p.screen.pen
	if len(p.params) == 0 {
		p.screen.resetPen()
		return
	}

	for i := 0; i < len(p.params); i++ {
		switch n := p.rawParam(i); {
		case n == 0:
			p.screen.resetPen()
		case n == 1:
			pen.Attrs |= AttrBold
		case n == 2:
			pen.Attrs |= AttrDim
		case n == 3:
			pen.Attrs |= AttrItalic
		case n == 4, n == 21:
			pen.Attrs |= AttrUnderline
		case n == 5, n == 6:
			pen.Attrs |= AttrBlink
		case n == 7:
			pen.Attrs |= AttrReverse
		case n == 8:
			pen.Attrs |= AttrHidden
		case n == 9:
			pen.Attrs |= AttrStrike
		case n == 22:
			pen.Attrs &^= AttrBold | AttrDim
		case n == 23:
			pen.Attrs &^= AttrItalic
		case n == 24:
			pen.Attrs &^= AttrUnderline
		case n == 25:
			pen.Attrs &^= AttrBlink
		case n == 27:
			pen.Attrs &^= AttrReverse
		case n == 28:
			pen.Attrs &^= AttrHidden
		case n == 29:
			pen.Attrs &^= AttrStrike
		case n >= 30 && n <= 37:
			pen.Fg = ColorFromIndex(n - 30)
		case n == 38:
			var c Color
			c, i = p.extendedColor(i)
			pen.Fg = c
		case n == 39:
			pen.Fg = DefaultColor
		case n >= 40 && n <= 47:
			pen.Bg = ColorFromIndex(n - 40)
		case n == 48:
			var c Color
			c, i = p.extendedColor(i)
			pen.Bg = c
		case n == 49:
			pen.Bg = DefaultColor
		case n >= 90 && n <= 97:
			pen.Fg = ColorFromIndex(n - 90 + 8)
		case n >= 100 && n <= 107:
			pen.Bg = ColorFromIndex(n - 100 + 8)
		}
	}
}

// extendedColor decodes "38;5;n" and "38;2;r;g;b" starting at the 38 or 48
// in params[i]. It returns the color and the index of the last parameter
// consumed. Malformed forms yield DefaultColor.
func (p *Parser) extendedColor(i int) (Color, int) {
	switch p.rawParam(i + 1) {
	case 5:
		if i+2 < len(p.params) {
			return ColorFromIndex(min(p.rawParam(i+2), 255)), i + 2
		}
	case 2:
		if i+4 < len(p.params) {
			return ColorFromRGB(channel(p.rawParam(i+2)), channel(p.rawParam(i+3)), channel(p.rawParam(i+4))), i + 4
		}
	}
	return DefaultColor, len(p.params)
}

func channel(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
