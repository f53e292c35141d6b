package terminal

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func newTestParser(rows, cols int) (*Screen, *Parser) {
	s := NewScreen(rows, cols, 100)
	return s, NewParser(s)
}

func assertLine(t *testing.T, s *Screen, row int, want string) {
	t.Helper()
	got := strings.TrimRight(s.LineText(row), " ")
	if got != want {
		t.Errorf("row %d: expected %q, got %q", row, want, got)
	}
}

func assertCursor(t *testing.T, s *Screen, row, col int) {
	t.Helper()
	r, c := s.Cursor()
	if r != row || c != col {
		t.Errorf("expected cursor at (%d,%d), got (%d,%d)", row, col, r, c)
	}
}

func TestParserPlainText(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("Hello")

	assertLine(t, s, 0, "Hello")
	assertCursor(t, s, 0, 5)
}

func TestParserNewline(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("A\r\nB")

	if c := s.Cell(0, 0); c.Rune != 'A' {
		t.Errorf("expected 'A' on row 0, got %q", c.Rune)
	}
	if c := s.Cell(1, 0); c.Rune != 'B' {
		t.Errorf("expected 'B' on row 1, got %q", c.Rune)
	}
}

func TestParserLineFeedKeepsColumn(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("AB\nC")

	if c := s.Cell(1, 2); c.Rune != 'C' {
		t.Errorf("expected 'C' at (1,2), got %q", c.Rune)
	}
}

func TestParserNewLineMode(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b[20hAB\nC")

	if c := s.Cell(1, 0); c.Rune != 'C' {
		t.Errorf("expected 'C' at (1,0) in new-line mode, got %q", c.Rune)
	}
}

func TestParserCarriageReturn(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("ABC\rX")

	assertLine(t, s, 0, "XBC")
}

func TestParserTab(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("A\tB")

	if c := s.Cell(0, 8); c.Rune != 'B' {
		t.Errorf("expected 'B' at column 8, got %q", c.Rune)
	}
}

func TestParserBackspace(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("AB\bC")

	assertLine(t, s, 0, "AC")
}

func TestParserAutoWrap(t *testing.T) {
	s, p := newTestParser(4, 5)

	p.ParseString("abcdefg")

	assertLine(t, s, 0, "abcde")
	assertLine(t, s, 1, "fg")
	assertCursor(t, s, 1, 2)
	if !s.buf.lines[0].Wrapped {
		t.Error("expected row 0 to be marked wrapped")
	}
}

func TestParserPendingWrapStaysInBounds(t *testing.T) {
	s, p := newTestParser(4, 5)

	p.ParseString("abcde")
	assertCursor(t, s, 0, 4)

	p.ParseString("\rX")
	assertLine(t, s, 0, "Xbcde")
	assertLine(t, s, 1, "")
}

func TestParserNoAutoWrap(t *testing.T) {
	s, p := newTestParser(4, 5)

	p.ParseString("\x1b[?7labcdefg")

	assertLine(t, s, 0, "abcdg")
	assertLine(t, s, 1, "")
}

func TestParserCursorPosition(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		row     int
		col     int
	}{
		{"CUP", "\x1b[3;5H", 2, 4},
		{"HVP", "\x1b[3;5f", 2, 4},
		{"CUP default", "\x1b[3;5H\x1b[H", 0, 0},
		{"CUP clamps", "\x1b[99;99H", 23, 79},
		{"CUU and CUF", "\x1b[5;5H\x1b[2A\x1b[3C", 2, 7},
		{"CUB clamps", "\x1b[1;5H\x1b[10D", 0, 0},
		{"CUD clamps", "\x1b[50B", 23, 0},
		{"CNL", "\x1b[1;5H\x1b[2E", 2, 0},
		{"CPL", "\x1b[5;5H\x1b[2F", 2, 0},
		{"CHA", "\x1b[2;2H\x1b[10G", 1, 9},
		{"HPA", "\x1b[2;2H\x1b[10`", 1, 9},
		{"VPA", "\x1b[2;2H\x1b[10d", 9, 1},
		{"HPR", "\x1b[2;2H\x1b[3a", 1, 4},
		{"VPR", "\x1b[2;2H\x1b[3e", 4, 1},
		{"huge parameter", "\x1b[99999999C", 0, 79},
		{"CHT", "\x1b[2I", 0, 16},
		{"CBT", "\x1b[1;20H\x1b[2Z", 0, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := newTestParser(24, 80)
			p.ParseString(tt.input)
			assertCursor(t, s, tt.row, tt.col)
		})
	}
}

func TestParserEraseLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"to end", "abcdef\x1b[1;3H\x1b[K", "ab"},
		{"to start", "abcdef\x1b[1;3H\x1b[1K", "   def"},
		{"whole line", "abcdef\x1b[1;3H\x1b[2K", ""},
		{"erase chars", "abcdef\x1b[1;2H\x1b[2X", "a  def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := newTestParser(24, 80)
			p.ParseString(tt.input)
			assertLine(t, s, 0, tt.want)
		})
	}
}

func TestParserEraseDisplay(t *testing.T) {
	s, p := newTestParser(4, 10)
	p.ParseString("one\r\ntwo\r\nthree\r\nfour")

	p.ParseString("\x1b[2;2H\x1b[J")
	assertLine(t, s, 0, "one")
	assertLine(t, s, 1, "t")
	assertLine(t, s, 2, "")
	assertLine(t, s, 3, "")

	s, p = newTestParser(4, 10)
	p.ParseString("one\r\ntwo\r\nthree\r\nfour")
	p.ParseString("\x1b[3;2H\x1b[1J")
	assertLine(t, s, 0, "")
	assertLine(t, s, 1, "")
	assertLine(t, s, 2, "  ree")
	assertLine(t, s, 3, "four")

	p.ParseString("\x1b[2J")
	for row := 0; row < 4; row++ {
		assertLine(t, s, row, "")
	}
}

func TestParserScrollRegion(t *testing.T) {
	s, p := newTestParser(5, 10)

	p.ParseString("\x1b[2;4r")
	assertCursor(t, s, 0, 0)

	p.ParseString("\x1b[1;1Htop\x1b[2;1Hone\x1b[3;1Htwo\x1b[4;1Hthree\x1b[5;1Hbottom")
	p.ParseString("\x1b[4;1H\n")

	assertLine(t, s, 0, "top")
	assertLine(t, s, 1, "two")
	assertLine(t, s, 2, "three")
	assertLine(t, s, 3, "")
	assertLine(t, s, 4, "bottom")
	if n := s.History().Len(); n != 0 {
		t.Errorf("expected no scrollback from a partial region, got %d", n)
	}
}

func TestParserScrollUpDown(t *testing.T) {
	s, p := newTestParser(3, 10)
	p.ParseString("a\r\nb\r\nc")

	p.ParseString("\x1b[S")
	assertLine(t, s, 0, "b")
	assertLine(t, s, 1, "c")
	assertLine(t, s, 2, "")

	p.ParseString("\x1b[2T")
	assertLine(t, s, 0, "")
	assertLine(t, s, 1, "")
	assertLine(t, s, 2, "b")
}

func TestParserReverseIndex(t *testing.T) {
	s, p := newTestParser(3, 10)
	p.ParseString("a\r\nb\r\nc\x1b[H\x1bM")

	assertLine(t, s, 0, "")
	assertLine(t, s, 1, "a")
	assertLine(t, s, 2, "b")
}

func TestParserScrollback(t *testing.T) {
	s, p := newTestParser(3, 10)

	p.ParseString("1\r\n2\r\n3\r\n4")

	if n := s.History().Len(); n != 1 {
		t.Fatalf("expected 1 scrollback row, got %d", n)
	}
	if got := strings.TrimRight(s.History().Line(0).Text(), " "); got != "1" {
		t.Errorf("expected scrollback row %q, got %q", "1", got)
	}
	assertLine(t, s, 0, "2")
	assertLine(t, s, 2, "4")
}

func TestParserAltScreen(t *testing.T) {
	s, p := newTestParser(3, 10)

	p.ParseString("main\x1b[?1049h")
	if !s.AltScreen() {
		t.Fatal("expected alternate screen")
	}
	assertLine(t, s, 0, "")

	p.ParseString("alt\r\n1\r\n2\r\n3\r\n4")
	if n := s.History().Len(); n != 0 {
		t.Errorf("expected alternate screen scrolling to skip scrollback, got %d rows", n)
	}

	p.ParseString("\x1b[?1049l")
	if s.AltScreen() {
		t.Fatal("expected primary screen")
	}
	assertLine(t, s, 0, "main")
	assertCursor(t, s, 0, 4)
}

func TestParserAltScreen47KeepsContents(t *testing.T) {
	s, p := newTestParser(3, 10)

	p.ParseString("\x1b[?47hx\x1b[?47l\x1b[?47h")

	if c := s.Cell(0, 0); c.Rune != 'x' {
		t.Errorf("expected alternate buffer to keep 'x', got %q", c.Rune)
	}
}

func TestParserSGR(t *testing.T) {
	tests := []struct {
		name  string
		input string
		fg    Color
		bg    Color
		attrs Attributes
	}{
		{"bold red", "\x1b[1;31mX", PaletteColor(1), DefaultColor, AttrBold},
		{"reset", "\x1b[1;31m\x1b[0mX", DefaultColor, DefaultColor, AttrNone},
		{"empty resets", "\x1b[4m\x1b[mX", DefaultColor, DefaultColor, AttrNone},
		{"bright", "\x1b[91;102mX", PaletteColor(9), PaletteColor(10), AttrNone},
		{"256", "\x1b[38;5;196mX", PaletteColor(196), DefaultColor, AttrNone},
		{"true color", "\x1b[48;2;10;20;30mX", DefaultColor, RGBColor(10, 20, 30), AttrNone},
		{"colon true color", "\x1b[38:2::1:2:3mX", RGBColor(1, 2, 3), DefaultColor, AttrNone},
		{"colon 256", "\x1b[38:5:42mX", PaletteColor(42), DefaultColor, AttrNone},
		{"colon underline style", "\x1b[4:3;1mX", DefaultColor, DefaultColor, AttrUnderline | AttrBold},
		{"underline off via colon", "\x1b[4m\x1b[4:0mX", DefaultColor, DefaultColor, AttrNone},
		{"normal intensity", "\x1b[1;2;4m\x1b[22mX", DefaultColor, DefaultColor, AttrUnderline},
		{"attributes", "\x1b[3;5;7;8;9mX", DefaultColor, DefaultColor, AttrItalic | AttrBlink | AttrInverse | AttrHidden | AttrStrike},
		{"attributes off", "\x1b[3;5;7;8;9m\x1b[23;25;27;28;29mX", DefaultColor, DefaultColor, AttrNone},
		{"default colors", "\x1b[31;41m\x1b[39;49mX", DefaultColor, DefaultColor, AttrNone},
		{"truncated extended color", "\x1b[38;5mX", DefaultColor, DefaultColor, AttrNone},
		{"private SGR ignored", "\x1b[>4;1mX", DefaultColor, DefaultColor, AttrNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := newTestParser(24, 80)
			p.ParseString(tt.input)

			c := s.Cell(0, 0)
			if c.Rune != 'X' {
				t.Fatalf("expected 'X', got %q", c.Rune)
			}
			if c.Fg != tt.fg {
				t.Errorf("expected fg %v, got %v", tt.fg, c.Fg)
			}
			if c.Bg != tt.bg {
				t.Errorf("expected bg %v, got %v", tt.bg, c.Bg)
			}
			if c.Attrs != tt.attrs {
				t.Errorf("expected attrs %b, got %b", tt.attrs, c.Attrs)
			}
		})
	}
}

func TestParserCursorVisibility(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b[?25l")
	if s.CursorVisible() {
		t.Error("expected hidden cursor")
	}
	p.ParseString("\x1b[?25h")
	if !s.CursorVisible() {
		t.Error("expected visible cursor")
	}
}

func TestParserSaveRestoreCursor(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b[3;3H\x1b7\x1b[1;1H\x1b8X")
	if c := s.Cell(2, 2); c.Rune != 'X' {
		t.Errorf("expected 'X' at (2,2) after DECRC, got %q", c.Rune)
	}

	p.ParseString("\x1b[5;5H\x1b[s\x1b[H\x1b[uY")
	if c := s.Cell(4, 4); c.Rune != 'Y' {
		t.Errorf("expected 'Y' at (4,4) after SCORC, got %q", c.Rune)
	}
}

func TestParserTitle(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b]0;hello\x07")
	if s.Title() != "hello" {
		t.Errorf("expected title %q, got %q", "hello", s.Title())
	}

	p.ParseString("\x1b]2;world\x1b\\")
	if s.Title() != "world" {
		t.Errorf("expected title %q, got %q", "world", s.Title())
	}

	p.ParseString("\x1b]7;file:///tmp\x07")
	if s.Title() != "world" {
		t.Errorf("expected OSC 7 to leave title alone, got %q", s.Title())
	}

	if p.State() != StateGround {
		t.Errorf("expected Ground, got %s", p.State())
	}
	assertLine(t, s, 0, "")
}

func TestParserUTF8(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("héllo")
	assertLine(t, s, 0, "héllo")

	s, p = newTestParser(24, 80)
	p.Parse([]byte("\xffA"))
	assertLine(t, s, 0, "�A")

	s, p = newTestParser(24, 80)
	p.Parse([]byte("\xe2\x82A"))
	assertLine(t, s, 0, "�A")
}

func TestParserUTF8SplitAcrossChunks(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.Parse([]byte{0xe2, 0x82})
	p.Parse([]byte{0xac})

	if c := s.Cell(0, 0); c.Rune != '€' {
		t.Errorf("expected '€', got %q", c.Rune)
	}
}

func TestParserWideRunes(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("中a")

	head := s.Cell(0, 0)
	if head.Rune != '中' || head.Width != 2 {
		t.Errorf("expected wide head, got %+v", head)
	}
	if tail := s.Cell(0, 1); tail.Rune != 0 || tail.Width != 0 {
		t.Errorf("expected wide tail, got %+v", tail)
	}
	if c := s.Cell(0, 2); c.Rune != 'a' {
		t.Errorf("expected 'a' at column 2, got %q", c.Rune)
	}
	assertLine(t, s, 0, "中a")
}

func TestParserWideRuneAtMargin(t *testing.T) {
	s, p := newTestParser(4, 5)

	p.ParseString("abcd中")

	assertLine(t, s, 0, "abcd")
	assertLine(t, s, 1, "中")
	assertCursor(t, s, 1, 2)
}

func TestParserInsertMode(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("abc\x1b[1;1H\x1b[4hX\x1b[4lY")

	assertLine(t, s, 0, "XYbc")
}

func TestParserInsertDeleteChars(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("abcdef\x1b[1;2H\x1b[2P")
	assertLine(t, s, 0, "adef")

	p.ParseString("\x1b[2@")
	assertLine(t, s, 0, "a  def")
}

func TestParserInsertDeleteLines(t *testing.T) {
	s, p := newTestParser(4, 10)
	p.ParseString("a\r\nb\r\nc\r\nd")

	p.ParseString("\x1b[2;1H\x1b[L")
	assertLine(t, s, 0, "a")
	assertLine(t, s, 1, "")
	assertLine(t, s, 2, "b")
	assertLine(t, s, 3, "c")

	p.ParseString("\x1b[M")
	assertLine(t, s, 1, "b")
	assertLine(t, s, 2, "c")
	assertLine(t, s, 3, "")
}

func TestParserRepeat(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("a\x1b[3b")

	assertLine(t, s, 0, "aaaa")
}

func TestParserLineDrawing(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b(0qx\x1b(B q")

	assertLine(t, s, 0, "─│ q")
}

func TestParserShiftOut(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b)0\x0eq\x0fq")

	assertLine(t, s, 0, "─q")
}

func TestParserFullReset(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("abc\x1b]0;t\x07\x1b[?25l\x1bc")

	assertLine(t, s, 0, "")
	assertCursor(t, s, 0, 0)
	if s.Title() != "" {
		t.Errorf("expected title cleared, got %q", s.Title())
	}
	if !s.CursorVisible() {
		t.Error("expected cursor visible after RIS")
	}
}

func TestParserSoftReset(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("abc\x1b[1m\x1b[?25l\x1b[!p")

	assertLine(t, s, 0, "abc")
	if s.Pen() != (Style{}) {
		t.Errorf("expected default pen, got %+v", s.Pen())
	}
	if !s.CursorVisible() {
		t.Error("expected cursor visible after DECSTR")
	}
}

func TestParserAlignmentTest(t *testing.T) {
	s, p := newTestParser(2, 3)

	p.ParseString("\x1b#8")

	assertLine(t, s, 0, "EEE")
	assertLine(t, s, 1, "EEE")
}

func TestParserModes(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b[?1h\x1b[?2004h")
	if !s.AppCursorKeys() || !s.BracketedPaste() {
		t.Error("expected application cursor keys and bracketed paste")
	}
	p.ParseString("\x1b[?1;2004l")
	if s.AppCursorKeys() || s.BracketedPaste() {
		t.Error("expected modes cleared")
	}
}

func TestParserCursorStyle(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b[5 q")
	if s.CursorStyle() != CursorBar {
		t.Errorf("expected bar cursor, got %d", s.CursorStyle())
	}
}

func TestParserReplies(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"primary DA", "\x1b[c", "\x1b[?1;2c"},
		{"secondary DA", "\x1b[>c", "\x1b[>1;10;0c"},
		{"status", "\x1b[5n", "\x1b[0n"},
		{"cursor position", "\x1b[3;4H\x1b[6n", "\x1b[3;4R"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newTestParser(24, 80)
			var got []byte
			p.SetResponder(func(b []byte) { got = append(got, b...) })
			p.ParseString(tt.input)
			if string(got) != tt.want {
				t.Errorf("expected reply %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParserCancel(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1b[12\x18X")

	if p.State() != StateGround {
		t.Errorf("expected Ground, got %s", p.State())
	}
	if c := s.Cell(0, 0); c.Rune != 'X' {
		t.Errorf("expected 'X' at (0,0), got %q", c.Rune)
	}
}

func TestParserControlInsideCSI(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("ab\x1b[\r2CX")

	if c := s.Cell(0, 2); c.Rune != 'X' {
		t.Errorf("expected CR to execute inside CSI, got %q at (0,2)", c.Rune)
	}
}

func TestParserTooManyParams(t *testing.T) {
	s, p := newTestParser(24, 80)
	var reasons []string
	p.SetMalformedHandler(func(r string) { reasons = append(reasons, r) })

	p.ParseString("\x1b[" + strings.Repeat("1;", 40) + "mX")

	if len(reasons) == 0 || !strings.Contains(reasons[0], "more than 32") {
		t.Errorf("expected parameter overflow report, got %v", reasons)
	}
	if c := s.Cell(0, 0); c.Attrs != AttrBold {
		t.Errorf("expected the retained parameters to apply, got attrs %b", c.Attrs)
	}
}

func TestParserOverlongSequence(t *testing.T) {
	s, p := newTestParser(24, 80)
	var reasons []string
	p.SetMalformedHandler(func(r string) { reasons = append(reasons, r) })

	p.ParseString("\x1b[" + strings.Repeat("1;", 200) + "mok")

	found := false
	for _, r := range reasons {
		if strings.Contains(r, "exceeded") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected length overflow report, got %v", reasons)
	}
	if p.State() != StateGround {
		t.Errorf("expected Ground, got %s", p.State())
	}
	assertLine(t, s, 0, "ok")
	if s.Pen().Attrs != 0 {
		t.Errorf("expected discarded SGR, got attrs %v", s.Pen().Attrs)
	}
	assertInBounds(t, s)
}

func TestParserOverlongOSC(t *testing.T) {
	s, p := newTestParser(24, 80)
	var reasons []string
	p.SetMalformedHandler(func(r string) { reasons = append(reasons, r) })

	p.ParseString("\x1b]0;" + strings.Repeat("a", 5000) + "\x07")

	if len(reasons) == 0 {
		t.Error("expected OSC overflow report")
	}
	if s.Title() != "" {
		t.Errorf("expected discarded title, got %d bytes", len(s.Title()))
	}
	if p.State() != StateGround {
		t.Errorf("expected Ground, got %s", p.State())
	}
	assertLine(t, s, 0, "")
	assertCursor(t, s, 0, 0)
}

func TestParserOverlongStringsLeaveGridUntouched(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"clipboard OSC with BEL", "\x1b]52;c;" + strings.Repeat("QUJD", 1250) + "\x07"},
		{"clipboard OSC with ST", "\x1b]52;c;" + strings.Repeat("QUJD", 1250) + "\x1b\\"},
		{"sixel DCS", "\x1bPq" + strings.Repeat("0~#", 1500) + "\x1b\\"},
		{"APC", "\x1b_" + strings.Repeat("x", 9000) + "\x07"},
		{"long CSI", "\x1b[" + strings.Repeat("1;", 200) + "m"},
		{"long ESC intermediates", "\x1b" + strings.Repeat("(", 300) + "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := newTestParser(24, 80)

			p.ParseString(tt.input)
			p.ParseString("done")

			assertLine(t, s, 0, "done")
			assertCursor(t, s, 0, 4)
			for row := 1; row < s.Rows(); row++ {
				assertLine(t, s, row, "")
			}
			if p.State() != StateGround {
				t.Errorf("expected Ground, got %s", p.State())
			}
		})
	}
}

func TestParserOverlongStringSplitAcrossChunks(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1bPq")
	for i := 0; i < 10; i++ {
		p.ParseString(strings.Repeat("#0;2;0;0;0", 100))
	}
	p.ParseString("\x1b\\ok")

	assertLine(t, s, 0, "ok")
}

func TestParserDCSIgnored(t *testing.T) {
	s, p := newTestParser(24, 80)

	p.ParseString("\x1bP1$r0m\x1b\\ok")

	assertLine(t, s, 0, "ok")
	if p.State() != StateGround {
		t.Errorf("expected Ground, got %s", p.State())
	}
}

func TestParserStateString(t *testing.T) {
	if StateCSIParam.String() != "CSIParam" {
		t.Errorf("expected CSIParam, got %s", StateCSIParam)
	}
	if ParserState(99).String() != "ParserState(99)" {
		t.Errorf("unexpected name %s", ParserState(99))
	}
}

func assertInBounds(t *testing.T, s *Screen) {
	t.Helper()
	row, col := s.Cursor()
	if row < 0 || row >= s.Rows() || col < 0 || col >= s.Cols() {
		t.Fatalf("cursor (%d,%d) outside %dx%d", row, col, s.Rows(), s.Cols())
	}
	if len(s.buf.lines) != s.Rows() {
		t.Fatalf("expected %d rows, got %d", s.Rows(), len(s.buf.lines))
	}
	for i, l := range s.buf.lines {
		if len(l.Cells) != s.Cols() {
			t.Fatalf("row %d: expected %d cells, got %d", i, s.Cols(), len(l.Cells))
		}
	}
}

// TestParserRandomInput feeds biased random bytes and checks that the cursor
// stays in bounds and CAN always brings the parser back to ground.
func TestParserRandomInput(t *testing.T) {
	alphabet := []byte("\x1b\x1b\x1b[[[]]P?>;;:0123456789mHJKrhlABCDLMPSTX@bcn \r\n\t\b\x07\x18\x0e\x0fabc")
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		s, p := newTestParser(1+rng.IntN(30), 1+rng.IntN(100))
		chunk := make([]byte, 256)
		for i := range chunk {
			if rng.IntN(8) == 0 {
				chunk[i] = byte(rng.IntN(256))
			} else {
				chunk[i] = alphabet[rng.IntN(len(alphabet))]
			}
		}
		p.Parse(chunk)
		assertInBounds(t, s)

		p.Parse([]byte("\x18"))
		if p.State() != StateGround {
			t.Fatalf("round %d: parser stuck in %s", round, p.State())
		}
		assertInBounds(t, s)
	}
}
