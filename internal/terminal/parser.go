package terminal

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds applied to incoming sequences. A sequence exceeding them is discarded:
// the parser moves to an ignore state and consumes the rest of it, up to its
// real terminator, without buffering.
const (
	maxSequenceLen = 256  // bytes in one ESC or CSI sequence
	maxParams      = 32   // CSI parameters; extras are dropped
	maxParamValue  = 65535
	maxStringLen   = 4096 // OSC/DCS/SOS/PM/APC payload
)

// ParserState is the interpreter's current mode.
type ParserState uint8

const (
	StateGround ParserState = iota
	StateEscape
	StateEscapeIntermediate
	StateCSIEntry
	StateCSIParam
	StateCSIIntermediate
	StateCSIIgnore
	StateOSCString
	StateStringIgnore
)

var stateNames = [...]string{
	StateGround:             "Ground",
	StateEscape:             "Escape",
	StateEscapeIntermediate: "EscapeIntermediate",
	StateCSIEntry:           "CSIEntry",
	StateCSIParam:           "CSIParam",
	StateCSIIntermediate:    "CSIIntermediate",
	StateCSIIgnore:          "CSIIgnore",
	StateOSCString:          "OSCString",
	StateStringIgnore:       "StringIgnore",
}

func (s ParserState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "ParserState(" + strconv.Itoa(int(s)) + ")"
}

// Parser is a streaming escape-sequence interpreter. Every byte is accepted in
// every state; unsupported sequences are consumed and dropped.
type Parser struct {
	screen *Screen

	state   ParserState
	seqLen  int
	private byte   // CSI private marker: '?', '>', '=' or '<'
	params  []int  // CSI parameters
	colon   []bool // colon[i] is true when params[i] is a ':' sub-parameter
	dropped bool   // parameters beyond maxParams were seen
	inter   []byte // intermediate bytes
	str     []byte // OSC payload

	// UTF-8 decoding state
	utf8Buf   [4]byte
	utf8Len   int // expected length of the current sequence
	utf8Count int // bytes collected so far

	onMalformed func(reason string)
	respond     func([]byte)
}

// NewParser creates a parser that applies its effects to screen.
func NewParser(screen *Screen) *Parser {
	return &Parser{
		screen: screen,
		params: make([]int, 0, 16),
		colon:  make([]bool, 0, 16),
		inter:  make([]byte, 0, 4),
		str:    make([]byte, 0, 64),
	}
}

// SetMalformedHandler sets a callback invoked when a sequence is discarded.
func (p *Parser) SetMalformedHandler(fn func(reason string)) {
	p.onMalformed = fn
}

// SetResponder sets the callback receiving replies to DA and DSR queries.
func (p *Parser) SetResponder(fn func([]byte)) {
	p.respond = fn
}

// State returns the current parser state.
func (p *Parser) State() ParserState {
	return p.state
}

// Parse feeds data through the state machine.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.advance(b)
	}
}

// ParseString feeds s through the state machine.
func (p *Parser) ParseString(s string) {
	p.Parse([]byte(s))
}

func (p *Parser) advance(b byte) {
	// Transitions valid from any state.
	switch b {
	case 0x18, 0x1a: // CAN, SUB
		p.flushUTF8()
		if p.state != StateGround {
			p.malformed("sequence cancelled in %s", p.state)
		}
		p.state = StateGround
		return
	case 0x1b: // ESC
		p.flushUTF8()
		if p.state == StateOSCString {
			p.dispatchOSC()
		}
		p.enter(StateEscape)
		return
	}

	switch p.state {
	case StateGround:
		p.ground(b)
	case StateEscape:
		p.escape(b)
	case StateEscapeIntermediate:
		p.escapeIntermediate(b)
	case StateCSIEntry, StateCSIParam:
		p.csiParam(b)
	case StateCSIIntermediate:
		p.csiIntermediate(b)
	case StateCSIIgnore:
		p.csiIgnore(b)
	case StateOSCString:
		p.oscString(b)
	case StateStringIgnore:
		p.stringIgnore(b)
	}
}

// enter starts a new sequence in state.
func (p *Parser) enter(state ParserState) {
	p.state = state
	p.seqLen = 0
	p.private = 0
	p.params = p.params[:0]
	p.colon = p.colon[:0]
	p.dropped = false
	p.inter = p.inter[:0]
	p.str = p.str[:0]
}

func (p *Parser) malformed(format string, args ...any) {
	if p.onMalformed != nil {
		p.onMalformed(fmt.Sprintf(format, args...))
	}
}

// countByte tracks sequence length. A sequence that grows too long is
// abandoned and the remainder up to its final byte is swallowed in CSIIgnore.
func (p *Parser) countByte(limit int) bool {
	p.seqLen++
	if p.seqLen > limit {
		p.malformed("%s sequence exceeded %d bytes", p.state, limit)
		p.state = StateCSIIgnore
		return false
	}
	return true
}

func (p *Parser) execute(b byte) {
	switch b {
	case 0x08: // BS
		p.screen.Backspace()
	case 0x09: // HT
		p.screen.Tab(1)
	case 0x0a, 0x0b, 0x0c: // LF, VT, FF
		p.screen.LineFeed()
	case 0x0d: // CR
		p.screen.CarriageReturn()
	case 0x0e: // SO
		p.screen.ShiftCharset(1)
	case 0x0f: // SI
		p.screen.ShiftCharset(0)
	}
}

func (p *Parser) ground(b byte) {
	if p.utf8Len > 0 {
		if b >= 0x80 && b < 0xc0 {
			p.utf8Continue(b)
			return
		}
		p.flushUTF8()
	}

	switch {
	case b < 0x20:
		p.execute(b)
	case b < 0x7f:
		p.screen.WriteRune(rune(b))
	case b == 0x7f:
		// DEL is ignored
	case b >= 0xc2 && b < 0xe0:
		p.utf8Start(b, 2)
	case b >= 0xe0 && b < 0xf0:
		p.utf8Start(b, 3)
	case b >= 0xf0 && b < 0xf5:
		p.utf8Start(b, 4)
	default:
		// Stray continuation or invalid lead byte.
		p.screen.WriteRune('\uFFFD')
	}
}

func (p *Parser) utf8Start(b byte, n int) {
	p.utf8Buf[0] = b
	p.utf8Len = n
	p.utf8Count = 1
}

func (p *Parser) utf8Continue(b byte) {
	p.utf8Buf[p.utf8Count] = b
	p.utf8Count++
	if p.utf8Count < p.utf8Len {
		return
	}
	r := decodeUTF8(p.utf8Buf[:p.utf8Len])
	p.utf8Len, p.utf8Count = 0, 0
	p.screen.WriteRune(r)
}

// flushUTF8 emits a replacement character for an incomplete UTF-8 sequence.
func (p *Parser) flushUTF8() {
	if p.utf8Len == 0 {
		return
	}
	p.utf8Len, p.utf8Count = 0, 0
	p.screen.WriteRune('\uFFFD')
}

func decodeUTF8(buf []byte) rune {
	var r rune
	switch len(buf) {
	case 2:
		r = rune(buf[0]&0x1f)<<6 | rune(buf[1]&0x3f)
		if r < 0x80 {
			return '\uFFFD'
		}
	case 3:
		r = rune(buf[0]&0x0f)<<12 | rune(buf[1]&0x3f)<<6 | rune(buf[2]&0x3f)
		if r < 0x800 || (r >= 0xd800 && r <= 0xdfff) {
			return '\uFFFD'
		}
	case 4:
		r = rune(buf[0]&0x07)<<18 | rune(buf[1]&0x3f)<<12 | rune(buf[2]&0x3f)<<6 | rune(buf[3]&0x3f)
		if r < 0x10000 || r > 0x10ffff {
			return '\uFFFD'
		}
	default:
		return '\uFFFD'
	}
	return r
}

func (p *Parser) escape(b byte) {
	if !p.countByte(maxSequenceLen) {
		return
	}
	switch {
	case b < 0x20:
		p.execute(b)
	case b < 0x30:
		p.inter = append(p.inter, b)
		p.state = StateEscapeIntermediate
	case b == '[':
		p.enter(StateCSIEntry)
	case b == ']':
		p.enter(StateOSCString)
	case b == 'P', b == 'X', b == '^', b == '_': // DCS, SOS, PM, APC
		p.enter(StateStringIgnore)
	case b < 0x7f:
		p.state = StateGround
		p.dispatchEscape(b)
	case b == 0x7f:
		// ignored
	default:
		p.malformed("invalid byte 0x%02x after ESC", b)
		p.state = StateGround
	}
}

func (p *Parser) escapeIntermediate(b byte) {
	if !p.countByte(maxSequenceLen) {
		return
	}
	switch {
	case b < 0x20:
		p.execute(b)
	case b < 0x30:
		p.inter = append(p.inter, b)
	case b < 0x7f:
		p.state = StateGround
		p.dispatchEscape(b)
	case b == 0x7f:
		// ignored
	default:
		p.malformed("invalid byte 0x%02x in ESC sequence", b)
		p.state = StateGround
	}
}

func (p *Parser) dispatchEscape(final byte) {
	if len(p.inter) > 0 {
		switch p.inter[0] {
		case '(', ')':
			if cs, ok := charsetFor(final); ok {
				p.screen.DesignateCharset(int(p.inter[0]-'('), cs)
			}
		case '#':
			if final == '8' {
				p.screen.Align()
			}
		}
		return
	}

	switch final {
	case '7': // DECSC
		p.screen.SaveCursor()
	case '8': // DECRC
		p.screen.RestoreCursor()
	case 'D': // IND
		p.screen.Index()
	case 'E': // NEL
		p.screen.CarriageReturn()
		p.screen.Index()
	case 'M': // RI
		p.screen.ReverseIndex()
	case 'H': // HTS
		p.screen.SetTabStop()
	case 'c': // RIS
		p.screen.Reset()
	case '=': // DECKPAM
		p.screen.SetAppKeypad(true)
	case '>': // DECKPNM
		p.screen.SetAppKeypad(false)
	case '\\': // ST with nothing to terminate
	}
}

func (p *Parser) csiParam(b byte) {
	if !p.countByte(maxSequenceLen) {
		return
	}
	switch {
	case b < 0x20:
		p.execute(b)
	case b >= '0' && b <= '9':
		p.paramDigit(b)
		p.state = StateCSIParam
	case b == ';':
		p.nextParam(false)
		p.state = StateCSIParam
	case b == ':':
		p.nextParam(true)
		p.state = StateCSIParam
	case b >= '<' && b <= '?':
		if p.state != StateCSIEntry {
			p.malformed("private marker %q inside CSI parameters", b)
			p.state = StateCSIIgnore
			return
		}
		p.private = b
		p.state = StateCSIParam
	case b < 0x30:
		p.inter = append(p.inter, b)
		p.state = StateCSIIntermediate
	case b >= 0x40 && b < 0x7f:
		p.state = StateGround
		p.dispatchCSI(b)
	case b == 0x7f:
		// ignored
	default:
		p.malformed("invalid byte 0x%02x in CSI", b)
		p.state = StateCSIIgnore
	}
}

func (p *Parser) csiIntermediate(b byte) {
	if !p.countByte(maxSequenceLen) {
		return
	}
	switch {
	case b < 0x20:
		p.execute(b)
	case b < 0x30:
		p.inter = append(p.inter, b)
	case b >= 0x40 && b < 0x7f:
		p.state = StateGround
		p.dispatchCSI(b)
	case b == 0x7f:
		// ignored
	default:
		p.malformed("invalid byte 0x%02x after CSI intermediate", b)
		p.state = StateCSIIgnore
	}
}

// csiIgnore consumes until a final byte. It has no length bound since
// nothing is kept.
func (p *Parser) csiIgnore(b byte) {
	switch {
	case b < 0x20:
		p.execute(b)
	case b >= 0x40 && b < 0x7f:
		p.state = StateGround
	}
}

func (p *Parser) paramDigit(b byte) {
	if len(p.params) == 0 {
		p.params = append(p.params, 0)
		p.colon = append(p.colon, false)
	}
	if p.dropped {
		return
	}
	i := len(p.params) - 1
	v := p.params[i]*10 + int(b-'0')
	if v > maxParamValue {
		v = maxParamValue
	}
	p.params[i] = v
}

func (p *Parser) nextParam(colon bool) {
	if len(p.params) == 0 {
		p.params = append(p.params, 0)
		p.colon = append(p.colon, false)
	}
	if len(p.params) >= maxParams {
		if !p.dropped {
			p.malformed("more than %d CSI parameters", maxParams)
		}
		p.dropped = true
		return
	}
	p.params = append(p.params, 0)
	p.colon = append(p.colon, colon)
}

// param returns parameter i, or def when it is absent or zero.
func (p *Parser) param(i, def int) int {
	if i < len(p.params) && p.params[i] > 0 {
		return p.params[i]
	}
	return def
}

func (p *Parser) oscString(b byte) {
	switch {
	case b == 0x07: // BEL
		p.dispatchOSC()
		p.state = StateGround
	case b < 0x20:
		// Other controls are ignored inside strings.
	default:
		if len(p.str) >= maxStringLen {
			p.malformed("OSC payload exceeded %d bytes", maxStringLen)
			p.enter(StateStringIgnore)
			return
		}
		p.str = append(p.str, b)
	}
}

// stringIgnore swallows a control string until BEL or ST. CAN, SUB and the
// ESC of ST are handled in advance.
func (p *Parser) stringIgnore(b byte) {
	if b == 0x07 {
		p.state = StateGround
	}
}

func (p *Parser) dispatchOSC() {
	cmd, value, _ := strings.Cut(string(p.str), ";")
	switch cmd {
	case "0", "2":
		p.screen.SetTitle(strings.ToValidUTF8(value, "\uFFFD"))
	}
}

func (p *Parser) reply(format string, args ...any) {
	if p.respond != nil {
		p.respond(fmt.Appendf(nil, format, args...))
	}
}

func (p *Parser) dispatchCSI(final byte) {
	if len(p.inter) > 0 {
		switch {
		case p.inter[0] == ' ' && final == 'q': // DECSCUSR
			switch p.param(0, 1) {
			case 1, 2:
				p.screen.SetCursorStyle(CursorBlock)
			case 3, 4:
				p.screen.SetCursorStyle(CursorUnderline)
			case 5, 6:
				p.screen.SetCursorStyle(CursorBar)
			}
		case p.inter[0] == '!' && final == 'p': // DECSTR
			p.screen.SoftReset()
		}
		return
	}

	switch p.private {
	case 0:
	case '?':
		switch final {
		case 'h':
			p.setPrivateModes(true)
		case 'l':
			p.setPrivateModes(false)
		}
		return
	case '>':
		if final == 'c' && p.param(0, 0) == 0 {
			p.reply("\x1b[>1;10;0c")
		}
		return
	default:
		return
	}

	s := p.screen
	switch final {
	case '@': // ICH
		s.InsertChars(p.param(0, 1))
	case 'A': // CUU
		s.CursorUp(p.param(0, 1))
	case 'B': // CUD
		s.CursorDown(p.param(0, 1))
	case 'C', 'a': // CUF, HPR
		s.CursorForward(p.param(0, 1))
	case 'D': // CUB
		s.CursorBack(p.param(0, 1))
	case 'E': // CNL
		s.CursorDown(p.param(0, 1))
		s.CarriageReturn()
	case 'F': // CPL
		s.CursorUp(p.param(0, 1))
		s.CarriageReturn()
	case 'G', '`': // CHA, HPA
		s.SetCursorCol(p.param(0, 1) - 1)
	case 'H', 'f': // CUP, HVP
		s.MoveCursor(p.param(0, 1)-1, p.param(1, 1)-1)
	case 'I': // CHT
		s.Tab(p.param(0, 1))
	case 'J': // ED
		s.EraseDisplay(p.param(0, 0))
	case 'K': // EL
		s.EraseLine(p.param(0, 0))
	case 'L': // IL
		s.InsertLines(p.param(0, 1))
	case 'M': // DL
		s.DeleteLines(p.param(0, 1))
	case 'P': // DCH
		s.DeleteChars(p.param(0, 1))
	case 'S': // SU
		s.ScrollUp(p.param(0, 1))
	case 'T': // SD
		s.ScrollDown(p.param(0, 1))
	case 'X': // ECH
		s.EraseChars(p.param(0, 1))
	case 'Z': // CBT
		s.BackTab(p.param(0, 1))
	case 'b': // REP
		s.RepeatLast(p.param(0, 1))
	case 'c': // DA
		if p.param(0, 0) == 0 {
			p.reply("\x1b[?1;2c")
		}
	case 'd': // VPA
		s.SetCursorRow(p.param(0, 1) - 1)
	case 'e': // VPR
		s.CursorDown(p.param(0, 1))
	case 'g': // TBC
		s.ClearTabStop(p.param(0, 0))
	case 'h': // SM
		p.setModes(true)
	case 'l': // RM
		p.setModes(false)
	case 'm': // SGR
		p.selectGraphicRendition()
	case 'n': // DSR
		switch p.param(0, 0) {
		case 5:
			p.reply("\x1b[0n")
		case 6:
			row, col := s.Cursor()
			if s.originMode {
				row -= s.scrollTop
			}
			p.reply("\x1b[%d;%dR", row+1, col+1)
		}
	case 'r': // DECSTBM
		s.SetScrollRegion(p.param(0, 1)-1, p.param(1, s.Rows())-1)
	case 's': // SCOSC
		s.SaveCursor()
	case 'u': // SCORC
		s.RestoreCursor()
	}
}

func (p *Parser) setModes(set bool) {
	for _, mode := range p.params {
		switch mode {
		case 4:
			p.screen.SetInsertMode(set)
		case 20:
			p.screen.SetNewLineMode(set)
		}
	}
}

func (p *Parser) setPrivateModes(set bool) {
	s := p.screen
	for _, mode := range p.params {
		switch mode {
		case 1: // DECCKM
			s.SetAppCursorKeys(set)
		case 6: // DECOM
			s.SetOriginMode(set)
		case 7: // DECAWM
			s.SetAutoWrap(set)
		case 25: // DECTCEM
			s.SetCursorVisible(set)
		case 47:
			s.SetAltScreen(set, false, false)
		case 1047:
			s.SetAltScreen(set, false, !set)
		case 1048:
			if set {
				s.SaveCursor()
			} else {
				s.RestoreCursor()
			}
		case 1049:
			s.SetAltScreen(set, true, set)
		case 2004:
			s.SetBracketedPaste(set)
		}
	}
}

func (p *Parser) selectGraphicRendition() {
	pen := p.screen.Pen()
	if len(p.params) == 0 {
		p.screen.SetPen(Style{})
		return
	}

	for i := 0; i < len(p.params); i++ {
		code := p.params[i]
		sub := p.subParams(i)

		switch {
		case code == 0:
			pen = Style{}
		case code == 1:
			pen.Attrs |= AttrBold
		case code == 2:
			pen.Attrs |= AttrDim
		case code == 3:
			pen.Attrs |= AttrItalic
		case code == 4:
			if len(sub) > 0 && sub[0] == 0 {
				pen.Attrs &^= AttrUnderline
			} else {
				pen.Attrs |= AttrUnderline
			}
		case code == 5, code == 6:
			pen.Attrs |= AttrBlink
		case code == 7:
			pen.Attrs |= AttrInverse
		case code == 8:
			pen.Attrs |= AttrHidden
		case code == 9:
			pen.Attrs |= AttrStrike
		case code == 21:
			pen.Attrs |= AttrUnderline
		case code == 22:
			pen.Attrs &^= AttrBold | AttrDim
		case code == 23:
			pen.Attrs &^= AttrItalic
		case code == 24:
			pen.Attrs &^= AttrUnderline
		case code == 25:
			pen.Attrs &^= AttrBlink
		case code == 27:
			pen.Attrs &^= AttrInverse
		case code == 28:
			pen.Attrs &^= AttrHidden
		case code == 29:
			pen.Attrs &^= AttrStrike
		case code >= 30 && code <= 37:
			pen.Fg = PaletteColor(code - 30)
		case code == 39:
			pen.Fg = DefaultColor
		case code >= 40 && code <= 47:
			pen.Bg = PaletteColor(code - 40)
		case code == 49:
			pen.Bg = DefaultColor
		case code >= 90 && code <= 97:
			pen.Fg = PaletteColor(code - 90 + 8)
		case code >= 100 && code <= 107:
			pen.Bg = PaletteColor(code - 100 + 8)
		case code == 38, code == 48, code == 58:
			var (
				color Color
				ok    bool
			)
			if len(sub) > 0 {
				color, ok = extendedColor(sub)
			} else {
				var n int
				color, n, ok = p.semicolonColor(i)
				i += n
			}
			if ok {
				switch code {
				case 38:
					pen.Fg = color
				case 48:
					pen.Bg = color
				}
				// 58 (underline color) is parsed but not tracked.
			}
		}
		i += len(sub)
	}
	p.screen.SetPen(pen)
}

// subParams returns the ':' sub-parameters following params[i].
func (p *Parser) subParams(i int) []int {
	j := i + 1
	for j < len(p.params) && p.colon[j] {
		j++
	}
	return p.params[i+1 : j]
}

// semicolonColor parses "38;5;n" or "38;2;r;g;b" starting at params[i] and
// returns how many extra parameters it consumed.
func (p *Parser) semicolonColor(i int) (Color, int, bool) {
	rest := p.params[i+1:]
	if len(rest) == 0 {
		return DefaultColor, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return DefaultColor, len(rest), false
		}
		return PaletteColor(rest[1]), 2, true
	case 2:
		if len(rest) < 4 {
			return DefaultColor, len(rest), false
		}
		return RGBColor(clampByte(rest[1]), clampByte(rest[2]), clampByte(rest[3])), 4, true
	}
	return DefaultColor, 1, false
}

// extendedColor parses the sub-parameters of a ':' color: "5:n", "2:r:g:b" or
// "2:cs:r:g:b" with a color space id.
func extendedColor(sub []int) (Color, bool) {
	if len(sub) == 0 {
		return DefaultColor, false
	}
	switch sub[0] {
	case 5:
		if len(sub) >= 2 {
			return PaletteColor(sub[1]), true
		}
	case 2:
		switch {
		case len(sub) >= 5:
			return RGBColor(clampByte(sub[2]), clampByte(sub[3]), clampByte(sub[4])), true
		case len(sub) == 4:
			return RGBColor(clampByte(sub[1]), clampByte(sub[2]), clampByte(sub[3])), true
		}
	}
	return DefaultColor, false
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
