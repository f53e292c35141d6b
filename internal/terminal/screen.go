package terminal

import (
	"github.com/rivo/uniseg"
)

// CursorStyle represents the cursor appearance.
type CursorStyle int

const (
	CursorBlock CursorStyle = iota
	CursorUnderline
	CursorBar
)

const defaultTabWidth = 8

// savedCursor is the state captured by DECSC and restored by DECRC.
type savedCursor struct {
	set        bool
	row, col   int
	wrapNext   bool
	pen        Style
	originMode bool
	charsets   [2]charset
	gl         int
}

// buffer is one of the two screen buffers.
type buffer struct {
	lines []*Line
	saved savedCursor
}

func newBuffer(rows, cols int) *buffer {
	b := &buffer{lines: make([]*Line, rows)}
	for i := range b.lines {
		b.lines[i] = newLine(cols, Style{})
	}
	return b
}

// Screen is the terminal screen model: a fixed-size grid of cells plus cursor and
// mode state. It is mutated only by the Parser.
//
// Screen is not safe for concurrent use; Emulator serializes access to it.
type Screen struct {
	rows, cols int

	primary   *buffer
	alternate *buffer
	buf       *buffer // active buffer
	alt       bool

	history *History

	// Cursor position, always within [0, rows) x [0, cols).
	cursorRow int
	cursorCol int
	// wrapNext is set after writing into the last column; the next printable
	// rune wraps first.
	wrapNext bool

	cursorVisible bool
	cursorStyle   CursorStyle

	pen      Style
	lastRune rune

	scrollTop    int
	scrollBottom int

	tabStops []bool
	title    string

	charsets [2]charset
	gl       int // active charset slot (0 = G0, 1 = G1)

	// Mode flags
	autoWrap       bool // DECAWM
	originMode     bool // DECOM
	insertMode     bool // IRM
	newLineMode    bool // LNM
	appCursorKeys  bool // DECCKM
	appKeypad      bool // DECKPAM
	bracketedPaste bool
}

// NewScreen creates a screen with the given dimensions and scrollback capacity.
// Non-positive dimensions fall back to 24x80.
func NewScreen(rows, cols, scrollback int) *Screen {
	if rows < 1 {
		rows = 24
	}
	if cols < 1 {
		cols = 80
	}
	s := &Screen{
		rows:      rows,
		cols:      cols,
		primary:   newBuffer(rows, cols),
		alternate: newBuffer(rows, cols),
		history:   NewHistory(scrollback),
	}
	s.buf = s.primary
	s.resetState()
	return s
}

func (s *Screen) resetState() {
	s.cursorRow, s.cursorCol = 0, 0
	s.wrapNext = false
	s.cursorVisible = true
	s.cursorStyle = CursorBlock
	s.pen = Style{}
	s.lastRune = 0
	s.scrollTop = 0
	s.scrollBottom = s.rows - 1
	s.charsets = [2]charset{charsetASCII, charsetASCII}
	s.gl = 0
	s.autoWrap = true
	s.originMode = false
	s.insertMode = false
	s.newLineMode = false
	s.appCursorKeys = false
	s.appKeypad = false
	s.bracketedPaste = false
	s.resetTabStops(0)
}

func (s *Screen) resetTabStops(from int) {
	stops := make([]bool, s.cols)
	copy(stops, s.tabStops)
	for c := from; c < s.cols; c++ {
		stops[c] = c > 0 && c%defaultTabWidth == 0
	}
	s.tabStops = stops
}

// Rows returns the screen height.
func (s *Screen) Rows() int { return s.rows }

// Cols returns the screen width.
func (s *Screen) Cols() int { return s.cols }

// Cursor returns the cursor position.
func (s *Screen) Cursor() (row, col int) { return s.cursorRow, s.cursorCol }

// CursorVisible returns whether the cursor is visible.
func (s *Screen) CursorVisible() bool { return s.cursorVisible }

// CursorStyle returns the cursor shape.
func (s *Screen) CursorStyle() CursorStyle { return s.cursorStyle }

// AltScreen reports whether the alternate buffer is active.
func (s *Screen) AltScreen() bool { return s.alt }

// Title returns the window title set by OSC 0/2.
func (s *Screen) Title() string { return s.title }

// Pen returns the style used for subsequent writes.
func (s *Screen) Pen() Style { return s.pen }

// History returns the scrollback buffer.
func (s *Screen) History() *History { return s.history }

// AutoWrap reports whether DECAWM is enabled.
func (s *Screen) AutoWrap() bool { return s.autoWrap }

// AppCursorKeys reports whether DECCKM is enabled.
func (s *Screen) AppCursorKeys() bool { return s.appCursorKeys }

// BracketedPaste reports whether bracketed paste mode is enabled.
func (s *Screen) BracketedPaste() bool { return s.bracketedPaste }

// Cell returns the cell at the given position, or an empty cell if out of bounds.
func (s *Screen) Cell(row, col int) Cell {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return Cell{}
	}
	return s.buf.lines[row].Cells[col]
}

// LineText returns the text of a row, or "" if out of bounds.
func (s *Screen) LineText(row int) string {
	if row < 0 || row >= s.rows {
		return ""
	}
	return s.buf.lines[row].Text()
}

// WriteRune places r at the cursor using the current pen and advances the cursor,
// wrapping at the right margin when auto-wrap is enabled.
func (s *Screen) WriteRune(r rune) {
	r = s.charsets[s.gl].translate(r)

	width := runeWidth(r)
	if width == 0 {
		return
	}
	if width > s.cols {
		width = 1
	}

	if s.wrapNext {
		if s.autoWrap {
			s.buf.lines[s.cursorRow].Wrapped = true
			s.cursorCol = 0
			s.lineFeed()
		}
		s.wrapNext = false
	}

	if width == 2 && s.cursorCol == s.cols-1 {
		if s.autoWrap {
			s.putCell(s.cursorRow, s.cursorCol, blankCell(s.pen))
			s.buf.lines[s.cursorRow].Wrapped = true
			s.cursorCol = 0
			s.lineFeed()
		} else {
			s.cursorCol = s.cols - 2
		}
	}

	if s.insertMode {
		s.InsertChars(width)
	}

	s.putCell(s.cursorRow, s.cursorCol, Cell{
		Rune:  r,
		Width: width,
		Fg:    s.pen.Fg,
		Bg:    s.pen.Bg,
		Attrs: s.pen.Attrs,
	})
	if width == 2 {
		cells := s.buf.lines[s.cursorRow].Cells
		next := s.cursorCol + 1
		if cells[next].Width == 2 && next+1 < s.cols {
			cells[next+1] = blankCell(s.pen)
		}
		cells[next] = Cell{Fg: s.pen.Fg, Bg: s.pen.Bg, Attrs: s.pen.Attrs}
	}
	s.lastRune = r

	if s.cursorCol+width >= s.cols {
		s.cursorCol = s.cols - 1
		s.wrapNext = true
	} else {
		s.cursorCol += width
	}
}

// RepeatLast writes the most recently printed rune n more times (REP).
func (s *Screen) RepeatLast(n int) {
	if s.lastRune == 0 {
		return
	}
	if limit := s.rows * s.cols; n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		s.WriteRune(s.lastRune)
	}
}

// putCell stores c, repairing any wide rune it partially overwrites.
func (s *Screen) putCell(row, col int, c Cell) {
	if col < 0 || col >= s.cols {
		return
	}
	cells := s.buf.lines[row].Cells
	old := cells[col]
	if old.Width == 2 && col+1 < s.cols && c.Width != 2 {
		cells[col+1] = blankCell(s.pen)
	}
	if isWideTail(cells, col) {
		cells[col-1] = blankCell(s.pen)
	}
	cells[col] = c
}

func runeWidth(r rune) int {
	if r < 0x80 {
		if r < 0x20 || r == 0x7f {
			return 0
		}
		return 1
	}
	w := uniseg.StringWidth(string(r))
	if w > 2 {
		w = 2
	}
	return w
}

// MoveCursor moves the cursor to an absolute position (CUP). With origin mode the
// row is relative to the scrolling region and clamped to it.
func (s *Screen) MoveCursor(row, col int) {
	top, bottom := 0, s.rows-1
	if s.originMode {
		top, bottom = s.scrollTop, s.scrollBottom
		row += top
	}
	s.cursorRow = clamp(row, top, bottom)
	s.cursorCol = clamp(col, 0, s.cols-1)
	s.wrapNext = false
}

// SetCursorRow moves to an absolute row keeping the column (VPA).
func (s *Screen) SetCursorRow(row int) {
	s.MoveCursor(row, s.cursorCol)
}

// SetCursorCol moves to an absolute column keeping the row (CHA).
func (s *Screen) SetCursorCol(col int) {
	s.cursorCol = clamp(col, 0, s.cols-1)
	s.wrapNext = false
}

// CursorUp moves up n rows, stopping at the top margin when inside the region.
func (s *Screen) CursorUp(n int) {
	top := 0
	if s.cursorRow >= s.scrollTop {
		top = s.scrollTop
	}
	s.cursorRow = clamp(s.cursorRow-n, top, s.rows-1)
	s.wrapNext = false
}

// CursorDown moves down n rows, stopping at the bottom margin when inside the region.
func (s *Screen) CursorDown(n int) {
	bottom := s.rows - 1
	if s.cursorRow <= s.scrollBottom {
		bottom = s.scrollBottom
	}
	s.cursorRow = clamp(s.cursorRow+n, 0, bottom)
	s.wrapNext = false
}

// CursorForward moves right n columns.
func (s *Screen) CursorForward(n int) {
	s.cursorCol = clamp(s.cursorCol+n, 0, s.cols-1)
	s.wrapNext = false
}

// CursorBack moves left n columns.
func (s *Screen) CursorBack(n int) {
	if s.wrapNext {
		// The pending wrap already parks the cursor on the last column.
		s.wrapNext = false
		if n > 0 {
			n--
		}
	}
	s.cursorCol = clamp(s.cursorCol-n, 0, s.cols-1)
}

// CarriageReturn moves the cursor to the first column.
func (s *Screen) CarriageReturn() {
	s.cursorCol = 0
	s.wrapNext = false
}

// LineFeed moves the cursor down one row, scrolling the region at its bottom.
// In new-line mode it also returns the carriage.
func (s *Screen) LineFeed() {
	s.lineFeed()
	if s.newLineMode {
		s.cursorCol = 0
	}
	s.wrapNext = false
}

// Index moves down one row, scrolling at the bottom margin (IND).
func (s *Screen) Index() {
	s.lineFeed()
	s.wrapNext = false
}

func (s *Screen) lineFeed() {
	switch {
	case s.cursorRow == s.scrollBottom:
		s.scrollUp(1)
	case s.cursorRow < s.rows-1:
		s.cursorRow++
	}
}

// ReverseIndex moves the cursor up one row, scrolling the region down at its top.
func (s *Screen) ReverseIndex() {
	switch {
	case s.cursorRow == s.scrollTop:
		s.scrollDown(1)
	case s.cursorRow > 0:
		s.cursorRow--
	}
	s.wrapNext = false
}

// Backspace moves the cursor one column left.
func (s *Screen) Backspace() {
	s.CursorBack(1)
}

// Tab advances to the n-th next tab stop, or the last column.
func (s *Screen) Tab(n int) {
	for ; n > 0 && s.cursorCol < s.cols-1; n-- {
		s.cursorCol++
		for s.cursorCol < s.cols-1 && !s.tabStops[s.cursorCol] {
			s.cursorCol++
		}
	}
	s.wrapNext = false
}

// BackTab moves to the n-th previous tab stop, or the first column.
func (s *Screen) BackTab(n int) {
	for ; n > 0 && s.cursorCol > 0; n-- {
		s.cursorCol--
		for s.cursorCol > 0 && !s.tabStops[s.cursorCol] {
			s.cursorCol--
		}
	}
	s.wrapNext = false
}

// SetTabStop sets a tab stop at the cursor column (HTS).
func (s *Screen) SetTabStop() {
	s.tabStops[s.cursorCol] = true
}

// ClearTabStop clears the stop at the cursor (mode 0) or all stops (mode 3).
func (s *Screen) ClearTabStop(mode int) {
	switch mode {
	case 0:
		s.tabStops[s.cursorCol] = false
	case 3:
		clear(s.tabStops)
	}
}

// ScrollUp scrolls the region up by n rows (SU).
func (s *Screen) ScrollUp(n int) {
	s.scrollUp(n)
}

func (s *Screen) scrollUp(n int) {
	s.scrollRegionUp(s.scrollTop, s.scrollBottom, n)
}

func (s *Screen) scrollRegionUp(top, bottom, n int) {
	if n <= 0 || top > bottom {
		return
	}
	if size := bottom - top + 1; n > size {
		n = size
	}
	lines := s.buf.lines
	if !s.alt && top == 0 && bottom == s.rows-1 {
		for i := 0; i < n; i++ {
			s.history.Add(lines[i])
		}
	}
	copy(lines[top:bottom+1-n], lines[top+n:bottom+1])
	for row := bottom + 1 - n; row <= bottom; row++ {
		lines[row] = newLine(s.cols, s.pen)
	}
}

// ScrollDown scrolls the region down by n rows (SD).
func (s *Screen) ScrollDown(n int) {
	s.scrollDown(n)
}

func (s *Screen) scrollDown(n int) {
	s.scrollRegionDown(s.scrollTop, s.scrollBottom, n)
}

func (s *Screen) scrollRegionDown(top, bottom, n int) {
	if n <= 0 || top > bottom {
		return
	}
	if size := bottom - top + 1; n > size {
		n = size
	}
	lines := s.buf.lines
	copy(lines[top+n:bottom+1], lines[top:bottom+1-n])
	for row := top; row < top+n; row++ {
		lines[row] = newLine(s.cols, s.pen)
	}
}

// SetScrollRegion sets the scrolling region (DECSTBM), 0-based and inclusive,
// and homes the cursor. Invalid regions are ignored.
func (s *Screen) SetScrollRegion(top, bottom int) {
	top = clamp(top, 0, s.rows-1)
	bottom = clamp(bottom, 0, s.rows-1)
	if top >= bottom {
		return
	}
	s.scrollTop = top
	s.scrollBottom = bottom
	s.MoveCursor(0, 0)
}

// ScrollRegion returns the current scrolling region.
func (s *Screen) ScrollRegion() (top, bottom int) {
	return s.scrollTop, s.scrollBottom
}

// EraseDisplay implements ED: 0 below, 1 above, 2 all, 3 scrollback.
func (s *Screen) EraseDisplay(mode int) {
	lines := s.buf.lines
	switch mode {
	case 0:
		lines[s.cursorRow].clearRange(s.cursorCol, s.cols, s.pen)
		for row := s.cursorRow + 1; row < s.rows; row++ {
			lines[row] = newLine(s.cols, s.pen)
		}
	case 1:
		for row := 0; row < s.cursorRow; row++ {
			lines[row] = newLine(s.cols, s.pen)
		}
		lines[s.cursorRow].clearRange(0, s.cursorCol+1, s.pen)
	case 2:
		for row := range lines {
			lines[row] = newLine(s.cols, s.pen)
		}
	case 3:
		s.history.Clear()
	}
	s.wrapNext = false
}

// EraseLine implements EL: 0 right of cursor, 1 left of cursor, 2 whole line.
func (s *Screen) EraseLine(mode int) {
	line := s.buf.lines[s.cursorRow]
	switch mode {
	case 0:
		line.clearRange(s.cursorCol, s.cols, s.pen)
		line.Wrapped = false
	case 1:
		line.clearRange(0, s.cursorCol+1, s.pen)
	case 2:
		line.clearRange(0, s.cols, s.pen)
		line.Wrapped = false
	}
	s.wrapNext = false
}

// InsertLines inserts n blank rows at the cursor within the region (IL).
func (s *Screen) InsertLines(n int) {
	if s.cursorRow < s.scrollTop || s.cursorRow > s.scrollBottom {
		return
	}
	s.scrollRegionDown(s.cursorRow, s.scrollBottom, n)
	s.cursorCol = 0
	s.wrapNext = false
}

// DeleteLines deletes n rows at the cursor within the region (DL).
func (s *Screen) DeleteLines(n int) {
	if s.cursorRow < s.scrollTop || s.cursorRow > s.scrollBottom {
		return
	}
	if n <= 0 {
		return
	}
	// Deleted rows are not scrollback.
	lines := s.buf.lines
	top, bottom := s.cursorRow, s.scrollBottom
	if size := bottom - top + 1; n > size {
		n = size
	}
	copy(lines[top:bottom+1-n], lines[top+n:bottom+1])
	for row := bottom + 1 - n; row <= bottom; row++ {
		lines[row] = newLine(s.cols, s.pen)
	}
	s.cursorCol = 0
	s.wrapNext = false
}

// InsertChars inserts n blank cells at the cursor, shifting the rest right (ICH).
func (s *Screen) InsertChars(n int) {
	if n <= 0 {
		return
	}
	if room := s.cols - s.cursorCol; n > room {
		n = room
	}
	cells := s.buf.lines[s.cursorRow].Cells
	copy(cells[s.cursorCol+n:], cells[s.cursorCol:s.cols-n])
	for c := s.cursorCol; c < s.cursorCol+n; c++ {
		cells[c] = blankCell(s.pen)
	}
	s.wrapNext = false
}

// DeleteChars deletes n cells at the cursor, shifting the rest left (DCH).
func (s *Screen) DeleteChars(n int) {
	if n <= 0 {
		return
	}
	if room := s.cols - s.cursorCol; n > room {
		n = room
	}
	cells := s.buf.lines[s.cursorRow].Cells
	copy(cells[s.cursorCol:], cells[s.cursorCol+n:])
	for c := s.cols - n; c < s.cols; c++ {
		cells[c] = blankCell(s.pen)
	}
	s.wrapNext = false
}

// EraseChars blanks n cells starting at the cursor (ECH).
func (s *Screen) EraseChars(n int) {
	if n <= 0 {
		return
	}
	s.buf.lines[s.cursorRow].clearRange(s.cursorCol, s.cursorCol+n, s.pen)
	s.wrapNext = false
}

// SetPen replaces the current pen.
func (s *Screen) SetPen(pen Style) {
	s.pen = pen
}

// SaveCursor saves cursor position, pen and charset state (DECSC).
func (s *Screen) SaveCursor() {
	s.buf.saved = savedCursor{
		set:        true,
		row:        s.cursorRow,
		col:        s.cursorCol,
		wrapNext:   s.wrapNext,
		pen:        s.pen,
		originMode: s.originMode,
		charsets:   s.charsets,
		gl:         s.gl,
	}
}

// RestoreCursor restores the state saved by SaveCursor (DECRC). Without a prior
// save the cursor goes home with the default pen.
func (s *Screen) RestoreCursor() {
	sc := s.buf.saved
	if !sc.set {
		sc = savedCursor{charsets: [2]charset{charsetASCII, charsetASCII}}
	}
	s.cursorRow = clamp(sc.row, 0, s.rows-1)
	s.cursorCol = clamp(sc.col, 0, s.cols-1)
	s.wrapNext = sc.wrapNext
	s.pen = sc.pen
	s.originMode = sc.originMode
	s.charsets = sc.charsets
	s.gl = sc.gl
}

// SetAltScreen switches between the primary and alternate buffers. When
// saveCursor is set the cursor is saved on enter and restored on exit (1049);
// clear blanks the alternate buffer on enter.
func (s *Screen) SetAltScreen(on, saveCursor, clearAlt bool) {
	if on == s.alt {
		return
	}
	if on {
		if saveCursor {
			s.SaveCursor()
		}
		s.buf = s.alternate
		s.alt = true
		if clearAlt {
			for row := range s.buf.lines {
				s.buf.lines[row] = newLine(s.cols, s.pen)
			}
		}
		return
	}
	if clearAlt {
		for row := range s.buf.lines {
			s.buf.lines[row] = newLine(s.cols, Style{})
		}
	}
	s.buf = s.primary
	s.alt = false
	if saveCursor {
		s.RestoreCursor()
	}
	s.wrapNext = false
}

// SetCursorVisible sets cursor visibility (DECTCEM).
func (s *Screen) SetCursorVisible(visible bool) { s.cursorVisible = visible }

// SetCursorStyle sets the cursor style (DECSCUSR).
func (s *Screen) SetCursorStyle(style CursorStyle) { s.cursorStyle = style }

// SetTitle sets the window title.
func (s *Screen) SetTitle(title string) { s.title = title }

// SetOriginMode sets DECOM and homes the cursor.
func (s *Screen) SetOriginMode(enabled bool) {
	s.originMode = enabled
	s.MoveCursor(0, 0)
}

// SetAutoWrap sets DECAWM.
func (s *Screen) SetAutoWrap(enabled bool) {
	s.autoWrap = enabled
	if !enabled {
		s.wrapNext = false
	}
}

// SetInsertMode sets IRM.
func (s *Screen) SetInsertMode(enabled bool) { s.insertMode = enabled }

// SetNewLineMode sets LNM.
func (s *Screen) SetNewLineMode(enabled bool) { s.newLineMode = enabled }

// SetAppCursorKeys sets DECCKM.
func (s *Screen) SetAppCursorKeys(enabled bool) { s.appCursorKeys = enabled }

// SetAppKeypad sets DECKPAM/DECKPNM.
func (s *Screen) SetAppKeypad(enabled bool) { s.appKeypad = enabled }

// SetBracketedPaste sets bracketed paste mode.
func (s *Screen) SetBracketedPaste(enabled bool) { s.bracketedPaste = enabled }

// DesignateCharset assigns a character set to slot G0 or G1.
func (s *Screen) DesignateCharset(slot int, cs charset) {
	if slot == 0 || slot == 1 {
		s.charsets[slot] = cs
	}
}

// ShiftCharset selects G0 (SI) or G1 (SO) as the active set.
func (s *Screen) ShiftCharset(slot int) {
	if slot == 0 || slot == 1 {
		s.gl = slot
	}
}

// Align fills the screen with 'E' (DECALN).
func (s *Screen) Align() {
	for _, line := range s.buf.lines {
		for c := range line.Cells {
			line.Cells[c] = Cell{Rune: 'E', Width: 1}
		}
		line.Wrapped = false
	}
	s.scrollTop, s.scrollBottom = 0, s.rows-1
	s.MoveCursor(0, 0)
}

// SoftReset implements DECSTR: modes and pen reset, contents kept.
func (s *Screen) SoftReset() {
	s.cursorVisible = true
	s.insertMode = false
	s.originMode = false
	s.autoWrap = true
	s.appCursorKeys = false
	s.appKeypad = false
	s.pen = Style{}
	s.scrollTop, s.scrollBottom = 0, s.rows-1
	s.charsets = [2]charset{charsetASCII, charsetASCII}
	s.gl = 0
	s.buf.saved = savedCursor{}
	s.wrapNext = false
}

// Reset restores the initial state (RIS). Scrollback is kept.
func (s *Screen) Reset() {
	s.primary = newBuffer(s.rows, s.cols)
	s.alternate = newBuffer(s.rows, s.cols)
	s.buf = s.primary
	s.alt = false
	s.title = ""
	s.tabStops = nil
	s.resetState()
}

// Resize changes the screen dimensions. Columns are clipped or padded; when rows
// shrink in the primary buffer, rows above the cursor move to scrollback so the
// cursor row stays visible.
func (s *Screen) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == s.rows && cols == s.cols {
		return
	}

	shift := 0
	if s.cursorRow >= rows {
		shift = s.cursorRow - rows + 1
	}

	resizeLines := func(b *buffer, keepTop int, toHistory bool) {
		for i := 0; i < keepTop && i < len(b.lines); i++ {
			if toHistory {
				s.history.Add(b.lines[i])
			}
		}
		lines := b.lines[min(keepTop, len(b.lines)):]
		out := make([]*Line, rows)
		for row := range out {
			if row < len(lines) {
				out[row] = fitLine(lines[row], cols)
			} else {
				out[row] = newLine(cols, Style{})
			}
		}
		b.lines = out
		b.saved.row = clamp(b.saved.row-keepTop, 0, rows-1)
		b.saved.col = clamp(b.saved.col, 0, cols-1)
	}

	if s.alt {
		resizeLines(s.primary, 0, false)
		resizeLines(s.alternate, shift, false)
	} else {
		resizeLines(s.primary, shift, true)
		resizeLines(s.alternate, 0, false)
	}

	oldCols := s.cols
	s.rows, s.cols = rows, cols
	s.cursorRow = clamp(s.cursorRow-shift, 0, rows-1)
	s.cursorCol = clamp(s.cursorCol, 0, cols-1)
	s.wrapNext = false
	s.scrollTop, s.scrollBottom = 0, rows-1
	if cols > oldCols {
		s.resetTabStops(oldCols)
	} else {
		s.tabStops = s.tabStops[:cols]
	}
}

func fitLine(l *Line, cols int) *Line {
	out := &Line{Cells: make([]Cell, cols), Wrapped: l.Wrapped}
	n := copy(out.Cells, l.Cells)
	if n < len(l.Cells) {
		out.Wrapped = false
		// A wide rune split by the new margin is dropped.
		if out.Cells[n-1].Width == 2 {
			out.Cells[n-1] = Cell{}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
