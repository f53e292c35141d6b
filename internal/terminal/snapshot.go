package terminal

import (
	"fmt"
	"strings"
)

// cursorMarker replaces the character under the cursor in Render output.
const cursorMarker = '▮'

// CursorState is the cursor part of a Snapshot.
type CursorState struct {
	Row     int  `json:"row"`
	Col     int  `json:"col"`
	Visible bool `json:"visible"`
}

// Snapshot is an immutable, deep-copied view of the screen at one point in time.
// Snapshots never share memory with the live screen or with each other.
type Snapshot struct {
	Rows          int         `json:"rows"`
	Cols          int         `json:"cols"`
	Lines         []string    `json:"lines"`
	Cells         [][]Cell    `json:"cells"`
	Cursor        CursorState `json:"cursor"`
	AltScreen     bool        `json:"alt_screen"`
	Title         string      `json:"title,omitempty"`
	ScrollbackLen int         `json:"scrollback_len"`
}

// Snapshot copies the visible screen.
func (s *Screen) Snapshot() Snapshot {
	snap := Snapshot{
		Rows:  s.rows,
		Cols:  s.cols,
		Lines: make([]string, s.rows),
		Cells: make([][]Cell, s.rows),
		Cursor: CursorState{
			Row:     s.cursorRow,
			Col:     s.cursorCol,
			Visible: s.cursorVisible,
		},
		AltScreen:     s.alt,
		Title:         s.title,
		ScrollbackLen: s.history.Len(),
	}
	for row, line := range s.buf.lines {
		cells := make([]Cell, len(line.Cells))
		copy(cells, line.Cells)
		snap.Cells[row] = cells
		snap.Lines[row] = cellsText(cells)
	}
	return snap
}

// Clone returns a deep copy of snap.
func (snap Snapshot) Clone() Snapshot {
	out := snap
	if snap.Lines != nil {
		out.Lines = make([]string, len(snap.Lines))
		copy(out.Lines, snap.Lines)
	}
	if snap.Cells != nil {
		out.Cells = make([][]Cell, len(snap.Cells))
		for i, row := range snap.Cells {
			if row != nil {
				out.Cells[i] = make([]Cell, len(row))
				copy(out.Cells[i], row)
			}
		}
	}
	return out
}

// Text returns the visible lines with trailing blanks removed, joined by newlines.
func (snap Snapshot) Text() string {
	lines := make([]string, len(snap.Lines))
	for i, l := range snap.Lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

// Contains reports whether any visible line contains substr.
func (snap Snapshot) Contains(substr string) bool {
	for _, l := range snap.Lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Render formats the snapshot for an agent: trailing blanks trimmed, the cursor
// cell replaced by a marker, and a footer describing the cursor.
func (snap Snapshot) Render() string {
	rendered := make([]string, len(snap.Lines))
	for i, l := range snap.Lines {
		rendered[i] = strings.TrimRight(l, " ")
	}

	footer := `Cursor info: row=-, col=-, char=""`
	if snap.Cursor.Visible {
		row, col := snap.Cursor.Row, snap.Cursor.Col
		idx := col
		if row < len(snap.Cells) {
			// Wide tails have no rune of their own in the line text.
			cells := snap.Cells[row]
			for i := 1; i <= col && i < len(cells); i++ {
				if isWideTail(cells, i) {
					idx--
				}
			}
		}
		under := ' '
		if row < len(snap.Lines) {
			if runes := []rune(snap.Lines[row]); idx < len(runes) {
				under = runes[idx]
			}
		}
		for len(rendered) <= row {
			rendered = append(rendered, "")
		}
		chars := []rune(rendered[row])
		for len(chars) <= idx {
			chars = append(chars, ' ')
		}
		chars[idx] = cursorMarker
		rendered[row] = string(chars)
		footer = fmt.Sprintf(`Cursor info: row=%d, col=%d, char="%s"`, row, col, escapeDisplayChar(under))
	}

	out := strings.Join(rendered, "\n")
	if out != "" {
		out += "\n"
	}
	return out + footer
}

// escapeDisplayChar escapes quotes, backslashes, controls and non-ASCII runes.
func escapeDisplayChar(r rune) string {
	switch r {
	case '"', '\'', '\\':
		return `\` + string(r)
	case '\t':
		return `\t`
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	}
	if r >= 0x20 && r < 0x7f {
		return string(r)
	}
	return fmt.Sprintf(`\u{%x}`, r)
}
