package terminal

// History stores scrollback rows evicted off the top of the normal screen.
// It is bounded; the oldest rows are dropped first.
type History struct {
	lines    []*Line
	maxLines int
}

// NewHistory creates a history buffer holding at most maxLines rows.
// A maxLines of zero disables scrollback.
func NewHistory(maxLines int) *History {
	if maxLines < 0 {
		maxLines = 0
	}
	return &History{maxLines: maxLines}
}

// Add appends a copy of line to history.
func (h *History) Add(line *Line) {
	if h.maxLines == 0 || line == nil {
		return
	}
	h.lines = append(h.lines, line.clone())
	if over := len(h.lines) - h.maxLines; over > 0 {
		// Shift instead of reslicing so the backing array does not grow forever.
		n := copy(h.lines, h.lines[over:])
		for i := n; i < len(h.lines); i++ {
			h.lines[i] = nil
		}
		h.lines = h.lines[:n]
	}
}

// Line returns a history row (0 = oldest), or nil if out of range.
func (h *History) Line(index int) *Line {
	if index < 0 || index >= len(h.lines) {
		return nil
	}
	return h.lines[index]
}

// Len returns the number of rows in history.
func (h *History) Len() int {
	return len(h.lines)
}

// Max returns the history capacity.
func (h *History) Max() int {
	return h.maxLines
}

// Clear drops all rows.
func (h *History) Clear() {
	clear(h.lines)
	h.lines = h.lines[:0]
}

// Text returns each history row as text, oldest first.
func (h *History) Text() []string {
	out := make([]string, len(h.lines))
	for i, l := range h.lines {
		out[i] = l.Text()
	}
	return out
}
