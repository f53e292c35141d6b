package terminal

import (
	"github.com/gdamore/tcell/v2"
)

// Color is a terminal color: default, one of the 256 palette entries, or true-color.
// The zero value is the terminal's default color.
type Color = tcell.Color

// DefaultColor is the default foreground/background color.
const DefaultColor = tcell.ColorDefault

// PaletteColor returns a color from the 256-color palette.
// Out-of-range indices are clamped.
func PaletteColor(index int) Color {
	if index < 0 {
		index = 0
	} else if index > 255 {
		index = 255
	}
	return tcell.PaletteColor(index)
}

// RGBColor returns a true-color value.
func RGBColor(r, g, b uint8) Color {
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// Attributes is a set of text attribute flags.
type Attributes uint16

const (
	AttrNone      Attributes = 0
	AttrBold      Attributes = 1 << 0
	AttrDim       Attributes = 1 << 1
	AttrItalic    Attributes = 1 << 2
	AttrUnderline Attributes = 1 << 3
	AttrBlink     Attributes = 1 << 4
	AttrInverse   Attributes = 1 << 5
	AttrHidden    Attributes = 1 << 6
	AttrStrike    Attributes = 1 << 7
)

// Has reports whether every flag in attr is set.
func (a Attributes) Has(attr Attributes) bool {
	return a&attr == attr
}

// Style is the pen used for subsequent writes.
type Style struct {
	Fg    Color      `json:"fg,omitempty"`
	Bg    Color      `json:"bg,omitempty"`
	Attrs Attributes `json:"attrs,omitempty"`
}

// Cell is one grid position. Cells are values and are replaced wholesale on write.
//
// A Rune of 0 means the cell is empty. Width is 1 for ordinary runes, 2 for the
// leading half of a wide rune and 0 for its trailing half.
type Cell struct {
	Rune  rune       `json:"r,omitempty"`
	Width int        `json:"w,omitempty"`
	Fg    Color      `json:"fg,omitempty"`
	Bg    Color      `json:"bg,omitempty"`
	Attrs Attributes `json:"a,omitempty"`
}

// blankCell returns an empty cell painted with the pen's background.
func blankCell(pen Style) Cell {
	return Cell{Bg: pen.Bg}
}

// Char returns the rune to display for the cell; empty cells display as a space.
func (c Cell) Char() rune {
	if c.Rune == 0 {
		return ' '
	}
	return c.Rune
}

// Line is a single row of cells.
type Line struct {
	Cells   []Cell
	Wrapped bool // the row continues on the next one
}

func newLine(cols int, pen Style) *Line {
	l := &Line{Cells: make([]Cell, cols)}
	if pen.Bg != DefaultColor {
		l.clearRange(0, cols, pen)
	}
	return l
}

func (l *Line) clearRange(start, end int, pen Style) {
	if start < 0 {
		start = 0
	}
	if end > len(l.Cells) {
		end = len(l.Cells)
	}
	for i := start; i < end; i++ {
		l.Cells[i] = blankCell(pen)
	}
}

func (l *Line) clone() *Line {
	cells := make([]Cell, len(l.Cells))
	copy(cells, l.Cells)
	return &Line{Cells: cells, Wrapped: l.Wrapped}
}

// Text returns the row's characters, including trailing blanks.
// The trailing half of a wide rune contributes nothing.
func (l *Line) Text() string {
	return cellsText(l.Cells)
}

func cellsText(cells []Cell) string {
	out := make([]rune, 0, len(cells))
	for i, c := range cells {
		if isWideTail(cells, i) {
			continue
		}
		out = append(out, c.Char())
	}
	return string(out)
}

// isWideTail reports whether cells[i] is the trailing half of a wide rune.
func isWideTail(cells []Cell, i int) bool {
	return i > 0 && i < len(cells) && cells[i-1].Width == 2
}
