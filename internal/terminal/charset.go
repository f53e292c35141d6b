package terminal

// charset is a character set that can be designated into G0 or G1.
type charset uint8

const (
	charsetASCII charset = iota
	charsetDECSpecial
)

// decSpecial maps 0x5f..0x7e to the DEC Special Graphics (line drawing) set.
var decSpecial = [...]rune{
	' ', // _ blank
	'◆', '▒', '␉', '␌', '␍', '␊', '°', '±', // ` a b c d e f g
	'␤', '␋', '┘', '┐', '┌', '└', '┼', '⎺', // h i j k l m n o
	'⎻', '─', '⎼', '⎽', '├', '┤', '┴', '┬', // p q r s t u v w
	'│', '≤', '≥', 'π', '≠', '£', '·', // x y z { | } ~
}

func (c charset) translate(r rune) rune {
	if c == charsetDECSpecial && r >= 0x5f && r <= 0x7e {
		return decSpecial[r-0x5f]
	}
	return r
}

// charsetFor maps the final byte of an SCS designation to a charset.
func charsetFor(final byte) (charset, bool) {
	switch final {
	case '0':
		return charsetDECSpecial, true
	case 'B', 'A', '1', '2':
		return charsetASCII, true
	}
	return charsetASCII, false
}
