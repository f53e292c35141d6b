// Package escape converts between raw terminal input bytes and the printable
// escaped form used by the agent tool and the REPL :raw command.
//
// Supported escapes are \n, \r, \t, \\ and \xNN (two hex digits). Any other
// backslash sequence is an error so that a typo never reaches the terminal.
package escape

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Decode.
var (
	// ErrDanglingEscape indicates the input ended with a lone backslash.
	ErrDanglingEscape = errors.New("dangling escape at end of input")

	// ErrUnsupportedEscape indicates an unknown backslash sequence.
	ErrUnsupportedEscape = errors.New("unsupported escape")

	// ErrInvalidHex indicates a malformed \x escape.
	ErrInvalidHex = errors.New("invalid hex escape")
)

// Decode turns an escaped string into the bytes it denotes.
func Decode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return nil, ErrDanglingEscape
		}
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		case 'x':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("%w: \\x%s", ErrInvalidHex, s[i+1:])
			}
			hi, ok1 := hexValue(s[i+1])
			lo, ok2 := hexValue(s[i+2])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: \\x%s", ErrInvalidHex, s[i+1:i+3])
			}
			out = append(out, hi<<4|lo)
			i += 2
		default:
			return nil, fmt.Errorf("%w: \\%c", ErrUnsupportedEscape, s[i])
		}
	}
	return out, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Encode renders b in the escaped form accepted by Decode. Printable ASCII is
// kept as is; everything else uses the named escapes or \xNN.
func Encode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\\':
			sb.WriteString(`\\`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\x%02X`, c)
		}
	}
	return sb.String()
}

// Preview is Encode truncated to limit characters, with an ellipsis when
// anything was cut. Encode output is plain ASCII.
func Preview(b []byte, limit int) string {
	s := Encode(b)
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
