package repl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// LineReader reads lines from one input on a single goroutine so the command
// loop and the approval prompt can share stdin without racing for bytes.
type LineReader struct {
	lines chan string
	done  chan struct{}
	err   error
}

// NewLineReader starts reading r. The goroutine exits at EOF or on a read
// error; a line that is blocked in Read cannot be abandoned.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go lr.readLoop(bufio.NewReader(r))
	return lr
}

func (lr *LineReader) readLoop(br *bufio.Reader) {
	defer close(lr.done)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lr.lines <- line
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				lr.err = err
			}
			return
		}
	}
}

// ReadLine returns the next line without its line ending. It returns io.EOF
// once the input is exhausted, or ctx.Err() if ctx ends first.
func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-lr.lines:
		return strings.TrimRight(line, "\r\n"), nil
	case <-lr.done:
		if lr.err != nil {
			return "", lr.err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
