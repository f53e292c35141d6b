package terminal

import (
	"sync"
)

// Emulator couples a Screen with its Parser behind one mutex, so every fed chunk
// is applied atomically with respect to snapshots.
type Emulator struct {
	mu      sync.Mutex
	screen  *Screen
	parser  *Parser
	replies []byte
}

// NewEmulator creates an emulator with the given size and scrollback capacity.
func NewEmulator(rows, cols, scrollback int) *Emulator {
	e := &Emulator{screen: NewScreen(rows, cols, scrollback)}
	e.parser = NewParser(e.screen)
	e.parser.SetResponder(func(b []byte) {
		e.replies = append(e.replies, b...)
	})
	return e
}

// SetMalformedHandler forwards discarded-sequence reports to fn.
// fn runs with the emulator locked and must not call back into it.
func (e *Emulator) SetMalformedHandler(fn func(reason string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parser.SetMalformedHandler(fn)
}

// Feed applies data to the screen. It returns the bytes the terminal would send
// back to the program (answers to DA/DSR queries), or nil.
func (e *Emulator) Feed(data []byte) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parser.Parse(data)
	if len(e.replies) == 0 {
		return nil
	}
	out := e.replies
	e.replies = nil
	return out
}

// Write implements io.Writer. Replies are discarded.
func (e *Emulator) Write(p []byte) (int, error) {
	e.Feed(p)
	return len(p), nil
}

// Snapshot returns a deep copy of the visible screen.
func (e *Emulator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.Snapshot()
}

// Scrollback returns the scrollback rows as text, oldest first.
func (e *Emulator) Scrollback() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.History().Text()
}

// Resize changes the screen size.
func (e *Emulator) Resize(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return ErrInvalidSize
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.screen.Resize(rows, cols)
	return nil
}

// Size returns the screen dimensions.
func (e *Emulator) Size() (rows, cols int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screen.Rows(), e.screen.Cols()
}

// ParserState returns the interpreter state.
func (e *Emulator) ParserState() ParserState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parser.State()
}
