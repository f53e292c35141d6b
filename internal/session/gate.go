package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/ptyagent/internal/recorder"
)

// Mode is the approval policy.
type Mode int32

const (
	// ModeConfirm asks the approver before every non-empty write.
	ModeConfirm Mode = iota
	// ModeAutoApprove approves every write without asking ("yolo").
	ModeAutoApprove
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeConfirm:
		return "confirm"
	case ModeAutoApprove:
		return "yolo"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

// ModeFromYolo maps the yolo configuration flag to a Mode.
func ModeFromYolo(yolo bool) Mode {
	if yolo {
		return ModeAutoApprove
	}
	return ModeConfirm
}

// Request describes a write awaiting approval.
type Request struct {
	SessionID string
	Input     []byte
	Delay     time.Duration
}

// Approver decides whether a write may proceed. Approve may block; it should
// return when ctx is cancelled, but the gate does not rely on it.
type Approver interface {
	Approve(ctx context.Context, req Request) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req Request) (bool, error)

// Approve calls f.
func (f ApproverFunc) Approve(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// Gate applies the approval policy to write requests. The mode can be changed
// at any time; it takes effect for the next request.
type Gate struct {
	mode atomic.Int32

	mu       sync.RWMutex
	approver Approver
}

// NewGate creates a gate. A nil approver denies every request in Confirm mode.
func NewGate(mode Mode, approver Approver) *Gate {
	g := &Gate{approver: approver}
	g.mode.Store(int32(mode))
	return g
}

// Mode returns the current policy.
func (g *Gate) Mode() Mode {
	return Mode(g.mode.Load())
}

// SetMode changes the policy.
func (g *Gate) SetMode(m Mode) {
	g.mode.Store(int32(m))
}

// SetApprover replaces the approver.
func (g *Gate) SetApprover(a Approver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.approver = a
}

type decision struct {
	ok  bool
	err error
}

// Decide returns the outcome for req. Empty input never needs approval. In
// Confirm mode Decide blocks until the approver answers or ctx is done.
func (g *Gate) Decide(ctx context.Context, req Request) (recorder.Outcome, error) {
	if len(req.Input) == 0 || g.Mode() == ModeAutoApprove {
		return recorder.OutcomeAutoApproved, nil
	}

	g.mu.RLock()
	approver := g.approver
	g.mu.RUnlock()
	if approver == nil {
		return recorder.OutcomeDenied, nil
	}

	ch := make(chan decision, 1)
	go func() {
		ok, err := approver.Approve(ctx, req)
		ch <- decision{ok: ok, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case d := <-ch:
		if d.err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %w", ErrApproval, d.err)
		}
		if d.ok {
			return recorder.OutcomeApproved, nil
		}
		return recorder.OutcomeDenied, nil
	}
}
