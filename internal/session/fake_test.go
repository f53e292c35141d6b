package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/ptyagent/internal/terminal"
)

// fakeProcess is an in-memory Process.
type fakeProcess struct {
	out chan []byte

	mu      sync.Mutex
	written bytes.Buffer
	rows    int
	cols    int

	// stall makes Write block until the process is terminated, like a
	// child that never reads its input.
	stall     atomic.Bool
	stalled   chan struct{}
	resizeErr error

	alive      atomic.Bool
	terminated atomic.Bool
	stopped    chan struct{}
	stopOnce   sync.Once
}

func newFakeProcess(opts terminal.SpawnOptions) *fakeProcess {
	p := &fakeProcess{
		out:     make(chan []byte, 16),
		stalled: make(chan struct{}, 1),
		stopped: make(chan struct{}),
		rows:    opts.Rows,
		cols: opts.Cols,
	}
	p.alive.Store(true)
	return p
}

func (p *fakeProcess) Output() <-chan []byte { return p.out }

func (p *fakeProcess) Write(b []byte) (int, error) {
	if !p.alive.Load() {
		return 0, terminal.ErrProcessExited
	}
	if p.stall.Load() {
		select {
		case p.stalled <- struct{}{}:
		default:
		}
		<-p.stopped
		return 0, terminal.ErrProcessExited
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakeProcess) Resize(rows, cols int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resizeErr != nil {
		return p.resizeErr
	}
	p.rows, p.cols = rows, cols
	return nil
}

func (p *fakeProcess) Alive() bool { return p.alive.Load() }

func (p *fakeProcess) Pid() int { return 4242 }

func (p *fakeProcess) Terminate() {
	p.terminated.Store(true)
	p.exit()
}

// emit delivers output as if the child printed it.
func (p *fakeProcess) emit(s string) {
	p.out <- []byte(s)
}

// exit simulates the child exiting on its own.
func (p *fakeProcess) exit() {
	p.stopOnce.Do(func() {
		p.alive.Store(false)
		close(p.stopped)
		close(p.out)
	})
}

func (p *fakeProcess) writtenString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// fakeSpawner hands out fakeProcesses and remembers them.
type fakeSpawner struct {
	mu    sync.Mutex
	procs []*fakeProcess
	fail  atomic.Bool
}

var errFakeSpawn = errors.New("no such shell")

func (s *fakeSpawner) spawn(opts terminal.SpawnOptions) (Process, error) {
	if s.fail.Load() {
		return nil, errFakeSpawn
	}
	p := newFakeProcess(opts)
	s.mu.Lock()
	s.procs = append(s.procs, p)
	s.mu.Unlock()
	return p, nil
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// newTestEngine builds an engine over a fake spawner.
func newTestEngine(t *testing.T, mode Mode, approver Approver) (*Engine, *fakeSpawner) {
	t.Helper()
	sp := &fakeSpawner{}
	eng, err := New(context.Background(), Options{
		Shell:      terminal.SpawnOptions{Program: "fake", Rows: 5, Cols: 20},
		Scrollback: 10,
		Mode:       mode,
		Approver:   approver,
		Spawn:      sp.spawn,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng, sp
}

// blockingApprover hands each request to the test and waits for an answer.
type blockingApprover struct {
	requests chan Request
	answers  chan bool
}

func newBlockingApprover() *blockingApprover {
	return &blockingApprover{
		requests: make(chan Request, 1),
		answers:  make(chan bool, 1),
	}
}

// Approve deliberately ignores ctx so tests can check that the gate does not
// depend on the approver honoring cancellation.
func (a *blockingApprover) Approve(_ context.Context, req Request) (bool, error) {
	a.requests <- req
	return <-a.answers, nil
}
