package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/ptyagent/internal/logging"
	"github.com/dshills/ptyagent/internal/recorder"
	"github.com/dshills/ptyagent/internal/terminal"
)

// State is the lifecycle state of the engine's session.
type State int

const (
	// StateStarting indicates the first instance is being spawned.
	StateStarting State = iota
	// StateRunning indicates a live instance is accepting calls.
	StateRunning
	// StateResetting indicates Reset is replacing the instance.
	StateResetting
	// StateTerminated indicates the engine was closed or could not respawn.
	StateTerminated
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateResetting:
		return "resetting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Process is the child process an engine drives. *terminal.Process
// implements it.
type Process interface {
	Output() <-chan []byte
	Write(b []byte) (int, error)
	Resize(rows, cols int) error
	Alive() bool
	Pid() int
	Terminate()
}

// SpawnFunc starts a Process.
type SpawnFunc func(opts terminal.SpawnOptions) (Process, error)

// SpawnPTY starts a real child process on a pseudo-terminal.
func SpawnPTY(opts terminal.SpawnOptions) (Process, error) {
	p, err := terminal.Spawn(opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options configures an Engine.
type Options struct {
	// Shell describes the child process. Rows and Cols default to 24x80.
	Shell terminal.SpawnOptions

	// Scrollback is the number of history rows kept per instance.
	Scrollback int

	// Mode is the initial approval policy.
	Mode Mode

	// Approver answers Confirm-mode requests. May be set later via Gate().
	Approver Approver

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *logging.Logger

	// Spawn starts the child process. Defaults to SpawnPTY.
	Spawn SpawnFunc
}

// Result is the outcome of a send.
type Result struct {
	// Approved reports whether the bytes were delivered.
	Approved bool
	Outcome  recorder.Outcome

	// Snapshot is the screen after the wait, or the current screen on denial.
	Snapshot terminal.Snapshot

	// Turn is the index of the recorded turn.
	Turn int
}

// instance is one spawned child with its own screen and background loop.
type instance struct {
	id       string
	proc     Process
	emu      *terminal.Emulator
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// link returns a context cancelled when either ctx or the instance is done.
func (inst *instance) link(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(inst.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Engine owns one terminal session at a time: the child process, its screen
// and the turn log. All methods are safe for concurrent use.
type Engine struct {
	opts Options
	log  *logging.Logger
	gate *Gate
	rec  *recorder.Recorder

	baseCtx    context.Context
	baseCancel context.CancelFunc

	// turnMu serializes whole calls so turns are recorded in call order.
	turnMu sync.Mutex
	// writeMu serializes writes to the child.
	writeMu sync.Mutex

	mu    sync.Mutex
	state State
	inst  *instance
	final *terminal.Snapshot
}

// New spawns the first instance. Cancelling ctx stops the engine's background
// work and interrupts pending calls, but Close must still be called.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Shell.Rows <= 0 {
		opts.Shell.Rows = 24
	}
	if opts.Shell.Cols <= 0 {
		opts.Shell.Cols = 80
	}
	if opts.Scrollback < 0 {
		opts.Scrollback = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Spawn == nil {
		opts.Spawn = SpawnPTY
	}

	e := &Engine{
		opts:  opts,
		log:   opts.Logger.WithComponent("session"),
		gate:  NewGate(opts.Mode, opts.Approver),
		state: StateStarting,
	}
	e.baseCtx, e.baseCancel = context.WithCancel(ctx)

	inst, err := e.spawn()
	if err != nil {
		e.baseCancel()
		e.state = StateTerminated
		return nil, newOpError("start", "", err)
	}
	e.rec = recorder.New(inst.id)
	e.inst = inst
	e.state = StateRunning
	return e, nil
}

func (e *Engine) spawn() (*instance, error) {
	e.mu.Lock()
	shell := e.opts.Shell
	e.mu.Unlock()

	proc, err := e.opts.Spawn(shell)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(e.baseCtx)
	inst := &instance{
		id:       uuid.NewString(),
		proc:     proc,
		emu:      terminal.NewEmulator(shell.Rows, shell.Cols, e.opts.Scrollback),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	log := e.log.WithField("session", inst.id)
	inst.emu.SetMalformedHandler(func(reason string) {
		log.Debug("discarded malformed sequence: %s", reason)
	})
	log.Info("spawned %s (pid %d, %dx%d)", shell.Program, proc.Pid(), shell.Rows, shell.Cols)

	go e.readLoop(inst, log)
	return inst, nil
}

// readLoop feeds child output to the screen until the output closes or the
// instance is cancelled. Terminal replies go back to the child.
func (e *Engine) readLoop(inst *instance, log *logging.Logger) {
	defer close(inst.loopDone)

	out := inst.proc.Output()
	for {
		select {
		case <-inst.ctx.Done():
			return
		case chunk, ok := <-out:
			if !ok {
				log.Info("child output closed")
				return
			}
			reply := inst.emu.Feed(chunk)
			if len(reply) == 0 {
				continue
			}
			e.writeMu.Lock()
			_, err := inst.proc.Write(reply)
			e.writeMu.Unlock()
			if err != nil {
				log.Debug("terminal reply not delivered: %v", err)
			}
		}
	}
}

// current returns the live instance.
func (e *Engine) current() (*instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateRunning:
		return e.inst, nil
	case StateResetting:
		return nil, ErrSessionReset
	default:
		return nil, ErrTerminated
	}
}

// interrupted maps a cancelled wait to the error the caller sees.
func (e *Engine) interrupted(ctx context.Context, inst *instance) error {
	if inst.ctx.Err() == nil {
		return ctx.Err()
	}
	if e.State() == StateTerminated || e.baseCtx.Err() != nil {
		return ErrTerminated
	}
	return ErrSessionReset
}

// SendAndWait passes input through the approval gate, writes it if approved,
// waits for delay and returns a copy of the screen. Every call that reaches a
// decision is recorded as a turn; a denial is a normal result, not an error.
func (e *Engine) SendAndWait(ctx context.Context, input []byte, delay time.Duration) (*Result, error) {
	return e.send(ctx, "send", recorder.OriginAgent, input, delay, true)
}

// RawSend writes input without asking the gate, then waits like SendAndWait.
// The turn is recorded with origin operator.
func (e *Engine) RawSend(ctx context.Context, input []byte, delay time.Duration) (*Result, error) {
	return e.send(ctx, "raw_send", recorder.OriginOperator, input, delay, false)
}

func (e *Engine) send(ctx context.Context, op string, origin recorder.Origin, input []byte, delay time.Duration, gated bool) (*Result, error) {
	if delay < 0 {
		return nil, newOpError(op, "", fmt.Errorf("%w: %v", ErrInvalidDelay, delay))
	}

	e.turnMu.Lock()
	defer e.turnMu.Unlock()

	inst, err := e.current()
	if err != nil {
		return nil, newOpError(op, "", err)
	}
	if len(input) > 0 && !inst.proc.Alive() {
		return nil, newOpError(op, inst.id, terminal.ErrProcessExited)
	}

	waitCtx, stop := inst.link(ctx)
	defer stop()

	outcome := recorder.OutcomeApproved
	if gated {
		outcome, err = e.gate.Decide(waitCtx, Request{SessionID: inst.id, Input: input, Delay: delay})
		if err != nil {
			if waitCtx.Err() != nil {
				err = e.interrupted(ctx, inst)
			}
			return nil, newOpError(op, inst.id, err)
		}
	}

	if !outcome.Sent() {
		snap := inst.emu.Snapshot()
		turn := e.rec.Record(origin, input, delay, outcome, snap)
		e.log.Info("turn %d denied (%d bytes)", turn.Index, len(input))
		return &Result{Outcome: outcome, Snapshot: snap, Turn: turn.Index}, nil
	}

	if len(input) > 0 {
		e.writeMu.Lock()
		_, err := inst.proc.Write(input)
		e.writeMu.Unlock()
		if err != nil {
			if inst.ctx.Err() != nil {
				err = e.interrupted(ctx, inst)
			}
			return nil, newOpError(op, inst.id, err)
		}
	}

	if err := sleep(waitCtx, delay); err != nil {
		return nil, newOpError(op, inst.id, e.interrupted(ctx, inst))
	}

	snap := inst.emu.Snapshot()
	turn := e.rec.Record(origin, input, delay, outcome, snap)
	e.log.Debug("turn %d %s (%d bytes, wait %v)", turn.Index, outcome, len(input), delay)
	return &Result{Approved: true, Outcome: outcome, Snapshot: snap, Turn: turn.Index}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Snapshot returns a copy of the current screen without sending or waiting.
// No turn is recorded.
func (e *Engine) Snapshot() (terminal.Snapshot, error) {
	inst, err := e.current()
	if err != nil {
		return terminal.Snapshot{}, newOpError("snapshot", "", err)
	}
	return inst.emu.Snapshot(), nil
}

// Reset interrupts pending calls, terminates the child, discards the screen
// and turn log, and spawns a fresh instance. If the respawn fails the engine
// is left terminated.
func (e *Engine) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newOpError("reset", "", err)
	}

	e.mu.Lock()
	if e.state == StateTerminated {
		e.mu.Unlock()
		return newOpError("reset", "", ErrTerminated)
	}
	e.state = StateResetting
	old := e.inst
	e.mu.Unlock()

	// Terminating before taking turnMu closes the PTY, which fails a write
	// stuck on a child that is not reading.
	old.cancel()
	old.proc.Terminate()

	e.turnMu.Lock()
	defer e.turnMu.Unlock()

	e.teardown(old)

	inst, err := e.spawn()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.inst = nil
		e.state = StateTerminated
		e.log.Error("respawn failed: %v", err)
		return newOpError("reset", old.id, err)
	}
	if e.state == StateTerminated {
		// Closed while resetting.
		e.teardown(inst)
		return newOpError("reset", old.id, ErrTerminated)
	}
	e.rec.Reset(inst.id)
	e.inst = inst
	e.state = StateRunning
	e.log.Info("session %s replaced by %s", old.id, inst.id)
	return nil
}

// teardown stops an instance and waits for its background loop.
func (e *Engine) teardown(inst *instance) {
	inst.cancel()
	inst.proc.Terminate()
	<-inst.loopDone
}

// Resize changes the terminal size of the live instance and of future
// instances.
func (e *Engine) Resize(rows, cols int) error {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()

	inst, err := e.current()
	if err != nil {
		return newOpError("resize", "", err)
	}
	if err := inst.proc.Resize(rows, cols); err != nil {
		return newOpError("resize", inst.id, err)
	}
	if err := inst.emu.Resize(rows, cols); err != nil {
		return newOpError("resize", inst.id, err)
	}

	e.mu.Lock()
	e.opts.Shell.Rows = rows
	e.opts.Shell.Cols = cols
	e.mu.Unlock()
	return nil
}

// Close terminates the child and stops the engine. The last screen stays
// available to Export. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.state == StateTerminated && e.inst == nil {
		e.mu.Unlock()
		e.baseCancel()
		return nil
	}
	e.state = StateTerminated
	inst := e.inst
	e.inst = nil
	e.mu.Unlock()

	if inst != nil {
		inst.cancel()
		inst.proc.Terminate()
		e.turnMu.Lock()
		snap := inst.emu.Snapshot()
		e.teardown(inst)
		e.mu.Lock()
		e.final = &snap
		e.mu.Unlock()
		e.turnMu.Unlock()
	}
	e.baseCancel()
	return nil
}

// finalSnapshot returns the live screen, or the last one after Close.
func (e *Engine) finalSnapshot() *terminal.Snapshot {
	if snap, err := e.Snapshot(); err == nil {
		return &snap
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.final
}

// Export serializes the turn log with the current (or last) screen.
func (e *Engine) Export(format recorder.Format) ([]byte, error) {
	data, err := e.rec.Export(format, e.finalSnapshot())
	if err != nil {
		return nil, newOpError("export", e.rec.SessionID(), err)
	}
	return data, nil
}

// WriteExport writes the session to path; the format follows the extension.
func (e *Engine) WriteExport(path string) error {
	if err := e.rec.WriteFile(path, e.finalSnapshot()); err != nil {
		return newOpError("export", e.rec.SessionID(), err)
	}
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SessionID returns the id of the live instance, or of the last one.
func (e *Engine) SessionID() string {
	return e.rec.SessionID()
}

// Alive reports whether the live child process is still running.
func (e *Engine) Alive() bool {
	inst, err := e.current()
	if err != nil {
		return false
	}
	return inst.proc.Alive()
}

// Gate returns the approval gate.
func (e *Engine) Gate() *Gate {
	return e.gate
}

// Recorder returns the turn log.
func (e *Engine) Recorder() *recorder.Recorder {
	return e.rec
}

// IsInterrupted reports whether err came from a reset or a closed engine
// rather than from the child process.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrSessionReset) || errors.Is(err, ErrTerminated)
}
