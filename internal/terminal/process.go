package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
)

// Grace periods used by Terminate.
const (
	termGrace = 400 * time.Millisecond
	killGrace = 400 * time.Millisecond
)

const readBufferSize = 8192

// SpawnOptions configures a child process.
type SpawnOptions struct {
	// Program is the executable (defaults to $SHELL or /bin/sh).
	Program string

	// Args are passed to Program.
	Args []string

	// Env holds additional KEY=VALUE entries appended to the caller's environment.
	Env []string

	// Dir is the working directory.
	Dir string

	// Rows and Cols set the initial window size (default 24x80).
	Rows int
	Cols int
}

// Process is a child process attached to a pseudo-terminal.
//
// The child shares the caller's environment and privileges and can run
// arbitrary programs. Nothing here is a sandbox: only attach programs the
// operator trusts.
type Process struct {
	cmd  *exec.Cmd
	ptmx *os.File

	output chan []byte
	done   chan struct{}
	closed chan struct{}

	exitCode atomic.Int32
	exited   atomic.Bool

	closeOnce sync.Once
}

// Spawn starts a child process on a new pseudo-terminal.
func Spawn(opts SpawnOptions) (*Process, error) {
	if opts.Program == "" {
		opts.Program = os.Getenv("SHELL")
		if opts.Program == "" {
			opts.Program = "/bin/sh"
		}
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.Rows > 0xffff || opts.Cols > 0xffff {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Rows, opts.Cols)
	}

	cmd := exec.Command(opts.Program, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env,
		"TERM=xterm-256color",
		"COLUMNS="+strconv.Itoa(opts.Cols),
		"LINES="+strconv.Itoa(opts.Rows),
	)
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		if errors.Is(err, pty.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %w", ErrSpawnFailed, ErrPTYNotSupported)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawnFailed, opts.Program, err)
	}

	p := &Process{
		cmd:    cmd,
		ptmx:   ptmx,
		output: make(chan []byte, 64),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	p.exitCode.Store(-1)

	go p.readLoop()
	go p.waitLoop()

	return p, nil
}

// readLoop copies PTY output to the output channel until the PTY is closed or
// the child's side hangs up.
func (p *Process) readLoop() {
	defer close(p.output)

	buf := make([]byte, readBufferSize)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case p.output <- chunk:
			case <-p.closed:
				return
			}
		}
		if err != nil {
			if isRetryable(err) {
				continue
			}
			// EOF, EIO after hangup, or closed file.
			return
		}
	}
}

func (p *Process) waitLoop() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	p.exitCode.Store(int32(code))
	p.exited.Store(true)
	close(p.done)
}

// Output streams chunks read from the PTY. It is closed when no more output
// can arrive.
func (p *Process) Output() <-chan []byte {
	return p.output
}

// ReadAvailable drains whatever output is already buffered without blocking.
// It may return nil.
func (p *Process) ReadAvailable() []byte {
	var out []byte
	for {
		select {
		case chunk, ok := <-p.output:
			if !ok {
				return out
			}
			out = append(out, chunk...)
		default:
			return out
		}
	}
}

// Write sends all of b to the child. Short writes and interrupted writes are
// resumed; any other failure is returned as ErrWriteFailed without retrying.
func (p *Process) Write(b []byte) (int, error) {
	if !p.Alive() {
		return 0, ErrProcessExited
	}
	written := 0
	for written < len(b) {
		n, err := p.ptmx.Write(b[written:])
		written += n
		if err == nil {
			if n == 0 {
				return written, fmt.Errorf("%w: %w", ErrWriteFailed, io.ErrShortWrite)
			}
			continue
		}
		if isRetryable(err) {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if !p.Alive() {
			return written, ErrProcessExited
		}
		return written, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return written, nil
}

// Resize changes the PTY window size.
func (p *Process) Resize(rows, cols int) error {
	if rows < 1 || cols < 1 || rows > 0xffff || cols > 0xffff {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, rows, cols)
	}
	if err := pty.Setsize(p.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("resize PTY: %w", err)
	}
	return nil
}

// Alive reports whether the child is still running.
func (p *Process) Alive() bool {
	return !p.exited.Load()
}

// Done returns a channel that is closed when the child exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the exit status, or -1 while running or if killed by a signal.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Terminate stops the child and everything in its process group: SIGTERM, a
// grace period, SIGKILL, another grace period, then a direct kill. The PTY is
// closed afterwards. Terminate is safe to call more than once.
func (p *Process) Terminate() {
	if p.Alive() {
		pid := p.Pid()
		_ = signalGroup(pid, sigTerm)
		if !p.waitExit(termGrace) {
			_ = signalGroup(pid, sigKill)
			if !p.waitExit(killGrace) {
				_ = p.cmd.Process.Kill()
				p.waitExit(killGrace)
			}
		}
	}
	p.closeOnce.Do(func() {
		close(p.closed)
		_ = p.ptmx.Close()
	})
}

func (p *Process) waitExit(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}
