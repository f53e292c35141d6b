package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"

	"github.com/dshills/ptyagent/internal/agent"
	"github.com/dshills/ptyagent/internal/config"
	"github.com/dshills/ptyagent/internal/logging"
	"github.com/dshills/ptyagent/internal/recorder"
	"github.com/dshills/ptyagent/internal/terminal"
)

// HelpText lists the REPL commands.
const HelpText = "commands: :raw <spec> (send escaped bytes), :snap (snapshot now), " +
	":reset (restart shell + clear agent state), :quit (exit). " +
	"every other line is sent to the agent"

// Session is the part of the engine the REPL uses directly.
type Session interface {
	Snapshot() (terminal.Snapshot, error)
	Reset(ctx context.Context) error
	Recorder() *recorder.Recorder
}

// Agent runs prompts and raw sends.
type Agent interface {
	Prompt(ctx context.Context, input string) (*agent.Response, error)
	SendRaw(ctx context.Context, spec string, wait time.Duration) (string, error)
	Reset()
}

// Control tells the loop whether to keep reading.
type Control int

const (
	Continue Control = iota
	Quit
)

// Options configures a REPL.
type Options struct {
	// Wait is the delay used by :raw.
	Wait time.Duration
	Skin config.Skin

	Out    io.Writer
	ErrOut io.Writer
	Logger *logging.Logger

	// Width returns the terminal width; defaults to stdout's size.
	Width func() int
	// Now defaults to time.Now.
	Now func() time.Time
}

// REPL is the line-oriented operator front end.
type REPL struct {
	sess  Session
	agent Agent
	lines *LineReader
	opts  Options
	log   *logging.Logger

	styles   promptStyles
	markdown *glamour.TermRenderer

	tokens     int64
	haveTokens bool
}

// New creates a REPL. lines may be nil when only ProcessLine is used.
func New(sess Session, ag Agent, lines *LineReader, opts Options) (*REPL, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.ErrOut == nil {
		opts.ErrOut = io.Discard
	}
	if opts.Width == nil {
		opts.Width = terminalWidth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	md, err := newMarkdown(opts.Skin, opts.Width())
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}

	return &REPL{
		sess:     sess,
		agent:    ag,
		lines:    lines,
		opts:     opts,
		log:      log.WithComponent("repl"),
		styles:   newPromptStyles(opts.Out),
		markdown: md,
	}, nil
}

// Run reads lines until :quit, end of input or ctx ends.
func (r *REPL) Run(ctx context.Context) error {
	if r.lines == nil {
		return errors.New("repl: no input")
	}
	r.log.Info("interactive mode: prompts go to agent; commands: :raw, :snap, :reset, :help, :quit")

	for {
		fmt.Fprint(r.opts.Out, r.prompt())

		line, err := r.lines.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.opts.Out)
			return nil
		}
		if err != nil {
			return err
		}

		ctl, err := r.ProcessLine(ctx, line)
		if err != nil {
			return err
		}
		if ctl == Quit {
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	return r.styles.render(r.opts.Width(), r.opts.Now(), r.tokens, r.haveTokens)
}

// ProcessLine handles one input line. Command and agent failures are printed
// and the loop continues; only snapshot and reset failures are returned.
func (r *REPL) ProcessLine(ctx context.Context, line string) (Control, error) {
	line = strings.TrimRight(line, "\r\n")
	if line != "" {
		r.sess.Recorder().RecordEvent(recorder.EventUserInput, line)
	}

	switch line {
	case "":
		return Continue, nil
	case ":quit", ":q":
		return Quit, nil
	case ":help":
		fmt.Fprintln(r.opts.ErrOut, HelpText)
		return Continue, nil
	case ":snap":
		snap, err := r.sess.Snapshot()
		if err != nil {
			return Continue, err
		}
		r.printSnapshot(snap)
		return Continue, nil
	case ":reset":
		if err := r.sess.Reset(ctx); err != nil {
			return Continue, err
		}
		r.agent.Reset()
		r.tokens, r.haveTokens = 0, false
		snap, err := r.sess.Snapshot()
		if err != nil {
			return Continue, err
		}
		r.printSnapshot(snap)
		return Continue, nil
	}

	if strings.HasPrefix(line, ":") {
		spec, ok := parsePrefixedArg(line, ":raw")
		if !ok {
			fmt.Fprintf(r.opts.ErrOut, "command error: unknown command `%s`\n", line)
			return Continue, nil
		}
		screen, err := r.agent.SendRaw(ctx, spec, r.opts.Wait)
		if err != nil {
			fmt.Fprintf(r.opts.ErrOut, "command error: %v\n", err)
			return Continue, nil
		}
		fmt.Fprintln(r.opts.Out, screen)
		return Continue, nil
	}

	resp, err := r.agent.Prompt(ctx, line)
	if err != nil {
		fmt.Fprintf(r.opts.ErrOut, "agent error: %v\n", err)
		return Continue, nil
	}
	r.tokens, r.haveTokens = resp.TotalTokens, true
	r.printResponse(resp.Output)
	r.sess.Recorder().RecordEvent(recorder.EventAssistant, resp.Output)
	return Continue, nil
}

// parsePrefixedArg returns the argument after prefix. The bare prefix yields
// an empty argument; otherwise whitespace must separate prefix and argument.
func parsePrefixedArg(line, prefix string) (string, bool) {
	if line == prefix {
		return "", true
	}
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	first, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsSpace(first) {
		return "", false
	}
	return strings.TrimLeftFunc(rest, unicode.IsSpace), true
}

func (r *REPL) printSnapshot(snap terminal.Snapshot) {
	r.log.Info("snapshot: %dx%d, cursor=(%d,%d), lines=%d",
		snap.Cols, snap.Rows, snap.Cursor.Row, snap.Cursor.Col, len(snap.Lines))
	fmt.Fprintln(r.opts.Out, snap.Render())
}

func (r *REPL) printResponse(text string) {
	out, err := r.markdown.Render(text)
	if err != nil {
		r.log.Warn("render markdown: %v", err)
		out = text + "\n"
	}
	fmt.Fprint(r.opts.Out, out)
}
