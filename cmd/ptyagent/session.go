package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/ptyagent/internal/agent"
	"github.com/dshills/ptyagent/internal/config"
	"github.com/dshills/ptyagent/internal/logging"
	"github.com/dshills/ptyagent/internal/recorder"
	"github.com/dshills/ptyagent/internal/repl"
	"github.com/dshills/ptyagent/internal/session"
	"github.com/dshills/ptyagent/internal/terminal"
)

// runSession loads configuration, starts the shell and runs the REPL or a
// single command. Exports are written after the shell has been shut down.
func runSession(ctx context.Context, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(opts.verbose, cfg.Log.Level, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rows, cols, err := cfg.TerminalSize()
	if err != nil {
		return err
	}

	lines := repl.NewLineReader(stdin)
	eng, err := session.New(ctx, session.Options{
		Shell: terminal.SpawnOptions{
			Program: cfg.Shell.Program,
			Args:    cfg.Shell.Args,
			Env:     cfg.Environ(),
			Rows:    rows,
			Cols:    cols,
		},
		Scrollback: cfg.Terminal.Scrollback,
		Mode:       session.ModeFromYolo(opts.yolo || cfg.Yolo),
		Approver:   repl.NewApprover(lines, stdout, stderr, agent.ToolName),
		Logger:     log,
	})
	if err != nil {
		return err
	}
	log.Info("session %s started: %s (%dx%d, approval %s)",
		eng.SessionID(), cfg.Shell.Program, cols, rows, eng.Gate().Mode())

	if opts.command == "" && cfg.Path != "" {
		w, err := config.Watch(cfg.Path, reloadHandler(eng.Gate(), log, opts))
		if err != nil {
			log.Warn("config live reload disabled: %v", err)
		} else {
			defer func() { _ = w.Close() }()
		}
	}

	rt := agent.New(agent.NewCompleter(cfg.LLM.APIKey, cfg.LLM.BaseURL), eng, agent.Options{
		Model:         cfg.LLM.Model,
		InitialPrompt: cfg.LLM.InitialPrompt,
		MaxToolRounds: cfg.LLM.MaxToolRounds,
		Logger:        log,
	})

	r, err := repl.New(eng, rt, lines, repl.Options{
		Wait:   cfg.Wait(),
		Skin:   cfg.LLM.Skin,
		Out:    stdout,
		ErrOut: stderr,
		Logger: log,
	})
	if err != nil {
		_ = eng.Close()
		return err
	}

	var replErr error
	if opts.command != "" {
		_, replErr = r.ProcessLine(ctx, opts.command)
	} else {
		replErr = r.Run(ctx)
	}
	if errors.Is(replErr, context.Canceled) {
		replErr = nil
	}

	closeErr := eng.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("shut down terminal session: %w", closeErr)
	}
	exportErr := writeExports(eng, opts)

	return errors.Join(replErr, closeErr, exportErr)
}

func newLogger(verbose int, configured string, out io.Writer) (*logging.Logger, error) {
	level := configured
	if verbose > 0 || level == "" {
		level = logging.LevelFromVerbosity(verbose)
	}
	return logging.New(logging.Config{Level: level, Output: out})
}

// reloadHandler re-applies the approval mode and log level when the config
// file changes. The --yolo and -v flags win over the file.
func reloadHandler(gate *session.Gate, log *logging.Logger, opts cliOptions) config.ReloadFunc {
	return func(cfg *config.Config, err error) {
		if err != nil {
			log.Warn("config reload failed: %v", err)
			return
		}
		if opts.verbose == 0 && cfg.Log.Level != "" {
			if err := log.SetLevel(cfg.Log.Level); err != nil {
				log.Warn("config reload: %v", err)
			}
		}
		mode := session.ModeFromYolo(opts.yolo || cfg.Yolo)
		if mode != gate.Mode() {
			log.Warn("approval mode changed to %s", mode)
		}
		gate.SetMode(mode)
	}
}

// exporter is the part of the engine writeExports needs.
type exporter interface {
	Export(format recorder.Format) ([]byte, error)
}

func writeExports(eng exporter, opts cliOptions) error {
	var errs []error
	write := func(path string, format recorder.Format) {
		if path == "" {
			return
		}
		data, err := eng.Export(format)
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("write session capture %s to %s: %w", format, path, err))
		}
	}
	write(opts.sessionHTML, recorder.FormatHTML)
	write(opts.sessionJSON, recorder.FormatJSON)
	return errors.Join(errs...)
}
