package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// cliOptions holds parsed command-line flags.
type cliOptions struct {
	verbose     int
	configPath  string
	yolo        bool
	command     string
	login       bool
	interactive bool
	sessionHTML string
	sessionJSON string
}

// usageError marks flag and argument problems cobra already reported.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// runFunc executes the session once flags are parsed.
type runFunc func(ctx context.Context, opts cliOptions) error

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer, runE runFunc) *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "ptyagent [flags]",
		Short: "Let a language model drive a real shell",
		Long: `ptyagent runs a shell in a pseudo-terminal and lets a chat model operate it
through a single raw_input tool, one approved keystroke batch at a time.

Lines typed at the prompt go to the model. Lines starting with ':' are
commands; type :help to list them.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runE(cmd.Context(), opts)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln("Error:", err)
		c.PrintErrln(c.UsageString())
		return &usageError{err: err}
	})

	f := cmd.Flags()
	f.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (use -vv for more detail)")
	f.StringVar(&opts.configPath, "config", "", "path to TOML config file (default ~/.config/ptyagent/config.toml)")
	f.BoolVar(&opts.yolo, "yolo", false, "disable confirmation prompts for LLM-issued terminal input")
	f.StringVarP(&opts.command, "command", "c", "", "execute one REPL line and exit")
	f.BoolVarP(&opts.login, "login", "l", false, "accepted for compatibility; no effect")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "accepted for compatibility; no effect")
	f.StringVar(&opts.sessionHTML, "session-html", "", "write an HTML capture of the session to `PATH`")
	f.StringVar(&opts.sessionJSON, "session-json", "", "write a JSON capture of the session to `PATH`")

	return cmd
}
