// Package main is the entry point for ptyagent.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr, func(ctx context.Context, opts cliOptions) error {
		return runSession(ctx, opts, os.Stdin, os.Stdout, os.Stderr)
	})
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		// Flag errors were already printed with usage.
		if !isUsageError(err) {
			cmd.PrintErrf("Error: %v\n", err)
		}
		return 1
	}
	return 0
}
