// Package config loads the ptyagent TOML configuration.
//
// The file lives at ~/.config/ptyagent/config.toml unless a path is given.
// On first run EnsureDefault writes an embedded default file; an existing
// file is never overwritten.
//
//	wait_ms = 1000
//	yolo = false
//
//	[shell]
//	program = "/bin/bash"
//	args = ["--noprofile"]
//
//	[shell.env]
//	COLUMNS = "120"   # terminal width
//	LINES = "40"      # terminal height
//
//	[llm]
//	api_key = ""      # falls back to OPENAI_API_KEY
//	skin = "default"  # default, light or dark
//	initial_prompt = "..."
//
// A Watcher reloads the file when it changes so the approval mode can be
// toggled without restarting.
package config
