package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

//go:embed default.toml
var defaultContents []byte

// AppName names the configuration directory under ~/.config.
const AppName = "ptyagent"

// Default values for optional settings.
const (
	DefaultModel         = "gpt-5.2"
	DefaultScrollback    = 1000
	DefaultMaxToolRounds = 32
	DefaultLogLevel      = "warn"
)

// Skin selects the markdown style used for agent responses.
type Skin string

const (
	SkinDefault Skin = "default"
	SkinLight   Skin = "light"
	SkinDark    Skin = "dark"
)

// Valid reports whether s is a known skin.
func (s Skin) Valid() bool {
	switch s {
	case SkinDefault, SkinLight, SkinDark:
		return true
	}
	return false
}

// Config is the full configuration file.
type Config struct {
	// WaitMS is the delay used by :raw before taking a snapshot.
	WaitMS int64 `toml:"wait_ms"`
	// Yolo approves every tool call without asking.
	Yolo bool `toml:"yolo"`

	Shell    ShellConfig    `toml:"shell"`
	Terminal TerminalConfig `toml:"terminal"`
	LLM      LLMConfig      `toml:"llm"`
	Log      LogConfig      `toml:"log"`

	// Path is the file the configuration was loaded from.
	Path string `toml:"-"`
}

// ShellConfig describes the child program.
type ShellConfig struct {
	Program string            `toml:"program"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// TerminalConfig holds emulator settings.
type TerminalConfig struct {
	Scrollback int `toml:"scrollback"`
}

// LLMConfig holds model client settings.
type LLMConfig struct {
	APIKey        string `toml:"api_key"`
	Model         string `toml:"model"`
	BaseURL       string `toml:"base_url"`
	Skin          Skin   `toml:"skin"`
	InitialPrompt string `toml:"initial_prompt"`
	MaxToolRounds int    `toml:"max_tool_rounds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the parsed embedded default configuration.
func Default() *Config {
	cfg, err := Parse(defaultContents)
	if err != nil {
		panic("config: embedded default is invalid: " + err.Error())
	}
	return cfg
}

// DefaultContents returns the embedded default file.
func DefaultContents() []byte {
	return bytes.Clone(defaultContents)
}

// DefaultPath returns ~/.config/ptyagent/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w for default config path", ErrNoHome)
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// EnsureDefault writes the embedded default to path if no file exists there.
// Concurrent first runs are serialized with a lock file next to path.
func EnsureDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory for %s: %w", path, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, defaultContents, 0o600); err != nil {
		return fmt.Errorf("write default config file %s: %w", path, err)
	}
	return nil
}

// Parse decodes TOML data and fills in defaults for optional settings.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	// Seeded before decoding so an explicit zero disables scrollback.
	cfg := Config{Terminal: TerminalConfig{Scrollback: DefaultScrollback}}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, wrapDecodeError("", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads, parses and validates the file at path. The API key falls back
// to OPENAI_API_KEY when the file leaves it blank.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	cfg.Path = path
	cfg.ResolveAPIKey(os.Getenv("OPENAI_API_KEY"))

	if _, _, err := cfg.TerminalSize(); err != nil {
		return nil, fmt.Errorf("invalid terminal size in config file %s: %w", path, err)
	}
	if err := cfg.ValidateLLM(); err != nil {
		return nil, fmt.Errorf("invalid llm settings in config file %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads path, or the default path after writing the default file
// when path is empty.
func Resolve(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		if err := EnsureDefault(p); err != nil {
			return nil, err
		}
		path = p
	}
	return Load(path)
}

func (c *Config) applyDefaults() {
	if c.LLM.Skin == "" {
		c.LLM.Skin = SkinDefault
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxToolRounds == 0 {
		c.LLM.MaxToolRounds = DefaultMaxToolRounds
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Shell.Env == nil {
		c.Shell.Env = map[string]string{}
	}
}

// validate checks settings whose absence makes the file unusable.
func (c *Config) validate() error {
	if c.WaitMS < 0 {
		return invalid("wait_ms", "must not be negative")
	}
	if strings.TrimSpace(c.Shell.Program) == "" {
		return missing("shell.program", "must not be empty")
	}
	if !c.LLM.Skin.Valid() {
		return invalid("llm.skin", fmt.Sprintf("must be default, light or dark (got %q)", c.LLM.Skin))
	}
	if c.LLM.InitialPrompt == "" {
		return missing("llm.initial_prompt", "is required")
	}
	if c.Terminal.Scrollback < 0 {
		return invalid("terminal.scrollback", "must not be negative")
	}
	if c.LLM.MaxToolRounds < 0 {
		return invalid("llm.max_tool_rounds", "must not be negative")
	}
	return nil
}

// ResolveAPIKey uses envKey when the configured key is blank and envKey is not.
func (c *Config) ResolveAPIKey(envKey string) {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return
	}
	if strings.TrimSpace(envKey) != "" {
		c.LLM.APIKey = envKey
	}
}

// TerminalSize reads LINES and COLUMNS from shell.env.
func (c *Config) TerminalSize() (rows, cols int, err error) {
	cols, err = envInt(c.Shell.Env, "COLUMNS")
	if err != nil {
		return 0, 0, err
	}
	rows, err = envInt(c.Shell.Env, "LINES")
	if err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// ValidateLLM checks the settings the agent needs.
func (c *Config) ValidateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return missing("llm.api_key", "must not be empty (or set OPENAI_API_KEY)")
	}
	if strings.TrimSpace(c.LLM.InitialPrompt) == "" {
		return missing("llm.initial_prompt", "must not be empty")
	}
	return nil
}

// Wait returns wait_ms as a duration.
func (c *Config) Wait() time.Duration {
	return time.Duration(c.WaitMS) * time.Millisecond
}

// Environ returns shell.env as KEY=VALUE pairs in a stable order.
func (c *Config) Environ() []string {
	out := make([]string, 0, len(c.Shell.Env))
	for _, k := range slices.Sorted(maps.Keys(c.Shell.Env)) {
		out = append(out, k+"="+c.Shell.Env[k])
	}
	return out
}

func envInt(env map[string]string, key string) (int, error) {
	field := "shell.env." + key
	value, ok := env[key]
	if !ok {
		return 0, &FieldError{Field: field, Message: "is missing", Err: ErrMissingField}
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, invalid(field, fmt.Sprintf("must be a positive integer (got %q)", value))
	}
	if n == 0 {
		return 0, invalid(field, "must be greater than zero")
	}
	return n, nil
}

func wrapDecodeError(path string, err error) error {
	var de *toml.DecodeError
	if errors.As(err, &de) {
		line, col := de.Position()
		return &ParseError{Path: path, Line: line, Column: col, Message: de.Error(), Err: err}
	}
	var se *toml.StrictMissingError
	if errors.As(err, &se) {
		return &ParseError{Path: path, Message: strings.TrimSpace(se.String()), Err: err}
	}
	return &ParseError{Path: path, Message: err.Error(), Err: err}
}
