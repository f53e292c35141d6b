package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, "warn", LevelFromVerbosity(0))
	assert.Equal(t, "info", LevelFromVerbosity(1))
	assert.Equal(t, "debug", LevelFromVerbosity(2))
	assert.Equal(t, "debug", LevelFromVerbosity(7))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	root, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)
	child := root.WithComponent("session")

	require.NoError(t, root.SetLevel("debug"))
	child.Debug("now visible")

	assert.Contains(t, buf.String(), "now visible")
	assert.True(t, child.Enabled("debug"))
	assert.Equal(t, "debug", child.Level())
}

func TestFieldsInJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "info", Output: &buf, JSON: true})
	require.NoError(t, err)

	log.WithComponent("engine").WithFields(map[string]any{"session": "abc"}).Info("spawned pid=%d", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, "spawned pid=42", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("dropped")
	assert.False(t, log.Enabled("error"))
}
