package session

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ptyagent/internal/terminal"
)

// newShellEngine starts a real /bin/sh engine or skips the test.
func newShellEngine(t *testing.T) *Engine {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PTY test in short mode")
	}
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("skipping: /bin/sh not available")
	}
	eng, err := New(context.Background(), Options{
		Shell: terminal.SpawnOptions{
			Program: "/bin/sh",
			Env:     []string{"PS1=ready$ "},
			Rows:    24,
			Cols:    80,
		},
		Scrollback: 100,
		Mode:       ModeAutoApprove,
	})
	if err != nil {
		t.Skipf("skipping: failed to create session (may not have PTY): %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

// waitForScreen polls until the screen contains substr.
func waitForScreen(t *testing.T, eng *Engine, substr string) terminal.Snapshot {
	t.Helper()
	var snap terminal.Snapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = eng.Snapshot()
		return err == nil && snap.Contains(substr)
	}, 5*time.Second, 20*time.Millisecond, "screen never showed %q", substr)
	return snap
}

func TestShellEchoShowsOutputAndPrompt(t *testing.T) {
	eng := newShellEngine(t)
	waitForScreen(t, eng, "ready$")

	res, err := eng.SendAndWait(context.Background(), []byte("echo hi\n"), 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, res.Approved)

	snap := res.Snapshot
	if !containsLine(snap, "hi") {
		snap = waitForScreen(t, eng, "hi")
	}
	assert.True(t, containsLine(snap, "hi"), "screen:\n%s", snap.Text())

	// The prompt returns on the line after the output.
	lines := snapLines(snap)
	for i, l := range lines {
		if l == "hi" {
			require.Less(t, i+1, len(lines))
			assert.Contains(t, lines[i+1], "ready$")
		}
	}
}

func TestCtrlCReturnsToPrompt(t *testing.T) {
	eng := newShellEngine(t)
	waitForScreen(t, eng, "ready$")

	_, err := eng.SendAndWait(context.Background(), []byte("cat\n"), 200*time.Millisecond)
	require.NoError(t, err)

	res, err := eng.SendAndWait(context.Background(), []byte("\x03"), 300*time.Millisecond)
	require.NoError(t, err)
	require.True(t, res.Approved)

	// After the interrupt the shell accepts commands again.
	_, err = eng.SendAndWait(context.Background(), []byte("echo back-$((1+1))\n"), 200*time.Millisecond)
	require.NoError(t, err)
	waitForScreen(t, eng, "back-2")
	assert.Equal(t, 3, eng.Recorder().Len())
}

func TestResetSpawnsFreshShell(t *testing.T) {
	eng := newShellEngine(t)
	waitForScreen(t, eng, "ready$")
	_, err := eng.SendAndWait(context.Background(), []byte("echo marker-$((6*7))\n"), 200*time.Millisecond)
	require.NoError(t, err)
	waitForScreen(t, eng, "marker-42")

	require.NoError(t, eng.Reset(context.Background()))

	snap := waitForScreen(t, eng, "ready$")
	assert.False(t, snap.Contains("marker-42"))
	assert.Equal(t, 0, eng.Recorder().Len())
	assert.True(t, eng.Alive())
}

func snapLines(snap terminal.Snapshot) []string {
	out := make([]string, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		out = append(out, strings.TrimRight(l, " "))
	}
	return out
}

func containsLine(snap terminal.Snapshot, want string) bool {
	for _, l := range snapLines(snap) {
		if l == want {
			return true
		}
	}
	return false
}
