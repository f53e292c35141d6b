// Package terminal provides the pseudo-terminal process and screen model used by
// a ptyagent session.
//
// The package is organized around these core types:
//
//   - Process: a child program attached to a PTY (creack/pty)
//   - Parser: a streaming escape-sequence state machine
//   - Screen: the cell grid with cursor, modes and alternate buffer
//   - Emulator: Screen and Parser behind one mutex
//   - Snapshot: a deep copy of the screen handed to callers
//
// # Usage
//
//	proc, err := terminal.Spawn(terminal.SpawnOptions{
//	    Program: "/bin/bash",
//	    Args:    []string{"--noprofile", "--norc"},
//	    Rows:    24,
//	    Cols:    80,
//	})
//	if err != nil {
//	    return err
//	}
//	defer proc.Terminate()
//
//	emu := terminal.NewEmulator(24, 80, 1000)
//	go func() {
//	    for chunk := range proc.Output() {
//	        if reply := emu.Feed(chunk); reply != nil {
//	            proc.Write(reply)
//	        }
//	    }
//	}()
//
//	proc.Write([]byte("echo hi\n"))
//	time.Sleep(200 * time.Millisecond)
//	fmt.Println(emu.Snapshot().Render())
//
// # Escape Sequences
//
// The parser is total: every byte is accepted in every state. It handles C0
// controls, ESC sequences (DECSC/DECRC, IND, NEL, RI, HTS, RIS, keypad modes,
// G0/G1 designation, DECALN), CSI cursor movement, erase, insert/delete,
// scrolling regions, tab stops, SGR with 16/256/true-color, ANSI and DEC
// private modes (including the alternate screen and bracketed paste), DA/DSR
// queries and OSC 0/2 titles. Anything else is consumed and dropped.
//
// Sequences longer than 256 bytes, CSI parameters beyond 32 and OSC/DCS
// payloads over 4096 bytes are discarded. Parameter values saturate at 65535.
//
// # Safety
//
// A Process runs with the caller's environment and privileges. This package is
// not a sandbox.
//
// # Thread Safety
//
// Process and Emulator are safe for concurrent use. Screen and Parser are not;
// Emulator serializes access to them.
package terminal
