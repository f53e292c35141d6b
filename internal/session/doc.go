// Package session drives one interactive terminal program on behalf of an
// agent or an operator.
//
// An Engine owns a child process on a pseudo-terminal, keeps its screen up to
// date from a background goroutine, gates writes through an approval policy
// and records every call as a turn.
//
// # Usage
//
//	eng, err := session.New(ctx, session.Options{
//	    Shell:    terminal.SpawnOptions{Program: "/bin/bash", Rows: 24, Cols: 80},
//	    Mode:     session.ModeConfirm,
//	    Approver: approver,
//	})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	res, err := eng.SendAndWait(ctx, []byte("ls\n"), 200*time.Millisecond)
//	if err != nil {
//	    return err
//	}
//	if !res.Approved {
//	    // The operator declined; nothing was written.
//	}
//	fmt.Println(res.Snapshot.Render())
//
// # Lifecycle
//
// The engine moves Starting → Running → Resetting → Running, or to
// Terminated when closed or when a respawn fails. It never resets on its
// own: after the child exits, writes fail with terminal.ErrProcessExited
// until Reset is called.
//
// # Ordering
//
// Calls are serialized, so turns are recorded in call order. Reset cancels
// any pending approval or wait before tearing the instance down; the
// interrupted call returns ErrSessionReset and records nothing.
//
// # Safety
//
// The child runs with the operator's environment and privileges. The
// approval gate is a confirmation step, not a sandbox.
package session
