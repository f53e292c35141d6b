package repl

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/ptyagent/internal/escape"
	"github.com/dshills/ptyagent/internal/session"
)

// previewLimit caps the byte preview shown in the approval prompt.
const previewLimit = 200

// Approver asks the operator on the terminal before tool bytes are sent.
type Approver struct {
	lines  *LineReader
	out    io.Writer
	errOut io.Writer
	tool   string
}

// NewApprover creates an approver that reads answers from lines. Details go
// to errOut and the question to out.
func NewApprover(lines *LineReader, out, errOut io.Writer, tool string) *Approver {
	return &Approver{lines: lines, out: out, errOut: errOut, tool: tool}
}

// Approve implements session.Approver. Only "y" and "yes" approve.
func (a *Approver) Approve(ctx context.Context, req session.Request) (bool, error) {
	fmt.Fprintln(a.errOut)
	fmt.Fprintln(a.errOut, "approval required for LLM tool call")
	fmt.Fprintf(a.errOut, "tool: %s\n", a.tool)
	fmt.Fprintf(a.errOut, "input: %s\n", strconv.Quote(escape.Encode(req.Input)))
	fmt.Fprintf(a.errOut, "bytes: %s\n", escape.Preview(req.Input, previewLimit))
	fmt.Fprint(a.out, "allow sending these bytes to the shell? [y/N]: ")

	answer, err := a.lines.ReadLine(ctx)
	if err != nil {
		return false, fmt.Errorf("read confirmation response: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

var _ session.Approver = (*Approver)(nil)
