package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/ptyagent/internal/escape"
	"github.com/dshills/ptyagent/internal/session"
)

// ToolName is the only tool the model is offered.
const ToolName = "raw_input"

// Errors returned for malformed tool calls.
var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrBadArgs     = errors.New("invalid tool arguments")
)

// rawInputTool describes raw_input to the model.
func rawInputTool() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        ToolName,
			Description: openai.String("Decode the escaped input string and send the exact bytes to the terminal. Returns a snapshot after waiting float seconds."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"str": map[string]any{
						"type":        "string",
						"description": `Escaped bytes spec (supports \n, \r, \t, \xNN, \\)`,
					},
					"float": map[string]any{
						"type":        "number",
						"description": "Seconds to wait before capturing the terminal snapshot",
					},
				},
				"required":             []string{"str", "float"},
				"additionalProperties": false,
			},
		},
	}
}

// rawInputArgs are the decoded arguments of a raw_input call.
type rawInputArgs struct {
	Spec  string
	Input []byte
	Delay time.Duration
}

// parseRawInputArgs validates the JSON arguments the model produced.
func parseRawInputArgs(args string) (rawInputArgs, error) {
	if !gjson.Valid(args) {
		return rawInputArgs{}, fmt.Errorf("%w: not valid JSON", ErrBadArgs)
	}
	str := gjson.Get(args, "str")
	if str.Type != gjson.String {
		return rawInputArgs{}, fmt.Errorf("%w: str must be a string", ErrBadArgs)
	}
	secs := gjson.Get(args, "float")
	if secs.Type != gjson.Number {
		return rawInputArgs{}, fmt.Errorf("%w: float must be a number", ErrBadArgs)
	}
	delay, err := secondsToDuration(secs.Float())
	if err != nil {
		return rawInputArgs{}, err
	}
	input, err := escape.Decode(str.String())
	if err != nil {
		return rawInputArgs{}, fmt.Errorf("%w: %w", ErrBadArgs, err)
	}
	return rawInputArgs{Spec: str.String(), Input: input, Delay: delay}, nil
}

// secondsToDuration converts a tool delay, rejecting values that cannot be
// slept for.
func secondsToDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("%w: float must be a finite number", ErrBadArgs)
	}
	if secs < 0 {
		return 0, fmt.Errorf("%w: float must be non-negative", ErrBadArgs)
	}
	if secs > float64(math.MaxInt64)/float64(time.Second) {
		return 0, fmt.Errorf("%w: float is too large", ErrBadArgs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// deniedMessage is shown to the model in place of a screen it asked for.
func deniedMessage(screen string) string {
	return fmt.Sprintf("User denied the `%s` tool call. No bytes were sent.\n\n%s", ToolName, screen)
}

// runTool executes one tool call and returns the JSON result for the model.
// Cancellation, reset and approval failures abort the prompt. Other failures
// are reported to the model so it can correct itself.
func (r *Runtime) runTool(ctx context.Context, name, args string) (string, error) {
	if name != ToolName {
		return toolError(fmt.Errorf("%w: %s", ErrUnknownTool, name)), nil
	}
	parsed, err := parseRawInputArgs(args)
	if err != nil {
		return toolError(err), nil
	}

	r.log.Debug("raw_input %q wait %v", parsed.Spec, parsed.Delay)
	res, err := r.sess.SendAndWait(ctx, parsed.Input, parsed.Delay)
	if err != nil {
		if ctx.Err() != nil || session.IsInterrupted(err) || errors.Is(err, session.ErrApproval) {
			return "", err
		}
		return toolError(err), nil
	}

	screen := res.Snapshot.Render()
	if !res.Approved {
		screen = deniedMessage(screen)
	}
	out, _ := sjson.Set(`{}`, "approved", res.Approved)
	out, _ = sjson.Set(out, "screen", screen)
	return out, nil
}

func toolError(err error) string {
	out, _ := sjson.Set(`{"approved":false}`, "error", err.Error())
	return out
}
