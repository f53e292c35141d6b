package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dshills/ptyagent/internal/recorder"
	"github.com/dshills/ptyagent/internal/session"
	"github.com/dshills/ptyagent/internal/terminal"
)

// fakeCompleter replays scripted completions and keeps every request.
type fakeCompleter struct {
	mu       sync.Mutex
	replies  []*openai.ChatCompletion
	err      error
	requests []openai.ChatCompletionNewParams
}

func (c *fakeCompleter) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, body)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	return next, nil
}

func textReply(text string, tokens int64) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: "assistant", Content: text},
		}},
		Usage: openai.CompletionUsage{TotalTokens: tokens},
	}
}

func toolReply(id, name, args string, tokens int64) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID:       id,
					Type:     "function",
					Function: openai.ChatCompletionMessageToolCallFunction{Name: name, Arguments: args},
				}},
			},
		}},
		Usage: openai.CompletionUsage{TotalTokens: tokens},
	}
}

type sentInput struct {
	input []byte
	delay time.Duration
	raw   bool
}

// fakeSession echoes approved input onto an emulator screen.
type fakeSession struct {
	mu      sync.Mutex
	emu     *terminal.Emulator
	deny    bool
	sendErr error
	sent    []sentInput
}

func newFakeSession() *fakeSession {
	return &fakeSession{emu: terminal.NewEmulator(4, 30, 10)}
}

func (s *fakeSession) SendAndWait(_ context.Context, input []byte, delay time.Duration) (*session.Result, error) {
	return s.send(input, delay, false)
}

func (s *fakeSession) RawSend(_ context.Context, input []byte, delay time.Duration) (*session.Result, error) {
	return s.send(input, delay, true)
}

func (s *fakeSession) send(input []byte, delay time.Duration, raw bool) (*session.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = append(s.sent, sentInput{input: append([]byte(nil), input...), delay: delay, raw: raw})
	if s.deny && !raw {
		return &session.Result{Outcome: recorder.OutcomeDenied, Snapshot: s.emu.Snapshot()}, nil
	}
	s.emu.Feed(input)
	return &session.Result{Approved: true, Outcome: recorder.OutcomeApproved, Snapshot: s.emu.Snapshot()}, nil
}

func (s *fakeSession) Snapshot() (terminal.Snapshot, error) {
	return s.emu.Snapshot(), nil
}

func (s *fakeSession) inputs() []sentInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentInput(nil), s.sent...)
}
