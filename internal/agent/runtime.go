package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dshills/ptyagent/internal/escape"
	"github.com/dshills/ptyagent/internal/logging"
	"github.com/dshills/ptyagent/internal/session"
	"github.com/dshills/ptyagent/internal/terminal"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gpt-5.2"

// DefaultMaxToolRounds bounds the completions made for one prompt.
const DefaultMaxToolRounds = 32

// Errors returned by the runtime.
var (
	ErrNoChoices     = errors.New("model returned no choices")
	ErrTooManyRounds = errors.New("tool call limit reached")
	ErrUsage         = errors.New("usage: :raw <escaped bytes>")
)

// Completer creates chat completions. The openai client's
// Chat.Completions service implements it.
type Completer interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// NewCompleter returns an OpenAI chat completion client.
func NewCompleter(apiKey, baseURL string) Completer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client.Chat.Completions
}

// Session is the part of the engine the runtime drives.
type Session interface {
	SendAndWait(ctx context.Context, input []byte, delay time.Duration) (*session.Result, error)
	RawSend(ctx context.Context, input []byte, delay time.Duration) (*session.Result, error)
	Snapshot() (terminal.Snapshot, error)
}

// Options configures a Runtime.
type Options struct {
	Model         string
	InitialPrompt string
	MaxToolRounds int
	Logger        *logging.Logger
}

// Response is the outcome of one prompt.
type Response struct {
	// Output is the model's final text.
	Output string
	// TotalTokens sums usage over every completion made for the prompt.
	TotalTokens int64
	// ToolCalls counts raw_input calls executed.
	ToolCalls int
}

// Runtime runs a tool-calling conversation against a session. Conversation
// history carries over between prompts until Reset.
type Runtime struct {
	client Completer
	sess   Session
	opts   Options
	log    *logging.Logger

	mu      sync.Mutex
	history []openai.ChatCompletionMessageParamUnion
}

// New creates a runtime.
func New(client Completer, sess Session, opts Options) *Runtime {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Runtime{
		client: client,
		sess:   sess,
		opts:   opts,
		log:    log.WithComponent("agent"),
	}
}

// Prompt sends input to the model and executes the tool calls it makes until
// it answers with text. History is only extended when the prompt completes.
func (r *Runtime) Prompt(ctx context.Context, input string) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	turn := []openai.ChatCompletionMessageParamUnion{openai.UserMessage(input)}
	resp := &Response{}

	for round := 0; round < r.opts.MaxToolRounds; round++ {
		completion, err := r.client.New(ctx, r.params(turn))
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		resp.TotalTokens += completion.Usage.TotalTokens
		if len(completion.Choices) == 0 {
			return nil, ErrNoChoices
		}

		msg := completion.Choices[0].Message
		turn = append(turn, msg.ToParam())
		if len(msg.ToolCalls) == 0 {
			resp.Output = msg.Content
			r.history = append(r.history, turn...)
			r.log.Info("prompt answered after %d tool calls, %d tokens", resp.ToolCalls, resp.TotalTokens)
			return resp, nil
		}

		for _, call := range msg.ToolCalls {
			result, err := r.runTool(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return nil, err
			}
			resp.ToolCalls++
			turn = append(turn, openai.ToolMessage(result, call.ID))
		}
	}
	return nil, fmt.Errorf("%w (%d rounds)", ErrTooManyRounds, r.opts.MaxToolRounds)
}

func (r *Runtime) params(turn []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 1+len(r.history)+len(turn))
	msgs = append(msgs, openai.SystemMessage(r.opts.InitialPrompt))
	msgs = append(msgs, r.history...)
	msgs = append(msgs, turn...)
	return openai.ChatCompletionNewParams{
		Model:             openai.ChatModel(r.opts.Model),
		Messages:          msgs,
		Tools:             []openai.ChatCompletionToolParam{rawInputTool()},
		ParallelToolCalls: openai.Bool(false),
	}
}

// SendRaw decodes spec and writes it without approval, returning the rendered
// screen after wait.
func (r *Runtime) SendRaw(ctx context.Context, spec string, wait time.Duration) (string, error) {
	if spec == "" {
		return "", ErrUsage
	}
	input, err := escape.Decode(spec)
	if err != nil {
		return "", err
	}
	res, err := r.sess.RawSend(ctx, input, wait)
	if err != nil {
		return "", err
	}
	return res.Snapshot.Render(), nil
}

// Reset forgets the conversation.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// HistoryLen returns the number of messages kept from earlier prompts.
func (r *Runtime) HistoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}
