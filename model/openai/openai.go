// Package openai implements model.Model on the OpenAI Chat Completions API,
// streaming included. Any OpenAI compatible endpoint works through BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/model"
)

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// APIKey overrides OPENAI_API_KEY.
	APIKey string
	// BaseURL targets an OpenAI compatible endpoint.
	BaseURL string
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4o,
		Temperature:         0,
		MaxCompletionTokens: 4096,
	}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req, buildMessages(req))
		send := func(r model.Response) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var err error
		if req.Stream {
			err = m.stream(ctx, params, send)
		} else {
			err = m.complete(ctx, params, send)
		}
		if err != nil {
			errCh <- err
		}
	}()
	return out, errCh
}

// buildMessages converts the conversation into OpenAI chat messages.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case core.RoleAssistant:
			if !msg.HasToolCalls() {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: toToolCallParams(msg.ToolCalls)}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case core.RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			if msg.Content != "" {
				messages = append(messages, openai.UserMessage(msg.Content))
			}
		}
	}
	return messages
}

func toToolCallParams(calls []core.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	params := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, c := range calls {
		params = append(params, openai.ChatCompletionMessageToolCallParam{
			ID:   c.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		})
	}
	return params
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

func (m *Model) stream(ctx context.Context, params openai.ChatCompletionNewParams, send func(model.Response) bool) error {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		text  strings.Builder
		calls toolCallBuffer
	)
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if delta := choice.Delta.Content; delta != "" {
				text.WriteString(delta)
				if !send(model.Response{Partial: true, Message: core.Message{Role: core.RoleAssistant, Content: delta}}) {
					return ctx.Err()
				}
			}
			for _, d := range choice.Delta.ToolCalls {
				calls.add(d.Index, d.ID, d.Function.Name, d.Function.Arguments)
			}
			if choice.FinishReason == "" {
				continue
			}
			final := model.Response{
				ID:           chunk.ID,
				Message:      core.NewAssistantMessage(text.String(), calls.calls()...),
				FinishReason: choice.FinishReason,
			}
			if !send(final) {
				return ctx.Err()
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	return nil
}

func (m *Model) complete(ctx context.Context, params openai.ChatCompletionNewParams, send func(model.Response) bool) error {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("openai completion: no choices returned")
	}

	choice := resp.Choices[0]
	calls := make([]core.ToolCall, len(choice.Message.ToolCalls))
	for i, tc := range choice.Message.ToolCalls {
		calls[i] = core.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
	}

	send(model.Response{
		ID:           resp.ID,
		Message:      core.NewAssistantMessage(choice.Message.Content, calls...),
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	})
	return nil
}

// toolCallBuffer joins streamed tool call fragments. Fragments are keyed by
// the index the API assigns; the first fragment of a call carries its id and
// name, later ones append to the arguments.
type toolCallBuffer struct {
	parts []core.ToolCall
}

func (b *toolCallBuffer) add(index int64, id, name, args string) {
	for int64(len(b.parts)) <= index {
		b.parts = append(b.parts, core.ToolCall{})
	}
	p := &b.parts[index]
	if id != "" {
		p.ID = id
	}
	if name != "" {
		p.Name = name
	}
	p.Arguments += args
}

func (b *toolCallBuffer) calls() []core.ToolCall {
	out := make([]core.ToolCall, 0, len(b.parts))
	for _, p := range b.parts {
		if p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
