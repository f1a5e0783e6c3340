package openai

import (
	"context"
	"fmt"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
)

// Config holds configuration for the chat adapter.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string
}

// ChatAdapter serves chat completions on top of a CompletionModel. It holds
// no per-request state and is safe for concurrent use.
type ChatAdapter struct {
	model     CompletionModel
	templater ChatTemplater
	cfg       Config
}

// Ensure ChatAdapter implements ChatModel at compile time.
var _ ChatModel = (*ChatAdapter)(nil)

// NewChatAdapter creates a ChatAdapter. The model and templater must not be nil.
func NewChatAdapter(model CompletionModel, templater ChatTemplater, cfg Config) (*ChatAdapter, error) {
	if model == nil {
		return nil, fmt.Errorf("openai: completion model must not be nil")
	}
	if templater == nil {
		return nil, fmt.Errorf("openai: chat templater must not be nil")
	}
	return &ChatAdapter{
		model:     model,
		templater: templater,
		cfg:       cfg,
	}, nil
}

// CreateChatCompletion renders the request messages into a prompt, maps the
// request onto a completion request and calls the backend once.
//
// For a non-streaming request the backend's completion is reshaped into a
// ChatCompletion. For a streaming request the backend stream is wrapped and
// returned immediately; chunks are produced as the caller pulls them.
// Backend errors are returned unchanged.
func (a *ChatAdapter) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req == nil {
		return nil, api.NewInvalidRequestError("", "request must not be nil")
	}
	if err := ValidateChoiceCount(req); err != nil {
		return nil, err
	}

	if req.Model == "" {
		if a.cfg.DefaultModel == "" {
			return nil, api.NewInvalidRequestError("model", "model is required")
		}
		withModel := *req
		withModel.Model = a.cfg.DefaultModel
		req = &withModel
	}

	prompt, err := a.templater.ApplyChatTemplate(req.Messages)
	if err != nil {
		return nil, err
	}
	role := prompt.Role()

	params, err := ToCompletionParams(req, prompt.Prompt)
	if err != nil {
		return nil, err
	}
	debug.Log(debug.Adapter, "completion params mapped",
		"model", params.Model,
		"stream", params.IsStream(),
		"params", presentParams(req),
		"prompt_len", len(params.Prompt),
	)

	resp, err := a.model.CreateCompletion(ctx, params)
	if err != nil {
		return nil, err
	}

	if !params.IsStream() {
		if resp == nil || resp.Completion == nil {
			closeStream(resp)
			return nil, api.NewServerError("backend returned no completion for a non-streaming request")
		}
		closeStream(resp)
		chat, err := ToChatCompletion(resp.Completion, role)
		if err != nil {
			return nil, err
		}
		return &ChatCompletionResponse{Completion: chat}, nil
	}

	if resp == nil || resp.Stream == nil {
		return nil, api.NewServerError("backend returned no stream for a streaming request")
	}
	mapper := func(c *Completion) (*ChatCompletionChunk, error) {
		return ToChatCompletionChunk(c, role)
	}
	return &ChatCompletionResponse{Stream: NewChatCompletionStream(resp.Stream, mapper)}, nil
}

// closeStream releases a stream handed back where none was expected.
func closeStream(resp *CompletionResponse) {
	if resp != nil && resp.Stream != nil {
		resp.Stream.Close()
	}
}
