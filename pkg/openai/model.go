package openai

import "context"

// CompletionModel is a backend that serves text completions. It is the
// thing being adapted.
//
// When req.IsStream() is true the response must carry a Stream, otherwise a
// Completion. Implementations must be safe for concurrent use.
type CompletionModel interface {
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionResponse carries exactly one of Completion or Stream.
type CompletionResponse struct {
	Completion *Completion
	Stream     CompletionStream
}

// ChatTemplater renders chat messages into a single prompt. Implementations
// must be deterministic and free of side effects.
type ChatTemplater interface {
	ApplyChatTemplate(messages []ChatCompletionMessage) (*ChatPrompt, error)
}

// ChatTemplaterFunc adapts an ordinary function to ChatTemplater.
type ChatTemplaterFunc func(messages []ChatCompletionMessage) (*ChatPrompt, error)

// ApplyChatTemplate calls f(messages).
func (f ChatTemplaterFunc) ApplyChatTemplate(messages []ChatCompletionMessage) (*ChatPrompt, error) {
	return f(messages)
}

// ChatModel serves chat completions.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ChatModelFunc adapts an ordinary function to ChatModel.
type ChatModelFunc func(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

// CreateChatCompletion calls f(ctx, req).
func (f ChatModelFunc) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	return f(ctx, req)
}

// ChatCompletionResponse carries exactly one of Completion or Stream. A
// Stream is returned before any chunk has been produced; the caller drives
// consumption and must Close it.
type ChatCompletionResponse struct {
	Completion *ChatCompletion
	Stream     *ChatCompletionStream
}

// IsStream reports whether the response is a chunk stream.
func (r *ChatCompletionResponse) IsStream() bool {
	return r.Stream != nil
}
