package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// RequestID returns middleware that assigns a request ID to each request.
// An ID already present in the context is kept; otherwise a random UUID is
// generated.
func RequestID() Middleware {
	return func(next openai.ChatModel) openai.ChatModel {
		return openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, uuid.NewString())
			}
			return next.CreateChatCompletion(ctx, req)
		})
	}
}
