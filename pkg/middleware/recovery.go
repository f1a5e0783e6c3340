package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// Recovery returns middleware that turns a panic in the wrapped model into
// a server error.
func Recovery() Middleware {
	return func(next openai.ChatModel) openai.ChatModel {
		return openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (resp *openai.ChatCompletionResponse, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in chat model",
						"request_id", RequestIDFromContext(ctx),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					resp = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.CreateChatCompletion(ctx, req)
		})
	}
}
