package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/chatbridge/pkg/openai"
)

// Logging returns middleware that emits one structured log entry per chat
// request with the request ID, model, stream flag, duration and outcome.
// For streams the duration covers the time until the stream was returned.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next openai.ChatModel) openai.ChatModel {
		return openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
			if req == nil {
				return next.CreateChatCompletion(ctx, req)
			}
			start := time.Now()

			resp, err := next.CreateChatCompletion(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.IsStream()),
				slog.Int("messages", len(req.Messages)),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "chat completion failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "chat completion served", attrs...)
			}

			return resp, err
		})
	}
}
