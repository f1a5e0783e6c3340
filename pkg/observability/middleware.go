package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/chatbridge/pkg/middleware"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// Metrics returns chat middleware that records:
//   - chatbridge_chat_requests_total (counter): per request with mode, status and model labels
//   - chatbridge_chat_request_duration_seconds (histogram): time until the result or stream was returned
func Metrics() middleware.Middleware {
	return func(next openai.ChatModel) openai.ChatModel {
		return openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
			if req == nil {
				return next.CreateChatCompletion(ctx, req)
			}
			start := time.Now()

			mode := "sync"
			if req.IsStream() {
				mode = "stream"
			}
			model := req.Model
			if model == "" {
				model = "unknown"
			}

			resp, err := next.CreateChatCompletion(ctx, req)

			ChatRequestsTotal.WithLabelValues(mode, StatusLabel(err), model).Inc()
			ChatRequestDuration.WithLabelValues(mode, model).Observe(time.Since(start).Seconds())
			return resp, err
		})
	}
}

// HTTPMetrics wraps an HTTP handler to count requests by method, status
// class and path.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		statusStr := strconv.Itoa(sw.status/100) + "xx"
		HTTPRequestsTotal.WithLabelValues(r.Method, statusStr, r.URL.Path).Inc()
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// SSE responses depend on it.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
