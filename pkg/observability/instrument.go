package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// InstrumentModel wraps a completion backend so every request is recorded
// under the given backend label.
func InstrumentModel(backend string, model openai.CompletionModel) openai.CompletionModel {
	return &instrumentedModel{backend: backend, next: model}
}

type instrumentedModel struct {
	backend string
	next    openai.CompletionModel
}

func (m *instrumentedModel) CreateCompletion(ctx context.Context, req *openai.CompletionRequest) (*openai.CompletionResponse, error) {
	start := time.Now()
	resp, err := m.next.CreateCompletion(ctx, req)
	BackendLatency.WithLabelValues(m.backend, req.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		BackendRequestsTotal.WithLabelValues(m.backend, req.Model, StatusLabel(err)).Inc()
		return nil, err
	}
	BackendRequestsTotal.WithLabelValues(m.backend, req.Model, "ok").Inc()
	if resp == nil {
		return nil, nil
	}

	if resp.Completion != nil && resp.Completion.Usage != nil {
		u := resp.Completion.Usage
		BackendTokensTotal.WithLabelValues(m.backend, req.Model, "input").Add(float64(u.PromptTokens))
		BackendTokensTotal.WithLabelValues(m.backend, req.Model, "output").Add(float64(u.CompletionTokens))
	}

	if resp.Stream != nil {
		StreamsActive.Inc()
		resp = &openai.CompletionResponse{
			Completion: resp.Completion,
			Stream:     &instrumentedStream{
				next:   resp.Stream,
				chunks: StreamChunksTotal.WithLabelValues(m.backend, req.Model),
			},
		}
	}
	return resp, nil
}

// instrumentedStream counts chunks and releases the active-stream gauge
// exactly once, on the first of end of stream, error or Close.
type instrumentedStream struct {
	next   openai.CompletionStream
	chunks prometheus.Counter

	release sync.Once
}

func (s *instrumentedStream) Recv() (*openai.Completion, error) {
	c, err := s.next.Recv()
	if err != nil {
		s.done()
		return nil, err
	}
	s.chunks.Inc()
	return c, nil
}

func (s *instrumentedStream) Close() error {
	s.done()
	return s.next.Close()
}

func (s *instrumentedStream) done() {
	s.release.Do(StreamsActive.Dec)
}

// StatusLabel returns the metric status for err: "ok" for nil, the API
// error type for an *api.APIError, "canceled" for context cancellation and
// "error" otherwise.
func StatusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}
