package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/openai"
	"github.com/tidwall/gjson"
)

// maxLineSize bounds a single SSE line. Chunks carrying top-k logprobs can
// exceed bufio's 64 KiB default.
const maxLineSize = 1 << 20

// sseStream reads completion chunks from an SSE body, one per Recv.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Lines that do not start with "data: " are ignored. An error event or a
// malformed chunk ends the stream with an error.
type sseStream struct {
	ctx     context.Context
	body    io.ReadCloser
	scanner *bufio.Scanner

	done      bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	received  int
}

// Ensure sseStream implements openai.CompletionStream at compile time.
var _ openai.CompletionStream = (*sseStream)(nil)

func newSSEStream(ctx context.Context, body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &sseStream{
		ctx:     ctx,
		body:    body,
		scanner: scanner,
	}
}

// Recv reads lines until the next data chunk and decodes it. It returns
// io.EOF after the [DONE] sentinel, at the end of the body, or once the
// stream has been closed.
func (s *sseStream) Recv() (*openai.Completion, error) {
	if s.done || s.closed.Load() {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		if err := s.ctx.Err(); err != nil {
			s.finish()
			return nil, err
		}

		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			debug.Log(debug.Streaming, "stream finished", "chunks", s.received)
			s.finish()
			return nil, io.EOF
		}

		// Backends report failures mid-stream as {"error":{...}} or {"error":"..."}.
		if gjson.Get(payload, "error").Exists() {
			s.finish()
			msg := backendErrorFrom(gjson.Parse(payload)).Message
			if msg == "" {
				msg = "backend reported a stream error"
			}
			return nil, api.NewModelError(msg)
		}

		var chunk openai.Completion
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.finish()
			slog.Warn("malformed SSE chunk",
				"error", err.Error(),
				"data", debug.Truncate(payload, 200),
			)
			return nil, api.NewServerError("malformed SSE chunk: " + err.Error())
		}

		s.received++
		debug.Trace(debug.Streaming, "chunk received", "index", s.received, "id", chunk.ID)
		return &chunk, nil
	}

	s.finish()

	if s.closed.Load() {
		return nil, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.scanner.Err(); err != nil {
		return nil, api.NewServerError("SSE stream read error: " + err.Error())
	}
	return nil, io.EOF
}

// Close closes the response body. A Recv blocked on the body returns io.EOF.
func (s *sseStream) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

func (s *sseStream) finish() {
	s.done = true
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
}
