package openai

import (
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
)

// CompletionStream is a single-pass, pull-based sequence of completion
// results produced by a streaming backend. Recv returns io.EOF once the
// backend has finished. Close releases the underlying resources; after
// Close no further elements are pulled.
type CompletionStream interface {
	Recv() (*Completion, error)
	Close() error
}

// ChunkMapper converts one completion stream element into a chat chunk.
type ChunkMapper func(*Completion) (*ChatCompletionChunk, error)

// ChatCompletionStream wraps a CompletionStream and maps each element to a
// ChatCompletionChunk on demand. It holds no buffer: the Nth Recv pulls
// exactly the Nth backend element.
//
// A ChatCompletionStream is not safe for concurrent Recv calls.
type ChatCompletionStream struct {
	source CompletionStream
	mapper ChunkMapper

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewChatCompletionStream wraps source, applying mapper to every element.
func NewChatCompletionStream(source CompletionStream, mapper ChunkMapper) *ChatCompletionStream {
	return &ChatCompletionStream{
		source: source,
		mapper: mapper,
	}
}

// Recv pulls the next backend element and returns its chat chunk. It
// returns io.EOF when the backend stream is exhausted and passes any other
// backend error through unchanged. After Close it returns io.EOF without
// touching the backend stream.
func (s *ChatCompletionStream) Recv() (*ChatCompletionChunk, error) {
	if s.closed.Load() {
		return nil, io.EOF
	}
	completion, err := s.source.Recv()
	if err != nil {
		return nil, err
	}
	return s.mapper(completion)
}

// Close stops the stream and closes the backend stream. It is safe to call
// more than once.
func (s *ChatCompletionStream) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		s.closeErr = s.source.Close()
	})
	return s.closeErr
}

// All returns an iterator over the remaining chunks. Iteration ends after
// the last chunk or after yielding a non-EOF error. The stream is closed
// when iteration ends, including when the consumer stops early.
func (s *ChatCompletionStream) All() iter.Seq2[*ChatCompletionChunk, error] {
	return func(yield func(*ChatCompletionChunk, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}
